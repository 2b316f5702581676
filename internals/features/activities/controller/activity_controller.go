package controller

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
	helper "github.com/zhuangyifan-666/web-task/internals/helpers"

	"github.com/zhuangyifan-666/web-task/internals/features/activities/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	"github.com/zhuangyifan-666/web-task/internals/features/activities/service"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

type ActivityController struct {
	DB       *gorm.DB
	Service  *service.ActivityService
	Validate *validator.Validate
}

func NewActivityController(db *gorm.DB) *ActivityController {
	return &ActivityController{
		DB:       db,
		Service:  service.NewActivityService(db),
		Validate: validator.New(),
	}
}

// =============================
// ========== READS ============
// =============================

// GetAll lists activities. Anonymous callers only see published ones;
// ?category=, ?status=, ?search= narrow the result.
func (ctrl *ActivityController) GetAll(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 10, 50)

	query := ctrl.DB.Model(&model.ActivityModel{})

	role := helper.GetUserRole(c)
	isAdmin := constants.IsAdminRole(role)

	status := strings.TrimSpace(c.Query("status"))
	switch {
	case isAdmin && status != "":
		query = query.Where("activity_status = ?", status)
	case isAdmin:
		// admins see everything
	default:
		query = query.Where("activity_status = ? AND activity_approval_status = ?",
			model.StatusPublished, model.ApprovalApproved)
	}

	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("activity_category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"activity_title LIKE ? OR activity_description LIKE ? OR activity_location LIKE ?",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count activities")
	}

	var activities []model.ActivityModel
	err := query.
		Preload("Organizer").
		Order("activity_start_time ASC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&activities).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activities")
	}

	responses := ctrl.withRegistrationState(c, activities)
	return helper.JsonList(c, "Activities fetched successfully", responses,
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// Search filters the published catalogue by keyword, category, start-time
// window and maximum price, sorted by start time.
func (ctrl *ActivityController) Search(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 10, 50)

	query := ctrl.DB.Model(&model.ActivityModel{}).
		Where("activity_status = ? AND activity_approval_status = ?",
			model.StatusPublished, model.ApprovalApproved)

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"activity_title LIKE ? OR activity_description LIKE ? OR activity_location LIKE ?",
			like, like, like,
		)
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		query = query.Where("activity_category = ?", category)
	}
	if raw := strings.TrimSpace(c.Query("startDate")); raw != "" {
		from, err := parseQueryTime(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid startDate")
		}
		query = query.Where("activity_start_time >= ?", from)
	}
	if raw := strings.TrimSpace(c.Query("endDate")); raw != "" {
		to, err := parseQueryTime(raw)
		if err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid endDate")
		}
		query = query.Where("activity_start_time <= ?", to)
	}
	if raw := strings.TrimSpace(c.Query("maxPrice")); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid maxPrice")
		}
		query = query.Where("activity_price <= ?", maxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count activities")
	}

	var activities []model.ActivityModel
	err := query.
		Preload("Organizer").
		Order("activity_start_time ASC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&activities).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to search activities")
	}

	responses := ctrl.withRegistrationState(c, activities)
	return helper.JsonList(c, "Activities fetched successfully", responses,
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// parseQueryTime accepts RFC3339 or a bare date.
func parseQueryTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

// GetByID returns one activity with its confirmed participants and, for a
// logged-in caller, their own registration. Each hit bumps the view count.
func (ctrl *ActivityController) GetByID(c *fiber.Ctx) error {
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var activity model.ActivityModel
	if err := ctrl.DB.Preload("Organizer").First(&activity, "activity_id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Activity not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activity")
	}

	callerID, _ := helper.GetUserUUID(c)

	// Unpublished activities are only visible to their organizer and admins.
	if activity.Status != model.StatusPublished {
		role := helper.GetUserRole(c)
		if activity.OrganizerID != callerID && !constants.IsAdminRole(role) {
			return helper.JsonError(c, fiber.StatusNotFound, "Activity not found")
		}
	}

	// View count is best effort, not part of any invariant.
	ctrl.DB.Model(&model.ActivityModel{}).
		Where("activity_id = ?", activityID).
		UpdateColumn("activity_view_count", gorm.Expr("activity_view_count + 1"))
	activity.ViewCount++

	var participants []registrationModel.RegistrationModel
	err = ctrl.DB.
		Where("registration_activity_id = ? AND registration_status = ?", activityID, registrationModel.StatusConfirmed).
		Preload("User").
		Order("registration_time ASC").
		Find(&participants).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch participants")
	}

	resp := dto.ToActivityResponse(&activity, ctrl.Service.Now())
	data := fiber.Map{
		"activity":     resp,
		"participants": registrationUsers(participants),
	}

	if callerID != uuid.Nil {
		var reg registrationModel.RegistrationModel
		err := ctrl.DB.
			Where("registration_user_id = ? AND registration_activity_id = ? AND registration_status <> ?",
				callerID, activityID, registrationModel.StatusCancelled).
			First(&reg).Error
		if err == nil {
			data["my_registration"] = fiber.Map{
				"id":     reg.ID,
				"status": reg.Status,
			}
		}
	}

	return helper.JsonOK(c, "Activity fetched successfully", data)
}

// GetRecommended surfaces upcoming published activities, featured first,
// then by popularity.
func (ctrl *ActivityController) GetRecommended(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 6, 20)

	var activities []model.ActivityModel
	err := ctrl.DB.
		Where("activity_status = ? AND activity_approval_status = ?", model.StatusPublished, model.ApprovalApproved).
		Where("activity_start_time > ?", ctrl.Service.Now()).
		Preload("Organizer").
		Order("activity_is_featured DESC, activity_view_count DESC, activity_start_time ASC").
		Limit(paging.Limit).
		Find(&activities).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activities")
	}

	responses := ctrl.withRegistrationState(c, activities)
	return helper.JsonOK(c, "Recommended activities fetched successfully", responses)
}

// GetCategories returns the accepted category list with usage counts.
func (ctrl *ActivityController) GetCategories(c *fiber.Ctx) error {
	var rows []struct {
		Category string
		Count    int64
	}
	err := ctrl.DB.Model(&model.ActivityModel{}).
		Select("activity_category AS category, COUNT(*) AS count").
		Where("activity_status = ?", model.StatusPublished).
		Group("activity_category").
		Scan(&rows).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch categories")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Category] = row.Count
	}

	categories := make([]fiber.Map, 0, len(model.Categories))
	for _, cat := range model.Categories {
		categories = append(categories, fiber.Map{
			"name":  cat,
			"count": counts[cat],
		})
	}
	return helper.JsonOK(c, "Categories fetched successfully", categories)
}

// GetStats reports platform-wide totals.
func (ctrl *ActivityController) GetStats(c *fiber.Ctx) error {
	var totalActivities, publishedActivities, totalRegistrations, totalUsers int64

	if err := ctrl.DB.Model(&model.ActivityModel{}).Count(&totalActivities).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to compute statistics")
	}
	ctrl.DB.Model(&model.ActivityModel{}).
		Where("activity_status = ?", model.StatusPublished).
		Count(&publishedActivities)
	ctrl.DB.Model(&registrationModel.RegistrationModel{}).
		Where("registration_status <> ?", registrationModel.StatusCancelled).
		Count(&totalRegistrations)
	ctrl.DB.Model(&userModel.UserModel{}).Count(&totalUsers)

	return helper.JsonOK(c, "Platform statistics fetched successfully", fiber.Map{
		"total_activities":     totalActivities,
		"published_activities": publishedActivities,
		"total_registrations":  totalRegistrations,
		"total_users":          totalUsers,
	})
}

// GetPending lists activities awaiting moderation. Admin only (route-gated).
func (ctrl *ActivityController) GetPending(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 10, 50)

	query := ctrl.DB.Model(&model.ActivityModel{}).
		Where("activity_status = ? AND activity_approval_status = ?", model.StatusPending, model.ApprovalPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count activities")
	}

	var activities []model.ActivityModel
	err := query.
		Preload("Organizer").
		Order("activity_created_at ASC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&activities).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activities")
	}

	return helper.JsonList(c, "Pending activities fetched successfully",
		dto.ToActivityResponses(activities, ctrl.Service.Now()),
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GetMine lists the caller's own activities in any state.
func (ctrl *ActivityController) GetMine(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	paging := helper.ResolvePaging(c, 10, 50)

	query := ctrl.DB.Model(&model.ActivityModel{}).
		Where("activity_organizer_id = ?", userID)
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		query = query.Where("activity_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count activities")
	}

	var activities []model.ActivityModel
	err = query.
		Order("activity_created_at DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&activities).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activities")
	}

	return helper.JsonList(c, "Activities fetched successfully",
		dto.ToActivityResponses(activities, ctrl.Service.Now()),
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// =============================
// ========== WRITES ===========
// =============================

func (ctrl *ActivityController) Create(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req dto.CreateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}

	activity, err := ctrl.Service.Create(actor, &req)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonCreated(c, "Activity created successfully",
		dto.ToActivityResponse(activity, ctrl.Service.Now()))
}

func (ctrl *ActivityController) Update(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var req dto.UpdateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}

	activity, err := ctrl.Service.Update(actor, activityID, &req)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonUpdated(c, "Activity updated successfully",
		dto.ToActivityResponse(activity, ctrl.Service.Now()))
}

// Delete removes an activity. ?force=true lets a superadmin delete one
// with active registrations, cancelling them first.
func (ctrl *ActivityController) Delete(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	force := c.Query("force") == "true"
	if err := ctrl.Service.Delete(actor, activityID, force); err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonDeleted(c, "Activity deleted successfully", nil)
}

func (ctrl *ActivityController) Approve(c *fiber.Ctx) error {
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	activity, err := ctrl.Service.Approve(activityID)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonUpdated(c, "Activity approved successfully",
		dto.ToActivityResponse(activity, ctrl.Service.Now()))
}

func (ctrl *ActivityController) Reject(c *fiber.Ctx) error {
	activityID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var req dto.RejectActivityRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := ctrl.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, err)
		}
	}

	activity, err := ctrl.Service.Reject(activityID, req.Reason)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonUpdated(c, "Activity rejected", dto.ToActivityResponse(activity, ctrl.Service.Now()))
}

// =============================
// ========= INTERNAL ==========
// =============================

func (ctrl *ActivityController) loadActor(c *fiber.Ctx) (*userModel.UserModel, error) {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return nil, err
	}
	var user userModel.UserModel
	if err := ctrl.DB.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "User not found")
		}
		return nil, err
	}
	return &user, nil
}

// withRegistrationState annotates a page of activities with the caller's
// non-cancelled registration status, when logged in.
func (ctrl *ActivityController) withRegistrationState(c *fiber.Ctx, activities []model.ActivityModel) []dto.ActivityResponse {
	responses := dto.ToActivityResponses(activities, ctrl.Service.Now())

	callerID, err := helper.GetUserUUID(c)
	if err != nil || len(activities) == 0 {
		return responses
	}

	ids := make([]uuid.UUID, 0, len(activities))
	for i := range activities {
		ids = append(ids, activities[i].ID)
	}

	var regs []registrationModel.RegistrationModel
	if err := ctrl.DB.
		Select("registration_activity_id", "registration_status").
		Where("registration_user_id = ? AND registration_activity_id IN ? AND registration_status <> ?",
			callerID, ids, registrationModel.StatusCancelled).
		Find(&regs).Error; err != nil {
		return responses
	}

	statusByActivity := make(map[uuid.UUID]string, len(regs))
	for i := range regs {
		statusByActivity[regs[i].ActivityID] = regs[i].Status
	}
	for i := range responses {
		if status, ok := statusByActivity[responses[i].ID]; ok {
			responses[i].MyRegistrationStatus = status
		}
	}
	return responses
}

func registrationUsers(regs []registrationModel.RegistrationModel) []fiber.Map {
	users := make([]fiber.Map, 0, len(regs))
	for i := range regs {
		if regs[i].User == nil {
			continue
		}
		users = append(users, fiber.Map{
			"id":       regs[i].User.ID,
			"username": regs[i].User.Username,
			"avatar":   regs[i].User.Avatar,
		})
	}
	return users
}
