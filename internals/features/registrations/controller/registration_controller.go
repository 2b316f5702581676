package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "github.com/zhuangyifan-666/web-task/internals/helpers"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	"github.com/zhuangyifan-666/web-task/internals/features/registrations/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	"github.com/zhuangyifan-666/web-task/internals/features/registrations/service"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

type RegistrationController struct {
	DB       *gorm.DB
	Service  *service.RegistrationService
	Validate *validator.Validate
}

func NewRegistrationController(db *gorm.DB) *RegistrationController {
	return &RegistrationController{
		DB:       db,
		Service:  service.NewRegistrationService(db),
		Validate: validator.New(),
	}
}

// =============================
// ========== WRITES ===========
// =============================

// Register signs the caller up for an activity. A 201 with
// confirmed=false means the caller landed on the waitlist.
func (ctrl *RegistrationController) Register(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var req dto.RegisterActivityRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := ctrl.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, err)
		}
	}

	result, err := ctrl.Service.Register(userID, activityID, req.Notes)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	msg := "Added to waitlist"
	if result.Confirmed {
		msg = "Registration confirmed"
	}
	return helper.JsonCreated(c, msg, dto.RegisterResponse{
		Registration: dto.ToRegistrationResponse(result.Registration),
		Confirmed:    result.Confirmed,
	})
}

// Cancel withdraws the caller's own registration.
func (ctrl *RegistrationController) Cancel(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var req dto.CancelRegistrationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := ctrl.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, err)
		}
	}

	if err := ctrl.Service.Cancel(userID, activityID, req.Reason); err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "Registration cancelled successfully", nil)
}

// AdminCancel lets the organizer or an admin cancel any registration.
func (ctrl *RegistrationController) AdminCancel(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	registrationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid registration ID")
	}

	var req dto.CancelRegistrationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
		}
		if err := ctrl.Validate.Struct(req); err != nil {
			return helper.JsonValidationError(c, err)
		}
	}

	if err := ctrl.Service.AdminCancel(actor, registrationID, req.Reason); err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "Registration cancelled successfully", nil)
}

// Confirm promotes a waitlisted registration if a seat is available.
func (ctrl *RegistrationController) Confirm(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	registrationID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid registration ID")
	}

	if err := ctrl.Service.ConfirmFromWaitlist(actor, registrationID); err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "Registration confirmed successfully", nil)
}

// =============================
// ========== READS ============
// =============================

// GetMine lists the caller's registrations, newest first. ?status=
// filters on a single state.
func (ctrl *RegistrationController) GetMine(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	paging := helper.ResolvePaging(c, 10, 50)

	query := ctrl.DB.Model(&model.RegistrationModel{}).
		Where("registration_user_id = ?", userID)
	if status := c.Query("status"); status != "" {
		query = query.Where("registration_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count registrations")
	}

	var regs []model.RegistrationModel
	err = query.
		Preload("Activity").
		Order("registration_time DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&regs).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch registrations")
	}

	return helper.JsonList(c, "Registrations fetched successfully",
		dto.ToRegistrationResponses(regs),
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GetByActivity lists an activity's registrations for its organizer or an
// admin, with per-status counts. Waitlist ordering matches promotion order.
func (ctrl *RegistrationController) GetByActivity(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var activity activityModel.ActivityModel
	if err := ctrl.DB.First(&activity, "activity_id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return helper.JsonError(c, fiber.StatusNotFound, "Activity not found")
		}
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch activity")
	}
	if activity.OrganizerID != actor.ID && !actor.IsAdmin() {
		return helper.JsonError(c, fiber.StatusForbidden, "Only the organizer or an admin may view registrations")
	}

	paging := helper.ResolvePaging(c, 20, 100)

	query := ctrl.DB.Model(&model.RegistrationModel{}).
		Where("registration_activity_id = ?", activityID)
	if status := c.Query("status"); status != "" {
		query = query.Where("registration_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count registrations")
	}

	var regs []model.RegistrationModel
	err = query.
		Preload("User").
		Order("registration_time ASC, registration_id ASC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&regs).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch registrations")
	}

	var statusRows []struct {
		Status string
		Count  int64
	}
	err = ctrl.DB.Model(&model.RegistrationModel{}).
		Select("registration_status AS status, COUNT(*) AS count").
		Where("registration_activity_id = ?", activityID).
		Group("registration_status").
		Scan(&statusRows).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count registration statuses")
	}
	statusCounts := make(map[string]int64, len(statusRows))
	for _, row := range statusRows {
		statusCounts[row.Status] = row.Count
	}

	return helper.JsonList(c, "Registrations fetched successfully", fiber.Map{
		"registrations": dto.ToRegistrationResponses(regs),
		"status_counts": statusCounts,
	}, helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// =============================
// ========= INTERNAL ==========
// =============================

func (ctrl *RegistrationController) loadActor(c *fiber.Ctx) (*userModel.UserModel, error) {
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
