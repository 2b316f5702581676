package controller

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	helper "github.com/zhuangyifan-666/web-task/internals/helpers"

	"github.com/zhuangyifan-666/web-task/internals/features/comments/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/comments/model"
	"github.com/zhuangyifan-666/web-task/internals/features/comments/service"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

type CommentController struct {
	DB       *gorm.DB
	Service  *service.CommentService
	Validate *validator.Validate
}

func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{
		DB:       db,
		Service:  service.NewCommentService(db),
		Validate: validator.New(),
	}
}

// =============================
// ========== READS ============
// =============================

// GetByActivity lists top-level comments for an activity with their
// replies, newest first. Like counts reflect the caller when logged in.
func (ctrl *CommentController) GetByActivity(c *fiber.Ctx) error {
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	paging := helper.ResolvePaging(c, 20, 100)

	base := model.TopLevel(model.VisibleComments(ctrl.DB.Model(&model.CommentModel{}))).
		Where("comment_activity_id = ?", activityID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count comments")
	}

	var comments []model.CommentModel
	err = model.TopLevel(model.VisibleComments(ctrl.DB)).
		Where("comment_activity_id = ?", activityID).
		Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return model.VisibleComments(db).Order("comment_created_at ASC")
		}).
		Preload("Replies.User").
		Order("comment_created_at DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&comments).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch comments")
	}

	callerID, _ := helper.GetUserUUID(c)

	likeCounts, likedSet, err := ctrl.likeState(comments, callerID)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch like counts")
	}

	responses := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		cm := &comments[i]
		resp := dto.ToCommentResponse(cm, likeCounts[cm.ID], likedSet[cm.ID])
		for j := range cm.Replies {
			reply := &cm.Replies[j]
			resp.Replies = append(resp.Replies, dto.ToCommentResponse(reply, likeCounts[reply.ID], likedSet[reply.ID]))
		}
		responses = append(responses, resp)
	}

	return helper.JsonList(c, "Comments fetched successfully", responses,
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GetMine lists the caller's own comments, newest first, with the activity
// each one belongs to. Deleted comments are excluded.
func (ctrl *CommentController) GetMine(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	paging := helper.ResolvePaging(c, 20, 100)

	var total int64
	err = model.VisibleComments(ctrl.DB.Model(&model.CommentModel{})).
		Where("comment_user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to count comments")
	}

	var comments []model.CommentModel
	err = model.VisibleComments(ctrl.DB).
		Where("comment_user_id = ?", userID).
		Preload("Activity").
		Order("comment_created_at DESC").
		Offset(paging.Offset).
		Limit(paging.Limit).
		Find(&comments).Error
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch comments")
	}

	likeCounts, likedSet, err := ctrl.likeState(comments, userID)
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Failed to fetch like counts")
	}

	responses := make([]dto.CommentResponse, 0, len(comments))
	for i := range comments {
		cm := &comments[i]
		responses = append(responses, dto.ToCommentResponse(cm, likeCounts[cm.ID], likedSet[cm.ID]))
	}

	return helper.JsonList(c, "Comments fetched successfully", responses,
		helper.BuildPagination(total, paging.Page, paging.PerPage))
}

// GetStats returns the review aggregates for an activity.
func (ctrl *CommentController) GetStats(c *fiber.Ctx) error {
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	stats, err := ctrl.Service.Stats(activityID)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonOK(c, "Comment statistics fetched successfully", stats)
}

// =============================
// ========== WRITES ===========
// =============================

func (ctrl *CommentController) Create(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	activityID, err := uuid.Parse(c.Params("activityId"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid activity ID")
	}

	var req dto.CreateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}
	if req.Rating == 0 {
		req.Rating = 5
	}

	comment, err := ctrl.Service.Create(userID, activityID, service.CreateCommentInput{
		Content:         req.Content,
		Rating:          req.Rating,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonCreated(c, "Comment posted successfully", dto.ToCommentResponse(comment, 0, false))
}

func (ctrl *CommentController) Update(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	commentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid comment ID")
	}

	var req dto.UpdateCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := ctrl.Validate.Struct(req); err != nil {
		return helper.JsonValidationError(c, err)
	}

	comment, err := ctrl.Service.Update(actor, commentID, req.Content, req.Rating)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	likeCount, _ := ctrl.Service.LikeCount(comment.ID)
	hasLiked, _ := ctrl.Service.HasLiked(comment.ID, actor.ID)
	return helper.JsonUpdated(c, "Comment updated successfully", dto.ToCommentResponse(comment, likeCount, hasLiked))
}

func (ctrl *CommentController) Delete(c *fiber.Ctx) error {
	actor, err := ctrl.loadActor(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	commentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid comment ID")
	}

	if err := ctrl.Service.SoftDelete(actor, commentID); err != nil {
		return helper.FromFiberError(c, err)
	}
	return helper.JsonDeleted(c, "Comment deleted successfully", nil)
}

func (ctrl *CommentController) ToggleLike(c *fiber.Ctx) error {
	userID, err := helper.GetUserUUID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	commentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Invalid comment ID")
	}

	result, err := ctrl.Service.ToggleLike(userID, commentID)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	msg := "Comment unliked"
	if result.Liked {
		msg = "Comment liked"
	}
	return helper.JsonOK(c, msg, result)
}

// =============================
// ========= INTERNAL ==========
// =============================

func (ctrl *CommentController) loadActor(c *fiber.Ctx) (*userModel.UserModel, error) {
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

// likeState batches active-like counts for a page of comments (including
// replies) and marks which ones the caller has liked.
func (ctrl *CommentController) likeState(comments []model.CommentModel, callerID uuid.UUID) (map[uuid.UUID]int64, map[uuid.UUID]bool, error) {
	ids := make([]uuid.UUID, 0, len(comments)*2)
	for i := range comments {
		ids = append(ids, comments[i].ID)
		for j := range comments[i].Replies {
			ids = append(ids, comments[i].Replies[j].ID)
		}
	}

	counts := make(map[uuid.UUID]int64, len(ids))
	liked := make(map[uuid.UUID]bool)
	if len(ids) == 0 {
		return counts, liked, nil
	}

	var rows []struct {
		CommentID uuid.UUID
		Count     int64
	}
	err := ctrl.DB.Model(&model.CommentLikeModel{}).
		Select("comment_like_comment_id AS comment_id, COUNT(*) AS count").
		Where("comment_like_comment_id IN ? AND comment_like_is_liked = ?", ids, true).
		Group("comment_like_comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, err
	}
	for _, r := range rows {
		counts[r.CommentID] = r.Count
	}

	if callerID != uuid.Nil {
		var likedIDs []uuid.UUID
		err := ctrl.DB.Model(&model.CommentLikeModel{}).
			Where("comment_like_comment_id IN ? AND comment_like_user_id = ? AND comment_like_is_liked = ?", ids, callerID, true).
			Pluck("comment_like_comment_id", &likedIDs).Error
		if err != nil {
			return nil, nil, err
		}
		for _, id := range likedIDs {
			liked[id] = true
		}
	}

	return counts, liked, nil
}
