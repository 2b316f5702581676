package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/zhuangyifan-666/web-task/internals/features/comments/model"
	userDTO "github.com/zhuangyifan-666/web-task/internals/features/users/dto"
)

// =============================
// ========= REQUESTS ==========
// =============================

type CreateCommentRequest struct {
	Content         string     `json:"content" validate:"required,min=1,max=1000"`
	Rating          int        `json:"rating" validate:"omitempty,min=1,max=5"`
	ParentCommentID *uuid.UUID `json:"parent_comment_id" validate:"omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
	Rating  int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

// =============================
// ========= RESPONSES =========
// =============================

// CommentActivityInfo is the activity summary attached to a user's own
// comment listing.
type CommentActivityInfo struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	Location  string    `json:"location"`
}

type CommentResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"user_id"`
	ActivityID      uuid.UUID             `json:"activity_id"`
	Content         string                `json:"content"`
	Rating          int                   `json:"rating"`
	ParentCommentID *uuid.UUID            `json:"parent_comment_id,omitempty"`
	IsEdited        bool                  `json:"is_edited"`
	EditedAt        *time.Time            `json:"edited_at,omitempty"`
	LikeCount       int64                 `json:"like_count"`
	HasLiked        bool                  `json:"has_liked"`
	User            *userDTO.UserResponse `json:"user,omitempty"`
	Activity        *CommentActivityInfo  `json:"activity,omitempty"`
	Replies         []CommentResponse     `json:"replies,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func ToCommentResponse(c *model.CommentModel, likeCount int64, hasLiked bool) CommentResponse {
	resp := CommentResponse{
		ID:              c.ID,
		UserID:          c.UserID,
		ActivityID:      c.ActivityID,
		Content:         c.Content,
		Rating:          c.Rating,
		ParentCommentID: c.ParentCommentID,
		IsEdited:        c.IsEdited,
		EditedAt:        c.EditedAt,
		LikeCount:       likeCount,
		HasLiked:        hasLiked,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.User != nil {
		u := userDTO.ToUserResponse(c.User)
		resp.User = &u
	}
	if c.Activity != nil {
		resp.Activity = &CommentActivityInfo{
			ID:        c.Activity.ID,
			Title:     c.Activity.Title,
			StartTime: c.Activity.StartTime,
			Location:  c.Activity.Location,
		}
	}
	return resp
}
