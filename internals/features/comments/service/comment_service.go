package service

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	"github.com/zhuangyifan-666/web-task/internals/features/comments/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// CommentService owns comment writes, like toggling and the rating
// aggregates.
type CommentService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{DB: db, Now: time.Now}
}

type CreateCommentInput struct {
	Content         string
	Rating          int
	ParentCommentID *uuid.UUID
}

// Create posts a review or a single-level reply against a published
// activity.
func (s *CommentService) Create(userID, activityID uuid.UUID, in CreateCommentInput) (*model.CommentModel, error) {
	var comment *model.CommentModel

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned {
			return fiber.NewError(fiber.StatusForbidden, "Your account is banned from commenting")
		}

		var activity activityModel.ActivityModel
		if err := tx.First(&activity, "activity_id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Activity not found")
			}
			return err
		}
		if activity.Status != activityModel.StatusPublished {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Comments are not open for this activity")
		}

		if in.ParentCommentID != nil {
			var parent model.CommentModel
			if err := model.VisibleComments(tx).First(&parent, "comment_id = ?", *in.ParentCommentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fiber.NewError(fiber.StatusNotFound, "Parent comment not found")
				}
				return err
			}
			if parent.ParentCommentID != nil {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Replies can only be one level deep")
			}
			if parent.ActivityID != activityID {
				return fiber.NewError(fiber.StatusUnprocessableEntity, "Parent comment belongs to a different activity")
			}
		}

		comment = &model.CommentModel{
			UserID:          userID,
			ActivityID:      activityID,
			Content:         in.Content,
			Rating:          in.Rating,
			ParentCommentID: in.ParentCommentID,
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// Update edits a comment's content/rating. Author or admin only.
func (s *CommentService) Update(actor *userModel.UserModel, commentID uuid.UUID, content string, rating int) (*model.CommentModel, error) {
	if actor.IsBanned {
		return nil, fiber.NewError(fiber.StatusForbidden, "Your account is banned from commenting")
	}

	var comment model.CommentModel
	if err := model.VisibleComments(s.DB).First(&comment, "comment_id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Comment not found")
		}
		return nil, err
	}
	if comment.UserID != actor.ID && !actor.IsAdmin() {
		return nil, fiber.NewError(fiber.StatusForbidden, "You may only edit your own comments")
	}

	now := s.Now()
	comment.Content = content
	if rating != 0 {
		comment.Rating = rating
	}
	comment.IsEdited = true
	comment.EditedAt = &now
	if err := s.DB.Save(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// SoftDelete flags a comment as deleted, keeping the row for audit.
func (s *CommentService) SoftDelete(actor *userModel.UserModel, commentID uuid.UUID) error {
	var comment model.CommentModel
	if err := model.VisibleComments(s.DB).First(&comment, "comment_id = ?", commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Comment not found")
		}
		return err
	}
	if comment.UserID != actor.ID && !actor.IsAdmin() {
		return fiber.NewError(fiber.StatusForbidden, "You may only delete your own comments")
	}

	deletedBy := model.DeletedByUser
	if actor.IsAdmin() && comment.UserID != actor.ID {
		deletedBy = model.DeletedByAdmin
	}

	now := s.Now()
	return s.DB.Model(&comment).Updates(map[string]any{
		"comment_is_deleted": true,
		"comment_deleted_at": now,
		"comment_deleted_by": deletedBy,
	}).Error
}

// ToggleResult reports the caller's like state after a toggle.
type ToggleResult struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// ToggleLike flips the caller's like on a comment in one atomic upsert.
// Calling it twice returns to the original state.
func (s *CommentService) ToggleLike(userID, commentID uuid.UUID) (*ToggleResult, error) {
	var result ToggleResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := loadUser(tx, userID)
		if err != nil {
			return err
		}
		if user.IsBanned {
			return fiber.NewError(fiber.StatusForbidden, "Your account is banned from liking comments")
		}

		var comment model.CommentModel
		if err := model.VisibleComments(tx).First(&comment, "comment_id = ?", commentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Comment not found")
			}
			return err
		}

		// Atomic toggle: insert liked=TRUE, or flip the existing row.
		var row model.CommentLikeModel
		raw := `
			INSERT INTO comment_likes (
				comment_like_id,
				comment_like_comment_id,
				comment_like_user_id,
				comment_like_is_liked,
				comment_like_updated_at
			)
			VALUES (@id, @comment_id, @user_id, TRUE, @now)
			ON CONFLICT (comment_like_comment_id, comment_like_user_id)
			DO UPDATE SET
				comment_like_is_liked = NOT comment_likes.comment_like_is_liked,
				comment_like_updated_at = @now
			RETURNING
				comment_like_id,
				comment_like_comment_id,
				comment_like_user_id,
				comment_like_is_liked,
				comment_like_updated_at
		`
		if err := tx.Raw(raw,
			sql.Named("id", uuid.New().String()),
			sql.Named("comment_id", commentID.String()),
			sql.Named("user_id", userID.String()),
			sql.Named("now", s.Now()),
		).Scan(&row).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&model.CommentLikeModel{}).
			Where("comment_like_comment_id = ? AND comment_like_is_liked = ?", commentID, true).
			Count(&count).Error; err != nil {
			return err
		}

		result.Liked = row.IsLiked
		result.LikeCount = count
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LikeCount counts active likes for a comment.
func (s *CommentService) LikeCount(commentID uuid.UUID) (int64, error) {
	var count int64
	err := s.DB.Model(&model.CommentLikeModel{}).
		Where("comment_like_comment_id = ? AND comment_like_is_liked = ?", commentID, true).
		Count(&count).Error
	return count, err
}

// HasLiked reports whether a user currently likes a comment.
func (s *CommentService) HasLiked(commentID, userID uuid.UUID) (bool, error) {
	var count int64
	err := s.DB.Model(&model.CommentLikeModel{}).
		Where("comment_like_comment_id = ? AND comment_like_user_id = ? AND comment_like_is_liked = ?", commentID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// CommentStats aggregates the review signal for an activity. Replies and
// soft-deleted comments are excluded: ratings belong to top-level reviews.
type CommentStats struct {
	TotalComments      int64         `json:"total_comments"`
	AvgRating          float64       `json:"avg_rating"`
	TotalLikes         int64         `json:"total_likes"`
	RatingDistribution map[int]int64 `json:"rating_distribution"`
}

func (s *CommentService) Stats(activityID uuid.UUID) (*CommentStats, error) {
	stats := &CommentStats{RatingDistribution: make(map[int]int64)}

	var row struct {
		TotalComments int64
		AvgRating     float64
	}
	err := model.TopLevel(model.VisibleComments(s.DB.Model(&model.CommentModel{}))).
		Select("COUNT(*) AS total_comments, COALESCE(AVG(comment_rating), 0) AS avg_rating").
		Where("comment_activity_id = ?", activityID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	stats.TotalComments = row.TotalComments
	stats.AvgRating = row.AvgRating

	err = s.DB.Table("comment_likes").
		Joins("JOIN comments ON comments.comment_id = comment_likes.comment_like_comment_id").
		Where("comments.comment_activity_id = ? AND comments.comment_parent_id IS NULL AND comments.comment_is_deleted = ?", activityID, false).
		Where("comment_likes.comment_like_is_liked = ?", true).
		Count(&stats.TotalLikes).Error
	if err != nil {
		return nil, err
	}

	var buckets []struct {
		Rating int
		Count  int64
	}
	err = model.TopLevel(model.VisibleComments(s.DB.Model(&model.CommentModel{}))).
		Select("comment_rating AS rating, COUNT(*) AS count").
		Where("comment_activity_id = ?", activityID).
		Group("comment_rating").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	for _, b := range buckets {
		stats.RatingDistribution[b.Rating] = b.Count
	}

	return stats, nil
}

func loadUser(tx *gorm.DB, userID uuid.UUID) (*userModel.UserModel, error) {
	var user userModel.UserModel
	if err := tx.First(&user, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		return nil, err
	}
	return &user, nil
}
