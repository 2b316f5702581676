package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// Who performed a soft delete.
const (
	DeletedByUser  = "user"
	DeletedByAdmin = "admin"
)

// CommentModel is a review (top-level, carries the rating that feeds the
// activity aggregates) or a reply (ParentCommentID set, one level deep).
// Deletion is always soft: the row stays, reads filter on the flag.
type CommentModel struct {
	ID              uuid.UUID  `gorm:"column:comment_id;type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID  `gorm:"column:comment_user_id;type:uuid;not null;index" json:"user_id"`
	ActivityID      uuid.UUID  `gorm:"column:comment_activity_id;type:uuid;not null;index" json:"activity_id"`
	Content         string     `gorm:"column:comment_content;size:1000;not null" json:"content"`
	Rating          int        `gorm:"column:comment_rating;not null;default:5" json:"rating"`
	ParentCommentID *uuid.UUID `gorm:"column:comment_parent_id;type:uuid;index" json:"parent_comment_id,omitempty"`
	IsEdited        bool       `gorm:"column:comment_is_edited;not null;default:false" json:"is_edited"`
	EditedAt        *time.Time `gorm:"column:comment_edited_at" json:"edited_at,omitempty"`
	IsDeleted       bool       `gorm:"column:comment_is_deleted;not null;default:false;index" json:"is_deleted"`
	DeletedAt       *time.Time `gorm:"column:comment_deleted_at" json:"deleted_at,omitempty"`
	DeletedBy       string     `gorm:"column:comment_deleted_by;size:20" json:"deleted_by,omitempty"`
	CreatedAt       time.Time  `gorm:"column:comment_created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"column:comment_updated_at;autoUpdateTime" json:"updated_at"`

	User     *userModel.UserModel         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Activity *activityModel.ActivityModel `gorm:"foreignKey:ActivityID" json:"-"`
	Replies  []CommentModel               `gorm:"foreignKey:ParentCommentID" json:"replies,omitempty"`
	Likes    []CommentLikeModel           `gorm:"foreignKey:CommentID" json:"-"`
}

func (CommentModel) TableName() string {
	return "comments"
}

func (c *CommentModel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Rating == 0 {
		c.Rating = 5
	}
	return nil
}

// VisibleComments is the default read scope: soft-deleted rows are
// excluded. Audit paths skip this scope explicitly instead of flipping a
// hidden interceptor.
func VisibleComments(db *gorm.DB) *gorm.DB {
	return db.Where("comment_is_deleted = ?", false)
}

// TopLevel restricts a query to reviews (rows without a parent).
func TopLevel(db *gorm.DB) *gorm.DB {
	return db.Where("comment_parent_id IS NULL")
}
