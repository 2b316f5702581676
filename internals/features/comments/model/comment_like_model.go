package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommentLikeModel keeps likes as one row per (comment, user) with a flag
// that flips on every toggle. The unique pair index gives the set
// semantics: repeated likes can never create duplicate entries.
type CommentLikeModel struct {
	ID        uuid.UUID `gorm:"column:comment_like_id;type:uuid;primaryKey" json:"id"`
	CommentID uuid.UUID `gorm:"column:comment_like_comment_id;type:uuid;not null;uniqueIndex:uq_comment_likes_pair" json:"comment_id"`
	UserID    uuid.UUID `gorm:"column:comment_like_user_id;type:uuid;not null;uniqueIndex:uq_comment_likes_pair" json:"user_id"`
	IsLiked   bool      `gorm:"column:comment_like_is_liked;not null;default:true" json:"is_liked"`
	UpdatedAt time.Time `gorm:"column:comment_like_updated_at;autoUpdateTime" json:"updated_at"`
}

func (CommentLikeModel) TableName() string {
	return "comment_likes"
}

func (l *CommentLikeModel) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
