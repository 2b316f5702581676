package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
)

// UserModel represents the users table.
//
// Two independent ban flags, mirrored from the moderation rules:
//   - IsActive=false blocks participation (creating and registering for activities)
//   - IsBanned=true blocks the comment/like surface
type UserModel struct {
	ID        uuid.UUID  `gorm:"column:user_id;type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"column:user_username;size:30;not null;uniqueIndex" json:"username"`
	Email     string     `gorm:"column:user_email;size:255;not null;uniqueIndex" json:"email"`
	Password  string     `gorm:"column:user_password;not null" json:"-"`
	Phone     string     `gorm:"column:user_phone;size:20" json:"phone,omitempty"`
	Avatar    string     `gorm:"column:user_avatar;type:text" json:"avatar,omitempty"`
	Bio       string     `gorm:"column:user_bio;size:500" json:"bio,omitempty"`
	Role      string     `gorm:"column:user_role;type:varchar(20);not null;default:'user'" json:"role"`
	IsActive  bool       `gorm:"column:user_is_active;not null;default:true" json:"is_active"`
	IsBanned  bool       `gorm:"column:user_is_banned;not null;default:false" json:"is_banned"`
	BanReason string     `gorm:"column:user_ban_reason;size:200" json:"ban_reason,omitempty"`
	LastLogin *time.Time `gorm:"column:user_last_login" json:"last_login,omitempty"`
	CreatedAt time.Time  `gorm:"column:user_created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"column:user_updated_at;autoUpdateTime" json:"updated_at"`
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = constants.RoleUser
	}
	return nil
}

func (u *UserModel) IsAdmin() bool {
	return constants.IsAdminRole(u.Role)
}
