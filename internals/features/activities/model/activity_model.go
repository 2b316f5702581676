package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// Activity lifecycle states.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Moderation states.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Categories is the closed set accepted for activity_category.
var Categories = []string{
	"basketball", "football", "badminton", "table_tennis",
	"swimming", "running", "fitness", "yoga", "other",
}

// StartBuffer absorbs small clock skew between clients and the server when
// deciding whether an activity has started.
const StartBuffer = time.Minute

type ActivityModel struct {
	ID                  uuid.UUID      `gorm:"column:activity_id;type:uuid;primaryKey" json:"id"`
	Title               string         `gorm:"column:activity_title;size:100;not null" json:"title"`
	Description         string         `gorm:"column:activity_description;type:text;not null" json:"description"`
	Category            string         `gorm:"column:activity_category;size:30;not null;index" json:"category"`
	Tags                datatypes.JSON `gorm:"column:activity_tags" json:"tags,omitempty"`
	Location            string         `gorm:"column:activity_location;size:200;not null" json:"location"`
	StartTime           time.Time      `gorm:"column:activity_start_time;not null;index" json:"start_time"`
	EndTime             time.Time      `gorm:"column:activity_end_time;not null" json:"end_time"`
	MaxParticipants     int            `gorm:"column:activity_max_participants;not null" json:"max_participants"`
	CurrentParticipants int            `gorm:"column:activity_current_participants;not null;default:0" json:"current_participants"`
	Price               float64        `gorm:"column:activity_price;not null;default:0" json:"price"`
	Images              datatypes.JSON `gorm:"column:activity_images" json:"images,omitempty"`
	Status              string         `gorm:"column:activity_status;size:20;not null;default:'draft';index" json:"status"`
	ApprovalStatus      string         `gorm:"column:activity_approval_status;size:20;not null;default:'pending'" json:"approval_status"`
	RejectionReason     string         `gorm:"column:activity_rejection_reason;size:200" json:"rejection_reason,omitempty"`
	OrganizerID         uuid.UUID      `gorm:"column:activity_organizer_id;type:uuid;not null;index" json:"organizer_id"`
	Requirements        string         `gorm:"column:activity_requirements;size:500" json:"requirements,omitempty"`
	Equipment           string         `gorm:"column:activity_equipment;size:500" json:"equipment,omitempty"`
	IsFeatured          bool           `gorm:"column:activity_is_featured;not null;default:false" json:"is_featured"`
	ViewCount           int            `gorm:"column:activity_view_count;not null;default:0" json:"view_count"`
	CreatedAt           time.Time      `gorm:"column:activity_created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"column:activity_updated_at;autoUpdateTime" json:"updated_at"`

	Organizer *userModel.UserModel `gorm:"foreignKey:OrganizerID" json:"organizer,omitempty"`
}

func (ActivityModel) TableName() string {
	return "activities"
}

func (a *ActivityModel) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ===============================
// Derived fields (computed, never stored)
// ===============================

func (a *ActivityModel) IsFull() bool {
	return a.CurrentParticipants >= a.MaxParticipants
}

// HasStarted reports whether now has passed startTime minus the buffer.
func (a *ActivityModel) HasStarted(now time.Time) bool {
	return !now.Before(a.StartTime.Add(-StartBuffer))
}

func (a *ActivityModel) HasEnded(now time.Time) bool {
	return !now.Before(a.EndTime)
}

func (a *ActivityModel) RemainingSpots() int {
	if remaining := a.MaxParticipants - a.CurrentParticipants; remaining > 0 {
		return remaining
	}
	return 0
}

func (a *ActivityModel) ProgressPercentage() int {
	if a.MaxParticipants <= 0 {
		return 0
	}
	return int(float64(a.CurrentParticipants)/float64(a.MaxParticipants)*100 + 0.5)
}

func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
