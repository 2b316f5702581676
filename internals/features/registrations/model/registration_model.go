package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// Registration states. A (user, activity) pair has at most one row outside
// StatusCancelled; re-registering after a cancellation creates a new row.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusWaitlist  = "waitlist"
)

var ActiveStatuses = []string{StatusPending, StatusConfirmed, StatusWaitlist}

// Who performed a cancellation.
const (
	CancelledByUser   = "user"
	CancelledByAdmin  = "admin"
	CancelledBySystem = "system"
)

// Payment states.
const (
	PaymentUnpaid   = "unpaid"
	PaymentPaid     = "paid"
	PaymentRefunded = "refunded"
)

type RegistrationModel struct {
	ID                 uuid.UUID  `gorm:"column:registration_id;type:uuid;primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"column:registration_user_id;type:uuid;not null;uniqueIndex:uq_registrations_active,where:registration_status <> 'cancelled'" json:"user_id"`
	ActivityID         uuid.UUID  `gorm:"column:registration_activity_id;type:uuid;not null;index:idx_registrations_activity_status;uniqueIndex:uq_registrations_active,where:registration_status <> 'cancelled'" json:"activity_id"`
	Status             string     `gorm:"column:registration_status;size:20;not null;default:'pending';index:idx_registrations_activity_status" json:"status"`
	RegistrationTime   time.Time  `gorm:"column:registration_time;not null;index" json:"registration_time"`
	PaymentStatus      string     `gorm:"column:registration_payment_status;size:20;not null;default:'unpaid'" json:"payment_status"`
	PaymentAmount      float64    `gorm:"column:registration_payment_amount;not null;default:0" json:"payment_amount"`
	Notes              string     `gorm:"column:registration_notes;size:500" json:"notes,omitempty"`
	IsAttended         bool       `gorm:"column:registration_is_attended;not null;default:false" json:"is_attended"`
	AttendedTime       *time.Time `gorm:"column:registration_attended_time" json:"attended_time,omitempty"`
	CancellationReason string     `gorm:"column:registration_cancellation_reason;size:200" json:"cancellation_reason,omitempty"`
	CancelledBy        string     `gorm:"column:registration_cancelled_by;size:20" json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `gorm:"column:registration_cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt          time.Time  `gorm:"column:registration_created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"column:registration_updated_at;autoUpdateTime" json:"updated_at"`

	User     *userModel.UserModel         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Activity *activityModel.ActivityModel `gorm:"foreignKey:ActivityID" json:"activity,omitempty"`
}

func (RegistrationModel) TableName() string {
	return "registrations"
}

func (r *RegistrationModel) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.RegistrationTime.IsZero() {
		r.RegistrationTime = time.Now()
	}
	return nil
}

func (r *RegistrationModel) IsCancelled() bool {
	return r.Status == StatusCancelled
}
