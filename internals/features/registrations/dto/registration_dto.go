package dto

import (
	"time"

	"github.com/google/uuid"

	activityDto "github.com/zhuangyifan-666/web-task/internals/features/activities/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userDto "github.com/zhuangyifan-666/web-task/internals/features/users/dto"
)

type RegisterActivityRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=500"`
}

type CancelRegistrationRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type RegistrationResponse struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	ActivityID         uuid.UUID  `json:"activity_id"`
	Status             string     `json:"status"`
	RegistrationTime   time.Time  `json:"registration_time"`
	PaymentStatus      string     `json:"payment_status"`
	PaymentAmount      float64    `json:"payment_amount"`
	Notes              string     `json:"notes,omitempty"`
	IsAttended         bool       `json:"is_attended"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledBy        string     `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	User     *userDto.UserResponse         `json:"user,omitempty"`
	Activity *activityDto.ActivityResponse `json:"activity,omitempty"`
}

// RegisterResponse distinguishes a confirmed seat from a waitlist spot;
// clients branch on Confirmed, not on the status string.
type RegisterResponse struct {
	Registration RegistrationResponse `json:"registration"`
	Confirmed    bool                 `json:"confirmed"`
}

func ToRegistrationResponse(r *model.RegistrationModel) RegistrationResponse {
	resp := RegistrationResponse{
		ID:                 r.ID,
		UserID:             r.UserID,
		ActivityID:         r.ActivityID,
		Status:             r.Status,
		RegistrationTime:   r.RegistrationTime,
		PaymentStatus:      r.PaymentStatus,
		PaymentAmount:      r.PaymentAmount,
		Notes:              r.Notes,
		IsAttended:         r.IsAttended,
		CancellationReason: r.CancellationReason,
		CancelledBy:        r.CancelledBy,
		CancelledAt:        r.CancelledAt,
	}
	if r.User != nil {
		u := userDto.ToUserResponse(r.User)
		resp.User = &u
	}
	if r.Activity != nil {
		a := activityDto.ToActivityResponse(r.Activity, time.Now())
		resp.Activity = &a
	}
	return resp
}

func ToRegistrationResponses(regs []model.RegistrationModel) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(regs))
	for i := range regs {
		out = append(out, ToRegistrationResponse(&regs[i]))
	}
	return out
}
