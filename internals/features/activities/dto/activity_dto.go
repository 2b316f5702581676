package dto

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	userDto "github.com/zhuangyifan-666/web-task/internals/features/users/dto"
)

type CreateActivityRequest struct {
	Title           string         `json:"title" validate:"required,max=100"`
	Description     string         `json:"description" validate:"required,max=2000"`
	Category        string         `json:"category" validate:"required,oneof=basketball football badminton table_tennis swimming running fitness yoga other"`
	Tags            []string       `json:"tags" validate:"omitempty,max=10,dive,max=20"`
	Location        string         `json:"location" validate:"required,max=200"`
	StartTime       time.Time      `json:"start_time" validate:"required"`
	EndTime         time.Time      `json:"end_time" validate:"required"`
	MaxParticipants int            `json:"max_participants" validate:"required,min=1,max=1000"`
	Price           float64        `json:"price" validate:"omitempty,min=0"`
	Images          datatypes.JSON `json:"images"`
	Requirements    string         `json:"requirements" validate:"omitempty,max=500"`
	Equipment       string         `json:"equipment" validate:"omitempty,max=500"`
}

type UpdateActivityRequest struct {
	Title           *string        `json:"title" validate:"omitempty,max=100"`
	Description     *string        `json:"description" validate:"omitempty,max=2000"`
	Category        *string        `json:"category" validate:"omitempty,oneof=basketball football badminton table_tennis swimming running fitness yoga other"`
	Tags            []string       `json:"tags" validate:"omitempty,max=10,dive,max=20"`
	Location        *string        `json:"location" validate:"omitempty,max=200"`
	StartTime       *time.Time     `json:"start_time"`
	EndTime         *time.Time     `json:"end_time"`
	MaxParticipants *int           `json:"max_participants" validate:"omitempty,min=1,max=1000"`
	Price           *float64       `json:"price" validate:"omitempty,min=0"`
	Images          datatypes.JSON `json:"images"`
	Requirements    *string        `json:"requirements" validate:"omitempty,max=500"`
	Equipment       *string        `json:"equipment" validate:"omitempty,max=500"`
}

type RejectActivityRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=200"`
}

type ActivityResponse struct {
	ID                  uuid.UUID      `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Category            string         `json:"category"`
	Tags                datatypes.JSON `json:"tags,omitempty"`
	Location            string         `json:"location"`
	StartTime           time.Time      `json:"start_time"`
	EndTime             time.Time      `json:"end_time"`
	MaxParticipants     int            `json:"max_participants"`
	CurrentParticipants int            `json:"current_participants"`
	Price               float64        `json:"price"`
	Images              datatypes.JSON `json:"images,omitempty"`
	Status              string         `json:"status"`
	ApprovalStatus      string         `json:"approval_status"`
	RejectionReason     string         `json:"rejection_reason,omitempty"`
	OrganizerID         uuid.UUID      `json:"organizer_id"`
	Requirements        string         `json:"requirements,omitempty"`
	Equipment           string         `json:"equipment,omitempty"`
	IsFeatured          bool           `json:"is_featured"`
	ViewCount           int            `json:"view_count"`
	CreatedAt           time.Time      `json:"created_at"`

	// Derived, computed against the request clock.
	IsFull             bool `json:"is_full"`
	HasStarted         bool `json:"has_started"`
	HasEnded           bool `json:"has_ended"`
	RemainingSpots     int  `json:"remaining_spots"`
	ProgressPercentage int  `json:"progress_percentage"`

	// MyRegistrationStatus is filled per caller when they are logged in and
	// hold a non-cancelled registration for this activity.
	MyRegistrationStatus string `json:"my_registration_status,omitempty"`

	Organizer *userDto.UserResponse `json:"organizer,omitempty"`
}

func ToActivityResponse(a *model.ActivityModel, now time.Time) ActivityResponse {
	resp := ActivityResponse{
		ID:                  a.ID,
		Title:               a.Title,
		Description:         a.Description,
		Category:            a.Category,
		Tags:                a.Tags,
		Location:            a.Location,
		StartTime:           a.StartTime,
		EndTime:             a.EndTime,
		MaxParticipants:     a.MaxParticipants,
		CurrentParticipants: a.CurrentParticipants,
		Price:               a.Price,
		Images:              a.Images,
		Status:              a.Status,
		ApprovalStatus:      a.ApprovalStatus,
		RejectionReason:     a.RejectionReason,
		OrganizerID:         a.OrganizerID,
		Requirements:        a.Requirements,
		Equipment:           a.Equipment,
		IsFeatured:          a.IsFeatured,
		ViewCount:           a.ViewCount,
		CreatedAt:           a.CreatedAt,
		IsFull:              a.IsFull(),
		HasStarted:          a.HasStarted(now),
		HasEnded:            a.HasEnded(now),
		RemainingSpots:      a.RemainingSpots(),
		ProgressPercentage:  a.ProgressPercentage(),
	}
	if a.Organizer != nil {
		u := userDto.ToUserResponse(a.Organizer)
		resp.Organizer = &u
	}
	return resp
}

func ToActivityResponses(activities []model.ActivityModel, now time.Time) []ActivityResponse {
	out := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		out = append(out, ToActivityResponse(&activities[i], now))
	}
	return out
}
