package service

import (
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
	"github.com/zhuangyifan-666/web-task/internals/features/activities/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// ActivityService owns activity writes: creation, organizer edits, the
// moderation flow and the guarded delete cascade.
type ActivityService struct {
	DB  *gorm.DB
	Now func() time.Time
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db, Now: time.Now}
}

// Create stores a new activity. Admin-created activities are published
// immediately; everyone else's wait for moderation.
func (s *ActivityService) Create(actor *userModel.UserModel, req *dto.CreateActivityRequest) (*model.ActivityModel, error) {
	if !actor.IsActive {
		return nil, fiber.NewError(fiber.StatusForbidden, "Your account is banned from creating activities")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "End time must be after start time")
	}

	status, approval := model.StatusPending, model.ApprovalPending
	if actor.IsAdmin() {
		status, approval = model.StatusPublished, model.ApprovalApproved
	}

	activity := &model.ActivityModel{
		Title:           req.Title,
		Description:     req.Description,
		Category:        req.Category,
		Tags:            marshalTags(req.Tags),
		Location:        req.Location,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		Price:           req.Price,
		Images:          req.Images,
		Status:          status,
		ApprovalStatus:  approval,
		OrganizerID:     actor.ID,
		Requirements:    req.Requirements,
		Equipment:       req.Equipment,
	}
	if err := s.DB.Create(activity).Error; err != nil {
		return nil, err
	}
	return activity, nil
}

// Update applies an organizer or admin edit.
func (s *ActivityService) Update(actor *userModel.UserModel, activityID uuid.UUID, req *dto.UpdateActivityRequest) (*model.ActivityModel, error) {
	var activity model.ActivityModel
	if err := s.DB.First(&activity, "activity_id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Activity not found")
		}
		return nil, err
	}
	if activity.OrganizerID != actor.ID && !actor.IsAdmin() {
		return nil, fiber.NewError(fiber.StatusForbidden, "You may only edit your own activities")
	}

	applyPatch(&activity, req)
	if !activity.EndTime.After(activity.StartTime) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "End time must be after start time")
	}
	// The participant counter must never exceed capacity, so capacity
	// cannot shrink below the seats already claimed.
	if activity.MaxParticipants < activity.CurrentParticipants {
		return nil, fiber.NewError(fiber.StatusConflict,
			"Capacity cannot be reduced below the current participant count")
	}

	if err := s.DB.Save(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// Delete removes an activity. While non-cancelled registrations exist the
// delete is blocked, unless a superadmin forces it, in which case the
// registrations are removed first and the activity after, in one
// transaction (children before parent).
func (s *ActivityService) Delete(actor *userModel.UserModel, activityID uuid.UUID, force bool) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var activity model.ActivityModel
		if err := tx.First(&activity, "activity_id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Activity not found")
			}
			return err
		}
		if activity.OrganizerID != actor.ID && !actor.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "You may only delete your own activities")
		}

		var active int64
		if err := tx.Model(&registrationModel.RegistrationModel{}).
			Where("registration_activity_id = ? AND registration_status <> ?", activityID, registrationModel.StatusCancelled).
			Count(&active).Error; err != nil {
			return err
		}

		forceAllowed := actor.Role == constants.RoleSuperAdmin && force
		if active > 0 && !forceAllowed {
			return fiber.NewError(fiber.StatusConflict, "Activity has active registrations and cannot be deleted")
		}

		if forceAllowed {
			if err := tx.Where("registration_activity_id = ?", activityID).
				Delete(&registrationModel.RegistrationModel{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&activity).Error
	})
}

// Approve publishes a pending activity.
func (s *ActivityService) Approve(activityID uuid.UUID) (*model.ActivityModel, error) {
	var activity model.ActivityModel
	if err := s.DB.First(&activity, "activity_id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Activity not found")
		}
		return nil, err
	}

	activity.ApprovalStatus = model.ApprovalApproved
	activity.Status = model.StatusPublished
	activity.RejectionReason = ""
	if err := s.DB.Save(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

// Reject records the moderation verdict without touching the status.
func (s *ActivityService) Reject(activityID uuid.UUID, reason string) (*model.ActivityModel, error) {
	var activity model.ActivityModel
	if err := s.DB.First(&activity, "activity_id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Activity not found")
		}
		return nil, err
	}

	if reason == "" {
		reason = "Did not pass moderation"
	}
	activity.ApprovalStatus = model.ApprovalRejected
	activity.RejectionReason = reason
	if err := s.DB.Save(&activity).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func marshalTags(tags []string) datatypes.JSON {
	if len(tags) == 0 {
		return nil
	}
	b, err := sonic.Marshal(tags)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func applyPatch(activity *model.ActivityModel, req *dto.UpdateActivityRequest) {
	if req.Title != nil {
		activity.Title = *req.Title
	}
	if req.Description != nil {
		activity.Description = *req.Description
	}
	if req.Category != nil {
		activity.Category = *req.Category
	}
	if req.Tags != nil {
		activity.Tags = marshalTags(req.Tags)
	}
	if req.Location != nil {
		activity.Location = *req.Location
	}
	if req.StartTime != nil {
		activity.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		activity.EndTime = *req.EndTime
	}
	if req.MaxParticipants != nil {
		activity.MaxParticipants = *req.MaxParticipants
	}
	if req.Price != nil {
		activity.Price = *req.Price
	}
	if req.Images != nil {
		activity.Images = req.Images
	}
	if req.Requirements != nil {
		activity.Requirements = *req.Requirements
	}
	if req.Equipment != nil {
		activity.Equipment = *req.Equipment
	}
}
