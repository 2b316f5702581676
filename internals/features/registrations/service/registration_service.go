package service

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	"github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// RegistrationService owns the admission and waitlist bookkeeping for
// activities. Every mutation runs in a single transaction whose first write
// touches the activity row, so concurrent attempts against the same activity
// serialize on the row lock. activity_current_participants is maintained
// incrementally and only inside these transactions; it always equals the
// number of confirmed registrations when a transaction commits.
type RegistrationService struct {
	DB *gorm.DB

	// Now is swappable so tests can pin the clock.
	Now func() time.Time
}

func NewRegistrationService(db *gorm.DB) *RegistrationService {
	return &RegistrationService{DB: db, Now: time.Now}
}

// RegisterResult tells the caller whether they got a seat or joined the queue.
type RegisterResult struct {
	Registration *model.RegistrationModel
	Confirmed    bool
}

// Register admits a user to an activity, confirming them when capacity
// remains and waitlisting them otherwise.
func (s *RegistrationService) Register(userID, activityID uuid.UUID, notes string) (*RegisterResult, error) {
	var result RegisterResult

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user userModel.UserModel
		if err := tx.First(&user, "user_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "User not found")
			}
			return err
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusForbidden, "Your account is banned from joining activities")
		}

		var activity activityModel.ActivityModel
		if err := tx.First(&activity, "activity_id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Activity not found")
			}
			return err
		}
		if activity.Status != activityModel.StatusPublished {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Registration is not open for this activity")
		}
		if activity.HasStarted(s.Now()) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Activity has already started")
		}

		var existing int64
		if err := tx.Model(&model.RegistrationModel{}).
			Where("registration_user_id = ? AND registration_activity_id = ? AND registration_status <> ?",
				userID, activityID, model.StatusCancelled).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return fiber.NewError(fiber.StatusConflict, "You have already registered for this activity")
		}

		claimed, err := claimSlot(tx, activityID)
		if err != nil {
			return err
		}
		status := model.StatusWaitlist
		if claimed {
			status = model.StatusConfirmed
		}

		reg := &model.RegistrationModel{
			UserID:           userID,
			ActivityID:       activityID,
			Status:           status,
			RegistrationTime: s.Now(),
			PaymentStatus:    model.PaymentUnpaid,
			PaymentAmount:    activity.Price,
			Notes:            notes,
		}
		if err := tx.Create(reg).Error; err != nil {
			if isUniqueViolation(err) {
				return fiber.NewError(fiber.StatusConflict, "You have already registered for this activity")
			}
			return err
		}

		result.Registration = reg
		result.Confirmed = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Cancel handles a user cancelling their own registration before the
// activity starts. Freeing a confirmed seat promotes the earliest
// waitlisted registration, at most one per cancellation.
func (s *RegistrationService) Cancel(userID, activityID uuid.UUID, reason string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var reg model.RegistrationModel
		err := tx.Where("registration_user_id = ? AND registration_activity_id = ? AND registration_status <> ?",
			userID, activityID, model.StatusCancelled).
			First(&reg).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Registration not found")
			}
			return err
		}

		var activity activityModel.ActivityModel
		if err := tx.First(&activity, "activity_id = ?", activityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Activity not found")
			}
			return err
		}
		if activity.HasStarted(s.Now()) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Activity has already started, registration can no longer be cancelled")
		}

		if reason == "" {
			reason = "Cancelled by user"
		}
		return s.cancelAndPromote(tx, &reg, model.CancelledByUser, reason)
	})
}

// AdminCancel cancels any registration on behalf of the activity organizer
// or an admin. There is no started guard: organizers clean up no-shows after
// the fact.
func (s *RegistrationService) AdminCancel(actor *userModel.UserModel, registrationID uuid.UUID, reason string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		reg, _, err := loadRegistrationForActor(tx, actor, registrationID)
		if err != nil {
			return err
		}

		if reg.IsCancelled() {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Registration is already cancelled")
		}

		if reason == "" {
			reason = "Cancelled by admin"
		}
		return s.cancelAndPromote(tx, reg, model.CancelledByAdmin, reason)
	})
}

// ConfirmFromWaitlist manually promotes a waitlisted registration, subject
// to a capacity re-check at the moment of confirmation.
func (s *RegistrationService) ConfirmFromWaitlist(actor *userModel.UserModel, registrationID uuid.UUID) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		reg, _, err := loadRegistrationForActor(tx, actor, registrationID)
		if err != nil {
			return err
		}

		if reg.Status != model.StatusWaitlist {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "Only waitlisted registrations can be confirmed")
		}

		claimed, err := claimSlot(tx, reg.ActivityID)
		if err != nil {
			return err
		}
		if !claimed {
			return fiber.NewError(fiber.StatusConflict, "Activity is full, registration cannot be confirmed")
		}

		return tx.Model(reg).Update("registration_status", model.StatusConfirmed).Error
	})
}

// CancelAllForUser cancels every active registration of a user (account
// deletion cascade), promoting waitlisted users for each freed seat.
func (s *RegistrationService) CancelAllForUser(tx *gorm.DB, userID uuid.UUID) error {
	var regs []model.RegistrationModel
	if err := tx.Where("registration_user_id = ? AND registration_status <> ?", userID, model.StatusCancelled).
		Find(&regs).Error; err != nil {
		return err
	}
	for i := range regs {
		if err := s.cancelAndPromote(tx, &regs[i], model.CancelledBySystem, "Account deleted"); err != nil {
			return err
		}
	}
	return nil
}

// cancelAndPromote is the shared cancellation tail: write the cancelled
// state, and when a confirmed seat was freed, hand it to the waitlist head.
func (s *RegistrationService) cancelAndPromote(tx *gorm.DB, reg *model.RegistrationModel, by, reason string) error {
	priorStatus := reg.Status
	now := s.Now()

	if err := tx.Model(reg).Updates(map[string]any{
		"registration_status":              model.StatusCancelled,
		"registration_cancelled_by":        by,
		"registration_cancelled_at":        now,
		"registration_cancellation_reason": reason,
	}).Error; err != nil {
		return err
	}

	// Waitlisted and pending rows never held a seat.
	if priorStatus != model.StatusConfirmed {
		return nil
	}

	if err := releaseSlot(tx, reg.ActivityID); err != nil {
		return err
	}

	var next model.RegistrationModel
	err := tx.Where("registration_activity_id = ? AND registration_status = ?", reg.ActivityID, model.StatusWaitlist).
		Order("registration_time ASC, registration_id ASC").
		First(&next).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	claimed, err := claimSlot(tx, reg.ActivityID)
	if err != nil {
		return err
	}
	if !claimed {
		// The freed seat was handed out elsewhere in this transaction;
		// the waitlisted row simply stays queued.
		return nil
	}
	return tx.Model(&next).Update("registration_status", model.StatusConfirmed).Error
}

// claimSlot is the admission primitive: increment the participant counter
// only while below capacity, in one conditional UPDATE. The statement takes
// the activity row lock, serializing all admissions for that activity.
func claimSlot(tx *gorm.DB, activityID uuid.UUID) (bool, error) {
	res := tx.Exec(
		`UPDATE activities
		    SET activity_current_participants = activity_current_participants + 1
		  WHERE activity_id = ?
		    AND activity_current_participants < activity_max_participants`,
		activityID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func releaseSlot(tx *gorm.DB, activityID uuid.UUID) error {
	return tx.Exec(
		`UPDATE activities
		    SET activity_current_participants = activity_current_participants - 1
		  WHERE activity_id = ?
		    AND activity_current_participants > 0`,
		activityID,
	).Error
}

// loadRegistrationForActor fetches a registration plus its activity and
// enforces the organizer-or-admin rule shared by the admin operations.
func loadRegistrationForActor(tx *gorm.DB, actor *userModel.UserModel, registrationID uuid.UUID) (*model.RegistrationModel, *activityModel.ActivityModel, error) {
	var reg model.RegistrationModel
	if err := tx.First(&reg, "registration_id = ?", registrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "Registration not found")
		}
		return nil, nil, err
	}

	var activity activityModel.ActivityModel
	if err := tx.First(&activity, "activity_id = ?", reg.ActivityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fiber.NewError(fiber.StatusNotFound, "Activity not found")
		}
		return nil, nil, err
	}

	if activity.OrganizerID != actor.ID && !actor.IsAdmin() {
		return nil, nil, fiber.NewError(fiber.StatusForbidden, "Only the organizer or an admin may manage registrations for this activity")
	}
	return &reg, &activity, nil
}

// isUniqueViolation recognizes the partial unique index on active
// (user, activity) pairs losing a race, on both Postgres and SQLite.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
