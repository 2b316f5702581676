package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhuangyifan-666/web-task/internals/features/activities/dto"
	"github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	err = db.AutoMigrate(
		&userModel.UserModel{},
		&model.ActivityModel{},
		&registrationModel.RegistrationModel{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name, role string) *userModel.UserModel {
	t.Helper()
	u := &userModel.UserModel{Username: name, Email: name + "@test.local", Password: "x", Role: role}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createRequest(start time.Time) *dto.CreateActivityRequest {
	return &dto.CreateActivityRequest{
		Title:           "Evening badminton",
		Description:     "Doubles, all levels",
		Category:        "badminton",
		Location:        "Hall B",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		MaxParticipants: 8,
		Price:           5,
	}
}

func fiberCode(t *testing.T, err error, want int) {
	t.Helper()
	var fe *fiber.Error
	if err == nil || !errors.As(err, &fe) {
		t.Fatalf("expected *fiber.Error with status %d, got %v", want, err)
	}
	if fe.Code != want {
		t.Fatalf("expected status %d, got %d (%s)", want, fe.Code, fe.Message)
	}
}

func TestCreateActivityModeration(t *testing.T) {
	db := openTestDB(t)
	svc := NewActivityService(db)
	start := time.Now().Add(24 * time.Hour)

	t.Run("regular user waits for moderation", func(t *testing.T) {
		organizer := createUser(t, db, "organizer", "user")
		activity, err := svc.Create(organizer, createRequest(start))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if activity.Status != model.StatusPending || activity.ApprovalStatus != model.ApprovalPending {
			t.Fatalf("got %s/%s, want pending/pending", activity.Status, activity.ApprovalStatus)
		}
	})

	t.Run("admin publishes immediately", func(t *testing.T) {
		admin := createUser(t, db, "admin", "admin")
		activity, err := svc.Create(admin, createRequest(start))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if activity.Status != model.StatusPublished || activity.ApprovalStatus != model.ApprovalApproved {
			t.Fatalf("got %s/%s, want published/approved", activity.Status, activity.ApprovalStatus)
		}
	})

	t.Run("banned organizer", func(t *testing.T) {
		banned := createUser(t, db, "banned", "user")
		db.Model(banned).Update("user_is_active", false)
		banned.IsActive = false
		_, err := svc.Create(banned, createRequest(start))
		fiberCode(t, err, fiber.StatusForbidden)
	})

	t.Run("end before start", func(t *testing.T) {
		organizer := createUser(t, db, "organizer2", "user")
		req := createRequest(start)
		req.EndTime = start.Add(-time.Hour)
		_, err := svc.Create(organizer, req)
		fiberCode(t, err, fiber.StatusBadRequest)
	})
}

func TestUpdateActivityAuthz(t *testing.T) {
	db := openTestDB(t)
	svc := NewActivityService(db)
	start := time.Now().Add(24 * time.Hour)

	organizer := createUser(t, db, "organizer", "user")
	stranger := createUser(t, db, "stranger", "user")
	admin := createUser(t, db, "admin", "admin")

	activity, err := svc.Create(organizer, createRequest(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newTitle := "Moved to Hall C"
	_, err = svc.Update(stranger, activity.ID, &dto.UpdateActivityRequest{Title: &newTitle})
	fiberCode(t, err, fiber.StatusForbidden)

	updated, err := svc.Update(organizer, activity.ID, &dto.UpdateActivityRequest{Title: &newTitle})
	if err != nil {
		t.Fatalf("organizer update: %v", err)
	}
	if updated.Title != newTitle {
		t.Fatalf("title not updated: %q", updated.Title)
	}

	adminTitle := "Admin override"
	if _, err := svc.Update(admin, activity.ID, &dto.UpdateActivityRequest{Title: &adminTitle}); err != nil {
		t.Fatalf("admin update: %v", err)
	}

	badEnd := start.Add(-time.Hour)
	_, err = svc.Update(organizer, activity.ID, &dto.UpdateActivityRequest{EndTime: &badEnd})
	fiberCode(t, err, fiber.StatusBadRequest)
}

func TestDeleteActivityGuards(t *testing.T) {
	db := openTestDB(t)
	svc := NewActivityService(db)
	start := time.Now().Add(24 * time.Hour)

	organizer := createUser(t, db, "organizer", "user")
	superadmin := createUser(t, db, "root", "superadmin")
	player := createUser(t, db, "player", "user")

	activity, err := svc.Create(organizer, createRequest(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	reg := registrationModel.RegistrationModel{
		UserID:     player.ID,
		ActivityID: activity.ID,
		Status:     registrationModel.StatusConfirmed,
	}
	if err := db.Create(&reg).Error; err != nil {
		t.Fatalf("create registration: %v", err)
	}

	t.Run("blocked while registrations exist", func(t *testing.T) {
		err := svc.Delete(organizer, activity.ID, false)
		fiberCode(t, err, fiber.StatusConflict)
	})

	t.Run("force is superadmin only", func(t *testing.T) {
		err := svc.Delete(organizer, activity.ID, true)
		fiberCode(t, err, fiber.StatusConflict)
	})

	t.Run("superadmin force cascades", func(t *testing.T) {
		if err := svc.Delete(superadmin, activity.ID, true); err != nil {
			t.Fatalf("force delete: %v", err)
		}
		var activities, regs int64
		db.Model(&model.ActivityModel{}).Where("activity_id = ?", activity.ID).Count(&activities)
		db.Model(&registrationModel.RegistrationModel{}).Where("registration_activity_id = ?", activity.ID).Count(&regs)
		if activities != 0 || regs != 0 {
			t.Fatalf("cascade incomplete: activities=%d regs=%d", activities, regs)
		}
	})

	t.Run("clean activity deletes without force", func(t *testing.T) {
		clean, err := svc.Create(organizer, createRequest(start))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Delete(organizer, clean.ID, false); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})

	t.Run("cancelled registrations do not block", func(t *testing.T) {
		a, err := svc.Create(organizer, createRequest(start))
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		cancelled := registrationModel.RegistrationModel{
			UserID:     player.ID,
			ActivityID: a.ID,
			Status:     registrationModel.StatusCancelled,
		}
		if err := db.Create(&cancelled).Error; err != nil {
			t.Fatalf("create reg: %v", err)
		}
		if err := svc.Delete(organizer, a.ID, false); err != nil {
			t.Fatalf("delete: %v", err)
		}
	})
}

func TestModerationVerdicts(t *testing.T) {
	db := openTestDB(t)
	svc := NewActivityService(db)
	start := time.Now().Add(24 * time.Hour)

	organizer := createUser(t, db, "organizer", "user")
	activity, err := svc.Create(organizer, createRequest(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rejected, err := svc.Reject(activity.ID, "")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.ApprovalStatus != model.ApprovalRejected || rejected.RejectionReason == "" {
		t.Fatalf("reject not recorded: %s %q", rejected.ApprovalStatus, rejected.RejectionReason)
	}

	approved, err := svc.Approve(activity.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.StatusPublished || approved.ApprovalStatus != model.ApprovalApproved {
		t.Fatalf("approve not applied: %s/%s", approved.Status, approved.ApprovalStatus)
	}
	if approved.RejectionReason != "" {
		t.Fatalf("rejection reason should clear, got %q", approved.RejectionReason)
	}
}

func TestUpdateCannotShrinkCapacityBelowParticipants(t *testing.T) {
	db := openTestDB(t)
	svc := NewActivityService(db)
	start := time.Now().Add(24 * time.Hour)

	organizer := createUser(t, db, "organizer", "user")
	activity, err := svc.Create(organizer, createRequest(start))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = db.Model(&model.ActivityModel{}).
		Where("activity_id = ?", activity.ID).
		UpdateColumn("activity_current_participants", 3).Error
	if err != nil {
		t.Fatalf("seed participants: %v", err)
	}

	low := 2
	_, err = svc.Update(organizer, activity.ID, &dto.UpdateActivityRequest{MaxParticipants: &low})
	fiberCode(t, err, fiber.StatusConflict)

	exact := 3
	updated, err := svc.Update(organizer, activity.ID, &dto.UpdateActivityRequest{MaxParticipants: &exact})
	if err != nil {
		t.Fatalf("shrink to participant count: %v", err)
	}
	if updated.MaxParticipants != 3 {
		t.Fatalf("expected capacity 3, got %d", updated.MaxParticipants)
	}
}
