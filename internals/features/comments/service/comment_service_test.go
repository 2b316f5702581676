package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	"github.com/zhuangyifan-666/web-task/internals/features/comments/model"
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
		&activityModel.ActivityModel{},
		&model.CommentModel{},
		&model.CommentLikeModel{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *userModel.UserModel {
	t.Helper()
	u := &userModel.UserModel{Username: name, Email: name + "@test.local", Password: "x"}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func createPublishedActivity(t *testing.T, db *gorm.DB, organizer uuid.UUID) *activityModel.ActivityModel {
	t.Helper()
	start := time.Now().Add(24 * time.Hour)
	a := &activityModel.ActivityModel{
		Title:           "Morning run",
		Description:     "Easy 5k",
		Category:        "running",
		Location:        "Riverside",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		MaxParticipants: 10,
		Status:          activityModel.StatusPublished,
		ApprovalStatus:  activityModel.ApprovalApproved,
		OrganizerID:     organizer,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
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

func TestCreateComment(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)

	organizer := createUser(t, db, "organizer")
	author := createUser(t, db, "author")
	activity := createPublishedActivity(t, db, organizer.ID)

	t.Run("review and one-level reply", func(t *testing.T) {
		review, err := svc.Create(author.ID, activity.ID, CreateCommentInput{Content: "Great game", Rating: 5})
		if err != nil {
			t.Fatalf("create review: %v", err)
		}

		reply, err := svc.Create(organizer.ID, activity.ID, CreateCommentInput{
			Content:         "Thanks for coming",
			Rating:          5,
			ParentCommentID: &review.ID,
		})
		if err != nil {
			t.Fatalf("create reply: %v", err)
		}

		// Replying to a reply is rejected.
		_, err = svc.Create(author.ID, activity.ID, CreateCommentInput{
			Content:         "See you next week",
			Rating:          5,
			ParentCommentID: &reply.ID,
		})
		fiberCode(t, err, fiber.StatusUnprocessableEntity)
	})

	t.Run("banned author", func(t *testing.T) {
		banned := createUser(t, db, "banned")
		db.Model(banned).Updates(map[string]any{"user_is_banned": true})
		_, err := svc.Create(banned.ID, activity.ID, CreateCommentInput{Content: "hi", Rating: 3})
		fiberCode(t, err, fiber.StatusForbidden)
	})

	t.Run("unknown activity", func(t *testing.T) {
		_, err := svc.Create(author.ID, uuid.New(), CreateCommentInput{Content: "hi", Rating: 3})
		fiberCode(t, err, fiber.StatusNotFound)
	})

	t.Run("unpublished activity", func(t *testing.T) {
		draft := createPublishedActivity(t, db, organizer.ID)
		db.Model(draft).Update("activity_status", activityModel.StatusDraft)
		_, err := svc.Create(author.ID, draft.ID, CreateCommentInput{Content: "hi", Rating: 3})
		fiberCode(t, err, fiber.StatusUnprocessableEntity)
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.Create(author.ID, activity.ID, CreateCommentInput{
			Content: "hi", Rating: 3, ParentCommentID: &missing,
		})
		fiberCode(t, err, fiber.StatusNotFound)
	})
}

func TestUpdateComment(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)

	organizer := createUser(t, db, "organizer")
	author := createUser(t, db, "author")
	stranger := createUser(t, db, "stranger")
	activity := createPublishedActivity(t, db, organizer.ID)

	comment, err := svc.Create(author.ID, activity.ID, CreateCommentInput{Content: "ok", Rating: 3})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Update(stranger, comment.ID, "hijacked", 1)
	fiberCode(t, err, fiber.StatusForbidden)

	updated, err := svc.Update(author, comment.ID, "actually great", 5)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsEdited || updated.EditedAt == nil {
		t.Fatal("edit flags not set")
	}
	if updated.Content != "actually great" || updated.Rating != 5 {
		t.Fatalf("update not applied: %q rating=%d", updated.Content, updated.Rating)
	}
}

func TestSoftDelete(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)

	organizer := createUser(t, db, "organizer")
	author := createUser(t, db, "author")
	stranger := createUser(t, db, "stranger")
	admin := createUser(t, db, "admin")
	db.Model(admin).Update("user_role", "admin")
	admin.Role = "admin"

	activity := createPublishedActivity(t, db, organizer.ID)

	mine, _ := svc.Create(author.ID, activity.ID, CreateCommentInput{Content: "one", Rating: 4})
	theirs, _ := svc.Create(stranger.ID, activity.ID, CreateCommentInput{Content: "two", Rating: 2})

	err := svc.SoftDelete(stranger, mine.ID)
	fiberCode(t, err, fiber.StatusForbidden)

	if err := svc.SoftDelete(author, mine.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := svc.SoftDelete(admin, theirs.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}

	var rows []model.CommentModel
	db.Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("soft delete must keep rows, got %d", len(rows))
	}
	for _, row := range rows {
		if !row.IsDeleted || row.DeletedAt == nil {
			t.Fatalf("row %s not flagged deleted", row.ID)
		}
	}

	var byUser, byAdmin model.CommentModel
	db.First(&byUser, "comment_id = ?", mine.ID)
	db.First(&byAdmin, "comment_id = ?", theirs.ID)
	if byUser.DeletedBy != model.DeletedByUser {
		t.Fatalf("deleted_by = %s, want user", byUser.DeletedBy)
	}
	if byAdmin.DeletedBy != model.DeletedByAdmin {
		t.Fatalf("deleted_by = %s, want admin", byAdmin.DeletedBy)
	}

	// Deleted comments are invisible to the visibility scope and reject
	// further writes.
	var visible int64
	model.VisibleComments(db.Model(&model.CommentModel{})).Count(&visible)
	if visible != 0 {
		t.Fatalf("expected no visible comments, got %d", visible)
	}
	_, err = svc.Update(author, mine.ID, "resurrect", 5)
	fiberCode(t, err, fiber.StatusNotFound)
}

func TestToggleLike(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)

	organizer := createUser(t, db, "organizer")
	author := createUser(t, db, "author")
	liker := createUser(t, db, "liker")
	activity := createPublishedActivity(t, db, organizer.ID)

	comment, err := svc.Create(author.ID, activity.ID, CreateCommentInput{Content: "nice", Rating: 5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.ToggleLike(liker.ID, comment.ID)
	if err != nil {
		t.Fatalf("like: %v", err)
	}
	if !res.Liked || res.LikeCount != 1 {
		t.Fatalf("after like: liked=%v count=%d", res.Liked, res.LikeCount)
	}

	res, err = svc.ToggleLike(liker.ID, comment.ID)
	if err != nil {
		t.Fatalf("unlike: %v", err)
	}
	if res.Liked || res.LikeCount != 0 {
		t.Fatalf("after unlike: liked=%v count=%d", res.Liked, res.LikeCount)
	}

	// Toggling back on reuses the same row.
	res, err = svc.ToggleLike(liker.ID, comment.ID)
	if err != nil {
		t.Fatalf("re-like: %v", err)
	}
	if !res.Liked || res.LikeCount != 1 {
		t.Fatalf("after re-like: liked=%v count=%d", res.Liked, res.LikeCount)
	}
	var rows int64
	db.Model(&model.CommentLikeModel{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("expected one like row, got %d", rows)
	}

	t.Run("banned liker", func(t *testing.T) {
		banned := createUser(t, db, "bannedliker")
		db.Model(banned).Update("user_is_banned", true)
		_, err := svc.ToggleLike(banned.ID, comment.ID)
		fiberCode(t, err, fiber.StatusForbidden)
	})

	t.Run("deleted comment", func(t *testing.T) {
		if err := svc.SoftDelete(author, comment.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, err := svc.ToggleLike(liker.ID, comment.ID)
		fiberCode(t, err, fiber.StatusNotFound)
	})
}

func TestStatsExcludeRepliesAndDeleted(t *testing.T) {
	db := openTestDB(t)
	svc := NewCommentService(db)

	organizer := createUser(t, db, "organizer")
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	activity := createPublishedActivity(t, db, organizer.ID)

	five, _ := svc.Create(a.ID, activity.ID, CreateCommentInput{Content: "great", Rating: 5})
	three, _ := svc.Create(b.ID, activity.ID, CreateCommentInput{Content: "fine", Rating: 3})

	// A reply and a deleted review must not move the aggregates.
	if _, err := svc.Create(organizer.ID, activity.ID, CreateCommentInput{
		Content: "thanks", Rating: 1, ParentCommentID: &five.ID,
	}); err != nil {
		t.Fatalf("reply: %v", err)
	}
	gone, _ := svc.Create(a.ID, activity.ID, CreateCommentInput{Content: "meh", Rating: 1})
	if err := svc.SoftDelete(a, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.ToggleLike(b.ID, five.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.ToggleLike(a.ID, three.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	// An un-liked like does not count.
	if _, err := svc.ToggleLike(a.ID, five.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if _, err := svc.ToggleLike(a.ID, five.ID); err != nil {
		t.Fatalf("unlike: %v", err)
	}

	stats, err := svc.Stats(activity.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalComments != 2 {
		t.Fatalf("total comments = %d, want 2", stats.TotalComments)
	}
	if stats.AvgRating != 4 {
		t.Fatalf("avg rating = %v, want 4", stats.AvgRating)
	}
	if stats.TotalLikes != 2 {
		t.Fatalf("total likes = %d, want 2", stats.TotalLikes)
	}
	if stats.RatingDistribution[5] != 1 || stats.RatingDistribution[3] != 1 {
		t.Fatalf("distribution wrong: %v", stats.RatingDistribution)
	}
}
