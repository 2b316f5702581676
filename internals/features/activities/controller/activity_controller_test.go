package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	helper "github.com/zhuangyifan-666/web-task/internals/helpers"
	authMiddleware "github.com/zhuangyifan-666/web-task/internals/middlewares/auth"

	"github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

func newPublicApp(t *testing.T) (*fiber.App, *gorm.DB) {
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

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return helper.FromFiberError(c, err)
		},
	})

	ctrl := NewActivityController(db)
	public := app.Group("/api/public", authMiddleware.OptionalAuth(db))
	public.Get("/activities/search", ctrl.Search)

	return app, db
}

func seedPublishedActivity(t *testing.T, db *gorm.DB, organizer *userModel.UserModel, title, category string, start time.Time, price float64) *model.ActivityModel {
	t.Helper()
	a := &model.ActivityModel{
		Title:           title,
		Description:     "desc",
		Category:        category,
		Location:        "Court 1",
		StartTime:       start,
		EndTime:         start.Add(2 * time.Hour),
		MaxParticipants: 10,
		Price:           price,
		Status:          model.StatusPublished,
		ApprovalStatus:  model.ApprovalApproved,
		OrganizerID:     organizer.ID,
	}
	if err := db.Create(a).Error; err != nil {
		t.Fatalf("seed activity %s: %v", title, err)
	}
	return a
}

func searchTitles(t *testing.T, app *fiber.App, query string) []string {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/public/activities/search"+query, nil)
	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("GET search%s: %v", query, err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("search%s: status %d", query, resp.StatusCode)
	}

	var parsed struct {
		Data []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode search%s: %v", query, err)
	}

	titles := make([]string, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		titles = append(titles, item.Title)
	}
	return titles
}

func TestSearchActivities(t *testing.T) {
	app, db := newPublicApp(t)

	organizer := &userModel.UserModel{Username: "organizer", Email: "organizer@test.local", Password: "x", Role: "user"}
	if err := db.Create(organizer).Error; err != nil {
		t.Fatalf("create organizer: %v", err)
	}

	base := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	seedPublishedActivity(t, db, organizer, "Morning run", "running", base, 0)
	seedPublishedActivity(t, db, organizer, "Evening yoga", "yoga", base.Add(24*time.Hour), 20)
	seedPublishedActivity(t, db, organizer, "Badminton night", "badminton", base.Add(48*time.Hour), 50)

	pending := &model.ActivityModel{
		Title: "Hidden swim", Description: "desc", Category: "swimming",
		Location: "Pool", StartTime: base, EndTime: base.Add(time.Hour),
		MaxParticipants: 10, Status: model.StatusPending,
		ApprovalStatus: model.ApprovalPending, OrganizerID: organizer.ID,
	}
	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("seed pending: %v", err)
	}

	t.Run("no filters returns published sorted by start time", func(t *testing.T) {
		titles := searchTitles(t, app, "")
		want := []string{"Morning run", "Evening yoga", "Badminton night"}
		if len(titles) != len(want) {
			t.Fatalf("expected %d activities, got %v", len(want), titles)
		}
		for i := range want {
			if titles[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, titles)
			}
		}
	})

	t.Run("keyword", func(t *testing.T) {
		titles := searchTitles(t, app, "?q=yoga")
		if len(titles) != 1 || titles[0] != "Evening yoga" {
			t.Fatalf("expected only the yoga activity, got %v", titles)
		}
	})

	t.Run("category", func(t *testing.T) {
		titles := searchTitles(t, app, "?category=running")
		if len(titles) != 1 || titles[0] != "Morning run" {
			t.Fatalf("expected only the running activity, got %v", titles)
		}
	})

	t.Run("date range", func(t *testing.T) {
		from := base.Add(12 * time.Hour).UTC().Format(time.RFC3339)
		to := base.Add(36 * time.Hour).UTC().Format(time.RFC3339)
		titles := searchTitles(t, app, "?startDate="+from+"&endDate="+to)
		if len(titles) != 1 || titles[0] != "Evening yoga" {
			t.Fatalf("expected only the activity inside the window, got %v", titles)
		}
	})

	t.Run("max price", func(t *testing.T) {
		titles := searchTitles(t, app, "?maxPrice=25")
		if len(titles) != 2 {
			t.Fatalf("expected the two cheaper activities, got %v", titles)
		}
	})

	t.Run("combined filters", func(t *testing.T) {
		titles := searchTitles(t, app, "?q=Evening&category=yoga&maxPrice=25")
		if len(titles) != 1 || titles[0] != "Evening yoga" {
			t.Fatalf("expected only the yoga activity, got %v", titles)
		}
	})

	t.Run("invalid max price rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/public/activities/search?maxPrice=cheap", nil)
		resp, err := app.Test(req, 5000)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid date rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/public/activities/search?startDate=soon", nil)
		resp, err := app.Test(req, 5000)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Fatalf("expected 400, got %d", resp.StatusCode)
		}
	})
}
