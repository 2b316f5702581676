package controller

import (
	"bytes"
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
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zhuangyifan-666/web-task/internals/configs"
	helper "github.com/zhuangyifan-666/web-task/internals/helpers"
	authMiddleware "github.com/zhuangyifan-666/web-task/internals/middlewares/auth"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	commentModel "github.com/zhuangyifan-666/web-task/internals/features/comments/model"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	"github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	configs.JWTSecret = "test-secret"
	configs.JWTExpiresIn = time.Hour

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(10000)", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(
		&model.UserModel{},
		&activityModel.ActivityModel{},
		&registrationModel.RegistrationModel{},
		&commentModel.CommentModel{},
		&commentModel.CommentLikeModel{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return helper.FromFiberError(c, err)
		},
	})

	authCtrl := NewAuthController(db)
	app.Post("/api/auth/register", authCtrl.Register)
	app.Post("/api/auth/login", authCtrl.Login)

	private := app.Group("/api/u", authMiddleware.AuthMiddleware(db))
	private.Get("/users/me", authCtrl.GetProfile)
	private.Put("/users/me", authCtrl.UpdateProfile)

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var parsed map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &parsed)
	}
	return resp, parsed
}

func TestRegisterAndLogin(t *testing.T) {
	app, _ := newTestApp(t)

	register := map[string]any{
		"username": "alice",
		"email":    "alice@test.local",
		"password": "secret123",
	}

	resp, body := doJSON(t, app, "POST", "/api/auth/register", "", register)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("register status = %d, body = %v", resp.StatusCode, body)
	}
	data, _ := body["data"].(map[string]any)
	if tok, _ := data["token"].(string); tok == "" {
		t.Fatalf("register response missing token: %v", body)
	}

	t.Run("duplicate username", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/auth/register", "", register)
		if resp.StatusCode != fiber.StatusConflict {
			t.Fatalf("duplicate register status = %d", resp.StatusCode)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/auth/login", "", map[string]any{
			"email":    "alice@test.local",
			"password": "wrong",
		})
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("wrong password status = %d", resp.StatusCode)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/api/auth/login", "", map[string]any{
			"email":    "nobody@test.local",
			"password": "whatever1",
		})
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("unknown email status = %d", resp.StatusCode)
		}
	})

	t.Run("login and fetch profile", func(t *testing.T) {
		resp, body := doJSON(t, app, "POST", "/api/auth/login", "", map[string]any{
			"email":    "alice@test.local",
			"password": "secret123",
		})
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("login status = %d, body = %v", resp.StatusCode, body)
		}
		data, _ := body["data"].(map[string]any)
		token, _ := data["token"].(string)
		if token == "" {
			t.Fatalf("login response missing token: %v", body)
		}

		resp, body = doJSON(t, app, "GET", "/api/u/users/me", token, nil)
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("profile status = %d, body = %v", resp.StatusCode, body)
		}
		profile, _ := body["data"].(map[string]any)
		if profile["username"] != "alice" {
			t.Fatalf("unexpected profile: %v", profile)
		}
	})
}

func TestAuthMiddlewareRejections(t *testing.T) {
	app, db := newTestApp(t)

	user := &model.UserModel{Username: "bob", Email: "bob@test.local", Password: "x"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	t.Run("missing token", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/api/u/users/me", "", nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		resp, _ := doJSON(t, app, "GET", "/api/u/users/me", "not-a-jwt", nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.MapClaims{
			"user_id": user.ID.String(),
			"role":    user.Role,
			"iat":     time.Now().Add(-2 * time.Hour).Unix(),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		}
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(configs.JWTSecret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		resp, _ := doJSON(t, app, "GET", "/api/u/users/me", expired, nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("token for deleted user", func(t *testing.T) {
		token, err := authMiddleware.GenerateToken(user.ID, user.Role)
		if err != nil {
			t.Fatalf("generate token: %v", err)
		}
		if err := db.Delete(user).Error; err != nil {
			t.Fatalf("delete user: %v", err)
		}
		resp, _ := doJSON(t, app, "GET", "/api/u/users/me", token, nil)
		if resp.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})
}

func TestUpdateProfile(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := doJSON(t, app, "POST", "/api/auth/register", "", map[string]any{
		"username": "carol",
		"email":    "carol@test.local",
		"password": "secret123",
	})
	data, _ := body["data"].(map[string]any)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("missing token: %v", body)
	}

	resp, body := doJSON(t, app, "PUT", "/api/u/users/me", token, map[string]any{
		"bio":   "weekend warrior",
		"phone": "555-0101",
	})
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("update status = %d, body = %v", resp.StatusCode, body)
	}
	profile, _ := body["data"].(map[string]any)
	if profile["bio"] != "weekend warrior" || profile["phone"] != "555-0101" {
		t.Fatalf("profile not updated: %v", profile)
	}
}
