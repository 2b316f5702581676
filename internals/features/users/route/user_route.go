package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
	userController "github.com/zhuangyifan-666/web-task/internals/features/users/controller"
	"github.com/zhuangyifan-666/web-task/internals/middlewares"
	authMiddleware "github.com/zhuangyifan-666/web-task/internals/middlewares/auth"
)

// AuthRoutes: registration and login, with their own rate limits.
func AuthRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := userController.NewAuthController(db)

	r.Post("/auth/register", middlewares.RegisterRateLimiter(), ctrl.Register) // POST /api/auth/register
	r.Post("/auth/login", middlewares.LoginRateLimiter(), ctrl.Login)          // POST /api/auth/login
}

// UserRoutes: the caller's own profile, behind the auth middleware.
func UserRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := userController.NewAuthController(db)

	r.Get("/users/me", ctrl.GetProfile)    // GET /api/u/users/me
	r.Put("/users/me", ctrl.UpdateProfile) // PUT /api/u/users/me
}

// UserAdminRoutes: account administration, behind the admin role gate.
// Deletion is narrowed further to superadmin.
func UserAdminRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := userController.NewUserAdminController(db)

	r.Get("/users", ctrl.GetAll)           // GET /api/a/users?search=&role=&banned=
	r.Get("/users/:id", ctrl.GetByID)      // GET /api/a/users/:id
	r.Post("/users/:id/ban", ctrl.Ban)     // POST /api/a/users/:id/ban
	r.Post("/users/:id/unban", ctrl.Unban) // POST /api/a/users/:id/unban
	r.Delete("/users/:id",
		authMiddleware.OnlyRoles("Only the super admin may delete accounts.", constants.SuperAdminOnly...),
		ctrl.Delete) // DELETE /api/a/users/:id
}
