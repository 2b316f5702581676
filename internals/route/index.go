package routes

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/constants"
	authMiddleware "github.com/zhuangyifan-666/web-task/internals/middlewares/auth"

	activityRoute "github.com/zhuangyifan-666/web-task/internals/features/activities/route"
	commentRoute "github.com/zhuangyifan-666/web-task/internals/features/comments/route"
	registrationRoute "github.com/zhuangyifan-666/web-task/internals/features/registrations/route"
	userRoute "github.com/zhuangyifan-666/web-task/internals/features/users/route"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	startTime = time.Now()

	BaseRoutes(app, db)

	// ===================== AUTH =====================
	log.Println("[INFO] Setting up auth routes...")
	userRoute.AuthRoutes(app.Group("/api"), db)

	// ===================== GROUPS =====================

	// PUBLIC: JWT optional, used to personalize reads.
	log.Println("[INFO] Setting up PUBLIC group...")
	public := app.Group("/api/public", authMiddleware.OptionalAuth(db))

	// PRIVATE: JWT required.
	log.Println("[INFO] Setting up PRIVATE group...")
	private := app.Group("/api/u", authMiddleware.AuthMiddleware(db))

	// ADMIN: JWT + admin role.
	log.Println("[INFO] Setting up ADMIN group...")
	admin := app.Group("/api/a",
		authMiddleware.AuthMiddleware(db),
		authMiddleware.OnlyRoles("Only admins may access this resource.", constants.AdminAndAbove...),
	)

	// ===================== MOUNT ROUTES =====================

	log.Println("[INFO] Mounting user routes...")
	userRoute.UserRoutes(private, db)
	userRoute.UserAdminRoutes(admin, db)

	log.Println("[INFO] Mounting activity routes...")
	activityRoute.ActivityPublicRoutes(public, db)
	activityRoute.ActivityUserRoutes(private, db)
	activityRoute.ActivityAdminRoutes(admin, db)

	log.Println("[INFO] Mounting registration routes...")
	registrationRoute.RegistrationUserRoutes(private, db)

	log.Println("[INFO] Mounting comment routes...")
	commentRoute.CommentPublicRoutes(public, db)
	commentRoute.CommentUserRoutes(private, db)
}
