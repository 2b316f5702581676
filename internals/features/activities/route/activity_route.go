package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	activityController "github.com/zhuangyifan-666/web-task/internals/features/activities/controller"
)

// ActivityPublicRoutes: discovery endpoints, mounted behind OptionalAuth so
// logged-in callers get their registration state mixed in.
func ActivityPublicRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := activityController.NewActivityController(db)

	r.Get("/activities", ctrl.GetAll)                     // GET /api/public/activities?category=&status=&search=
	r.Get("/activities/search", ctrl.Search)              // GET /api/public/activities/search?q=&category=&startDate=&endDate=&maxPrice=
	r.Get("/activities/recommended", ctrl.GetRecommended) // GET /api/public/activities/recommended
	r.Get("/activities/categories", ctrl.GetCategories)   // GET /api/public/activities/categories
	r.Get("/activities/stats", ctrl.GetStats)             // GET /api/public/activities/stats
	r.Get("/activities/:id", ctrl.GetByID)                // GET /api/public/activities/:id
}

// ActivityUserRoutes: organizer CRUD, mounted behind the auth middleware.
func ActivityUserRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := activityController.NewActivityController(db)

	r.Get("/activities/mine", ctrl.GetMine)  // GET /api/u/activities/mine
	r.Post("/activities", ctrl.Create)       // POST /api/u/activities
	r.Put("/activities/:id", ctrl.Update)    // PUT /api/u/activities/:id
	r.Delete("/activities/:id", ctrl.Delete) // DELETE /api/u/activities/:id?force=
}

// ActivityAdminRoutes: moderation, mounted behind the admin role gate.
func ActivityAdminRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := activityController.NewActivityController(db)

	r.Get("/activities/pending", ctrl.GetPending)   // GET /api/a/activities/pending
	r.Post("/activities/:id/approve", ctrl.Approve) // POST /api/a/activities/:id/approve
	r.Post("/activities/:id/reject", ctrl.Reject)   // POST /api/a/activities/:id/reject
}
