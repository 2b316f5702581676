package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	commentController "github.com/zhuangyifan-666/web-task/internals/features/comments/controller"
)

// CommentPublicRoutes: reads, mounted behind OptionalAuth so like state
// is personalized for logged-in callers.
func CommentPublicRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := commentController.NewCommentController(db)

	r.Get("/activities/:activityId/comments", ctrl.GetByActivity)  // GET /api/public/activities/:activityId/comments
	r.Get("/activities/:activityId/comments/stats", ctrl.GetStats) // GET /api/public/activities/:activityId/comments/stats
}

// CommentUserRoutes: writes, mounted behind the auth middleware.
func CommentUserRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := commentController.NewCommentController(db)

	r.Get("/comments/mine", ctrl.GetMine)                   // GET /api/u/comments/mine
	r.Post("/activities/:activityId/comments", ctrl.Create) // POST /api/u/activities/:activityId/comments
	r.Put("/comments/:id", ctrl.Update)                     // PUT /api/u/comments/:id
	r.Delete("/comments/:id", ctrl.Delete)                  // DELETE /api/u/comments/:id
	r.Post("/comments/:id/like", ctrl.ToggleLike)           // POST /api/u/comments/:id/like
}
