package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	registrationController "github.com/zhuangyifan-666/web-task/internals/features/registrations/controller"
)

// RegistrationUserRoutes: all registration endpoints require a login;
// organizer/admin checks happen in the controller because organizers are
// regular users for everything but their own activities.
func RegistrationUserRoutes(r fiber.Router, db *gorm.DB) {
	ctrl := registrationController.NewRegistrationController(db)

	r.Post("/activities/:activityId/register", ctrl.Register)          // POST /api/u/activities/:activityId/register
	r.Delete("/activities/:activityId/register", ctrl.Cancel)          // DELETE /api/u/activities/:activityId/register
	r.Get("/registrations/me", ctrl.GetMine)                           // GET /api/u/registrations/me
	r.Get("/activities/:activityId/registrations", ctrl.GetByActivity) // GET /api/u/activities/:activityId/registrations
	r.Delete("/registrations/:id", ctrl.AdminCancel)                   // DELETE /api/u/registrations/:id
	r.Post("/registrations/:id/confirm", ctrl.Confirm)                 // POST /api/u/registrations/:id/confirm
}
