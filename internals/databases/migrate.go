package databases

import (
	"log"

	"gorm.io/gorm"

	activityModel "github.com/zhuangyifan-666/web-task/internals/features/activities/model"
	commentModel "github.com/zhuangyifan-666/web-task/internals/features/comments/model"
	registrationModel "github.com/zhuangyifan-666/web-task/internals/features/registrations/model"
	userModel "github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

// Migrate creates or updates the schema for every model. Order matters:
// referenced tables first.
func Migrate(db *gorm.DB) error {
	log.Println("[INFO] running migrations...")
	return db.AutoMigrate(
		&userModel.UserModel{},
		&activityModel.ActivityModel{},
		&registrationModel.RegistrationModel{},
		&commentModel.CommentModel{},
		&commentModel.CommentLikeModel{},
	)
}
