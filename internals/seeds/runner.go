package seeds

import (
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/seeds/users"
)

// RunAllSeeds is invoked on boot when RUN_SEEDS=true. Every seed is
// idempotent, so re-running is safe.
func RunAllSeeds(db *gorm.DB) {
	users.SeedUsersFromJSON(db, "internals/seeds/users/data_users.json")
}
