package users

import (
	"encoding/json"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zhuangyifan-666/web-task/internals/features/users/model"
)

type UserSeed struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// SeedUsersFromJSON inserts the accounts listed in filePath, skipping
// emails that already exist so the seed can run on every boot.
func SeedUsersFromJSON(db *gorm.DB, filePath string) {
	log.Println("[INFO] reading user seed file:", filePath)

	file, err := os.ReadFile(filePath)
	if err != nil {
		log.Fatalf("[ERROR] read seed file: %v", err)
	}

	var inputs []UserSeed
	if err := json.Unmarshal(file, &inputs); err != nil {
		log.Fatalf("[ERROR] decode seed file: %v", err)
	}

	for _, data := range inputs {
		var existing model.UserModel
		if err := db.Where("user_email = ?", data.Email).First(&existing).Error; err == nil {
			log.Printf("[INFO] user '%s' already exists, skipped", data.Email)
			continue
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(data.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[ERROR] hash password for '%s': %v", data.Email, err)
			continue
		}

		newUser := model.UserModel{
			Username: data.Username,
			Email:    data.Email,
			Password: string(hashed),
			Role:     data.Role,
		}
		if err := db.Create(&newUser).Error; err != nil {
			log.Printf("[ERROR] insert user '%s': %v", data.Email, err)
		} else {
			log.Printf("[INFO] inserted user '%s'", data.Email)
		}
	}
}
