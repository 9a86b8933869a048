package database

import (
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ianleeboy/sweet/internal/model"
)

// SeedAdmin creates the shop administrator account if it does not exist yet.
func SeedAdmin() {
	var user model.User
	err := DB.Where("username = ?", "admin").First(&user).Error
	if err == nil {
		log.Println("Admin user already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("Failed to look up admin user: %v", err)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD is not set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}

	admin := model.User{
		Username:     "admin",
		Email:        os.Getenv("ADMIN_EMAIL"),
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
	}
	if err := DB.Create(&admin).Error; err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Println("Admin user created")
}
