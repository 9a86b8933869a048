package model

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"uniqueIndex;not null;size:100"`
	Email        string  `gorm:"not null"`
	PasswordHash string  `gorm:"not null"`
	Role         string  `gorm:"default:'customer';not null"`
	Profile      Profile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the delivery details collected at registration, one per user.
type Profile struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  uint   `gorm:"uniqueIndex;not null"`
	Address string `gorm:"size:255"`
	Phone   string `gorm:"size:15"`
}
