package model

import "time"

// OrderStatus defines the possible states of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusConfirmed OrderStatus = "Confirmed"
)

// Order is one sweet with a quantity, owned by a single user. An order is
// mutable by its owner while Pending and frozen once Confirmed; the only
// transition is Pending to Confirmed.
type Order struct {
	ID        uint        `gorm:"primaryKey"`
	UserID    uint        `gorm:"index;not null"`
	User      User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	SweetID   uint        `gorm:"index;not null"`
	Sweet     Sweet       `gorm:"foreignKey:SweetID;constraint:OnDelete:CASCADE"`
	Quantity  int         `gorm:"not null"`
	Status    OrderStatus `gorm:"type:varchar(10);not null;default:'Pending'"`
	CreatedAt time.Time
}
