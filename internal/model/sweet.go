package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sweet is a product sold in the shop. Sweets are managed by the
// administrator; deleting one cascades to every order that references it.
type Sweet struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"not null;size:100"`
	Price     decimal.Decimal `gorm:"not null;type:decimal(7,2)"`
	ImageURL  string          `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayPrice formats the price with two fraction digits for templates.
func (s Sweet) DisplayPrice() string {
	return s.Price.StringFixed(2)
}
