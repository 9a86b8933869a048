package service

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ianleeboy/sweet/internal/model"
)

var (
	// ErrValidation rejects bad input: a non-positive quantity or an unknown
	// sweet.
	ErrValidation = errors.New("invalid order")
	// ErrNotFound covers an order that is missing, owned by another user, or
	// no longer Pending. The three cases are deliberately merged so a caller
	// cannot tell "doesn't exist" from "not yours".
	ErrNotFound = errors.New("order not found")
	// ErrNotificationFailed means the confirmation email could not be sent;
	// no order status was changed and the confirmation can be retried.
	ErrNotificationFailed = errors.New("confirmation email failed")
)

// Notifier delivers a message to a recipient address and reports failure
// synchronously. ConfirmAll will not advance any order until Send returns nil.
type Notifier interface {
	Send(to, subject, body string) error
}

// OrderService owns the order lifecycle. Every call takes the acting user's
// ID explicitly; no operation can touch another user's orders.
type OrderService struct {
	DB       *gorm.DB
	Notifier Notifier
}

func NewOrderService(db *gorm.DB, notifier Notifier) *OrderService {
	return &OrderService{DB: db, Notifier: notifier}
}

// OrderLine pairs a pending order with its total at the current sweet price.
type OrderLine struct {
	Order     model.Order
	LineTotal decimal.Decimal
}

// PendingSummary is the user's pending orders plus the grand total across
// them, always recomputed from current prices.
type PendingSummary struct {
	Lines []OrderLine
	Total decimal.Decimal
}

// PlaceOrder creates a Pending order for the given sweet and quantity.
func (s *OrderService) PlaceOrder(userID, sweetID uint, quantity int) (*model.Order, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}

	var sweet model.Sweet
	if err := s.DB.First(&sweet, sweetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown sweet %d", ErrValidation, sweetID)
		}
		return nil, err
	}

	order := model.Order{
		UserID:   userID,
		SweetID:  sweet.ID,
		Quantity: quantity,
		Status:   model.StatusPending,
	}
	if err := s.DB.Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListPendingWithTotals returns the user's pending orders with a line total
// per order and the grand total.
func (s *OrderService) ListPendingWithTotals(userID uint) (*PendingSummary, error) {
	var orders []model.Order
	err := s.DB.Preload("Sweet").
		Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	summary := &PendingSummary{Lines: make([]OrderLine, 0, len(orders))}
	for _, order := range orders {
		lineTotal := order.Sweet.Price.Mul(decimal.NewFromInt(int64(order.Quantity)))
		summary.Lines = append(summary.Lines, OrderLine{Order: order, LineTotal: lineTotal})
		summary.Total = summary.Total.Add(lineTotal)
	}
	return summary, nil
}

// pendingOrder loads an order only if it exists, belongs to userID and is
// still Pending.
func (s *OrderService) pendingOrder(orderID, userID uint) (*model.Order, error) {
	var order model.Order
	err := s.DB.Where("id = ? AND user_id = ? AND status = ?", orderID, userID, model.StatusPending).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// IncreaseQuantity bumps a pending order's quantity by one.
func (s *OrderService) IncreaseQuantity(orderID, userID uint) error {
	order, err := s.pendingOrder(orderID, userID)
	if err != nil {
		return err
	}
	return s.DB.Model(order).Update("quantity", gorm.Expr("quantity + 1")).Error
}

// DecreaseQuantity lowers a pending order's quantity by one. The quantity
// never drops below 1; at 1 the call does nothing.
func (s *OrderService) DecreaseQuantity(orderID, userID uint) error {
	order, err := s.pendingOrder(orderID, userID)
	if err != nil {
		return err
	}
	if order.Quantity <= 1 {
		return nil
	}
	return s.DB.Model(order).Update("quantity", gorm.Expr("quantity - 1")).Error
}

// DeleteOrder removes a pending order permanently.
func (s *OrderService) DeleteOrder(orderID, userID uint) error {
	order, err := s.pendingOrder(orderID, userID)
	if err != nil {
		return err
	}
	return s.DB.Delete(order).Error
}

// ConfirmAll emails the user an itemized summary of their pending orders and,
// only after the email is accepted, flips that exact set to Confirmed in a
// single batched update. An order placed after the summary was taken stays
// Pending. With no pending orders the call does nothing and succeeds.
//
// Returns how many orders were confirmed.
func (s *OrderService) ConfirmAll(userID uint) (int, error) {
	var user model.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return 0, err
	}

	summary, err := s.ListPendingWithTotals(userID)
	if err != nil {
		return 0, err
	}
	if len(summary.Lines) == 0 {
		return 0, nil
	}

	body := confirmationBody(user.Username, summary)
	if err := s.Notifier.Send(user.Email, "Order Confirmation", body); err != nil {
		log.Printf("Confirmation email to %s failed, orders stay pending: %v", user.Email, err)
		return 0, fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}

	ids := make([]uint, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		ids = append(ids, line.Order.ID)
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Model(&model.Order{}).
			Where("id IN ? AND status = ?", ids, model.StatusPending).
			Update("status", model.StatusConfirmed).Error
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func confirmationBody(username string, summary *PendingSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order, %s. You have ordered the following items:\n\n", username)
	for _, line := range summary.Lines {
		fmt.Fprintf(&b, "%d x %s\n", line.Order.Quantity, line.Order.Sweet.Name)
	}
	fmt.Fprintf(&b, "\nTotal price: $%s.", summary.Total.StringFixed(2))
	return b.String()
}
