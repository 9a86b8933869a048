package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ianleeboy/sweet/internal/model"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeNotifier struct {
	err  error
	sent []sentMail
}

func (f *fakeNotifier) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newTestService(t *testing.T) (*OrderService, *fakeNotifier, *gorm.DB) {
	// A named in-memory database with a shared cache, so every pooled
	// connection sees the same data.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Profile{}, &model.Sweet{}, &model.Order{}))

	notifier := &fakeNotifier{}
	return NewOrderService(db, notifier), notifier, db
}

func seedUser(t *testing.T, db *gorm.DB, username string) model.User {
	user := model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         model.RoleCustomer,
		Profile:      model.Profile{Address: "1 Candy Lane", Phone: "555-0100"},
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedSweet(t *testing.T, db *gorm.DB, name, price string) model.Sweet {
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	sweet := model.Sweet{Name: name, Price: p, ImageURL: "/uploads/" + name + ".jpg"}
	require.NoError(t, db.Create(&sweet).Error)
	return sweet
}

func TestPlaceOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	user := seedUser(t, db, "alice")
	sweet := seedSweet(t, db, "Fudge", "12.50")

	t.Run("creates a pending order", func(t *testing.T) {
		order, err := svc.PlaceOrder(user.ID, sweet.ID, 2)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, order.Status)
		assert.Equal(t, 2, order.Quantity)

		var stored model.Order
		require.NoError(t, db.First(&stored, order.ID).Error)
		assert.Equal(t, user.ID, stored.UserID)
		assert.Equal(t, sweet.ID, stored.SweetID)
		assert.Equal(t, model.StatusPending, stored.Status)
	})

	t.Run("rejects quantity below 1", func(t *testing.T) {
		_, err := svc.PlaceOrder(user.ID, sweet.ID, 0)
		assert.ErrorIs(t, err, ErrValidation)
		_, err = svc.PlaceOrder(user.ID, sweet.ID, -3)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects unknown sweet", func(t *testing.T) {
		_, err := svc.PlaceOrder(user.ID, 99999, 1)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestListPendingWithTotals(t *testing.T) {
	svc, _, db := newTestService(t)
	user := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	fudge := seedSweet(t, db, "Fudge", "12.50")
	taffy := seedSweet(t, db, "Taffy", "3.25")

	_, err := svc.PlaceOrder(user.ID, fudge.ID, 2)
	require.NoError(t, err)

	t.Run("single order totals", func(t *testing.T) {
		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 1)
		assert.Equal(t, "25.00", summary.Lines[0].LineTotal.StringFixed(2))
		assert.Equal(t, "25.00", summary.Total.StringFixed(2))
	})

	t.Run("grand total sums all pending lines", func(t *testing.T) {
		_, err := svc.PlaceOrder(user.ID, taffy.ID, 3)
		require.NoError(t, err)

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 2)
		assert.Equal(t, "34.75", summary.Total.StringFixed(2))
	})

	t.Run("excludes other users and confirmed orders", func(t *testing.T) {
		_, err := svc.PlaceOrder(other.ID, fudge.ID, 1)
		require.NoError(t, err)
		confirmed := model.Order{UserID: user.ID, SweetID: fudge.ID, Quantity: 5, Status: model.StatusConfirmed}
		require.NoError(t, db.Create(&confirmed).Error)

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		assert.Len(t, summary.Lines, 2)
		assert.Equal(t, "34.75", summary.Total.StringFixed(2))
	})

	t.Run("recomputes from the current price", func(t *testing.T) {
		require.NoError(t, db.Model(&model.Sweet{}).Where("id = ?", fudge.ID).
			Update("price", decimal.RequireFromString("10.00")).Error)

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "29.75", summary.Total.StringFixed(2))
	})
}

func TestIncreaseQuantity(t *testing.T) {
	svc, _, db := newTestService(t)
	user := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	sweet := seedSweet(t, db, "Fudge", "12.50")

	order, err := svc.PlaceOrder(user.ID, sweet.ID, 2)
	require.NoError(t, err)

	t.Run("increments by one", func(t *testing.T) {
		require.NoError(t, svc.IncreaseQuantity(order.ID, user.ID))

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 1)
		assert.Equal(t, 3, summary.Lines[0].Order.Quantity)
		assert.Equal(t, "37.50", summary.Lines[0].LineTotal.StringFixed(2))
	})

	t.Run("not found for missing order", func(t *testing.T) {
		assert.ErrorIs(t, svc.IncreaseQuantity(99999, user.ID), ErrNotFound)
	})

	t.Run("not found for another user's order", func(t *testing.T) {
		assert.ErrorIs(t, svc.IncreaseQuantity(order.ID, other.ID), ErrNotFound)

		var stored model.Order
		require.NoError(t, db.First(&stored, order.ID).Error)
		assert.Equal(t, 3, stored.Quantity)
	})

	t.Run("not found for a confirmed order", func(t *testing.T) {
		confirmed := model.Order{UserID: user.ID, SweetID: sweet.ID, Quantity: 1, Status: model.StatusConfirmed}
		require.NoError(t, db.Create(&confirmed).Error)
		assert.ErrorIs(t, svc.IncreaseQuantity(confirmed.ID, user.ID), ErrNotFound)
	})
}

func TestDecreaseQuantity(t *testing.T) {
	svc, _, db := newTestService(t)
	user := seedUser(t, db, "alice")
	sweet := seedSweet(t, db, "Fudge", "12.50")

	t.Run("decrements by one", func(t *testing.T) {
		order, err := svc.PlaceOrder(user.ID, sweet.ID, 3)
		require.NoError(t, err)

		require.NoError(t, svc.DecreaseQuantity(order.ID, user.ID))

		var stored model.Order
		require.NoError(t, db.First(&stored, order.ID).Error)
		assert.Equal(t, 2, stored.Quantity)
	})

	t.Run("never drops below one", func(t *testing.T) {
		order, err := svc.PlaceOrder(user.ID, sweet.ID, 1)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, svc.DecreaseQuantity(order.ID, user.ID))
		}

		var stored model.Order
		require.NoError(t, db.First(&stored, order.ID).Error)
		assert.Equal(t, 1, stored.Quantity)
	})

	t.Run("not found for missing order", func(t *testing.T) {
		assert.ErrorIs(t, svc.DecreaseQuantity(99999, user.ID), ErrNotFound)
	})
}

func TestDeleteOrder(t *testing.T) {
	svc, _, db := newTestService(t)
	user := seedUser(t, db, "alice")
	other := seedUser(t, db, "bob")
	sweet := seedSweet(t, db, "Fudge", "12.50")

	order, err := svc.PlaceOrder(user.ID, sweet.ID, 2)
	require.NoError(t, err)

	t.Run("not found for another user's order", func(t *testing.T) {
		assert.ErrorIs(t, svc.DeleteOrder(order.ID, other.ID), ErrNotFound)

		var count int64
		db.Model(&model.Order{}).Where("id = ?", order.ID).Count(&count)
		assert.Equal(t, int64(1), count)
	})

	t.Run("deletes the order permanently", func(t *testing.T) {
		require.NoError(t, svc.DeleteOrder(order.ID, user.ID))

		var count int64
		db.Model(&model.Order{}).Where("id = ?", order.ID).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("not found for a confirmed order", func(t *testing.T) {
		confirmed := model.Order{UserID: user.ID, SweetID: sweet.ID, Quantity: 1, Status: model.StatusConfirmed}
		require.NoError(t, db.Create(&confirmed).Error)
		assert.ErrorIs(t, svc.DeleteOrder(confirmed.ID, user.ID), ErrNotFound)
	})
}

func TestConfirmAll(t *testing.T) {
	t.Run("confirms every pending order in one batch", func(t *testing.T) {
		svc, notifier, db := newTestService(t)
		user := seedUser(t, db, "alice")
		fudge := seedSweet(t, db, "Fudge", "12.50")
		taffy := seedSweet(t, db, "Taffy", "3.25")

		_, err := svc.PlaceOrder(user.ID, fudge.ID, 2)
		require.NoError(t, err)
		_, err = svc.PlaceOrder(user.ID, taffy.ID, 1)
		require.NoError(t, err)

		confirmed, err := svc.ConfirmAll(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, confirmed)

		var count int64
		db.Model(&model.Order{}).Where("user_id = ? AND status = ?", user.ID, model.StatusConfirmed).Count(&count)
		assert.Equal(t, int64(2), count)

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		assert.Empty(t, summary.Lines)

		require.Len(t, notifier.sent, 1)
		mail := notifier.sent[0]
		assert.Equal(t, "alice@example.com", mail.to)
		assert.Equal(t, "Order Confirmation", mail.subject)
		assert.Contains(t, mail.body, "2 x Fudge")
		assert.Contains(t, mail.body, "1 x Taffy")
		assert.Contains(t, mail.body, "Total price: $28.25.")
	})

	t.Run("failed email leaves every order pending", func(t *testing.T) {
		svc, notifier, db := newTestService(t)
		user := seedUser(t, db, "alice")
		sweet := seedSweet(t, db, "Fudge", "12.50")

		_, err := svc.PlaceOrder(user.ID, sweet.ID, 2)
		require.NoError(t, err)
		notifier.err = errors.New("mail server unreachable")

		confirmed, err := svc.ConfirmAll(user.ID)
		assert.ErrorIs(t, err, ErrNotificationFailed)
		assert.Equal(t, 0, confirmed)

		var count int64
		db.Model(&model.Order{}).Where("user_id = ? AND status = ?", user.ID, model.StatusPending).Count(&count)
		assert.Equal(t, int64(1), count)
		assert.Empty(t, notifier.sent)

		// Recoverable: a retry after the outage confirms the same orders.
		notifier.err = nil
		confirmed, err = svc.ConfirmAll(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)
	})

	t.Run("no pending orders is a benign no-op", func(t *testing.T) {
		svc, notifier, db := newTestService(t)
		user := seedUser(t, db, "alice")

		confirmed, err := svc.ConfirmAll(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, confirmed)
		assert.Empty(t, notifier.sent)
	})

	t.Run("does not touch other users' orders", func(t *testing.T) {
		svc, _, db := newTestService(t)
		user := seedUser(t, db, "alice")
		other := seedUser(t, db, "bob")
		sweet := seedSweet(t, db, "Fudge", "12.50")

		_, err := svc.PlaceOrder(user.ID, sweet.ID, 1)
		require.NoError(t, err)
		_, err = svc.PlaceOrder(other.ID, sweet.ID, 1)
		require.NoError(t, err)

		_, err = svc.ConfirmAll(user.ID)
		require.NoError(t, err)

		var stored model.Order
		require.NoError(t, db.Where("user_id = ?", other.ID).First(&stored).Error)
		assert.Equal(t, model.StatusPending, stored.Status)
	})

	t.Run("order placed after the summary stays pending", func(t *testing.T) {
		svc, notifier, db := newTestService(t)
		user := seedUser(t, db, "alice")
		sweet := seedSweet(t, db, "Fudge", "12.50")

		_, err := svc.PlaceOrder(user.ID, sweet.ID, 1)
		require.NoError(t, err)

		// The confirmation only flips the IDs it emailed; simulate a racing
		// placement by inserting during the notifier call.
		blocker := &placingNotifier{svc: svc, userID: user.ID, sweetID: sweet.ID, inner: notifier}
		svc.Notifier = blocker

		confirmed, err := svc.ConfirmAll(user.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, confirmed)

		summary, err := svc.ListPendingWithTotals(user.ID)
		require.NoError(t, err)
		require.Len(t, summary.Lines, 1)
		assert.Equal(t, model.StatusPending, summary.Lines[0].Order.Status)
	})
}

// placingNotifier places one extra order for the user while the confirmation
// email is in flight.
type placingNotifier struct {
	svc     *OrderService
	userID  uint
	sweetID uint
	inner   Notifier
}

func (p *placingNotifier) Send(to, subject, body string) error {
	if _, err := p.svc.PlaceOrder(p.userID, p.sweetID, 1); err != nil {
		return err
	}
	return p.inner.Send(to, subject, body)
}

func TestConfirmationBody(t *testing.T) {
	summary := &PendingSummary{
		Lines: []OrderLine{
			{Order: model.Order{Quantity: 2, Sweet: model.Sweet{Name: "Fudge"}}, LineTotal: decimal.RequireFromString("25.00")},
			{Order: model.Order{Quantity: 1, Sweet: model.Sweet{Name: "Taffy"}}, LineTotal: decimal.RequireFromString("3.25")},
		},
		Total: decimal.RequireFromString("28.25"),
	}

	body := confirmationBody("alice", summary)
	assert.Contains(t, body, "Thank you for your order, alice.")
	assert.Contains(t, body, "2 x Fudge\n1 x Taffy")
	assert.Contains(t, body, "Total price: $28.25.")
}
