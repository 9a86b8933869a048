package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/ianleeboy/sweet/internal/database"
	"github.com/ianleeboy/sweet/internal/model"
	"github.com/ianleeboy/sweet/internal/service"
)

// OrderHandler is the HTTP surface over the order lifecycle. Every route here
// sits behind AuthRequired, so "user" is always on the context.
type OrderHandler struct {
	Store   *sessions.CookieStore
	Service *service.OrderService
}

func currentUser(c *gin.Context) model.User {
	userData, _ := c.Get("user")
	return userData.(model.User)
}

// ShowOrderForm renders the order placement form with the sweet catalog.
func (h *OrderHandler) ShowOrderForm(c *gin.Context) {
	user := currentUser(c)

	var sweets []model.Sweet
	if err := database.DB.Order("name asc").Find(&sweets).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to load sweets.")
		return
	}

	session, _ := h.Store.Get(c.Request, SessionName)
	flashesError := session.Flashes("error")
	session.Save(c.Request, c.Writer)

	c.HTML(http.StatusOK, "order.html", gin.H{
		"IsLoggedIn":   true,
		"User":         user,
		"Sweets":       sweets,
		"FlashesError": flashesError,
	})
}

// PlaceOrder creates a pending order from the submitted form.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	user := currentUser(c)
	session, _ := h.Store.Get(c.Request, SessionName)

	sweetID, err := strconv.ParseUint(c.PostForm("sweet_id"), 10, 32)
	if err != nil {
		session.AddFlash("Please select a sweet.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/order")
		return
	}
	quantity, err := strconv.Atoi(c.PostForm("quantity"))
	if err != nil {
		session.AddFlash("Quantity must be a number.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/order")
		return
	}

	if _, err := h.Service.PlaceOrder(user.ID, uint(sweetID), quantity); err != nil {
		if errors.Is(err, service.ErrValidation) {
			session.AddFlash("Could not place the order: check the sweet and quantity.", "error")
			session.Save(c.Request, c.Writer)
			c.Redirect(http.StatusFound, "/order")
			return
		}
		c.String(http.StatusInternalServerError, "Failed to place the order.")
		return
	}

	c.Redirect(http.StatusFound, "/orders")
}

// orderLineView carries one pending order with its total already formatted
// for the template.
type orderLineView struct {
	Order     model.Order
	LineTotal string
}

// ShowPendingOrders renders the confirmation page: every pending order with
// its line total and the grand total.
func (h *OrderHandler) ShowPendingOrders(c *gin.Context) {
	user := currentUser(c)

	summary, err := h.Service.ListPendingWithTotals(user.ID)
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to load your orders.")
		return
	}

	lines := make([]orderLineView, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		lines = append(lines, orderLineView{Order: line.Order, LineTotal: line.LineTotal.StringFixed(2)})
	}

	session, _ := h.Store.Get(c.Request, SessionName)
	flashesSuccess := session.Flashes("success")
	flashesError := session.Flashes("error")
	session.Save(c.Request, c.Writer)

	c.HTML(http.StatusOK, "orders.html", gin.H{
		"IsLoggedIn":     true,
		"User":           user,
		"Lines":          lines,
		"Total":          summary.Total.StringFixed(2),
		"FlashesSuccess": flashesSuccess,
		"FlashesError":   flashesError,
	})
}

// orderID parses the :id route parameter. A zero return means it was invalid.
func orderID(c *gin.Context) uint {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// IncreaseQuantity bumps the order's quantity and redirects back. A missing,
// foreign or already-confirmed order is silently skipped.
func (h *OrderHandler) IncreaseQuantity(c *gin.Context) {
	user := currentUser(c)
	if id := orderID(c); id != 0 {
		if err := h.Service.IncreaseQuantity(id, user.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			c.String(http.StatusInternalServerError, "Failed to update the order.")
			return
		}
	}
	c.Redirect(http.StatusFound, "/orders")
}

func (h *OrderHandler) DecreaseQuantity(c *gin.Context) {
	user := currentUser(c)
	if id := orderID(c); id != 0 {
		if err := h.Service.DecreaseQuantity(id, user.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			c.String(http.StatusInternalServerError, "Failed to update the order.")
			return
		}
	}
	c.Redirect(http.StatusFound, "/orders")
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	user := currentUser(c)
	if id := orderID(c); id != 0 {
		if err := h.Service.DeleteOrder(id, user.ID); err != nil && !errors.Is(err, service.ErrNotFound) {
			c.String(http.StatusInternalServerError, "Failed to delete the order.")
			return
		}
	}
	c.Redirect(http.StatusFound, "/orders")
}

// ConfirmAll confirms every pending order. On a failed email the orders stay
// pending and the user is told to retry.
func (h *OrderHandler) ConfirmAll(c *gin.Context) {
	user := currentUser(c)
	session, _ := h.Store.Get(c.Request, SessionName)

	confirmed, err := h.Service.ConfirmAll(user.ID)
	if err != nil {
		if errors.Is(err, service.ErrNotificationFailed) {
			session.AddFlash("We could not send your confirmation email. Your orders are still pending, please try again.", "error")
			session.Save(c.Request, c.Writer)
			c.Redirect(http.StatusFound, "/orders")
			return
		}
		c.String(http.StatusInternalServerError, "Failed to confirm your orders.")
		return
	}

	if confirmed == 0 {
		c.Redirect(http.StatusFound, "/orders")
		return
	}

	session.AddFlash(fmt.Sprintf("%d order(s) confirmed. A confirmation email is on its way.", confirmed), "success")
	session.Save(c.Request, c.Writer)
	c.Redirect(http.StatusFound, "/orders/history")
}

// ShowOrderHistory lists all of the user's orders, newest first.
func (h *OrderHandler) ShowOrderHistory(c *gin.Context) {
	user := currentUser(c)

	var orders []model.Order
	err := database.DB.Preload("Sweet").
		Where("user_id = ?", user.ID).
		Order("created_at desc, id desc").
		Find(&orders).Error
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to load your order history.")
		return
	}

	session, _ := h.Store.Get(c.Request, SessionName)
	flashesSuccess := session.Flashes("success")
	session.Save(c.Request, c.Writer)

	c.HTML(http.StatusOK, "order_history.html", gin.H{
		"IsLoggedIn":     true,
		"User":           user,
		"Orders":         orders,
		"FlashesSuccess": flashesSuccess,
	})
}
