package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/ianleeboy/sweet/internal/database"
	"github.com/ianleeboy/sweet/internal/model"
)

type HomeHandler struct {
	Store *sessions.CookieStore
}

// ShowHomePage renders the sweet catalog.
func (h *HomeHandler) ShowHomePage(c *gin.Context) {
	var sweets []model.Sweet
	if err := database.DB.Order("name asc").Find(&sweets).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to load sweets.")
		return
	}

	user, isLoggedIn := h.getUserFromSession(c)

	c.HTML(http.StatusOK, "index.html", gin.H{
		"IsLoggedIn": isLoggedIn,
		"User":       user,
		"Sweets":     sweets,
	})
}

func (h *HomeHandler) getUserFromSession(c *gin.Context) (model.User, bool) {
	session, _ := h.Store.Get(c.Request, SessionName)
	userID, ok := session.Values["userID"].(uint)
	if !ok {
		return model.User{}, false
	}
	var user model.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		return model.User{}, false
	}
	return user, true
}
