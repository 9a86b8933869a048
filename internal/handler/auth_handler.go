package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ianleeboy/sweet/internal/database"
	"github.com/ianleeboy/sweet/internal/model"
)

const SessionName = "sweet-shop-session"

type AuthHandler struct {
	Store *sessions.CookieStore
}

// ShowRegisterPage renders the registration form with any flash messages.
func (h *AuthHandler) ShowRegisterPage(c *gin.Context) {
	session, _ := h.Store.Get(c.Request, SessionName)
	flashesSuccess := session.Flashes("success")
	flashesError := session.Flashes("error")
	if err := session.Save(c.Request, c.Writer); err != nil {
		fmt.Printf("Warning: failed to save session in ShowRegisterPage: %v\n", err)
	}

	c.HTML(http.StatusOK, "register.html", gin.H{
		"IsLoggedIn":     false,
		"FlashesSuccess": flashesSuccess,
		"FlashesError":   flashesError,
	})
}

// ProcessRegisterForm creates the user account and its profile in one
// transaction.
func (h *AuthHandler) ProcessRegisterForm(c *gin.Context) {
	session, _ := h.Store.Get(c.Request, SessionName)
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	confirmPassword := c.PostForm("confirm_password")
	address := c.PostForm("address")
	phone := c.PostForm("phone")

	if username == "" || email == "" || password == "" {
		session.AddFlash("Username, email and password are required.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/register")
		return
	}

	if password != confirmPassword {
		session.AddFlash("Passwords do not match.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/register")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		session.AddFlash("Failed to process the password. Please try again.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/register")
		return
	}

	newUser := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
		Profile: model.Profile{
			Address: address,
			Phone:   phone,
		},
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&newUser).Error
	})
	if err != nil {
		if strings.Contains(err.Error(), "unique constraint") || strings.Contains(err.Error(), "UNIQUE constraint") || strings.Contains(err.Error(), "duplicate key") {
			session.AddFlash("This username is already taken.", "error")
		} else {
			session.AddFlash("Failed to create the account. Please try again.", "error")
		}
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/register")
		return
	}

	session.AddFlash("Account created. Please log in.", "success")
	session.Save(c.Request, c.Writer)
	c.Redirect(http.StatusFound, "/login")
}

// ShowLoginPage renders the login form with any flash messages.
func (h *AuthHandler) ShowLoginPage(c *gin.Context) {
	session, _ := h.Store.Get(c.Request, SessionName)
	flashesSuccess := session.Flashes("success")
	flashesError := session.Flashes("error")
	if err := session.Save(c.Request, c.Writer); err != nil {
		fmt.Printf("Warning: failed to save session in ShowLoginPage: %v\n", err)
	}

	c.HTML(http.StatusOK, "login.html", gin.H{
		"IsLoggedIn":     false,
		"FlashesSuccess": flashesSuccess,
		"FlashesError":   flashesError,
	})
}

func (h *AuthHandler) ProcessLoginForm(c *gin.Context) {
	session, _ := h.Store.Get(c.Request, SessionName)
	username := c.PostForm("username")
	password := c.PostForm("password")

	var user model.User
	result := database.DB.Where("username = ?", username).First(&user)

	if result.Error != nil && result.Error == gorm.ErrRecordNotFound {
		session.AddFlash("Invalid username or password.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if result.Error != nil {
		session.AddFlash("An internal error occurred. Please try again.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		session.AddFlash("Invalid username or password.", "error")
		session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	session.Values["userID"] = user.ID
	session.Values["userName"] = user.Username

	if err := session.Save(c.Request, c.Writer); err != nil {
		fmt.Printf("Error saving login session: %v\n", err)
		session.AddFlash("Failed to start the session. Please try again.", "error")
		_ = session.Save(c.Request, c.Writer)
		c.Redirect(http.StatusFound, "/login")
		return
	}

	if user.Role == model.RoleAdmin {
		c.Redirect(http.StatusFound, "/admin/sweets")
	} else {
		c.Redirect(http.StatusFound, "/")
	}
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session, _ := h.Store.Get(c.Request, SessionName)
	session.Values["userID"] = nil
	session.Values["userName"] = nil

	session.Options.MaxAge = -1
	if err := session.Save(c.Request, c.Writer); err != nil {
		fmt.Printf("Error saving logout session: %v\n", err)
		c.String(http.StatusInternalServerError, "Failed to log out.")
		return
	}
	c.Redirect(http.StatusFound, "/")
}

// AuthRequired redirects to the login page unless the session carries a valid
// user, and puts the loaded user on the request context.
func (h *AuthHandler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, _ := h.Store.Get(c.Request, SessionName)
		userID, ok := session.Values["userID"].(uint)
		if !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		var user model.User
		if err := database.DB.First(&user, userID).Error; err != nil {
			session.Values["userID"] = nil
			session.Values["userName"] = nil
			session.Options.MaxAge = -1
			session.Save(c.Request, c.Writer)
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// RoleRequired checks that the logged-in user has the given role. Must run
// after AuthRequired.
func (h *AuthHandler) RoleRequired(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userData, exists := c.Get("user")
		if !exists {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		user := userData.(model.User)
		if user.Role != requiredRole {
			c.String(http.StatusForbidden, "Access denied.")
			c.Abort()
			return
		}
		c.Next()
	}
}
