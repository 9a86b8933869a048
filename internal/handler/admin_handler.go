package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"

	"github.com/ianleeboy/sweet/internal/database"
	"github.com/ianleeboy/sweet/internal/model"
)

// AdminHandler manages the sweet catalog. All routes are gated on the admin
// role.
type AdminHandler struct {
	Store *sessions.CookieStore
}

// ShowSweetsPage lists every sweet for management.
func (h *AdminHandler) ShowSweetsPage(c *gin.Context) {
	user := currentUser(c)

	var sweets []model.Sweet
	if err := database.DB.Order("created_at desc").Find(&sweets).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to load sweets.")
		return
	}

	c.HTML(http.StatusOK, "admin_sweets.html", gin.H{
		"IsLoggedIn": true,
		"User":       user,
		"Sweets":     sweets,
	})
}

// ProcessNewSweetForm creates a sweet from the submitted form, storing the
// uploaded image under a uuid filename.
func (h *AdminHandler) ProcessNewSweetForm(c *gin.Context) {
	name := c.PostForm("name")
	priceStr := c.PostForm("price")

	price, err := decimal.NewFromString(priceStr)
	if err != nil || price.IsNegative() {
		c.String(http.StatusBadRequest, "The price is invalid.")
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("Failed to read the image: %s", err.Error()))
		return
	}

	ext := filepath.Ext(file.Filename)
	newFilename := uuid.New().String() + ext
	destination := filepath.Join("uploads", newFilename)

	if err := c.SaveUploadedFile(file, destination); err != nil {
		c.String(http.StatusInternalServerError, fmt.Sprintf("Failed to store the image: %s", err.Error()))
		return
	}

	sweet := model.Sweet{
		Name:     name,
		Price:    price,
		ImageURL: fmt.Sprintf("/uploads/%s", newFilename),
	}
	if err := database.DB.Create(&sweet).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to save the sweet.")
		return
	}

	c.Redirect(http.StatusFound, "/admin/sweets")
}

// ShowEditSweetForm returns one sweet as JSON for the edit modal.
func (h *AdminHandler) ShowEditSweetForm(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id."})
		return
	}

	var sweet model.Sweet
	if err := database.DB.First(&sweet, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Sweet not found."})
		return
	}
	c.JSON(http.StatusOK, sweet)
}

// ProcessEditSweetForm updates name, price and optionally the image.
func (h *AdminHandler) ProcessEditSweetForm(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid id.")
		return
	}

	var sweet model.Sweet
	if err := database.DB.First(&sweet, id).Error; err != nil {
		c.String(http.StatusNotFound, "Sweet not found.")
		return
	}

	price, err := decimal.NewFromString(c.PostForm("price"))
	if err != nil || price.IsNegative() {
		c.String(http.StatusBadRequest, "The price is invalid.")
		return
	}

	sweet.Name = c.PostForm("name")
	sweet.Price = price

	file, err := c.FormFile("image")
	if err == nil {
		ext := filepath.Ext(file.Filename)
		newFilename := uuid.New().String() + ext
		destination := filepath.Join("uploads", newFilename)
		if err := c.SaveUploadedFile(file, destination); err == nil {
			sweet.ImageURL = fmt.Sprintf("/uploads/%s", newFilename)
		}
	}

	if err := database.DB.Save(&sweet).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to update the sweet.")
		return
	}

	c.Redirect(http.StatusFound, "/admin/sweets")
}

// DeleteSweet removes a sweet and its image file. Orders referencing it are
// cascade-deleted by the store.
func (h *AdminHandler) DeleteSweet(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid id.")
		return
	}

	var sweet model.Sweet
	if err := database.DB.First(&sweet, id).Error; err != nil {
		c.String(http.StatusNotFound, "Sweet not found.")
		return
	}

	filePath := sweet.ImageURL
	if len(filePath) > 0 && filePath[0] == '/' {
		filePath = filePath[1:]
	}
	if err := os.Remove(filePath); err != nil {
		fmt.Printf("Warning: could not remove file %s: %v\n", filePath, err)
	}

	if err := database.DB.Delete(&model.Sweet{}, id).Error; err != nil {
		c.String(http.StatusInternalServerError, "Failed to delete the sweet.")
		return
	}

	c.Redirect(http.StatusFound, "/admin/sweets")
}

// ShowOrdersPage lists every order in the shop, newest first.
func (h *AdminHandler) ShowOrdersPage(c *gin.Context) {
	user := currentUser(c)

	var orders []model.Order
	err := database.DB.Preload("User").
		Preload("Sweet").
		Order("created_at desc").
		Find(&orders).Error
	if err != nil {
		fmt.Printf("Failed to load orders for admin: %v\n", err)
		c.HTML(http.StatusOK, "admin_orders.html", gin.H{
			"IsLoggedIn": true,
			"User":       user,
			"Orders":     []model.Order{},
			"ErrorMsg":   "Failed to load the order list.",
		})
		return
	}

	c.HTML(http.StatusOK, "admin_orders.html", gin.H{
		"IsLoggedIn": true,
		"User":       user,
		"Orders":     orders,
	})
}
