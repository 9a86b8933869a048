package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"

	"github.com/ianleeboy/sweet/internal/database"
	"github.com/ianleeboy/sweet/internal/handler"
	"github.com/ianleeboy/sweet/internal/metrics"
	"github.com/ianleeboy/sweet/internal/model"
	"github.com/ianleeboy/sweet/internal/notifier"
	"github.com/ianleeboy/sweet/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}

	database.ConnectDB()
	database.SeedAdmin()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}
	store := sessions.NewCookieStore([]byte(sessionSecret))

	orderService := service.NewOrderService(database.DB, notifier.NewEmailNotifierFromEnv())

	authHandler := &handler.AuthHandler{Store: store}
	homeHandler := &handler.HomeHandler{Store: store}
	orderHandler := &handler.OrderHandler{Store: store, Service: orderService}
	adminHandler := &handler.AdminHandler{Store: store}

	serverMetrics := metrics.NewServerMetrics()

	router := gin.Default()
	router.Use(serverMetrics.Middleware())
	router.LoadHTMLGlob("internal/view/templates/*")
	router.Static("/uploads", "./uploads")

	router.GET("/", homeHandler.ShowHomePage)
	router.GET("/register", authHandler.ShowRegisterPage)
	router.POST("/register", authHandler.ProcessRegisterForm)
	router.GET("/login", authHandler.ShowLoginPage)
	router.POST("/login", authHandler.ProcessLoginForm)
	router.GET("/logout", authHandler.Logout)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	orders := router.Group("/")
	orders.Use(authHandler.AuthRequired())
	{
		orders.GET("/order", orderHandler.ShowOrderForm)
		orders.POST("/order", orderHandler.PlaceOrder)
		orders.GET("/orders", orderHandler.ShowPendingOrders)
		orders.POST("/orders/:id/increase", orderHandler.IncreaseQuantity)
		orders.POST("/orders/:id/decrease", orderHandler.DecreaseQuantity)
		orders.POST("/orders/:id/delete", orderHandler.DeleteOrder)
		orders.POST("/orders/confirm", orderHandler.ConfirmAll)
		orders.GET("/orders/history", orderHandler.ShowOrderHistory)
	}

	admin := router.Group("/admin")
	admin.Use(authHandler.AuthRequired(), authHandler.RoleRequired(model.RoleAdmin))
	{
		admin.GET("/sweets", adminHandler.ShowSweetsPage)
		admin.POST("/sweets", adminHandler.ProcessNewSweetForm)
		admin.GET("/sweets/:id", adminHandler.ShowEditSweetForm)
		admin.POST("/sweets/:id", adminHandler.ProcessEditSweetForm)
		admin.POST("/sweets/:id/delete", adminHandler.DeleteSweet)
		admin.GET("/orders", adminHandler.ShowOrdersPage)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server listening on port %s", port)
	router.Run(":" + port)
}
