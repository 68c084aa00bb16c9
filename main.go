package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"markethub-backend/config"
	"markethub-backend/database"
	"markethub-backend/internal/api"
	"markethub-backend/internal/middleware"
	"markethub-backend/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	// Run database migrations
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowedOrigin := ""
		if cfg.AllowAllOrigins {
			allowedOrigin = "*"
		} else {
			for _, allowed := range cfg.AllowedOrigins {
				if origin == allowed {
					allowedOrigin = origin
					break
				}
			}
		}

		if allowedOrigin != "" {
			c.Header("Access-Control-Allow-Origin", allowedOrigin)
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Origin")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	securityConfig := &middleware.SecurityConfig{
		MaxRequestSize:    cfg.MaxFileSize,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   time.Duration(cfg.RateLimitWindow) * time.Second,
	}
	router.Use(middleware.SecurityMiddleware(securityConfig))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "MarketHub API is running",
		})
	})

	// Initialize services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	authMiddleware := middleware.NewAuthMiddleware(authService)
	emailService := services.NewEmailService(cfg)

	taskQueue := services.NewTaskQueue(db, emailService, cfg.TaskQueueSize, cfg.TaskQueueWorkers)
	taskQueue.Start()

	// Periodic sweep of expired blacklisted tokens
	blacklistTicker := time.NewTicker(time.Hour)
	go func() {
		for range blacklistTicker.C {
			authService.CleanupExpiredTokens()
		}
	}()

	// Initialize handlers
	authHandlers := api.NewAuthHandlers(db, authService, emailService)
	uploadHandlers := api.NewUploadHandlers(db, taskQueue, cfg)
	productHandlers := api.NewProductHandlers(db)
	cartHandlers := api.NewCartHandlers(db, taskQueue)
	orderHandlers := api.NewOrderHandlers(db)

	// Account routes with stricter rate limiting
	users := router.Group("/users")
	users.Use(middleware.AuthRateLimitMiddleware())
	{
		users.POST("/register", authHandlers.Register)
		users.POST("/login", authHandlers.Login)
		users.POST("/logout", authMiddleware.AuthRequired(), authHandlers.Logout)
		users.POST("/reset", authHandlers.ResetPassword)
		users.GET("/profile", authMiddleware.AuthRequired(), authHandlers.GetProfile)
		users.PATCH("/profile", authMiddleware.AuthRequired(), authHandlers.UpdateProfile)
	}

	// Public catalog routes
	router.GET("/products", productHandlers.ListProducts)
	router.GET("/products/:id", productHandlers.GetProduct)

	// Seller price-list upload routes
	upload := router.Group("/upload")
	upload.Use(authMiddleware.AuthRequired(), authMiddleware.RequireRole("seller"))
	{
		upload.POST("", uploadHandlers.Upload)
		upload.GET("/:id", uploadHandlers.GetUploadResult)
	}

	// Buyer cart routes
	cart := router.Group("/cart")
	cart.Use(authMiddleware.AuthRequired(), authMiddleware.RequireRole("buyer"))
	{
		cart.GET("", cartHandlers.GetCart)
		cart.POST("", cartHandlers.UpdateCart)
		cart.DELETE("/clear", cartHandlers.ClearCart)
		cart.POST("/checkout", cartHandlers.Checkout)
	}

	// Order routes, shared between roles
	orders := router.Group("/orders")
	orders.Use(authMiddleware.AuthRequired())
	{
		orders.GET("", orderHandlers.ListOrders)
		orders.GET("/:id", orderHandlers.GetOrder)
		orders.PATCH("/:id", authMiddleware.RequireRole("seller"), orderHandlers.UpdateOrderStatus)
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("MarketHub API server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	blacklistTicker.Stop()
	taskQueue.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server shutdown complete")
}
