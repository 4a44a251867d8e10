package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"skillswap/backend/internal/auth"
	"skillswap/backend/internal/booking"
	"skillswap/backend/internal/config"
	"skillswap/backend/internal/database"
	"skillswap/backend/internal/friendship"
	"skillswap/backend/internal/handler"
	"skillswap/backend/internal/hub"
	"skillswap/backend/internal/mail"
	"skillswap/backend/internal/notify"
	"skillswap/backend/internal/store"

	"github.com/gin-gonic/gin"

	// Swagger imports
	_ "skillswap/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           SkillSwap API
// @version         1.0
// @description     This is the API for the SkillSwap service.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	users := store.NewUserStore(db)
	bookings := store.NewBookingStore(db)
	notifications := store.NewNotificationStore(db)

	var sender mail.Sender = mail.Disabled{}
	if cfg.SMTPHost != "" {
		sender = mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom,
			cfg.SMTPUsername, cfg.SMTPPassword)
	}

	eventHub := hub.New()
	notifier := notify.New(notifications, eventHub, sender, logger)

	h := &handler.Handler{
		Users:         users,
		Friendships:   friendship.NewService(users, notifier, logger),
		Bookings:      booking.NewService(bookings, users, notifier, logger),
		Notifications: notifications,
		Hub:           eventHub,
		JWTSecret:     cfg.JWTSecret,
	}

	router := gin.Default()

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", h.RegisterUser)
			authRoutes.POST("/login", h.LoginUser)
		}

		// User routes
		userRoutes := apiV1.Group("/users")
		{
			// Public profile works with or without a token; the relation to
			// the viewer is only filled in when one is present.
			userRoutes.GET("/:id", auth.OptionalMiddleware(cfg.JWTSecret), h.GetUserByID)

			protected := userRoutes.Group("")
			protected.Use(auth.Middleware(cfg.JWTSecret))
			{
				protected.GET("/me", h.GetMe)
				protected.PUT("/me", h.UpdateMe)
				protected.GET("/me/requests", h.ListRequests)
				protected.GET("/me/friends", h.ListFriends)

				// Friendship routes
				protected.POST("/:id/request", h.SendRequest)
				protected.POST("/:id/cancel", h.CancelRequest)
				protected.POST("/:id/remove", h.Unfriend)
				protected.POST("/requests/:requestId", h.RespondRequest)
			}
		}

		// Booking routes (protected)
		bookingRoutes := apiV1.Group("/bookings")
		bookingRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			bookingRoutes.POST("", h.CreateBooking)
			bookingRoutes.GET("", h.ListBookings)
			bookingRoutes.GET("/:id", h.GetBooking)
			bookingRoutes.POST("/:id/accept", h.AcceptBooking)
			bookingRoutes.POST("/:id/reject", h.RejectBooking)
			bookingRoutes.POST("/:id/complete", h.CompleteBooking)
			bookingRoutes.PUT("/:id/schedule", h.RescheduleBooking)
			bookingRoutes.DELETE("/:id", h.CancelBooking)
		}

		// Notification routes (protected)
		notificationRoutes := apiV1.Group("/notifications")
		notificationRoutes.Use(auth.Middleware(cfg.JWTSecret))
		{
			notificationRoutes.GET("", h.ListNotifications)
			notificationRoutes.POST("/:id/read", h.MarkNotificationRead)
			notificationRoutes.POST("/read-all", h.MarkAllNotificationsRead)
		}

		// Live event stream (protected)
		apiV1.GET("/events", auth.Middleware(cfg.JWTSecret), h.Events)
	}

	fmt.Printf("Server is running on :%s\n", cfg.Port)
	fmt.Println("Swagger UI is available at http://localhost:" + cfg.Port + "/swagger/index.html")
	log.Fatal(router.Run(":" + cfg.Port))
}
