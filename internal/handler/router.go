package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"slotbooking/backend/internal/auth"
	"slotbooking/backend/internal/hub"
	"slotbooking/backend/internal/metrics"
	"slotbooking/backend/internal/middleware"
	"slotbooking/backend/internal/service"
)

// Services groups the managers the HTTP layer talks to.
type Services struct {
	Auth        *service.AuthService
	Users       *service.UserService
	Departments *service.DepartmentService
	Games       *service.GameService
	Slots       *service.SlotService
	Bookings    *service.BookingService
}

type RouterConfig struct {
	Services     Services
	Tokens       auth.TokenParser
	Hub          *hub.Hub
	Metrics      *metrics.Metrics
	LoginLimiter *middleware.RateLimiter
}

// NewRouter wires every route under /api/v1.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
		router.GET("/metrics", cfg.Metrics.Handler())
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	authn := auth.AuthMiddleware(cfg.Tokens, cfg.Services.Auth)

	authH := NewAuthHandler(cfg.Services.Auth)
	userH := NewUserHandler(cfg.Services.Users)
	deptH := NewDepartmentHandler(cfg.Services.Departments)
	gameH := NewGameHandler(cfg.Services.Games)
	slotH := NewSlotHandler(cfg.Services.Slots, cfg.Services.Bookings, cfg.Hub)
	bookingH := NewBookingHandler(cfg.Services.Bookings)

	apiV1 := router.Group("/api/v1")
	{
		authRoutes := apiV1.Group("/auth")
		{
			login := []gin.HandlerFunc{authH.Login}
			if cfg.LoginLimiter != nil {
				login = append([]gin.HandlerFunc{cfg.LoginLimiter.Limit()}, login...)
			}
			authRoutes.POST("/login", login...)
			authRoutes.POST("/logout", authn, authH.Logout)
			authRoutes.GET("/me", authn, authH.Me)
			authRoutes.GET("/verify", authn, authH.Verify)
		}

		userRoutes := apiV1.Group("/users")
		userRoutes.Use(authn)
		{
			userRoutes.GET("", userH.GetUsers)
			userRoutes.POST("", userH.CreateUser)
			userRoutes.GET("/department/:id", userH.GetUsersByDepartment)
			userRoutes.GET("/role/:role", userH.GetUsersByRole)
			userRoutes.GET("/:id", userH.GetUser)
			userRoutes.PUT("/:id", userH.UpdateUser)
			userRoutes.DELETE("/:id", userH.DeleteUser)
		}

		deptRoutes := apiV1.Group("/departments")
		deptRoutes.Use(authn)
		{
			deptRoutes.GET("", deptH.GetDepartments)
			deptRoutes.POST("", deptH.CreateDepartment)
			deptRoutes.GET("/:id", deptH.GetDepartment)
			deptRoutes.PUT("/:id", deptH.UpdateDepartment)
			deptRoutes.DELETE("/:id", deptH.DeleteDepartment)
		}

		gameRoutes := apiV1.Group("/games")
		gameRoutes.Use(authn)
		{
			gameRoutes.GET("", gameH.GetGames)
			gameRoutes.GET("/available", gameH.GetGamesWithAvailableSlots) // Must be before /:id
			gameRoutes.POST("", gameH.CreateGame)
			gameRoutes.GET("/:id", gameH.GetGame)
			gameRoutes.PUT("/:id", gameH.UpdateGame)
			gameRoutes.DELETE("/:id", gameH.DeleteGame)
		}

		slotRoutes := apiV1.Group("/slots")
		slotRoutes.Use(authn)
		{
			slotRoutes.GET("", slotH.GetSlots)
			slotRoutes.GET("/available", slotH.GetAvailableSlots)
			slotRoutes.GET("/range", slotH.GetSlotsByDateRange)
			slotRoutes.GET("/game/:id", slotH.GetSlotsByGame)
			slotRoutes.POST("", slotH.CreateSlot)
			slotRoutes.GET("/:id", slotH.GetSlot)
			slotRoutes.GET("/:id/events", slotH.StreamEvents)
			slotRoutes.PUT("/:id", slotH.UpdateSlot)
			slotRoutes.DELETE("/:id", slotH.DeleteSlot)
		}

		bookingRoutes := apiV1.Group("/bookings")
		bookingRoutes.Use(authn)
		{
			bookingRoutes.GET("", bookingH.GetBookings)
			bookingRoutes.POST("", bookingH.CreateBooking)
			bookingRoutes.POST("/reset-today", bookingH.ResetCurrentDayBookings)
			bookingRoutes.GET("/user/:id", bookingH.GetBookingsByUser)
			bookingRoutes.GET("/user/:id/active", bookingH.GetUserActiveBookings)
			bookingRoutes.GET("/slot/:id", bookingH.GetBookingsBySlot)
			bookingRoutes.GET("/status/:status", bookingH.GetBookingsByStatus)
			bookingRoutes.GET("/:id", bookingH.GetBooking)
			bookingRoutes.PUT("/:id", bookingH.UpdateBooking)
			bookingRoutes.DELETE("/:id", bookingH.DeleteBooking)
			bookingRoutes.POST("/:id/cancel", bookingH.CancelBooking)
			bookingRoutes.POST("/:id/confirm", bookingH.ConfirmBooking)
		}
	}

	return router
}
