package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbooking/backend/internal/auth"
	"slotbooking/backend/internal/authz"
	"slotbooking/backend/internal/config"
	"slotbooking/backend/internal/database"
	"slotbooking/backend/internal/handler"
	"slotbooking/backend/internal/hub"
	"slotbooking/backend/internal/metrics"
	"slotbooking/backend/internal/middleware"
	"slotbooking/backend/internal/mq"
	"slotbooking/backend/internal/service"
	"slotbooking/backend/pkg/jwt"

	// Swagger imports
	_ "slotbooking/backend/docs" // This is important for swag to find the generated docs
)

//go:generate swag init -g cmd/server/main.go -d ../.. -o ../../docs

func init() {
	config.LoadConfig()
}

// @title           Slot Booking API
// @version         1.0
// @description     Booking of capacity-limited game slots.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.AppConfig

	// Connect to the database
	database.Connect(cfg)

	hasher := auth.NewBcryptHasher()
	adminHash, err := hasher.Hash(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("Failed to hash seed password: %v", err)
	}
	if err := database.Seed(database.DB, adminHash); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	slotHub := hub.NewHub()
	m := metrics.New()
	notifiers := service.Notifiers{slotHub, m}

	if cfg.RabbitURL != "" {
		pub, err := mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, mq.NewBookingNotifier(pub))
		log.Printf("[booking] publishing events to exchange %s", cfg.BookingExchange)
	}

	az := authz.New()
	tokens := jwt.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL())
	db := database.DB

	services := handler.Services{
		Auth:        service.NewAuthService(db, hasher, tokens),
		Users:       service.NewUserService(db, az, hasher),
		Departments: service.NewDepartmentService(db, az),
		Games:       service.NewGameService(db, az),
		Slots:       service.NewSlotService(db, az),
		Bookings:    service.NewBookingService(db, az, notifiers),
	}

	router := handler.NewRouter(handler.RouterConfig{
		Services:     services,
		Tokens:       tokens,
		Hub:          slotHub,
		Metrics:      m,
		LoginLimiter: middleware.NewRateLimiter(cfg.LoginRatePerMinute),
	})

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: router,
	}

	go func() {
		fmt.Printf("Server is running on %s\n", cfg.ServerAddr)
		fmt.Println("Swagger UI is available at http://localhost:8080/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
