package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"slotbooking/backend/internal/config"
	"slotbooking/backend/internal/models"
)

var DB *gorm.DB

const sqlitePrefix = "sqlite://"

// Dialector picks the driver from the URL. "sqlite://<dsn>" opens SQLite,
// anything else is handed to the postgres driver.
func Dialector(url string) gorm.Dialector {
	if dsn, ok := strings.CutPrefix(url, sqlitePrefix); ok {
		return sqlite.Open(dsn)
	}
	return postgres.Open(url)
}

// New opens a gorm handle with the shared logger and settings.
func New(dialector gorm.Dialector) (*gorm.DB, error) {
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	return gorm.Open(dialector, &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
}

// Connect initializes the database connection and runs migrations.
func Connect(cfg *config.Config) {
	var err error

	DB, err = New(Dialector(cfg.DatabaseURL))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	log.Println("Database connection established.")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Println("Database migrated successfully.")
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Department{}, &models.User{}, &models.Game{}, &models.Slot{}, &models.Booking{}); err != nil {
		return err
	}
	// One non-cancelled booking per (user, slot).
	err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_user_slot
		ON bookings (user_id, slot_id) WHERE status <> 'CANCELLED'`).Error
	if err != nil {
		return fmt.Errorf("create active booking index: %w", err)
	}
	return nil
}

const (
	seedDepartment = "General"
	seedAdminEmail = "admin@example.com"
	seedAdminName  = "admin"
)

// Seed makes sure a default department and an admin account exist.
// It is safe to run on every start.
func Seed(db *gorm.DB, adminPasswordHash string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		dept := models.Department{Title: seedDepartment}
		if err := tx.Where(models.Department{Title: seedDepartment}).
			Attrs(models.Department{Description: "Default department"}).
			FirstOrCreate(&dept).Error; err != nil {
			return fmt.Errorf("seed department: %w", err)
		}

		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", seedAdminEmail).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}

		email, username := seedAdminEmail, seedAdminName
		admin := models.User{
			Email:        &email,
			Username:     &username,
			PasswordHash: adminPasswordHash,
			Role:         models.RoleAdmin,
			DepartmentID: dept.ID,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		log.Printf("Seeded admin user %s", seedAdminEmail)
		return nil
	})
}
