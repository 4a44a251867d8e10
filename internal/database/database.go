package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"skillswap/backend/internal/models"
)

// Connect opens the database connection, runs migrations and returns the
// handle. Callers own the handle; there is no package-level connection.
func Connect(dsn string) (*gorm.DB, error) {
	// Configure GORM logger
	customLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // Slow SQL threshold
			LogLevel:                  logger.Warn,            // Log level
			IgnoreRecordNotFoundError: true,                   // Ignore ErrRecordNotFound error for logger
			Colorful:                  true,                   // Enable color
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: customLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	log.Println("Database connection established.")

	// Run migrations
	err = db.AutoMigrate(&models.User{}, &models.Booking{}, &models.Notification{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	log.Println("Database migrated successfully.")
	return db, nil
}
