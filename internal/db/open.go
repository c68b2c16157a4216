package db

import (
	"fmt" // Error formatting

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // PostgreSQL driver for GORM (pgx)
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger

	"rps_wallet/internal/config" // Custom package for configuration
)

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector // Driver specific dialector
	switch cfg.DBDriver {
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN()) // MySQL connection
	case "postgres":
		dialector = postgres.Open(cfg.DSN()) // PostgreSQL connection
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	level := logger.Info // Verbose SQL logging in development
	if cfg.IsProd {
		level = logger.Warn // Only slow queries and errors in production
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,                          // Map driver errors to gorm.ErrDuplicatedKey etc.
		Logger:         logger.Default.LogMode(level), // SQL logging
	})
}
