package db

import (
	"errors" // Error inspection

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library

	"rps_wallet/internal/config" // Custom package for configuration
	"rps_wallet/internal/domain" // Importing domain models
)

// AutoMigrate creates tables, missing foreign keys, constraints, columns and indexes
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.User{}, &domain.Wallet{}, &domain.Transaction{}, &domain.Game{}, &domain.GameRound{})
}

// Migrate performs automatic migration and seeds the house account
func Migrate(cfg *config.Config) {
	db, err := Open(cfg) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	if err := AutoMigrate(db); err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	if err := EnsureHouseAccount(db, cfg); err != nil {
		logrus.Fatalf("house account seed failed: %v", err) // Log fatal error if seeding fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}

// EnsureHouseAccount creates the house bot user and its funded wallet if missing
func EnsureHouseAccount(db *gorm.DB, cfg *config.Config) error {
	var house domain.User // Existing house user, if any
	err := db.First(&house, cfg.HouseUserID).Error
	if err == nil {
		return nil // Already seeded
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err // Lookup failed
	}
	return db.Transaction(func(tx *gorm.DB) error {
		house = domain.User{
			ID:         cfg.HouseUserID,    // Fixed, configured ID
			Name:       "system",           // Display name shown to players
			Email:      "system@bot.local", // Never used to log in
			Password:   "!",                // Not a valid bcrypt hash, so login always fails
			Type:       domain.UserTypeSystem,
			IsVerified: true,
		}
		if err := tx.Create(&house).Error; err != nil {
			return err // Rollback
		}
		// PostgreSQL sequences do not advance on explicit IDs
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT setval(pg_get_serial_sequence('users', 'id'), (SELECT MAX(id) FROM users))").Error; err != nil {
				return err // Rollback
			}
		}
		wallet := domain.Wallet{
			UserID:           house.ID,
			Balance:          cfg.HouseSeedBalance,
			AvailableBalance: cfg.HouseSeedBalance,
			Currency:         cfg.Currency,
		}
		if err := tx.Create(&wallet).Error; err != nil {
			return err // Rollback
		}
		logrus.WithFields(logrus.Fields{
			"user_id":   house.ID,                      // House user ID
			"wallet_id": wallet.ID,                     // House wallet ID
			"balance":   cfg.HouseSeedBalance.String(), // Opening balance
		}).Info("House account created")
		return nil // Commit
	})
}
