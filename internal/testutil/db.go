// Package testutil provides an in-memory database and fixtures for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rps_wallet/internal/db"
	"rps_wallet/internal/domain"
)

// OpenDB returns a migrated in-memory SQLite database private to the test
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection keeps the shared-cache database alive and avoids table locks.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

// CreatePlayer inserts a verified user with a wallet holding available funds
func CreatePlayer(t testing.TB, gdb *gorm.DB, name string, available int64) (*domain.User, *domain.Wallet) {
	t.Helper()

	amount := decimal.NewFromInt(available)
	user := &domain.User{
		Name:       name,
		Email:      fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		Password:   "x",
		IsVerified: true,
		Type:       domain.UserTypeUser,
	}
	require.NoError(t, gdb.Create(user).Error)

	wallet := &domain.Wallet{
		UserID:           user.ID,
		Balance:          amount,
		AvailableBalance: amount,
		Currency:         "USD",
	}
	require.NoError(t, gdb.Create(wallet).Error)
	return user, wallet
}

// ReloadWallet fetches the current state of a wallet
func ReloadWallet(t testing.TB, gdb *gorm.DB, id uint) *domain.Wallet {
	t.Helper()

	var w domain.Wallet
	require.NoError(t, gdb.First(&w, id).Error)
	return &w
}

// Dec is shorthand for decimal.RequireFromString in fixtures
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
