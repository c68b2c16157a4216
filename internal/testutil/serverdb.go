package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rps_wallet/internal/db"
	"rps_wallet/internal/domain"
)

// OpenServerDB connects to the MySQL or PostgreSQL database named by
// TEST_DB_DRIVER and TEST_DB_DSN, migrates it and empties every table. Tests
// that need real row locks use it; they are skipped when it is not configured.
func OpenServerDB(t testing.TB) *gorm.DB {
	t.Helper()

	driver, dsn := os.Getenv("TEST_DB_DRIVER"), os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	var dialector gorm.Dialector
	switch driver {
	case "mysql", "":
		dialector = mysql.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		t.Fatalf("unsupported TEST_DB_DRIVER %q", driver)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(gdb))
	wipe := gdb.Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []any{&domain.GameRound{}, &domain.Transaction{}, &domain.Game{}, &domain.Wallet{}, &domain.User{}} {
		require.NoError(t, wipe.Delete(model).Error)
	}
	return gdb
}
