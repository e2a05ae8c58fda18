// Package dbtest opens isolated in-memory sqlite databases migrated with the
// domain models, for tests that exercise the gorm stores.
package dbtest

import (
	"fmt"
	"testing"

	"cardauth/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table the service owns.
func Models() []any {
	return []any{
		&domain.User{},
		&domain.PasswordCredential{},
		&domain.Session{},
		&domain.OneTimeToken{},
		&domain.InviteCode{},
		&domain.SystemSetting{},
	}
}

// Open returns a fresh database private to the calling test. The pool is
// limited to one connection so transactions from concurrent goroutines queue
// instead of hitting sqlite table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=0", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
