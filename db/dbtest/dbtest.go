// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/sidhant-sriv/smart-renter/db"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory SQLite database that is closed when
// the test ends. The pool is pinned to one connection so every query sees
// the same in-memory database.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	conn, err := db.OpenDialector(sqlite.Open(":memory:"), false)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("test database pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })
	return conn
}
