// Package dbtest opens throwaway in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/d60-Lab/eip-site/config"
	"github.com/d60-Lab/eip-site/pkg/database"
)

var seq atomic.Int64

// New returns a migrated in-memory database private to the calling test.
// A single connection is used so every goroutine sees the same memory DB.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))
	db, err := database.InitDB(&config.Config{
		Database: config.DatabaseConfig{
			Driver:       "sqlite",
			DSN:          dsn,
			MaxOpenConns: 1,
			AutoMigrate:  true,
			LogLevel:     "silent",
		},
	})
	if err != nil {
		tb.Fatalf("open test db: %v", err)
	}
	tb.Cleanup(func() { _ = database.Close(db) })
	return db
}
