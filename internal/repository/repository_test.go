package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/krushna-ai/gdvg-ingest/internal/config"
	"gorm.io/gorm"
)

// setupTestDB opens a migrated SQLite database in a per-test temp dir.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	})
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	return db
}
