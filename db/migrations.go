package db

import (
	"fmt"

	"github.com/Kyy487/ruangcerita/models"

	"gorm.io/gorm"
)

// Migrate creates the kv_entries table and its housekeeping index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return fmt.Errorf("failed to migrate kv_entries: %w", err)
	}

	// Lets operators find stale keys without a full scan.
	createIndexSQL := `CREATE INDEX IF NOT EXISTS idx_kv_entries_updated_at ON kv_entries (updated_at);`
	if err := db.Exec(createIndexSQL).Error; err != nil {
		return fmt.Errorf("failed to create index idx_kv_entries_updated_at: %w", err)
	}
	return nil
}
