package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kyy487/ruangcerita/db"
	"github.com/Kyy487/ruangcerita/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLSubstrate keeps keys as rows of kv_entries through gorm.
type SQLSubstrate struct {
	orm *gorm.DB
}

func NewSQLSubstrate(orm *gorm.DB) *SQLSubstrate {
	return &SQLSubstrate{orm: orm}
}

func takeEntry(tx *gorm.DB, key string) (models.KVEntry, bool, error) {
	var entry models.KVEntry
	err := tx.Where("storage_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entry, false, nil
	}
	if err != nil {
		return entry, false, err
	}
	return entry, true, nil
}

func (s *SQLSubstrate) Get(ctx context.Context, key string) (string, bool, error) {
	entry, ok, err := takeEntry(db.GetReadOnlyDB(ctx, s.orm), key)
	if err != nil {
		return "", false, fmt.Errorf("sql get %s: %w", key, err)
	}
	return entry.Value, ok, nil
}

func (s *SQLSubstrate) Set(ctx context.Context, key, value string) (string, error) {
	var old string
	err := db.GetWriteDB(ctx, s.orm).Transaction(func(tx *gorm.DB) error {
		entry, _, err := takeEntry(tx, key)
		if err != nil {
			return err
		}
		old = entry.Value
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "storage_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"value":      value,
				"version":    gorm.Expr("kv_entries.version + 1"),
				"updated_at": time.Now().UTC(),
			}),
		}).Create(&models.KVEntry{StorageKey: key, Value: value, Version: 1}).Error
	})
	if err != nil {
		return "", fmt.Errorf("sql set %s: %w", key, err)
	}
	return old, nil
}

func (s *SQLSubstrate) Remove(ctx context.Context, key string) (string, error) {
	var old string
	err := db.GetWriteDB(ctx, s.orm).Transaction(func(tx *gorm.DB) error {
		entry, ok, err := takeEntry(tx, key)
		if err != nil || !ok {
			return err
		}
		old = entry.Value
		return tx.Where("storage_key = ?", key).Delete(&models.KVEntry{}).Error
	})
	if err != nil {
		return "", fmt.Errorf("sql remove %s: %w", key, err)
	}
	return old, nil
}

func (s *SQLSubstrate) GetVersioned(ctx context.Context, key string) (string, int64, error) {
	// Versioned reads go to the master so replica lag can not feed stale versions into CAS.
	entry, _, err := takeEntry(db.GetWriteDB(ctx, s.orm), key)
	if err != nil {
		return "", 0, fmt.Errorf("sql get %s: %w", key, err)
	}
	return entry.Value, entry.Version, nil
}

func (s *SQLSubstrate) CompareAndSet(ctx context.Context, key string, version int64, value string) (int64, string, error) {
	var old string
	err := db.GetWriteDB(ctx, s.orm).Transaction(func(tx *gorm.DB) error {
		entry, ok, err := takeEntry(tx, key)
		if err != nil {
			return err
		}
		if entry.Version != version {
			return ErrVersionConflict
		}
		old = entry.Value

		if !ok {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.KVEntry{StorageKey: key, Value: value, Version: 1})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrVersionConflict
			}
			return nil
		}

		res := tx.Model(&models.KVEntry{}).
			Where("storage_key = ? AND version = ?", key, version).
			Updates(map[string]interface{}{
				"value":      value,
				"version":    version + 1,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return nil
	})
	if errors.Is(err, ErrVersionConflict) {
		return 0, "", ErrVersionConflict
	}
	if err != nil {
		return 0, "", fmt.Errorf("sql compare-and-set %s: %w", key, err)
	}
	return version + 1, old, nil
}
