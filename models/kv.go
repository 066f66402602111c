package models

import "time"

// KVEntry is one key of the persistence substrate when it is backed by SQL.
type KVEntry struct {
	StorageKey string    `gorm:"column:storage_key;primaryKey;size:255" json:"key"`
	Value      string    `gorm:"type:text;not null" json:"value"`
	Version    int64     `gorm:"not null;default:0" json:"version"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}
