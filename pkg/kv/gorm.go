package kv

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the GORM model backing GormBackend.
type Entry struct {
	Key   string `gorm:"primaryKey;size:512"`
	Value string `gorm:"type:text;not null"`
}

// TableName pins the table name shared with the SQLite backend.
func (Entry) TableName() string {
	return "kv_entries"
}

// GormBackend implements Backend on a relational database through GORM.
// Capacity is left to the database server.
type GormBackend struct {
	db *gorm.DB
}

// NewGormBackend migrates the entry table and returns the backend.
func NewGormBackend(db *gorm.DB) (*GormBackend, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate kv_entries: %w", err)
	}
	return &GormBackend{db: db}, nil
}

var _ Backend = (*GormBackend)(nil)

// Get returns the value stored under key.
func (b *GormBackend) Get(ctx context.Context, key string) (string, bool, error) {
	var e Entry
	err := b.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

// Set upserts value under key.
func (b *GormBackend) Set(ctx context.Context, key, value string) error {
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&Entry{Key: key, Value: value}).Error
}

// Remove deletes key if present.
func (b *GormBackend) Remove(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}

// Keys lists every stored key.
func (b *GormBackend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := b.db.WithContext(ctx).Model(&Entry{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
