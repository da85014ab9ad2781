package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements KV using GORM + Postgres.
type GormStore struct {
	db      *gorm.DB
	profile string
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn, profile string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewGormStoreFromDB(db, profile)
}

// NewGormStoreFromDB wraps an already opened connection.
func NewGormStoreFromDB(db *gorm.DB, profile string) (*GormStore, error) {
	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db, profile: safeProfile(profile)}, nil
}

// Get returns the value stored under key.
func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	var model EntryModel
	err := s.db.WithContext(ctx).First(&model, "profile = ? AND key = ?", s.profile, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return model.Value, true, nil
}

// SetPair upserts both rows in one transaction.
func (s *GormStore) SetPair(ctx context.Context, k1, v1, k2, v2 string) error {
	if err := checkKeys(k1, k2); err != nil {
		return err
	}
	now := time.Now().UTC()
	rows := []EntryModel{
		{Profile: s.profile, Key: k1, Value: v1, UpdatedAt: now},
		{Profile: s.profile, Key: k2, Value: v2, UpdatedAt: now},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "profile"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&rows).Error
	})
}

// DeletePair removes both rows in one statement.
func (s *GormStore) DeletePair(ctx context.Context, k1, k2 string) error {
	return s.db.WithContext(ctx).
		Where("profile = ? AND key IN ?", s.profile, []string{k1, k2}).
		Delete(&EntryModel{}).Error
}

// Close closes the underlying sql.DB.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
