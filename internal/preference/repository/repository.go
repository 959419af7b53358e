package repository

import (
	"context"
	"errors"
	"time"

	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store persists preferences in the ui_preferences table.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var row preferencedomain.Preference
	err := s.db.WithContext(ctx).First(&row, "owner = ? AND pref_key = ?", owner, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Value), true, nil
}

func (s *Store) Put(ctx context.Context, owner, key string, value []byte) error {
	row := preferencedomain.Preference{
		Owner:     owner,
		Key:       key,
		Value:     datatypes.JSON(value),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner"}, {Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *Store) Delete(ctx context.Context, owner, key string) error {
	return s.db.WithContext(ctx).
		Where("owner = ? AND pref_key = ?", owner, key).
		Delete(&preferencedomain.Preference{}).Error
}
