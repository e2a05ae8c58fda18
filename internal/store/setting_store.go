package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingStore struct{ db *gorm.DB }

func (s *Store) Settings() *SettingStore { return &SettingStore{s.DB} }

// GetInt returns the integer value of key, or def when the setting is unset
// or not a number.
func (ss *SettingStore) GetInt(ctx context.Context, key string, def int) (int, error) {
	var row domain.SystemSetting
	err := ss.db.WithContext(ctx).First(&row, "name = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	n, err := strconv.Atoi(row.Value)
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (ss *SettingStore) Set(ctx context.Context, key, value string) error {
	row := domain.SystemSetting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return ss.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}
