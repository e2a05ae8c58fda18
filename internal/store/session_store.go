package store

import (
	"context"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
)

type SessionStore struct{ db *gorm.DB }

func (s *Store) Sessions() *SessionStore { return &SessionStore{s.DB} }

func (ss *SessionStore) Create(ctx context.Context, s *domain.Session) error {
	return translate(ss.db.WithContext(ctx).Create(s).Error)
}

// GetActive returns the session only while it has not expired at now.
func (ss *SessionStore) GetActive(ctx context.Context, id string, now time.Time) (*domain.Session, error) {
	var s domain.Session
	if err := ss.db.WithContext(ctx).First(&s, "id = ? AND expires_at > ?", id, now).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (ss *SessionStore) Delete(ctx context.Context, id string) error {
	return ss.db.WithContext(ctx).Delete(&domain.Session{}, "id = ?", id).Error
}

func (ss *SessionStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	tx := ss.db.WithContext(ctx).Delete(&domain.Session{}, "user_id = ?", userID)
	return tx.RowsAffected, tx.Error
}
