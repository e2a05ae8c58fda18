package store

import (
	"context"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
)

type InviteStore struct{ db *gorm.DB }

func (s *Store) Invites() *InviteStore { return &InviteStore{s.DB} }

// Create inserts a code; a code collision surfaces as ErrDuplicate.
func (is *InviteStore) Create(ctx context.Context, c *domain.InviteCode) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return translate(is.db.WithContext(ctx).Create(c).Error)
}

func (is *InviteStore) GetByCode(ctx context.Context, code string) (*domain.InviteCode, error) {
	var out domain.InviteCode
	if err := is.db.WithContext(ctx).First(&out, "code = ?", code).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (is *InviteStore) CountByIssuer(ctx context.Context, issuer domain.UserID) (int64, error) {
	var n int64
	err := is.db.WithContext(ctx).Model(&domain.InviteCode{}).
		Where("created_by_user_id = ?", issuer).Count(&n).Error
	return n, err
}

func (is *InviteStore) ListByIssuer(ctx context.Context, issuer domain.UserID) ([]domain.InviteCode, error) {
	var out []domain.InviteCode
	err := is.db.WithContext(ctx).
		Where("created_by_user_id = ?", issuer).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	return out, err
}

// MarkUsed flips is_used for a still-redeemable code in a single conditional
// UPDATE. It reports false when no row qualified (unknown, used or expired),
// which is how a lost race between two signups shows up.
func (is *InviteStore) MarkUsed(ctx context.Context, code string, userID domain.UserID, now time.Time) (bool, error) {
	tx := is.db.WithContext(ctx).Model(&domain.InviteCode{}).
		Where("code = ? AND is_used = ? AND (expires_at IS NULL OR expires_at > ?)", code, false, now).
		Updates(map[string]any{
			"is_used":         true,
			"used_by_user_id": userID,
			"used_at":         now,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}
