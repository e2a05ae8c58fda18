package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
)

// oneTimeTokenBytes is the entropy of an issued one-time token (hex encoded).
const oneTimeTokenBytes = 32

type TokenStore struct{ db *gorm.DB }

func (s *Store) Tokens() *TokenStore { return &TokenStore{s.DB} }

// Issue stores a new random token for owner. Issuing an email verification
// token first removes every earlier verification token for the same email so
// only the newest link works.
func (ts *TokenStore) Issue(ctx context.Context, kind domain.TokenKind, owner string, ttl time.Duration) (*domain.OneTimeToken, error) {
	raw := make([]byte, oneTimeTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	if kind == domain.TokenEmailVerification {
		owner = domain.NormalizeEmail(owner)
		if _, err := ts.DeleteForOwner(ctx, kind, owner); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	tok := &domain.OneTimeToken{
		Kind:      kind,
		Token:     hex.EncodeToString(raw),
		Owner:     owner,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := ts.db.WithContext(ctx).Create(tok).Error; err != nil {
		return nil, translate(err)
	}
	return tok, nil
}

// Consume redeems a token exactly once and returns its owner. Password reset
// tokens are flagged used and kept; verification tokens are deleted. The
// write is conditional on the token still being valid, so concurrent
// consumers cannot both succeed.
func (ts *TokenStore) Consume(ctx context.Context, kind domain.TokenKind, token string, now time.Time) (string, error) {
	var tok domain.OneTimeToken
	err := ts.db.WithContext(ctx).
		First(&tok, "token = ? AND kind = ?", token, kind).Error
	if err != nil {
		return "", translate(err)
	}
	if !tok.Valid(now) {
		return "", ErrRecordNotFound
	}

	var tx *gorm.DB
	if kind == domain.TokenEmailVerification {
		tx = ts.db.WithContext(ctx).
			Where("id = ? AND expires_at > ?", tok.ID, now).
			Delete(&domain.OneTimeToken{})
	} else {
		tx = ts.db.WithContext(ctx).Model(&domain.OneTimeToken{}).
			Where("id = ? AND used = ? AND expires_at > ?", tok.ID, false, now).
			Updates(map[string]any{"used": true, "used_at": now})
	}
	if tx.Error != nil {
		return "", tx.Error
	}
	if tx.RowsAffected == 0 {
		return "", ErrRecordNotFound
	}
	return tok.Owner, nil
}

func (ts *TokenStore) Delete(ctx context.Context, token string) error {
	return ts.db.WithContext(ctx).Delete(&domain.OneTimeToken{}, "token = ?", token).Error
}

func (ts *TokenStore) DeleteForOwner(ctx context.Context, kind domain.TokenKind, owner string) (int64, error) {
	tx := ts.db.WithContext(ctx).Delete(&domain.OneTimeToken{}, "kind = ? AND owner = ?", kind, owner)
	return tx.RowsAffected, tx.Error
}
