package store

import (
	"context"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CredentialStore struct{ db *gorm.DB }

func (s *Store) Credentials() *CredentialStore { return &CredentialStore{s.DB} }

// UpsertPassword creates or replaces the user's credentials-provider row, so
// repeated calls converge on the latest hash.
func (cs *CredentialStore) UpsertPassword(ctx context.Context, c *domain.PasswordCredential) error {
	now := time.Now().UTC()
	if c.Provider == "" {
		c.Provider = domain.ProviderCredentials
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	// Requires the unique index on (user_id, provider).
	return cs.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.AssignmentColumns([]string{"algo", "hash", "salt", "params_json", "password_ver", "updated_at"}),
	}).Create(c).Error
}

func (cs *CredentialStore) GetPasswordByUserID(ctx context.Context, userID domain.UserID) (*domain.PasswordCredential, error) {
	var out domain.PasswordCredential
	err := cs.db.WithContext(ctx).
		First(&out, "user_id = ? AND provider = ?", userID, domain.ProviderCredentials).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (cs *CredentialStore) CountForUser(ctx context.Context, userID domain.UserID) (int64, error) {
	var n int64
	err := cs.db.WithContext(ctx).Model(&domain.PasswordCredential{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}
