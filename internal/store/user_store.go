package store

import (
	"context"
	"time"

	"cardauth/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStore struct{ db *gorm.DB }

func (s *Store) Users() *UserStore { return &UserStore{db: s.DB} }

// Create inserts a user with a normalized email. A second account for the same
// address (in any letter case) fails with ErrDuplicate.
func (u *UserStore) Create(ctx context.Context, usr *domain.User) error {
	now := time.Now().UTC()
	usr.Email = domain.NormalizeEmail(usr.Email)
	if usr.Milestones == nil {
		usr.Milestones = domain.Milestones{}
	}
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = now
	}
	usr.UpdatedAt = now
	return translate(u.db.WithContext(ctx).Create(usr).Error)
}

func (u *UserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// GetByIDForUpdate loads a user and row-locks it until the surrounding
// transaction ends. Postgres only; sqlite serializes writers anyway.
func (u *UserStore) GetByIDForUpdate(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var user domain.User
	err := u.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", domain.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// SetEmailVerified stamps the verification time once; later calls keep the
// first timestamp.
func (u *UserStore) SetEmailVerified(ctx context.Context, userID domain.UserID, at time.Time) error {
	return u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND email_verified_at IS NULL", userID).
		Updates(map[string]any{"email_verified_at": at, "updated_at": at}).Error
}

func (u *UserStore) SetUnlimitedInvites(ctx context.Context, userID domain.UserID, unlimited bool) error {
	tx := u.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"unlimited_invites": unlimited, "updated_at": time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetMilestones replaces the stored milestone map.
func (u *UserStore) SetMilestones(ctx context.Context, userID domain.UserID, m domain.Milestones) error {
	tx := u.db.WithContext(ctx).Model(&domain.User{ID: userID}).
		Select("milestones", "updated_at").
		Updates(&domain.User{Milestones: m, UpdatedAt: time.Now().UTC()})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
