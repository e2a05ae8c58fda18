package domain

import (
	"strings"
	"time"
)

type User struct {
	ID               UserID     `gorm:"primaryKey;autoIncrement" db:"id" json:"id"`
	Email            string     `gorm:"not null;uniqueIndex:ux_users_email" db:"email" json:"email"`
	Name             string     `gorm:"not null;default:''" db:"name" json:"name"`
	EmailVerifiedAt  *time.Time `db:"email_verified_at" json:"emailVerified"`
	UnlimitedInvites bool       `gorm:"not null;default:false" db:"unlimited_invites" json:"unlimitedInvites"`
	Milestones       Milestones `gorm:"serializer:json" db:"milestones" json:"milestones"`
	CreatedAt        time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Name: u.Name}
}

// Milestones records named onboarding milestones a user has reached.
type Milestones map[string]bool

// NormalizeEmail is applied before every write and lookup of an email address,
// so two addresses that differ only in case are the same account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
