package domain

import "time"

// TokenKind distinguishes the flavours of one-time tokens.
type TokenKind string

const (
	// TokenEmailVerification is owned by a lowercase email and deleted on consumption.
	TokenEmailVerification TokenKind = "email_verification"
	// TokenPasswordReset is owned by a decimal user id and flagged used on consumption.
	TokenPasswordReset TokenKind = "password_reset"
)

type OneTimeToken struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" db:"id"`
	Kind      TokenKind  `gorm:"not null;index:ix_ott_kind_owner" db:"kind"`
	Token     string     `gorm:"not null;uniqueIndex:ux_ott_token" db:"token"`
	Owner     string     `gorm:"not null;index:ix_ott_kind_owner" db:"owner"`
	ExpiresAt time.Time  `gorm:"not null" db:"expires_at"`
	Used      bool       `gorm:"not null;default:false" db:"used"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `gorm:"not null" db:"created_at"`
}

func (OneTimeToken) TableName() string { return "one_time_tokens" }

// Valid reports whether the token can still be consumed at now.
func (t *OneTimeToken) Valid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
