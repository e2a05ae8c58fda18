package domain

import "time"

// Session backs a browser cookie session. The row is the source of truth: a
// cookie whose session row is gone no longer authenticates.
type Session struct {
	ID        string    `gorm:"primaryKey" db:"id"`
	UserID    UserID    `gorm:"not null;index" db:"user_id"`
	ExpiresAt time.Time `gorm:"not null" db:"expires_at"`
	CreatedAt time.Time `gorm:"not null" db:"created_at"`
	IP        string    `db:"ip"`
	UserAgent string    `db:"user_agent"`
}

func (Session) TableName() string { return "sessions" }
