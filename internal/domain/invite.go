package domain

import "time"

const (
	InviteCodeLength = 8
	// InviteCodeAlphabet holds uppercase letters and digits.
	InviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// InviteCodeTTL is how long a freshly created code stays redeemable.
	InviteCodeTTL = 30 * 24 * time.Hour
	// DefaultInviteLimit applies when the invite_code_limit setting is unset.
	DefaultInviteLimit = 25
	// SettingInviteLimit names the system setting holding the per-user quota.
	SettingInviteLimit = "invite_code_limit"
)

type InviteCode struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" db:"id" json:"-"`
	Code            string     `gorm:"size:8;not null;uniqueIndex:ux_invite_codes_code" db:"code" json:"code"`
	CreatedByUserID UserID     `gorm:"not null;index" db:"created_by_user_id" json:"createdByUserId"`
	IsUsed          bool       `gorm:"not null;default:false" db:"is_used" json:"isUsed"`
	UsedByUserID    *UserID    `db:"used_by_user_id" json:"usedByUserId"`
	UsedAt          *time.Time `db:"used_at" json:"usedAt"`
	ExpiresAt       *time.Time `db:"expires_at" json:"expiresAt"`
	CreatedAt       time.Time  `gorm:"not null" db:"created_at" json:"createdAt"`
}

func (InviteCode) TableName() string { return "invite_codes" }

// Redeemable reports whether the code is unused and unexpired at now. A nil
// expiry never expires.
func (c *InviteCode) Redeemable(now time.Time) bool {
	if c.IsUsed {
		return false
	}
	return c.ExpiresAt == nil || now.Before(*c.ExpiresAt)
}

type SystemSetting struct {
	Key       string    `gorm:"column:name;primaryKey" db:"name"`
	Value     string    `gorm:"not null" db:"value"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at"`
}

func (SystemSetting) TableName() string { return "system_settings" }
