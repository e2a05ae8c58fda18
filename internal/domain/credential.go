package domain

import "time"

// ProviderCredentials is the provider name of password-backed credential rows.
const ProviderCredentials = "credentials"

type PasswordCredential struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" db:"id"`
	UserID      UserID    `gorm:"not null;uniqueIndex:ux_pwd_user_provider" db:"user_id"`
	Provider    string    `gorm:"not null;default:'credentials';uniqueIndex:ux_pwd_user_provider" db:"provider"`
	Algo        string    `gorm:"not null" db:"algo"`
	Hash        []byte    `gorm:"not null" db:"hash"`
	Salt        []byte    `db:"salt"`
	ParamsJSON  string    `gorm:"not null;default:'{}'" db:"params_json"`
	PasswordVer int       `gorm:"not null;default:1" db:"password_ver"`
	CreatedAt   time.Time `gorm:"not null" db:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" db:"updated_at"`
}

func (PasswordCredential) TableName() string { return "password_credentials" }

func (p *PasswordCredential) GetAlgo() string       { return p.Algo }
func (p *PasswordCredential) GetHash() []byte       { return p.Hash }
func (p *PasswordCredential) GetSalt() []byte       { return p.Salt }
func (p *PasswordCredential) GetParamsJSON() []byte { return []byte(p.ParamsJSON) }
func (p *PasswordCredential) GetPasswordVer() int   { return p.PasswordVer }
