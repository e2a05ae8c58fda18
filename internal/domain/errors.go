package domain

import "errors"

var (
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrDuplicateEmail          = errors.New("an account with this email already exists")
	ErrWeakPassword            = errors.New("password is too short")
	ErrMissingInvite           = errors.New("an invite code is required")
	ErrInvalidOrExpiredCode    = errors.New("invalid or expired invite code")
	ErrQuotaExceeded           = errors.New("invite code limit reached")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique invite code")
	ErrInvalidOrExpiredToken   = errors.New("invalid or expired token")
	ErrNotFound                = errors.New("not found")
	ErrEmailDelivery           = errors.New("failed to send email")
)
