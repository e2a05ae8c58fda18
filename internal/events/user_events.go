package events

import "time"

type UserRegistered struct {
	UserID     string    `json:"userId"`
	Email      string    `json:"email"`
	InviteCode string    `json:"inviteCode"`
	At         time.Time `json:"at"`
}

func (UserRegistered) Name() string { return "user.registered" }

type UserEmailVerified struct {
	UserID string    `json:"userId"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

func (UserEmailVerified) Name() string { return "user.email_verified" }

type UserPasswordReset struct {
	UserID          string    `json:"userId"`
	SessionsRevoked int64     `json:"sessionsRevoked"`
	At              time.Time `json:"at"`
}

func (UserPasswordReset) Name() string { return "user.password_reset" }

type UserDeleted struct {
	UserID  string           `json:"userId"`
	Removed map[string]int64 `json:"removed"`
	At      time.Time        `json:"at"`
}

func (UserDeleted) Name() string { return "user.deleted" }
