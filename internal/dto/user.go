package dto

import (
	"strconv"
	"time"

	"cardauth/internal/domain"
)

type UserResponse struct {
	ID               string            `json:"id"`
	Email            string            `json:"email"`
	Name             string            `json:"name"`
	EmailVerified    *time.Time        `json:"emailVerified"`
	UnlimitedInvites bool              `json:"unlimitedInvites"`
	Milestones       domain.Milestones `json:"milestones"`
}

func NewUserResponse(u *domain.User) UserResponse {
	milestones := u.Milestones
	if milestones == nil {
		milestones = domain.Milestones{}
	}
	return UserResponse{
		ID:               formatID(u.ID),
		Email:            u.Email,
		Name:             u.Name,
		EmailVerified:    u.EmailVerifiedAt,
		UnlimitedInvites: u.UnlimitedInvites,
		Milestones:       milestones,
	}
}

// AuthResponse is returned by signup and signin.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// SessionCookie is the signed value and expiry of a browser session cookie.
type SessionCookie struct {
	Value     string
	SessionID string
	ExpiresAt time.Time
}

// AuthResult is what the provisioning workflow hands back to the transport:
// the JSON body plus the browser session, when one was started.
type AuthResult struct {
	AuthResponse
	Session *SessionCookie
}

type MessageResponse struct {
	Message string `json:"message"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func formatID(id domain.UserID) string { return strconv.FormatInt(id, 10) }
