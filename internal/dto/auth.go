package dto

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

type SignupRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode"`
}

// Validate checks field presence and shape. Invite and password strength
// rules belong to the provisioning workflow so it can report them precisely.
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.EmailFormat),
		validation.Field(&r.Password, validation.Required),
	)
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r SigninRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// EmailRequest is the body of forgot-password and verification requests.
type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
	)
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

type MilestonesRequest map[string]bool

func (r MilestonesRequest) Validate() error {
	if len(r) == 0 {
		return validation.NewError("validation_milestones_empty", "at least one milestone is required")
	}
	for name := range r {
		if strings.TrimSpace(name) == "" || len(name) > 64 {
			return validation.NewError("validation_milestone_name", "milestone names must be 1-64 characters")
		}
	}
	return nil
}

// ClientMeta carries request attributes recorded on cookie sessions.
type ClientMeta struct {
	IP        string
	UserAgent string
}
