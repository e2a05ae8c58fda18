package service

import (
	"context"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
)

type AuthService interface {
	Signup(ctx context.Context, r dto.SignupRequest, meta dto.ClientMeta) (*dto.AuthResult, error)
	SignIn(ctx context.Context, r dto.SigninRequest, meta dto.ClientMeta) (*dto.AuthResult, error)
	SignOut(ctx context.Context, sessionID string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	RequestEmailVerification(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
	DeleteAccount(ctx context.Context, userID domain.UserID) error
	Me(ctx context.Context, userID domain.UserID) (*domain.User, error)
	UpdateMilestones(ctx context.Context, userID domain.UserID, m domain.Milestones) (*domain.User, error)
}
