package service

import (
	"context"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
)

type TokenService interface {
	IssueBearer(user *domain.User) (string, error)
	StartSession(ctx context.Context, user *domain.User, meta dto.ClientMeta) (*dto.SessionCookie, error)
	EndSession(ctx context.Context, sessionID string) error
}
