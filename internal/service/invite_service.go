package service

import (
	"context"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
)

type InviteService interface {
	Create(ctx context.Context, issuer domain.UserID) (*dto.InviteCreated, error)
	Validate(ctx context.Context, code string) error
	Consume(ctx context.Context, code string, userID domain.UserID) error
	ListByIssuer(ctx context.Context, issuer domain.UserID) (*dto.InviteList, error)
}
