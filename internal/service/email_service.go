package service

import (
	"context"

	"cardauth/internal/dto"
)

type EmailService interface {
	// Send delivers msg and returns the provider's message id.
	Send(ctx context.Context, msg dto.EmailMessage) (string, error)
}
