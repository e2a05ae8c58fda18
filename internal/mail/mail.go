// Package mail implements the transactional email capability: a logging
// sender for development, the Resend HTTP API and AWS SES v2.
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cardauth/internal/service"
)

// ErrSend wraps every provider failure.
var ErrSend = errors.New("mail: send failed")

const (
	ProviderLog    = "log"
	ProviderResend = "resend"
	ProviderSES    = "ses"
)

type Config struct {
	Provider string
	From     string
	ReplyTo  string
	Timeout  time.Duration

	ResendAPIKey  string
	ResendBaseURL string

	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	SESEndpoint        string
}

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (service.EmailService, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderLog:
		return NewLogSender(nil, cfg.From), nil
	case ProviderResend:
		if cfg.ResendAPIKey == "" {
			return nil, errors.New("mail: RESEND_API_KEY is required for the resend provider")
		}
		return NewResendSender(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.From, cfg.ReplyTo, cfg.Timeout), nil
	case ProviderSES:
		return NewSESSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("mail: unknown provider %q", cfg.Provider)
	}
}

func recipientDomain(addr string) string {
	if i := strings.LastIndexByte(addr, '@'); i >= 0 {
		return addr[i+1:]
	}
	return ""
}
