package mail

import (
	"context"
	"log/slog"

	"cardauth/internal/dto"
	"cardauth/internal/observability/metrics"
	"cardauth/internal/observability/middleware"

	"github.com/google/uuid"
)

// LogSender records messages in the log instead of delivering them. Bodies
// are not logged because they carry one-time tokens.
type LogSender struct {
	logger *slog.Logger
	from   string
}

func NewLogSender(logger *slog.Logger, from string) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger, from: from}
}

func (s *LogSender) Send(ctx context.Context, msg dto.EmailMessage) (string, error) {
	id := uuid.NewString()
	from := msg.From
	if from == "" {
		from = s.from
	}
	s.logger.InfoContext(ctx, "email suppressed (log provider)",
		"message_id", id,
		"from", from,
		"to_domain", recipientDomain(msg.To),
		"subject", msg.Subject,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	metrics.EmailsSentTotal.WithLabelValues(ProviderLog, "success").Inc()
	return id, nil
}
