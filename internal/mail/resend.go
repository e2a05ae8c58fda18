package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cardauth/internal/dto"
	"cardauth/internal/observability/metrics"
	"cardauth/internal/observability/middleware"
)

const DefaultResendBaseURL = "https://api.resend.com"

// ResendSender posts messages to the Resend HTTP API.
type ResendSender struct {
	baseURL string
	apiKey  string
	from    string
	replyTo string
	hc      *http.Client
}

func NewResendSender(baseURL, apiKey, from, replyTo string, timeout time.Duration) *ResendSender {
	if baseURL == "" {
		baseURL = DefaultResendBaseURL
	}
	return &ResendSender{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		replyTo: replyTo,
		hc: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

func (s *ResendSender) Send(ctx context.Context, msg dto.EmailMessage) (id string, err error) {
	start := time.Now()
	defer func() {
		metrics.EmailsSentTotal.WithLabelValues(ProviderResend, metrics.Result(err)).Inc()
		slog.InfoContext(ctx, "resend send",
			"to_domain", recipientDomain(msg.To),
			"duration", time.Since(start),
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}()

	body := resendRequest{
		From:    firstNonEmpty(msg.From, s.from),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: firstNonEmpty(msg.ReplyTo, s.replyTo),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: encode: %v", ErrSend, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSend, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if rid := middleware.RequestIDFromContext(ctx); rid != "" {
		req.Header.Set("X-Request-Id", rid)
	}

	resp, err := s.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out resendResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: resend status %d: %s", ErrSend, resp.StatusCode, out.Message)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: resend returned no message id", ErrSend)
	}
	return out.ID, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
