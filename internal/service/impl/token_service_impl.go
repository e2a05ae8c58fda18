package impl

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/events"
	"cardauth/internal/jwtsigner"
	"cardauth/internal/netutil"
	"cardauth/internal/observability/metrics"
	"cardauth/internal/observability/middleware"
	"cardauth/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenConfig struct {
	BearerTTL  time.Duration // e.g. 24h
	SessionTTL time.Duration // e.g. 30 * 24h
}

// TokenServiceImpl mints the two credentials a client can hold: a stateless
// bearer token and a cookie session backed by a sessions row. Both are
// signed by the same Signer.
type TokenServiceImpl struct {
	cfg    TokenConfig
	signer *jwtsigner.Signer
	store  *store.Store
	events events.Publisher
}

func NewTokenServiceHS256(cfg TokenConfig, signer *jwtsigner.Signer, st *store.Store, pub events.Publisher) *TokenServiceImpl {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TokenServiceImpl{cfg: cfg, signer: signer, store: st, events: pub}
}

func (t *TokenServiceImpl) IssueBearer(user *domain.User) (tok string, err error) {
	defer func() { metrics.TokensIssuedTotal.WithLabelValues("bearer", metrics.Result(err)).Inc() }()
	return t.signer.Issue(claimsFor(user, ""), t.cfg.BearerTTL)
}

// StartSession creates a Session row and returns the signed cookie value
// that refers to it.
func (t *TokenServiceImpl) StartSession(ctx context.Context, user *domain.User, meta dto.ClientMeta) (out *dto.SessionCookie, err error) {
	defer func() { metrics.TokensIssuedTotal.WithLabelValues("session", metrics.Result(err)).Inc() }()
	if t.store == nil {
		return nil, ErrNilStore
	}
	now := time.Now().UTC()

	sess := &domain.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(t.cfg.SessionTTL),
		CreatedAt: now,
		IP:        normalizeIP(meta.IP),
		UserAgent: netutil.TruncateUserAgent(meta.UserAgent),
	}
	if err := t.store.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}

	value, err := t.signer.Issue(claimsFor(user, sess.ID), t.cfg.SessionTTL)
	if err != nil {
		_ = t.store.Sessions().Delete(ctx, sess.ID)
		return nil, err
	}

	slog.InfoContext(ctx, "session started",
		"session_id", sess.ID,
		"user_id", user.ID,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
	return &dto.SessionCookie{Value: value, SessionID: sess.ID, ExpiresAt: sess.ExpiresAt}, nil
}

// EndSession deletes the session row. Ending an unknown session is not an
// error; sign-out is idempotent.
func (t *TokenServiceImpl) EndSession(ctx context.Context, sessionID string) error {
	if t.store == nil {
		return ErrNilStore
	}
	if sessionID == "" {
		return nil
	}
	sess, err := t.store.Sessions().GetActive(ctx, sessionID, time.Now().UTC())
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		return err
	}
	if err := t.store.Sessions().Delete(ctx, sessionID); err != nil {
		return err
	}
	if sess != nil {
		t.events.Publish(ctx, events.SessionRevoked{
			SessionID: sessionID,
			UserID:    strconv.FormatInt(sess.UserID, 10),
			Reason:    "signout",
			At:        time.Now().UTC(),
		})
	}
	return nil
}

func claimsFor(user *domain.User, sessionID string) jwtsigner.Claims {
	return jwtsigner.Claims{
		Email:     user.Email,
		Name:      user.Name,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(user.ID, 10),
		},
	}
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}
