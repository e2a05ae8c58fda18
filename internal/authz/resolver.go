package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cardauth/internal/domain"
	"cardauth/internal/jwtsigner"
	"cardauth/internal/observability/metrics"
	obsmw "cardauth/internal/observability/middleware"
)

var errSessionMismatch = errors.New("authz: session does not belong to token subject")

// SessionLookup finds a live cookie session row.
type SessionLookup interface {
	GetActive(ctx context.Context, id string, now time.Time) (*domain.Session, error)
}

// Resolver maps a request to a principal. It understands two transports,
// bearer tokens and cookie sessions, and both are verified by the same
// Signer.
type Resolver struct {
	signer   *jwtsigner.Signer
	sessions SessionLookup
	cookie   CookieConfig
	now      func() time.Time
}

func NewResolver(signer *jwtsigner.Signer, sessions SessionLookup, cookie CookieConfig) *Resolver {
	return &Resolver{
		signer:   signer,
		sessions: sessions,
		cookie:   cookie,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Resolve returns the request's principal, trying the bearer header first
// and the session cookie second. A bad bearer token is not fatal: a browser
// request may carry a stale header alongside a good cookie. Failing both is
// reported as ok=false, never as an error.
func (r *Resolver) Resolve(req *http.Request) (domain.Principal, bool) {
	ctx := req.Context()
	if tok, ok := BearerToken(FromHeaders(req.Header)); ok {
		claims, err := r.verifyBearer(ctx, tok)
		if err == nil {
			if p, ok := principalFromClaims(claims); ok {
				metrics.SessionResolutionsTotal.WithLabelValues("bearer", "success").Inc()
				return p, true
			}
		}
		metrics.SessionResolutionsTotal.WithLabelValues("bearer", "failure").Inc()
		slog.DebugContext(ctx, "bearer token rejected, trying cookie",
			"error", err,
			"request_id", obsmw.RequestIDFromContext(ctx),
		)
	}

	if value := r.cookieValue(req); value != "" {
		claims, err := r.decodeSession(ctx, value)
		if err == nil {
			if p, ok := principalFromClaims(claims); ok {
				metrics.SessionResolutionsTotal.WithLabelValues("cookie", "success").Inc()
				return p, true
			}
		}
		metrics.SessionResolutionsTotal.WithLabelValues("cookie", "failure").Inc()
		slog.DebugContext(ctx, "session cookie rejected",
			"error", err,
			"request_id", obsmw.RequestIDFromContext(ctx),
		)
	}

	metrics.SessionResolutionsTotal.WithLabelValues("none", "anonymous").Inc()
	return domain.Principal{}, false
}

// ResolveUserID is the narrower resolution used by invite endpoints. A
// bearer value carrying a session id must match a live session row; one
// without is verified as a plain signed token. Both cases go through the
// same Signer, so they cannot disagree about what a valid signature is.
func (r *Resolver) ResolveUserID(req *http.Request) (domain.UserID, bool) {
	ctx := req.Context()
	if tok, ok := BearerToken(FromHeaders(req.Header)); ok {
		if claims, err := r.verifyBearer(ctx, tok); err == nil {
			if id, err := claims.UserID(); err == nil {
				return id, true
			}
		}
	}
	if value := r.cookieValue(req); value != "" {
		if claims, err := r.decodeSession(ctx, value); err == nil {
			if id, err := claims.UserID(); err == nil {
				return id, true
			}
		}
	}
	return 0, false
}

// SessionID returns the session id carried by the request's cookie when
// the cookie signature is valid. The session row is not consulted, so an
// expired or already revoked session still yields its id.
func (r *Resolver) SessionID(req *http.Request) string {
	value := r.cookieValue(req)
	if value == "" {
		return ""
	}
	claims, err := r.signer.Verify(value)
	if err != nil {
		return ""
	}
	return claims.SessionID
}

// verifyBearer verifies a bearer value. Session tokens are only accepted
// while their session row is live, so a signed-out cookie value cannot be
// replayed in the Authorization header.
func (r *Resolver) verifyBearer(ctx context.Context, tok string) (*jwtsigner.Claims, error) {
	claims, err := r.signer.Verify(tok)
	if err != nil {
		return nil, err
	}
	if claims.SessionID != "" {
		return r.checkSession(ctx, claims)
	}
	return claims, nil
}

// decodeSession verifies a session token and requires a live session row
// owned by the token subject.
func (r *Resolver) decodeSession(ctx context.Context, value string) (*jwtsigner.Claims, error) {
	claims, err := r.signer.Verify(value)
	if err != nil {
		return nil, err
	}
	if claims.SessionID == "" {
		return nil, jwtsigner.ErrMalformedToken
	}
	return r.checkSession(ctx, claims)
}

func (r *Resolver) checkSession(ctx context.Context, claims *jwtsigner.Claims) (*jwtsigner.Claims, error) {
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	if r.sessions == nil {
		return nil, errSessionMismatch
	}
	sess, err := r.sessions.GetActive(ctx, claims.SessionID, r.now())
	if err != nil {
		return nil, err
	}
	if sess.UserID != userID {
		return nil, errSessionMismatch
	}
	return claims, nil
}

func principalFromClaims(c *jwtsigner.Claims) (domain.Principal, bool) {
	id, err := c.UserID()
	if err != nil {
		return domain.Principal{}, false
	}
	return domain.Principal{ID: id, Email: c.Email, Name: c.Name}, true
}
