package authz

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"cardauth/internal/domain"
	obsmw "cardauth/internal/observability/middleware"
)

type principalKey struct{}

func WithPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached by one of the middlewares.
func PrincipalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// Required rejects requests that resolve to no principal with 401.
func (r *Resolver) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		p, ok := r.Resolve(req)
		if !ok {
			unauthorized(w, req)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), p)))
	})
}

// Optional attaches the principal when there is one and serves anonymous
// requests unchanged.
func (r *Resolver) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if p, ok := r.Resolve(req); ok {
			req = req.WithContext(WithPrincipal(req.Context(), p))
		}
		next.ServeHTTP(w, req)
	})
}

// RequiredUserID guards routes that only need the caller's id. The attached
// principal carries the id alone.
func (r *Resolver) RequiredUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id, ok := r.ResolveUserID(req)
		if !ok {
			unauthorized(w, req)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), domain.Principal{ID: id})))
	})
}

func unauthorized(w http.ResponseWriter, req *http.Request) {
	slog.InfoContext(req.Context(), "unauthenticated request",
		"path", req.URL.Path,
		"request_id", obsmw.RequestIDFromContext(req.Context()),
		"trace_id", obsmw.TraceIDFromContext(req.Context()),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
