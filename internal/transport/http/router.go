package http

import (
	"net/http"
	"time"

	"cardauth/internal/authz"
	"cardauth/internal/service"
	obsmw "cardauth/internal/observability/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	CORSOrigins        []string
	RateLimitPerMinute int
	TrustProxy         bool
	RequestTimeout     time.Duration
}

type Handler struct {
	auth     service.AuthService
	invites  service.InviteService
	resolver *authz.Resolver
	opts     Options
}

func NewRouter(auth service.AuthService, invites service.InviteService, resolver *authz.Resolver, opts Options) http.Handler {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	h := &Handler{auth: auth, invites: invites, resolver: resolver, opts: opts}

	r := chi.NewRouter()
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(opts.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsIfSet(opts.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "X-Authorization", "Content-Type", obsmw.HeaderRequestID},
		ExposedHeaders:   []string{obsmw.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obsmw.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	limit := h.rateLimit()

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limit)
			r.Post("/signup", h.signup)
			r.Post("/signin", h.signin)
			r.Post("/forgot-password", h.forgotPassword)
			r.Post("/reset-password", h.resetPassword)
			r.Post("/verify-email", h.verifyEmail)
			r.Post("/verify-email/request", h.requestVerification)
		})
		r.Post("/signout", h.signout)

		r.Group(func(r chi.Router) {
			r.Use(resolver.Required)
			r.Get("/me", h.me)
			r.Patch("/milestones", h.updateMilestones)
			r.Delete("/account", h.deleteAccount)
		})
	})

	r.Route("/invite-codes", func(r chi.Router) {
		r.With(limit).Post("/validate", h.validateInvite)

		r.Group(func(r chi.Router) {
			r.Use(resolver.RequiredUserID)
			r.Get("/", h.listInvites)
			r.Post("/", h.createInvite)
		})
	})

	return r
}

// rateLimit keys on the same client address that is stored with sessions,
// so the limiter agrees with TRUST_PROXY.
func (h *Handler) rateLimit() func(http.Handler) http.Handler {
	perMinute := h.opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	trust := h.opts.TrustProxy
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return clientIP(r, trust), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "too many requests"})
		}),
	)
}

func originsIfSet(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}
