package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cardauth/internal/authz"
	"cardauth/internal/config"
	"cardauth/internal/events"
	"cardauth/internal/jwtsigner"
	"cardauth/internal/mail"
	"cardauth/internal/observability/logging"
	"cardauth/internal/observability/metrics"
	impl "cardauth/internal/service/impl"
	"cardauth/internal/store"
	httpx "cardauth/internal/transport/http"
	"cardauth/pkg/db"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.Config{
		ServiceName: "auth",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)
	metrics.MustRegister("auth")

	logger.Info("starting service")

	// 1) DB
	gdb, err := db.OpenGorm(db.Config{DSN: cfg.DatabaseURL, MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 30 * time.Minute})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("sql pool", "error", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, sqlDB); err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
	}

	st := store.New(gdb)

	// 2) Services
	signer, err := jwtsigner.New(cfg.AuthSecret)
	if err != nil {
		logger.Error("token signer", "error", err)
		os.Exit(1)
	}

	mailer, err := mail.New(ctx, mail.Config{
		Provider:           cfg.EmailProvider,
		From:               cfg.EmailFrom,
		ReplyTo:            cfg.EmailReplyTo,
		Timeout:            cfg.EmailTimeout,
		ResendAPIKey:       cfg.ResendAPIKey,
		ResendBaseURL:      cfg.ResendBaseURL,
		AWSRegion:          cfg.AWSRegion,
		AWSAccessKeyID:     cfg.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.AWSSecretAccessKey,
		SESEndpoint:        cfg.SESEndpoint,
	})
	if err != nil {
		logger.Error("email provider", "error", err)
		os.Exit(1)
	}

	pub := events.NewLogPublisher(logger)
	pw := impl.NewPasswordServiceArgon2id()
	ts := impl.NewTokenServiceHS256(impl.TokenConfig{
		BearerTTL:  cfg.BearerTTL,
		SessionTTL: cfg.SessionTTL,
	}, signer, st, pub)
	invites := impl.NewInviteServiceImpl(st, pub)
	as := impl.NewAuthServiceImpl(impl.AuthConfig{
		BaseURL:           cfg.BaseURL,
		MinPasswordLength: cfg.MinPasswordLength,
		VerifyTokenTTL:    cfg.VerifyTokenTTL,
		ResetTokenTTL:     cfg.ResetTokenTTL,
		EmailTimeout:      cfg.EmailTimeout,
	}, st, pw, ts, invites, mailer, pub)

	resolver := authz.NewResolver(signer, st.Sessions(), authz.CookieConfig{Secure: cfg.SecureCookies})

	// 3) HTTP router
	handler := httpx.NewRouter(as, invites, resolver, httpx.Options{
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustProxy:         cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("auth service listening", "addr", srv.Addr, "base_url", cfg.BaseURL, "email_provider", cfg.EmailProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("auth service stopped")
}
