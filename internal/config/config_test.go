package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cardauth/internal/jwtsigner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedKeys = []string{
	"AUTH_SECRET", "BASE_URL", "SECURE_COOKIES", "BEARER_TTL", "SESSION_TTL",
	"MIN_PASSWORD_LENGTH", "CORS_ORIGINS", "RATE_LIMIT_PER_MINUTE", "EMAIL_PROVIDER",
}

// isolate runs the test from an empty directory with the managed variables
// cleared, so neither the developer's shell nor a stray .env leaks in.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, k := range managedKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return dir
}

func TestLoadRequiresSecret(t *testing.T) {
	isolate(t)

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwtsigner.ErrMissingSecret))

	t.Setenv("AUTH_SECRET", "   ")
	_, err = Load()
	assert.ErrorIs(t, err, jwtsigner.ErrMissingSecret)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	t.Setenv("AUTH_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.BearerTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 6, cfg.MinPasswordLength)
	assert.Equal(t, 60, cfg.RateLimitPerMinute)
	assert.Equal(t, "log", cfg.EmailProvider)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadOverridesAndFallbacks(t *testing.T) {
	isolate(t)
	t.Setenv("AUTH_SECRET", "s3cret")
	t.Setenv("BASE_URL", "https://cards.example.com/")
	t.Setenv("BEARER_TTL", "2h")
	t.Setenv("SESSION_TTL", "forever")
	t.Setenv("MIN_PASSWORD_LENGTH", "0")
	t.Setenv("CORS_ORIGINS", "https://a.example.com, ,https://b.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cards.example.com", cfg.BaseURL)
	assert.True(t, cfg.SecureCookies, "https base url turns secure cookies on")
	assert.Equal(t, 2*time.Hour, cfg.BearerTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 6, cfg.MinPasswordLength)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)

	t.Setenv("SECURE_COOKIES", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.SecureCookies)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("AUTH_SECRET=from-file\nEMAIL_PROVIDER=resend\n"), 0o600))
	t.Setenv("EMAIL_PROVIDER", "ses")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.AuthSecret)
	assert.Equal(t, "ses", cfg.EmailProvider, "process environment wins over .env")
}
