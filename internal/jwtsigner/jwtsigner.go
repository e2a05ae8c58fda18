package jwtsigner

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingSecret is a configuration error: the process must not start
	// signing or verifying with an empty secret.
	ErrMissingSecret  = errors.New("jwtsigner: signing secret is not configured")
	ErrMalformedToken = errors.New("jwtsigner: malformed token")
	ErrBadSignature   = errors.New("jwtsigner: bad signature")
	ErrExpired        = errors.New("jwtsigner: token expired")
)

// Claims is the payload of every token this package issues. Subject is the
// decimal user id and is required on both issue and verify.
type Claims struct {
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject as an integral user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrMalformedToken
	}
	return id, nil
}

// Signer signs and verifies compact HS256 tokens:
// base64url(header).base64url(payload).base64url(HMAC-SHA256).
type Signer struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Signer)

// WithClock overrides the time source used for iat/exp.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) { s.now = now }
}

func New(secret string, opts ...Option) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrMissingSecret
	}
	s := &Signer{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// Issue signs claims with iat set to now and exp set to now+ttl.
func (s *Signer) Issue(claims Claims, ttl time.Duration) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrMissingSecret
	}
	if claims.Subject == "" {
		return "", errors.New("jwtsigner: subject is required")
	}
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks structure, signature (constant-time) and expiry, in that
// order of precedence, and returns the decoded claims. The signature is
// checked over the raw header.payload before either segment is decoded.
func (s *Signer) Verify(token string) (*Claims, error) {
	if s == nil || len(s.secret) == 0 {
		return nil, ErrMissingSecret
	}
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformedToken
	}
	dot := strings.LastIndexByte(token, '.')
	sig, err := base64.RawURLEncoding.DecodeString(token[dot+1:])
	if err != nil {
		return nil, ErrBadSignature
	}
	if err := jwt.SigningMethodHS256.Verify(token[:dot], sig, s.secret); err != nil {
		return nil, ErrBadSignature
	}

	claims := &Claims{}
	_, err = s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	default:
		return nil, ErrMalformedToken
	}

	if claims.Subject == "" {
		return nil, ErrMalformedToken
	}
	return claims, nil
}
