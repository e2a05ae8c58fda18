package impl

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/events"
	"cardauth/internal/jwtsigner"
	"cardauth/internal/store"
	"cardauth/internal/testutil/dbtest"
)

// testArgon2Params keeps hashing cheap in tests.
var testArgon2Params = Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type fakeMailer struct {
	mu   sync.Mutex
	sent []dto.EmailMessage
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg dto.EmailMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-" + strconv.Itoa(len(f.sent)), nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMailer) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// lastToken extracts the token query parameter from the newest message.
func (f *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("no email was sent")
	}
	text := f.sent[len(f.sent)-1].Text
	i := strings.Index(text, "token=")
	if i < 0 {
		t.Fatalf("no token link in %q", text)
	}
	rest := text[i+len("token="):]
	if j := strings.IndexAny(rest, "\n \""); j >= 0 {
		rest = rest[:j]
	}
	tok, err := url.QueryUnescape(rest)
	if err != nil {
		t.Fatalf("unescape token: %v", err)
	}
	return tok
}

type fixture struct {
	st      *store.Store
	signer  *jwtsigner.Signer
	auth    *AuthServiceImpl
	invites *InviteServiceImpl
	tokens  *TokenServiceImpl
	mail    *fakeMailer
	events  *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New(dbtest.Open(t))
	signer, err := jwtsigner.New("test-secret")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	rec := &events.Recorder{}
	mailer := &fakeMailer{}
	invites := NewInviteServiceImpl(st, rec)
	tokens := NewTokenServiceHS256(TokenConfig{BearerTTL: time.Hour, SessionTTL: 24 * time.Hour}, signer, st, rec)
	auth := NewAuthServiceImpl(
		AuthConfig{BaseURL: "https://cards.example", MinPasswordLength: 6},
		st,
		NewPasswordServiceWithParams(testArgon2Params),
		tokens,
		invites,
		mailer,
		rec,
	)
	return &fixture{st: st, signer: signer, auth: auth, invites: invites, tokens: tokens, mail: mailer, events: rec}
}

func (f *fixture) seedUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: "Seed"}
	if err := f.st.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func (f *fixture) issueCode(t *testing.T, issuer domain.UserID) string {
	t.Helper()
	out, err := f.invites.Create(context.Background(), issuer)
	if err != nil {
		t.Fatalf("create invite: %v", err)
	}
	return out.InviteCode.Code
}

func (f *fixture) signup(t *testing.T, email, password, code string) *dto.AuthResult {
	t.Helper()
	res, err := f.auth.Signup(context.Background(), dto.SignupRequest{
		Name:       "New User",
		Email:      email,
		Password:   password,
		InviteCode: code,
	}, dto.ClientMeta{IP: "192.0.2.1:5555", UserAgent: "test"})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return res
}

func (f *fixture) countTokens(t *testing.T, kind domain.TokenKind, owner string) int64 {
	t.Helper()
	var n int64
	err := f.st.DB.Model(&domain.OneTimeToken{}).Where("kind = ? AND owner = ?", kind, owner).Count(&n).Error
	if err != nil {
		t.Fatalf("count tokens: %v", err)
	}
	return n
}

func hasEvent(rec *events.Recorder, name string) bool {
	for _, n := range rec.Names() {
		if n == name {
			return true
		}
	}
	return false
}

var errSMTPDown = errors.New("smtp down")
