package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/events"
	"cardauth/internal/mail"
	"cardauth/internal/observability/metrics"
	"cardauth/internal/observability/middleware"
	"cardauth/internal/service"
	"cardauth/internal/store"
)

type AuthConfig struct {
	BaseURL           string
	MinPasswordLength int
	VerifyTokenTTL    time.Duration
	ResetTokenTTL     time.Duration
	EmailTimeout      time.Duration
}

func (c *AuthConfig) applyDefaults() {
	if c.MinPasswordLength <= 0 {
		c.MinPasswordLength = 6
	}
	if c.VerifyTokenTTL <= 0 {
		c.VerifyTokenTTL = 7 * 24 * time.Hour
	}
	if c.ResetTokenTTL <= 0 {
		c.ResetTokenTTL = time.Hour
	}
	if c.EmailTimeout <= 0 {
		c.EmailTimeout = 5 * time.Second
	}
}

// AuthServiceImpl is the provisioning workflow: invite-gated signup, sign-in,
// email verification, password reset and account deletion.
type AuthServiceImpl struct {
	cfg             AuthConfig
	Store           *store.Store
	PasswordService service.PasswordService
	TService        service.TokenService
	Invites         *InviteServiceImpl
	Mail            service.EmailService
	Events          events.Publisher
}

func NewAuthServiceImpl(
	cfg AuthConfig,
	st *store.Store,
	passwordService service.PasswordService,
	tokenService service.TokenService,
	invites *InviteServiceImpl,
	mailer service.EmailService,
	pub events.Publisher,
) *AuthServiceImpl {
	cfg.applyDefaults()
	if pub == nil {
		pub = events.Nop{}
	}
	return &AuthServiceImpl{
		cfg:             cfg,
		Store:           st,
		PasswordService: passwordService,
		TService:        tokenService,
		Invites:         invites,
		Mail:            mailer,
		Events:          pub,
	}
}

func (a *AuthServiceImpl) Signup(ctx context.Context, r dto.SignupRequest, meta dto.ClientMeta) (out *dto.AuthResult, err error) {
	defer func() { metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	// Checks run in a fixed order so the caller sees the first problem:
	// invite presence, invite validity, password strength, email uniqueness.
	code := NormalizeInviteCode(r.InviteCode)
	if code == "" {
		return nil, domain.ErrMissingInvite
	}
	if err := a.Invites.Validate(ctx, code); err != nil {
		return nil, err
	}
	if !a.strongEnough(r.Password) {
		return nil, domain.ErrWeakPassword
	}
	email := domain.NormalizeEmail(r.Email)
	if _, err := a.Store.Users().GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrRecordNotFound) {
		return nil, err
	}

	// Hash before opening the transaction; argon2 is the slow part.
	hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(r.Password)
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		u := &domain.User{Email: email, Name: strings.TrimSpace(r.Name)}
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrDuplicateEmail
			}
			return err
		}
		cred := &domain.PasswordCredential{
			UserID:      u.ID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  string(paramsJSON),
			PasswordVer: ver,
		}
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		if err := a.Invites.consume(ctx, tx, code, u.ID); err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.Invites.publishConsumed(ctx, code, user.ID)
	a.Events.Publish(ctx, events.UserRegistered{
		UserID:     strconv.FormatInt(user.ID, 10),
		Email:      user.Email,
		InviteCode: events.MaskCode(code),
		At:         time.Now().UTC(),
	})

	// The account is committed; a failed verification email is only logged.
	if err := a.sendVerification(ctx, user); err != nil {
		slog.WarnContext(ctx, "verification email not sent",
			"user_id", user.ID,
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
	}

	return a.authenticate(ctx, user, meta)
}

func (a *AuthServiceImpl) SignIn(ctx context.Context, r dto.SigninRequest, meta dto.ClientMeta) (out *dto.AuthResult, err error) {
	defer func() { metrics.AuthLoginsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	user, err := a.Store.Users().GetByEmail(ctx, r.Email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials // don't leak which field failed
		}
		return nil, err
	}
	cred, err := a.Store.Credentials().GetPasswordByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	rehashNeeded, ok := a.PasswordService.Verify(r.Password, cred)
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	if rehashNeeded {
		a.rehash(ctx, cred, r.Password)
	}

	return a.authenticate(ctx, user, meta)
}

// rehash upgrades an outdated credential in place. Failure leaves the old
// credential untouched and does not block sign-in.
func (a *AuthServiceImpl) rehash(ctx context.Context, cred *domain.PasswordCredential, password string) {
	hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(password)
	if err == nil {
		err = a.Store.Credentials().UpsertPassword(ctx, &domain.PasswordCredential{
			UserID:      cred.UserID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  string(paramsJSON),
			PasswordVer: ver,
		})
	}
	if err != nil {
		slog.WarnContext(ctx, "password rehash failed", "user_id", cred.UserID, "error", err)
		return
	}
	slog.InfoContext(ctx, "password rehashed", "user_id", cred.UserID, "from_algo", cred.Algo, "to_algo", algo)
}

// authenticate issues the bearer token and, best effort, a cookie session.
func (a *AuthServiceImpl) authenticate(ctx context.Context, user *domain.User, meta dto.ClientMeta) (*dto.AuthResult, error) {
	bearer, err := a.TService.IssueBearer(user)
	if err != nil {
		return nil, err
	}
	out := &dto.AuthResult{
		AuthResponse: dto.AuthResponse{Token: bearer, User: dto.NewUserResponse(user)},
	}
	sess, err := a.TService.StartSession(ctx, user, meta)
	if err != nil {
		slog.WarnContext(ctx, "cookie session not started", "user_id", user.ID, "error", err)
		return out, nil
	}
	out.Session = sess
	return out, nil
}

func (a *AuthServiceImpl) SignOut(ctx context.Context, sessionID string) error {
	return a.TService.EndSession(ctx, sessionID)
}

// RequestPasswordReset answers the same way whether or not the email is
// registered. The one exception is a delivery failure for a real account:
// the token is withdrawn and ErrEmailDelivery is returned.
func (a *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := a.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			slog.DebugContext(ctx, "password reset for unknown email")
			return nil
		}
		return err
	}

	tok, err := a.Store.Tokens().Issue(ctx, domain.TokenPasswordReset, strconv.FormatInt(user.ID, 10), a.cfg.ResetTokenTTL)
	if err != nil {
		return err
	}
	msg, err := mail.PasswordResetEmail(a.cfg.BaseURL, user.Email, user.Name, tok.Token)
	if err == nil {
		err = a.send(ctx, msg)
	}
	if err != nil {
		if delErr := a.Store.Tokens().Delete(ctx, tok.Token); delErr != nil {
			slog.ErrorContext(ctx, "could not withdraw undelivered reset token", "user_id", user.ID, "error", delErr)
		}
		slog.ErrorContext(ctx, "password reset email failed", "user_id", user.ID, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrEmailDelivery, err)
	}
	return nil
}

// ResetPassword consumes the token and stores the new password in one
// transaction. A weak password rolls the consumption back so the link can
// be used again with a better password.
func (a *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	weak := !a.strongEnough(newPassword)
	var (
		hash, salt, paramsJSON []byte
		algo                   string
		ver                    int
		err                    error
	)
	if !weak {
		hash, salt, paramsJSON, algo, ver, err = a.PasswordService.Hash(newPassword)
		if err != nil {
			return err
		}
	}

	var userID domain.UserID
	var revoked int64
	err = a.Store.WithTx(ctx, func(tx *store.Store) error {
		owner, err := tx.Tokens().Consume(ctx, domain.TokenPasswordReset, strings.TrimSpace(token), time.Now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredToken
			}
			return err
		}
		if weak {
			return domain.ErrWeakPassword
		}
		id, err := strconv.ParseInt(owner, 10, 64)
		if err != nil {
			return domain.ErrInvalidOrExpiredToken
		}
		if _, err := tx.Users().GetByID(ctx, id); err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredToken
			}
			return err
		}
		cred := &domain.PasswordCredential{
			UserID:      id,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  string(paramsJSON),
			PasswordVer: ver,
		}
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		n, err := tx.Sessions().DeleteAllForUser(ctx, id)
		if err != nil {
			return err
		}
		userID, revoked = id, n
		return nil
	})
	if err != nil {
		return err
	}

	a.Events.Publish(ctx, events.UserPasswordReset{
		UserID:          strconv.FormatInt(userID, 10),
		SessionsRevoked: revoked,
		At:              time.Now().UTC(),
	})
	return nil
}

// RequestEmailVerification sends a fresh verification link to an unverified
// account. Unknown and already verified addresses get the same silent
// success, and so does a delivery failure.
func (a *AuthServiceImpl) RequestEmailVerification(ctx context.Context, email string) error {
	user, err := a.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerifiedAt != nil {
		return nil
	}
	if err := a.sendVerification(ctx, user); err != nil {
		slog.WarnContext(ctx, "verification email not sent", "user_id", user.ID, "error", err)
	}
	return nil
}

// sendVerification issues a verification token and emails it. The token
// is kept when delivery fails; a later request reissues it.
func (a *AuthServiceImpl) sendVerification(ctx context.Context, user *domain.User) error {
	tok, err := a.Store.Tokens().Issue(ctx, domain.TokenEmailVerification, user.Email, a.cfg.VerifyTokenTTL)
	if err != nil {
		return err
	}
	msg, err := mail.VerificationEmail(a.cfg.BaseURL, user.Email, user.Name, tok.Token)
	if err == nil {
		err = a.send(ctx, msg)
	}
	return err
}

func (a *AuthServiceImpl) send(ctx context.Context, msg dto.EmailMessage) error {
	if a.Mail == nil {
		return mail.ErrSend
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.EmailTimeout)
	defer cancel()
	_, err := a.Mail.Send(ctx, msg)
	return err
}

func (a *AuthServiceImpl) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	var user *domain.User
	now := time.Now().UTC()
	err := a.Store.WithTx(ctx, func(tx *store.Store) error {
		owner, err := tx.Tokens().Consume(ctx, domain.TokenEmailVerification, strings.TrimSpace(token), now)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredToken
			}
			return err
		}
		if _, err := tx.Tokens().DeleteForOwner(ctx, domain.TokenEmailVerification, owner); err != nil {
			return err
		}
		u, err := tx.Users().GetByEmail(ctx, owner)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrInvalidOrExpiredToken
			}
			return err
		}
		if err := tx.Users().SetEmailVerified(ctx, u.ID, now); err != nil {
			return err
		}
		user, err = tx.Users().GetByID(ctx, u.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.Events.Publish(ctx, events.UserEmailVerified{
		UserID: strconv.FormatInt(user.ID, 10),
		Email:  user.Email,
		At:     now,
	})
	return user, nil
}

// DeleteAccount removes the user and everything they own. The caller has
// already checked that the resolved principal is userID.
func (a *AuthServiceImpl) DeleteAccount(ctx context.Context, userID domain.UserID) error {
	removed, err := a.Store.DeleteUserData(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	slog.InfoContext(ctx, "account deleted",
		"user_id", userID,
		"removed", removed,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	a.Events.Publish(ctx, events.UserDeleted{
		UserID:  strconv.FormatInt(userID, 10),
		Removed: removed,
		At:      time.Now().UTC(),
	})
	return nil
}

// Me loads the current user. A token that outlived its user still verifies
// cryptographically; this lookup is where it gets rejected.
func (a *AuthServiceImpl) Me(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	user, err := a.Store.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateMilestones merges m into the stored milestone map.
func (a *AuthServiceImpl) UpdateMilestones(ctx context.Context, userID domain.UserID, m domain.Milestones) (*domain.User, error) {
	var user *domain.User
	err := a.Store.WithTx(ctx, func(tx *store.Store) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		merged := domain.Milestones{}
		for k, v := range u.Milestones {
			merged[k] = v
		}
		for k, v := range m {
			merged[strings.TrimSpace(k)] = v
		}
		if err := tx.Users().SetMilestones(ctx, u.ID, merged); err != nil {
			return err
		}
		u.Milestones = merged
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *AuthServiceImpl) strongEnough(password string) bool {
	return utf8.RuneCountInString(password) >= a.cfg.MinPasswordLength
}
