package impl

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"cardauth/internal/domain"
	"cardauth/internal/dto"
	"cardauth/internal/store"
)

func TestSignupProvisionsAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	code := f.issueCode(t, issuer.ID)

	res := f.signup(t, "New@Example.com", "secret123", code)

	if res.User.Email != "new@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if res.User.EmailVerified != nil {
		t.Fatalf("new accounts must start unverified")
	}
	claims, err := f.signer.Verify(res.Token)
	if err != nil {
		t.Fatalf("bearer token does not verify: %v", err)
	}
	if claims.Subject != res.User.ID || claims.Email != "new@example.com" || claims.Name != "New User" {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if res.Session == nil || res.Session.Value == "" {
		t.Fatalf("expected a cookie session")
	}

	userID, _ := strconv.ParseInt(res.User.ID, 10, 64)
	cred, err := f.st.Credentials().GetPasswordByUserID(ctx, userID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred.Algo != "argon2id" || string(cred.Hash) == "secret123" {
		t.Fatalf("password must be stored hashed, got algo %q", cred.Algo)
	}

	invite, err := f.st.Invites().GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if !invite.IsUsed || invite.UsedByUserID == nil || *invite.UsedByUserID != userID {
		t.Fatalf("invite not credited to new user: %+v", invite)
	}

	if f.mail.count() != 1 {
		t.Fatalf("expected one verification email, got %d", f.mail.count())
	}
	if n := f.countTokens(t, domain.TokenEmailVerification, "new@example.com"); n != 1 {
		t.Fatalf("expected one verification token, got %d", n)
	}
	for _, name := range []string{"user.registered", "invite.consumed"} {
		if !hasEvent(f.events, name) {
			t.Fatalf("expected %s event, got %v", name, f.events.Names())
		}
	}
}

func TestSignupRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	f.seedUser(t, "taken@example.com")
	code := f.issueCode(t, issuer.ID)

	tests := []struct {
		name    string
		req     dto.SignupRequest
		wantErr error
	}{
		{name: "missing invite", req: dto.SignupRequest{Name: "A", Email: "a@example.com", Password: "secret123"}, wantErr: domain.ErrMissingInvite},
		{name: "unknown invite", req: dto.SignupRequest{Name: "A", Email: "a@example.com", Password: "secret123", InviteCode: "ZZZZZZZZ"}, wantErr: domain.ErrInvalidOrExpiredCode},
		{name: "weak password", req: dto.SignupRequest{Name: "A", Email: "a@example.com", Password: "12345", InviteCode: code}, wantErr: domain.ErrWeakPassword},
		{name: "duplicate email", req: dto.SignupRequest{Name: "A", Email: "TAKEN@example.com", Password: "secret123", InviteCode: code}, wantErr: domain.ErrDuplicateEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.auth.Signup(ctx, tc.req, dto.ClientMeta{})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	invite, err := f.st.Invites().GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invite.IsUsed {
		t.Fatalf("a rejected signup must not consume the invite")
	}
}

func TestSignupEmailIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	issuer := f.seedUser(t, "issuer@example.com")
	f.signup(t, "Foo@Example.com", "secret123", f.issueCode(t, issuer.ID))

	_, err := f.auth.Signup(context.Background(), dto.SignupRequest{
		Name: "Foo", Email: "foo@example.com", Password: "secret123", InviteCode: f.issueCode(t, issuer.ID),
	}, dto.ClientMeta{})
	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestSignupSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	issuer := f.seedUser(t, "issuer@example.com")
	code := f.issueCode(t, issuer.ID)
	f.mail.fail(errSMTPDown)

	res := f.signup(t, "quiet@example.com", "secret123", code)
	if res.Token == "" {
		t.Fatalf("signup must still return a bearer token")
	}
	if n := f.countTokens(t, domain.TokenEmailVerification, "quiet@example.com"); n != 1 {
		t.Fatalf("verification token must survive a failed send, got %d", n)
	}
	if _, err := f.st.Users().GetByEmail(context.Background(), "quiet@example.com"); err != nil {
		t.Fatalf("account must stay committed: %v", err)
	}
}

func TestConcurrentSignupsConsumeInviteOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	code := f.issueCode(t, issuer.ID)

	type outcome struct {
		res *dto.AuthResult
		err error
	}
	results := make([]outcome, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.auth.Signup(ctx, dto.SignupRequest{
				Name:       "Racer",
				Email:      "racer" + strconv.Itoa(i) + "@example.com",
				Password:   "secret123",
				InviteCode: code,
			}, dto.ClientMeta{})
			results[i] = outcome{res: res, err: err}
		}(i)
	}
	wg.Wait()

	var winner *dto.AuthResult
	for _, o := range results {
		switch {
		case o.err == nil:
			if winner != nil {
				t.Fatalf("both signups consumed the same invite")
			}
			winner = o.res
		case errors.Is(o.err, domain.ErrInvalidOrExpiredCode):
		default:
			t.Fatalf("unexpected error: %v", o.err)
		}
	}
	if winner == nil {
		t.Fatalf("expected one signup to succeed")
	}

	invite, err := f.st.Invites().GetByCode(ctx, code)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invite.UsedByUserID == nil || strconv.FormatInt(*invite.UsedByUserID, 10) != winner.User.ID {
		t.Fatalf("invite credited to %v, winner is %s", invite.UsedByUserID, winner.User.ID)
	}

	var users int64
	if err := f.st.DB.Model(&domain.User{}).Where("email LIKE ?", "racer%").Count(&users).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if users != 1 {
		t.Fatalf("the losing signup must roll back its user row, found %d racers", users)
	}
}

func TestSignInFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	f.signup(t, "member@example.com", "secret123", f.issueCode(t, issuer.ID))

	_, errUnknown := f.auth.SignIn(ctx, dto.SigninRequest{Email: "nobody@example.com", Password: "secret123"}, dto.ClientMeta{})
	_, errWrong := f.auth.SignIn(ctx, dto.SigninRequest{Email: "member@example.com", Password: "wrong-pass"}, dto.ClientMeta{})
	_, errNoCred := f.auth.SignIn(ctx, dto.SigninRequest{Email: "issuer@example.com", Password: "secret123"}, dto.ClientMeta{})
	for _, err := range []error{errUnknown, errWrong, errNoCred} {
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}

	res, err := f.auth.SignIn(ctx, dto.SigninRequest{Email: "MEMBER@example.com", Password: "secret123"}, dto.ClientMeta{})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, err := f.signer.Verify(res.Token); err != nil {
		t.Fatalf("bearer does not verify: %v", err)
	}
}

func TestSignInRehashesLegacyPlaintext(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "legacy@example.com")
	if err := f.st.Credentials().UpsertPassword(ctx, &domain.PasswordCredential{
		UserID: u.ID, Algo: AlgoPlaintext, Hash: []byte("oldsecret"), ParamsJSON: "{}",
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	if _, err := f.auth.SignIn(ctx, dto.SigninRequest{Email: u.Email, Password: "oldsecret"}, dto.ClientMeta{}); err != nil {
		t.Fatalf("legacy sign in: %v", err)
	}
	cred, err := f.st.Credentials().GetPasswordByUserID(ctx, u.ID)
	if err != nil {
		t.Fatalf("credential: %v", err)
	}
	if cred.Algo != "argon2id" {
		t.Fatalf("expected credential to be rehashed, algo is %q", cred.Algo)
	}
	if _, err := f.auth.SignIn(ctx, dto.SigninRequest{Email: u.Email, Password: "oldsecret"}, dto.ClientMeta{}); err != nil {
		t.Fatalf("sign in after rehash: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	res := f.signup(t, "reset@example.com", "secret123", f.issueCode(t, issuer.ID))
	userID, _ := strconv.ParseInt(res.User.ID, 10, 64)

	if err := f.auth.RequestPasswordReset(ctx, "Reset@Example.com"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := f.mail.lastToken(t)

	if err := f.auth.ResetPassword(ctx, token, "short"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := f.auth.ResetPassword(ctx, token, "brand-new-pass"); err != nil {
		t.Fatalf("reset with the same token after a weak attempt: %v", err)
	}
	if err := f.auth.ResetPassword(ctx, token, "another-pass"); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected reused token to fail, got %v", err)
	}

	var sessions int64
	if err := f.st.DB.Model(&domain.Session{}).Where("user_id = ?", userID).Count(&sessions).Error; err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if sessions != 0 {
		t.Fatalf("password reset should revoke sessions, %d left", sessions)
	}

	if _, err := f.auth.SignIn(ctx, dto.SigninRequest{Email: "reset@example.com", Password: "secret123"}, dto.ClientMeta{}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("old password must stop working, got %v", err)
	}
	if _, err := f.auth.SignIn(ctx, dto.SigninRequest{Email: "reset@example.com", Password: "brand-new-pass"}, dto.ClientMeta{}); err != nil {
		t.Fatalf("new password: %v", err)
	}
	if !hasEvent(f.events, "user.password_reset") {
		t.Fatalf("expected user.password_reset event")
	}
}

func TestResetPasswordCreatesMissingCredential(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "nocred@example.com")

	if err := f.auth.RequestPasswordReset(ctx, u.Email); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	if err := f.auth.ResetPassword(ctx, f.mail.lastToken(t), "fresh-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := f.st.Credentials().CountForUser(ctx, u.ID); n != 1 {
		t.Fatalf("expected a credential row to be created, got %d", n)
	}
}

func TestResetPasswordRejectsUnknownToken(t *testing.T) {
	f := newFixture(t)
	if err := f.auth.ResetPassword(context.Background(), "deadbeef", "long-enough"); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected ErrInvalidOrExpiredToken, got %v", err)
	}
}

func TestRequestsDoNotRevealAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "known@example.com")

	errKnown := f.auth.RequestPasswordReset(ctx, "known@example.com")
	errUnknown := f.auth.RequestPasswordReset(ctx, "unknown@example.com")
	if errKnown != nil || errUnknown != nil {
		t.Fatalf("expected silent success, got %v / %v", errKnown, errUnknown)
	}
	if f.mail.count() != 1 {
		t.Fatalf("only the registered address gets mail, sent %d", f.mail.count())
	}

	errKnown = f.auth.RequestEmailVerification(ctx, "known@example.com")
	errUnknown = f.auth.RequestEmailVerification(ctx, "unknown@example.com")
	if errKnown != nil || errUnknown != nil {
		t.Fatalf("expected silent success, got %v / %v", errKnown, errUnknown)
	}
}

func TestRequestPasswordResetWithdrawsUndeliveredToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "bounce@example.com")
	f.mail.fail(errSMTPDown)

	err := f.auth.RequestPasswordReset(ctx, u.Email)
	if !errors.Is(err, domain.ErrEmailDelivery) {
		t.Fatalf("expected ErrEmailDelivery, got %v", err)
	}
	if n := f.countTokens(t, domain.TokenPasswordReset, strconv.FormatInt(u.ID, 10)); n != 0 {
		t.Fatalf("expected no dangling reset token, found %d", n)
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	f.signup(t, "verify@example.com", "secret123", f.issueCode(t, issuer.ID))
	stale := f.mail.lastToken(t)

	if err := f.auth.RequestEmailVerification(ctx, "verify@example.com"); err != nil {
		t.Fatalf("request verification: %v", err)
	}
	fresh := f.mail.lastToken(t)
	if fresh == stale {
		t.Fatalf("expected a new token")
	}
	if _, err := f.auth.VerifyEmail(ctx, stale); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("superseded token must not verify, got %v", err)
	}

	user, err := f.auth.VerifyEmail(ctx, fresh)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if user.EmailVerifiedAt == nil {
		t.Fatalf("expected verified timestamp")
	}
	if n := f.countTokens(t, domain.TokenEmailVerification, "verify@example.com"); n != 0 {
		t.Fatalf("expected all verification tokens removed, %d left", n)
	}
	if _, err := f.auth.VerifyEmail(ctx, fresh); !errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		t.Fatalf("expected second use to fail, got %v", err)
	}

	sent := f.mail.count()
	if err := f.auth.RequestEmailVerification(ctx, "verify@example.com"); err != nil {
		t.Fatalf("request for verified account: %v", err)
	}
	if f.mail.count() != sent {
		t.Fatalf("verified accounts should not get another link")
	}
}

func TestDeletedUserTokenVerifiesButIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	res := f.signup(t, "gone@example.com", "secret123", f.issueCode(t, issuer.ID))
	userID, _ := strconv.ParseInt(res.User.ID, 10, 64)

	if err := f.auth.DeleteAccount(ctx, userID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := f.signer.Verify(res.Token); err != nil {
		t.Fatalf("stateless token should still verify: %v", err)
	}
	if _, err := f.auth.Me(ctx, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted user, got %v", err)
	}
	if n, _ := f.st.Credentials().CountForUser(ctx, userID); n != 0 {
		t.Fatalf("credentials must be removed, %d left", n)
	}
	if err := f.auth.DeleteAccount(ctx, userID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
	if !hasEvent(f.events, "user.deleted") {
		t.Fatalf("expected user.deleted event")
	}
}

func TestUpdateMilestonesMerges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "steps@example.com")

	if _, err := f.auth.UpdateMilestones(ctx, u.ID, domain.Milestones{"firstCard": true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := f.auth.UpdateMilestones(ctx, u.ID, domain.Milestones{"sharedCard": true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !got.Milestones["firstCard"] || !got.Milestones["sharedCard"] {
		t.Fatalf("expected merged milestones, got %v", got.Milestones)
	}
	if _, err := f.auth.UpdateMilestones(ctx, 424242, domain.Milestones{"x": true}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSignOutEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	issuer := f.seedUser(t, "issuer@example.com")
	res := f.signup(t, "leaver@example.com", "secret123", f.issueCode(t, issuer.ID))

	sid := res.Session.SessionID
	if err := f.auth.SignOut(ctx, sid); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, err := f.st.Sessions().GetActive(ctx, sid, res.Session.ExpiresAt.Add(-1)); !errors.Is(err, store.ErrRecordNotFound) {
		t.Fatalf("expected session row to be gone, got %v", err)
	}
	if err := f.auth.SignOut(ctx, sid); err != nil {
		t.Fatalf("second sign out should be a no-op, got %v", err)
	}
	if !hasEvent(f.events, "session.revoked") {
		t.Fatalf("expected session.revoked event")
	}
}
