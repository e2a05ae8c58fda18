package impl

import (
	"errors"
	"testing"

	"cardauth/internal/domain"
)

func hashedCredential(t *testing.T, p *PasswordServiceImpl, password string) *domain.PasswordCredential {
	t.Helper()
	hash, salt, params, algo, ver, err := p.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.PasswordCredential{Algo: algo, Hash: hash, Salt: salt, ParamsJSON: string(params), PasswordVer: ver}
}

func TestPasswordHashVerify(t *testing.T) {
	p := NewPasswordServiceWithParams(testArgon2Params)
	cred := hashedCredential(t, p, "correct horse")

	if string(cred.Hash) == "correct horse" || len(cred.Salt) != int(testArgon2Params.SaltLen) {
		t.Fatalf("unexpected credential %+v", cred)
	}
	if rehash, ok := p.Verify("correct horse", cred); !ok || rehash {
		t.Fatalf("expected ok without rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if _, ok := p.Verify("wrong horse", cred); ok {
		t.Fatalf("wrong password verified")
	}

	again := hashedCredential(t, p, "correct horse")
	if string(again.Hash) == string(cred.Hash) {
		t.Fatalf("salts must differ between hashes")
	}
}

func TestPasswordHashRejectsEmpty(t *testing.T) {
	p := NewPasswordServiceWithParams(testArgon2Params)
	if _, _, _, _, _, err := p.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestPasswordVerifyRequestsRehashOnPolicyChange(t *testing.T) {
	old := NewPasswordServiceWithParams(testArgon2Params)
	cred := hashedCredential(t, old, "pa55word")

	stronger := testArgon2Params
	stronger.Time = 2
	current := NewPasswordServiceWithParams(stronger)

	rehash, ok := current.Verify("pa55word", cred)
	if !ok || !rehash {
		t.Fatalf("expected ok with rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if rehash, ok := current.Verify("nope", cred); ok || rehash {
		t.Fatalf("failed verification must not ask for rehash")
	}
}

func TestPasswordVerifyLegacyPlaintext(t *testing.T) {
	p := NewPasswordServiceWithParams(testArgon2Params)
	cred := &domain.PasswordCredential{Algo: AlgoPlaintext, Hash: []byte("letmein")}

	if rehash, ok := p.Verify("letmein", cred); !ok || !rehash {
		t.Fatalf("expected legacy match with rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if _, ok := p.Verify("letmeout", cred); ok {
		t.Fatalf("wrong legacy password verified")
	}
	empty := &domain.PasswordCredential{Algo: AlgoPlaintext}
	if _, ok := p.Verify("", empty); ok {
		t.Fatalf("empty legacy value must never verify")
	}
}

func TestPasswordVerifyTreatsCorruptRowsAsFailure(t *testing.T) {
	p := NewPasswordServiceWithParams(testArgon2Params)
	good := hashedCredential(t, p, "secret")

	tests := []struct {
		name string
		cred *domain.PasswordCredential
	}{
		{name: "unknown algorithm", cred: &domain.PasswordCredential{Algo: "md5", Hash: good.Hash, Salt: good.Salt, ParamsJSON: good.ParamsJSON}},
		{name: "params not json", cred: &domain.PasswordCredential{Algo: good.Algo, Hash: good.Hash, Salt: good.Salt, ParamsJSON: "{"}},
		{name: "zero params", cred: &domain.PasswordCredential{Algo: good.Algo, Hash: good.Hash, Salt: good.Salt, ParamsJSON: `{"t":0,"m":0,"p":0,"k":0}`}},
		{name: "empty hash", cred: &domain.PasswordCredential{Algo: good.Algo, Salt: good.Salt, ParamsJSON: good.ParamsJSON}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := p.Verify("secret", tc.cred); ok {
				t.Fatalf("expected verification failure")
			}
		})
	}
}
