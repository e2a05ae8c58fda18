package impl

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"

	"cardauth/internal/service"

	"golang.org/x/crypto/argon2"
)

// AlgoPlaintext marks credential rows imported before hashing was enforced.
// They still verify so their owners can sign in once, and are rehashed then.
const AlgoPlaintext = "plaintext"

type Argon2Params struct {
	// Stored alongside the hash so verification uses the original cost.
	Time    uint32 `json:"t"` // iterations
	Memory  uint32 `json:"m"` // KiB
	Threads uint8  `json:"p"`
	KeyLen  uint32 `json:"k"`
	SaltLen uint32 `json:"s"`
}

// DefaultArgon2Params is the production policy for new hashes.
var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024, // 64 MiB
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

type PasswordServiceImpl struct {
	currentVer int // bump when the policy changes
	cur        Argon2Params
	algoName   string
}

func NewPasswordServiceArgon2id() *PasswordServiceImpl {
	return NewPasswordServiceWithParams(DefaultArgon2Params)
}

func NewPasswordServiceWithParams(params Argon2Params) *PasswordServiceImpl {
	return &PasswordServiceImpl{
		currentVer: 1,
		algoName:   "argon2id",
		cur:        params,
	}
}

func (p *PasswordServiceImpl) Hash(password string) (hash, salt, paramsJSON []byte, algo string, ver int, err error) {
	if password == "" {
		return nil, nil, nil, "", 0, ErrEmptyPassword
	}
	salt = make([]byte, p.cur.SaltLen)
	if _, err = rand.Read(salt); err != nil {
		return nil, nil, nil, "", 0, err
	}
	hash = argon2.IDKey([]byte(password), salt, p.cur.Time, p.cur.Memory, p.cur.Threads, p.cur.KeyLen)
	paramsJSON, err = json.Marshal(p.cur)
	if err != nil {
		return nil, nil, nil, "", 0, err
	}
	return hash, salt, paramsJSON, p.algoName, p.currentVer, nil
}

// Verify never returns an error: a stored value that cannot be parsed is a
// failed verification.
func (p *PasswordServiceImpl) Verify(password string, cred service.Credential) (rehashNeeded bool, ok bool) {
	if cred == nil || password == "" {
		return false, false
	}
	switch cred.GetAlgo() {
	case p.algoName:
	case AlgoPlaintext:
		stored := cred.GetHash()
		ok = len(stored) > 0 && subtle.ConstantTimeCompare([]byte(password), stored) == 1
		return ok, ok
	default:
		return false, false
	}

	var stored Argon2Params
	if err := json.Unmarshal(cred.GetParamsJSON(), &stored); err != nil {
		return false, false
	}
	if stored.Time == 0 || stored.Memory == 0 || stored.Threads == 0 || stored.KeyLen == 0 || len(cred.GetHash()) == 0 {
		return false, false
	}
	calculated := argon2.IDKey([]byte(password), cred.GetSalt(), stored.Time, stored.Memory, stored.Threads, stored.KeyLen)
	ok = subtle.ConstantTimeCompare(calculated, cred.GetHash()) == 1

	// Rehash if policy changed (params or version)
	rehashNeeded = ok && (cred.GetPasswordVer() != p.currentVer ||
		stored.Time != p.cur.Time ||
		stored.Memory != p.cur.Memory ||
		stored.Threads != p.cur.Threads ||
		stored.KeyLen != p.cur.KeyLen ||
		stored.SaltLen != p.cur.SaltLen)

	return rehashNeeded, ok
}
