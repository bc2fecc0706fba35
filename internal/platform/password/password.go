package password

import (
	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Hasher hides the storage hash algorithm from callers. Compare is constant-time
// in both implementations; plaintext is never compared directly.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

// NewHasher picks the hash algorithm by name. Anything other than "argon2id"
// falls back to bcrypt; both verify hashes they themselves produced, so the
// algorithm must not change under an existing user table.
func NewHasher(algo string, bcryptCost int) Hasher {
	if algo == "argon2id" {
		return Argon2Hasher{}
	}
	return NewBcryptHasher(bcryptCost)
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = 12
	}
	return &BcryptHasher{Cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Compare(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

type Argon2Hasher struct{}

func (Argon2Hasher) Hash(plain string) (string, error) {
	return argon2id.CreateHash(plain, argon2id.DefaultParams)
}

func (Argon2Hasher) Compare(plain, hash string) bool {
	ok, err := argon2id.ComparePasswordAndHash(plain, hash)
	return err == nil && ok
}
