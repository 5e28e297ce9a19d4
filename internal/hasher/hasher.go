package hasher

import (
	"fmt"

	"github.com/alexedwards/argon2id"
)

// Hasher is the one-way credential hash used for both verification codes and
// passwords. Digests are salted, so hashing the same secret twice yields
// different digests that both verify.
type Hasher interface {
	Hash(secret string) (string, error)

	// Verify returns (true, nil) on match, (false, nil) on mismatch, and a
	// non-nil error only for computational failures or malformed digests.
	Verify(secret, digest string) (bool, error)
}

// Argon2idHasher implements Hasher with argon2id.
type Argon2idHasher struct {
	params *argon2id.Params
}

func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: argon2id.DefaultParams}
}

func (h *Argon2idHasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}

	digest, err := argon2id.CreateHash(secret, h.params)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return digest, nil
}

func (h *Argon2idHasher) Verify(secret, digest string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(secret, digest)
	if err != nil {
		return false, fmt.Errorf("failed to verify secret: %w", err)
	}
	return match, nil
}
