package crypto

import (
	"errors"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher produces and verifies salted bcrypt digests. The cost
// factor tunes the work required per hash; bcrypt embeds the salt in the
// digest, so digests for the same plaintext never compare equal.
type PasswordHasher struct {
	cost   int
	logger *zap.Logger
}

func NewPasswordHasher(cost int, logger *zap.Logger) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost, logger: logger}
}

// Hash returns a salted one-way digest of plaintext.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext reproduces digest. A malformed digest is
// treated as a mismatch, never an error.
func (h *PasswordHasher) Verify(plaintext, digest string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.Warn("malformed password digest", zap.Error(err))
	}
	return false
}
