package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the work factor used when Config.Cost is zero.
const DefaultCost = 10

// Config defines the bcrypt work factor.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Cost int
}

// Bcrypt hashes and verifies credentials with a fixed bcrypt cost.
//
// Bcrypt instances are safe for concurrent use.
type Bcrypt struct {
	cost int
}

// NewBcrypt validates cfg and returns a hasher. A zero cost selects [DefaultCost].
func NewBcrypt(cfg Config) (*Bcrypt, error) {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("password cost must be within [%d, %d]", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int {
	return b.cost
}

// Hash describes the hash operation and its observable behavior.
//
// Hash returns a salted bcrypt digest of password. Every call draws a fresh
// salt, so hashing the same value twice yields different digests.
// Hash may return an error when password is empty or longer than 72 bytes.
func (b *Bcrypt) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A malformed digest is a
// mismatch, never an error.
func (b *Bcrypt) Verify(password, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// NeedsUpgrade reports whether digest was produced with a lower cost than
// the configured one. Unparseable digests report false.
func (b *Bcrypt) NeedsUpgrade(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false
	}
	return cost < b.cost
}
