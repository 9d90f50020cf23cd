package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// DefaultBcryptCost matches the cost the service has always used for stored hashes.
const DefaultBcryptCost = 10

// dummyPassword feeds the decoy hash compared against when a login names an
// unknown email, so both failure paths spend the same bcrypt time.
const dummyPassword = "gophblog-timing-decoy"

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces an adaptive one-way hash of the password.
	Hash(password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on invalid hash.
	Verify(password, hash string) (bool, error)

	// DummyHash returns a well-formed hash that no real password matches.
	DummyHash() string
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost      int
	dummyHash string
}

// NewBcryptHasher validates cost and precomputes the decoy hash.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, err
	}

	return &BcryptHasher{cost: cost, dummyHash: string(dummy)}, nil
}

// Hash rejects passwords over MaxPasswordBytes with common.ErrorValidation.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", fmt.Errorf("%w: password must be at most %d bytes", common.ErrorValidation, MaxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

func (h *BcryptHasher) DummyHash() string {
	return h.dummyHash
}
