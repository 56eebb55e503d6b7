// Package auth hashes passwords, issues and verifies bearer tokens and
// carries the authenticated user through a request context.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"wealthtrack/internal/core"
)

const DefaultBcryptCost = 12

// HashPassword returns the bcrypt hash of password at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports core.ErrUnauthorized when password does not match.
func CheckPassword(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return core.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("compare password: %w", core.ErrUnauthorized)
	}
	return nil
}
