// Package security holds password hashing and token handling.
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
	DefaultCost      = 10
)

var ErrPasswordLength = fmt.Errorf("security: password must be between 1 and %d bytes", MaxPasswordBytes)

// HashPassword hashes plain with bcrypt at DefaultCost.
func HashPassword(plain string) (string, error) {
	if len(plain) == 0 || len(plain) > MaxPasswordBytes {
		return "", ErrPasswordLength
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("security: hashing password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether plain matches the bcrypt hash.
func ComparePassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
