package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordRequired is returned when hashing an empty password.
var ErrPasswordRequired = errors.New("password required")

// HashPassword returns a bcrypt hash of the password using the default cost.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword validates a password against a bcrypt hash.
// Malformed hashes never match.
func CheckPassword(password, stored string) bool {
	if stored == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
