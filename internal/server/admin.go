package server

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAdminDisabled is returned when no admin password hash is configured.
	ErrAdminDisabled = errors.New("admin access not configured")
	// ErrAdminDenied is returned for a wrong admin password.
	ErrAdminDenied = errors.New("invalid admin password")
)

// AdminAuth guards export and import with a bcrypt-hashed password.
type AdminAuth struct {
	hash []byte
}

// NewAdminAuth returns an AdminAuth for hash. An empty hash disables admin
// access; a malformed one is an error.
func NewAdminAuth(hash string) (*AdminAuth, error) {
	if hash == "" {
		return &AdminAuth{}, nil
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, err
	}
	return &AdminAuth{hash: []byte(hash)}, nil
}

// Enabled reports whether an admin password is configured.
func (a *AdminAuth) Enabled() bool {
	return a != nil && len(a.hash) > 0
}

// Check verifies password.
func (a *AdminAuth) Check(password string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrAdminDenied
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
