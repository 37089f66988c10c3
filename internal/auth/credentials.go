// Package auth implements credential verification and bearer token
// issuing/validation for the job API.
package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"ocrplane/internal/config"
)

// CredentialStore verifies username/password pairs against the configured
// user list. Built once at startup; immutable afterwards.
type CredentialStore struct {
	users map[string]string
}

// NewCredentialStore builds a store from the configured users. Stored
// passwords may be bcrypt hashes or plaintext; the scheme is detected per
// entry from the bcrypt prefix.
func NewCredentialStore(users []config.UserCredential) *CredentialStore {
	m := make(map[string]string, len(users))
	for _, u := range users {
		m[u.Username] = u.Password
	}
	return &CredentialStore{users: m}
}

// Verify reports whether the credentials match a configured user. Unknown
// usernames and wrong passwords are indistinguishable to the caller.
func (s *CredentialStore) Verify(username, password string) bool {
	stored, ok := s.users[username]
	if !ok {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	return strings.HasPrefix(s, "$2a$") ||
		strings.HasPrefix(s, "$2b$") ||
		strings.HasPrefix(s, "$2y$")
}
