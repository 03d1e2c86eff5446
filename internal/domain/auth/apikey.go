// Package auth holds the API key identity used to guard the mutating
// product endpoints (select, restore, license confirmation).
package auth

import "context"

// APIKeyInfo holds the identity and scope data for a validated API key.
// Keys are stored hashed; the plaintext never reaches persistence.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
