package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access from refresh tokens. Each type is signed
// with its own secret and rejected where the other is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the token payload. StoreID, Role and Permissions are empty until
// the user selects a store, and are never carried by refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	StoreID     string    `json:"store_id,omitempty"`
	Role        string    `json:"role,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	TokenType   TokenType `json:"token_type"`
}

func (c *Claims) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID)
}

// GetStoreUUID returns uuid.Nil when no store is selected
func (c *Claims) GetStoreUUID() (uuid.UUID, error) {
	if c.StoreID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(c.StoreID)
}

func (c *Claims) HasPermission(permission string) bool {
	return slices.Contains(c.Permissions, permission)
}

// HasAnyPermission is false for an empty list
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	return slices.ContainsFunc(permissions, c.HasPermission)
}

// check rejects claims that parsed and verified but are not ours to honor
func (c *Claims) check(want TokenType) error {
	if c.TokenType != want {
		return ErrInvalidTokenType
	}
	if _, err := uuid.Parse(c.UserID); err != nil {
		return ErrInvalidClaims
	}
	if _, err := c.GetStoreUUID(); err != nil {
		return ErrInvalidClaims
	}
	return nil
}
