package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
)

// RegisterInput contains the input for account registration
type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,min=1,max=200"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string     `json:"email" binding:"required,email"`
	Password string     `json:"password" binding:"required"`
	StoreID  *uuid.UUID `json:"store_id"`
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SwitchStoreInput selects the store the next token pair is scoped to
type SwitchStoreInput struct {
	StoreID uuid.UUID `json:"store_id" binding:"required"`
}

// ChangePasswordInput contains the input for password change
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenResult is a freshly issued token pair with its scope
type TokenResult struct {
	AccessToken           string        `json:"access_token"`
	RefreshToken          string        `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time     `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time     `json:"refresh_token_expires_at"`
	TokenType             string        `json:"token_type"`
	User                  UserInfo      `json:"user"`
	StoreID               *uuid.UUID    `json:"store_id,omitempty"`
	Role                  identity.Role `json:"role,omitempty"`
	Permissions           []string      `json:"permissions,omitempty"`
}

// UserInfo contains basic user information
type UserInfo struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// MembershipInfo is one store the user can act in
type MembershipInfo struct {
	StoreID uuid.UUID     `json:"store_id"`
	Role    identity.Role `json:"role"`
}

// CurrentUserResult contains the current user's information
type CurrentUserResult struct {
	User        UserInfo         `json:"user"`
	Memberships []MembershipInfo `json:"memberships"`
}

// AddMemberInput invites an existing user into a store
type AddMemberInput struct {
	Email string        `json:"email" binding:"required,email"`
	Role  identity.Role `json:"role" binding:"required,oneof=OWNER ADMIN STAFF"`
}

// ChangeRoleInput changes a member's role
type ChangeRoleInput struct {
	Role identity.Role `json:"role" binding:"required,oneof=OWNER ADMIN STAFF"`
}

// MemberResponse is a store member in API responses
type MemberResponse struct {
	UserID    uuid.UUID     `json:"user_id"`
	Email     string        `json:"email"`
	Name      string        `json:"name"`
	Role      identity.Role `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}

// Actor is the authenticated caller of a membership operation
type Actor struct {
	UserID      uuid.UUID
	Permissions []string
}

// Can reports whether the actor holds the permission
func (a Actor) Can(permission string) bool {
	for _, p := range a.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func toUserInfo(u *identity.User) UserInfo {
	return UserInfo{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		LastLoginAt: u.LastLoginAt,
	}
}
