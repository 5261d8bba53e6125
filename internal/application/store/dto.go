package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/store"
)

// CreateStoreRequest represents a request to open a store
type CreateStoreRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	Slug         string `json:"slug" binding:"omitempty,max=200"`
	Currency     string `json:"currency" binding:"omitempty,len=3"`
	SupportEmail string `json:"support_email" binding:"omitempty,email"`
}

// UpdateStoreRequest represents a request to update store settings
type UpdateStoreRequest struct {
	Name         string `json:"name" binding:"required,min=1,max=200"`
	SupportEmail string `json:"support_email" binding:"omitempty,email"`
}

// StoreResponse represents a store in API responses
type StoreResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Currency     string    `json:"currency"`
	Status       string    `json:"status"`
	Plan         string    `json:"plan"`
	SupportEmail string    `json:"support_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicStoreResponse is the storefront view of a store
type PublicStoreResponse struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Currency     string `json:"currency"`
	SupportEmail string `json:"support_email,omitempty"`
}

// UserStoreResponse is a store the user belongs to, with the user's role
type UserStoreResponse struct {
	StoreResponse
	Role identity.Role `json:"role"`
}

// ToStoreResponse converts a domain Store to StoreResponse
func ToStoreResponse(s *store.Store) StoreResponse {
	return StoreResponse{
		ID:           s.ID,
		Name:         s.Name,
		Slug:         s.Slug,
		Currency:     s.Currency,
		Status:       string(s.Status),
		Plan:         string(s.Plan),
		SupportEmail: s.SupportEmail,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// ToPublicStoreResponse converts a domain Store to its storefront view
func ToPublicStoreResponse(s *store.Store) PublicStoreResponse {
	return PublicStoreResponse{
		Name:         s.Name,
		Slug:         s.Slug,
		Currency:     s.Currency,
		SupportEmail: s.SupportEmail,
	}
}
