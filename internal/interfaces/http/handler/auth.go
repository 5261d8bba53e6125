package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/storefront/backend/internal/application/identity"
)

// AuthService is the part of identityapp.AuthService the handler uses
type AuthService interface {
	Register(ctx context.Context, input identityapp.RegisterInput) (*identityapp.UserInfo, error)
	Login(ctx context.Context, input identityapp.LoginInput) (*identityapp.TokenResult, error)
	Refresh(ctx context.Context, input identityapp.RefreshTokenInput) (*identityapp.TokenResult, error)
	SwitchStore(ctx context.Context, userID uuid.UUID, input identityapp.SwitchStoreInput) (*identityapp.TokenResult, error)
	Me(ctx context.Context, userID uuid.UUID) (*identityapp.CurrentUserResult, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, input identityapp.ChangePasswordInput) error
}

// AuthHandler handles authentication requests
type AuthHandler struct {
	BaseHandler
	authService AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a user account
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Login authenticates with email and password. The token is scoped to the
// requested store, or to the user's only store when there is one.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Refresh exchanges a refresh token for a new token pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identityapp.RefreshTokenInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Me returns the current user and their memberships
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}

	result, err := h.authService.Me(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SwitchStore issues a token pair scoped to another store of the user
// POST /api/v1/auth/switch-store
func (h *AuthHandler) SwitchStore(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req identityapp.SwitchStoreInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authService.SwitchStore(c.Request.Context(), userID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ChangePassword changes the current user's password
// PUT /api/v1/auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := h.userID(c)
	if !ok {
		return
	}
	var req identityapp.ChangePasswordInput
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
