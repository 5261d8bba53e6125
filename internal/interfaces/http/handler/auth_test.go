package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockAuthService implements AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) tokens(args mock.Arguments) (*identityapp.TokenResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.TokenResult), args.Error(1)
}

func (m *MockAuthService) Register(ctx context.Context, input identityapp.RegisterInput) (*identityapp.UserInfo, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.UserInfo), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, input identityapp.LoginInput) (*identityapp.TokenResult, error) {
	return m.tokens(m.Called(ctx, input))
}

func (m *MockAuthService) Refresh(ctx context.Context, input identityapp.RefreshTokenInput) (*identityapp.TokenResult, error) {
	return m.tokens(m.Called(ctx, input))
}

func (m *MockAuthService) SwitchStore(ctx context.Context, userID uuid.UUID, input identityapp.SwitchStoreInput) (*identityapp.TokenResult, error) {
	return m.tokens(m.Called(ctx, userID, input))
}

func (m *MockAuthService) Me(ctx context.Context, userID uuid.UUID) (*identityapp.CurrentUserResult, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityapp.CurrentUserResult), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input identityapp.ChangePasswordInput) error {
	return m.Called(ctx, userID, input).Error(0)
}

func newAuthRouter(svc *MockAuthService, userID uuid.UUID) *gin.Engine {
	h := NewAuthHandler(svc)
	router := gin.New()
	router.POST("/auth/register", h.Register)
	router.POST("/auth/login", h.Login)
	authed := router.Group("", testutil.AsMember(uuid.New(), userID))
	authed.GET("/auth/me", h.Me)
	authed.POST("/auth/switch-store", h.SwitchStore)
	return router
}

func TestAuthHandler_Register(t *testing.T) {
	svc := new(MockAuthService)
	input := identityapp.RegisterInput{Email: "new@example.com", Password: "longenough", Name: "New"}
	svc.On("Register", mock.Anything, input).Return(&identityapp.UserInfo{ID: uuid.New(), Email: input.Email}, nil).Once()
	svc.On("Register", mock.Anything, input).Return(nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")).Once()
	router := newAuthRouter(svc, uuid.New())

	w := testutil.Serve(t, router, http.MethodPost, "/auth/register", input, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "longenough")

	w = testutil.Serve(t, router, http.MethodPost, "/auth/register", input, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Serve(t, router, http.MethodPost, "/auth/register", map[string]string{"email": "new@example.com", "password": "short", "name": "New"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, testutil.ErrorCode(t, w.Body.Bytes()))
}

func TestAuthHandler_LoginInvalidCredentials(t *testing.T) {
	svc := new(MockAuthService)
	svc.On("Login", mock.Anything, mock.Anything).Return(nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password"))

	w := testutil.Serve(t, newAuthRouter(svc, uuid.New()), http.MethodPost, "/auth/login", map[string]string{"email": "a@example.com", "password": "x"}, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ERR_INVALID_CREDENTIALS", testutil.ErrorCode(t, w.Body.Bytes()))
}

func TestAuthHandler_SwitchStore(t *testing.T) {
	userID, storeID := uuid.New(), uuid.New()
	svc := new(MockAuthService)
	svc.On("SwitchStore", mock.Anything, userID, identityapp.SwitchStoreInput{StoreID: storeID}).
		Return(&identityapp.TokenResult{AccessToken: "a", StoreID: &storeID}, nil)
	svc.On("Me", mock.Anything, userID).Return(&identityapp.CurrentUserResult{Memberships: []identityapp.MembershipInfo{}}, nil)
	router := newAuthRouter(svc, userID)

	w := testutil.Serve(t, router, http.MethodPost, "/auth/switch-store", map[string]string{"store_id": storeID.String()}, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), storeID.String())

	w = testutil.Serve(t, router, http.MethodGet, "/auth/me", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	svc.AssertExpectations(t)
}
