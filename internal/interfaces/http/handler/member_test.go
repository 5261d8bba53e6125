package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMemberHandler(t *testing.T) {
	storeID, ownerID, memberID := uuid.New(), uuid.New(), uuid.New()
	svc := new(MockMembershipService)
	h := NewMemberHandler(svc)

	router := gin.New()
	g := router.Group("/stores/:storeId", testutil.AsMember(storeID, ownerID, identity.RoleOwner.Permissions()...))
	g.GET("/members", h.List)
	g.POST("/members", h.Add)
	g.PUT("/members/:userId", h.ChangeRole)
	g.DELETE("/members/:userId", h.Remove)
	base := "/stores/" + storeID.String() + "/members"

	isOwner := mock.MatchedBy(func(a identityapp.Actor) bool {
		return a.UserID == ownerID && a.Can(identity.PermMemberOwner)
	})

	t.Run("add", func(t *testing.T) {
		svc.On("Add", mock.Anything, storeID, isOwner, identityapp.AddMemberInput{Email: "staff@example.com", Role: identity.RoleStaff}).
			Return(&identityapp.MemberResponse{UserID: memberID, Email: "staff@example.com", Role: identity.RoleStaff}, nil).Once()

		w := testutil.Serve(t, router, http.MethodPost, base, map[string]string{"email": "staff@example.com", "role": "STAFF"}, "")

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})

	t.Run("invalid role", func(t *testing.T) {
		w := testutil.Serve(t, router, http.MethodPost, base, map[string]string{"email": "staff@example.com", "role": "ROOT"}, "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("demoting the last owner", func(t *testing.T) {
		svc.On("ChangeRole", mock.Anything, storeID, ownerID, isOwner, identityapp.ChangeRoleInput{Role: identity.RoleAdmin}).
			Return(shared.NewDomainError("LAST_OWNER", "A store must keep at least one owner")).Once()

		w := testutil.Serve(t, router, http.MethodPut, base+"/"+ownerID.String(), map[string]string{"role": "ADMIN"}, "")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "ERR_LAST_OWNER", testutil.ErrorCode(t, w.Body.Bytes()))
	})

	t.Run("remove", func(t *testing.T) {
		svc.On("Remove", mock.Anything, storeID, memberID, isOwner).Return(nil).Once()

		w := testutil.Serve(t, router, http.MethodDelete, base+"/"+memberID.String(), nil, "")

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	svc.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	ok := func(context.Context) error { return nil }
	failing := func(context.Context) error { return errors.New("dial tcp: refused") }

	t.Run("health is always up", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", NewHealthHandler(map[string]ReadinessCheck{"database": failing}).Health)

		w := testutil.Serve(t, router, http.MethodGet, "/health", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("ready", func(t *testing.T) {
		router := gin.New()
		router.GET("/ready", NewHealthHandler(map[string]ReadinessCheck{"database": ok, "redis": ok}).Ready)

		w := testutil.Serve(t, router, http.MethodGet, "/ready", nil, "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"redis":"ok"`)
	})

	t.Run("dependency down", func(t *testing.T) {
		router := gin.New()
		router.GET("/ready", NewHealthHandler(map[string]ReadinessCheck{"database": failing, "redis": ok}).Ready)

		w := testutil.Serve(t, router, http.MethodGet, "/ready", nil, "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), `"database":"error"`)
		assert.NotContains(t, w.Body.String(), "refused")
	})
}
