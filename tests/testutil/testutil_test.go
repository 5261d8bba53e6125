package testutil

import (
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	m.Mock.ExpectExec(`DELETE FROM "carts"`).WillReturnResult(sqlmock.NewResult(0, 3))

	res := m.DB.Exec(`DELETE FROM "carts"`)

	require.NoError(t, res.Error)
	assert.Equal(t, int64(3), res.RowsAffected)
	m.ExpectationsWereMet(t)
}

func TestAsMember(t *testing.T) {
	storeID, userID := uuid.New(), uuid.New()
	router := gin.New()
	router.GET("/who", AsMember(storeID, userID, "product:read"), func(c *gin.Context) {
		scoped, ok := middleware.GetStoreUUID(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
			"store":       scoped.String(),
			"user":        middleware.GetJWTUserID(c),
			"permissions": middleware.GetJWTPermissions(c),
		}))
	})

	w := Serve(t, router, http.MethodGet, "/who", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	got := DataAs[struct {
		Store       string   `json:"store"`
		User        string   `json:"user"`
		Permissions []string `json:"permissions"`
	}](t, w.Body.Bytes())
	assert.Equal(t, storeID.String(), got.Store)
	assert.Equal(t, userID.String(), got.User)
	assert.Equal(t, []string{"product:read"}, got.Permissions)
}

func TestStableUUID(t *testing.T) {
	assert.Equal(t, StableUUID("store"), StableUUID("store"))
	assert.NotEqual(t, StableUUID("store"), StableUUID("user"))
}

func TestServe(t *testing.T) {
	router := gin.New()
	router.POST("/echo", func(c *gin.Context) {
		var body map[string]string
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeValidation, err.Error()))
			return
		}
		body["auth"] = c.GetHeader(middleware.AuthHeaderKey)
		c.JSON(http.StatusOK, dto.NewSuccessResponse(body))
	})

	t.Run("sends json and bearer token", func(t *testing.T) {
		w := Serve(t, router, http.MethodPost, "/echo", map[string]string{"sku": "HAT-1"}, "tok")

		got := DataAs[map[string]string](t, w.Body.Bytes())
		assert.Equal(t, "HAT-1", got["sku"])
		assert.Equal(t, middleware.BearerPrefix+"tok", got["auth"])
	})

	t.Run("decodes error envelope", func(t *testing.T) {
		w := Serve(t, router, http.MethodPost, "/echo", nil, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		AssertErrorCode(t, w.Body.Bytes(), dto.ErrCodeValidation)
		assert.False(t, DecodeResponse(t, w.Body.Bytes()).Success)
	})
}
