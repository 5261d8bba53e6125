// Package testutil holds helpers shared by the storefront tests: a
// sqlmock-backed GORM handle, request scoping that stands in for the auth
// middleware, and decoding of the JSON response envelope.
package testutil

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB is a postgres-dialect GORM handle over sqlmock
type MockDB struct {
	DB   *gorm.DB
	Mock sqlmock.Sqlmock
}

// NewMockDB opens a MockDB that is closed when t ends. Statements run
// without GORM's implicit transaction so expectations stay one per query.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true, TranslateError: true})
	require.NoError(t, err)
	return &MockDB{DB: db, Mock: mock}
}

// ExpectationsWereMet fails t on unmet or unexpected statements
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet())
}

// AsMember authenticates the request as userID inside storeID, the way the
// JWT and store scope middleware would after a successful check.
func AsMember(storeID, userID uuid.UUID, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &auth.Claims{
			UserID:      userID.String(),
			Email:       "owner@example.com",
			StoreID:     storeID.String(),
			Permissions: permissions,
		}
		c.Set(middleware.JWTClaimsKey, claims)
		c.Set(middleware.JWTUserIDKey, claims.UserID)
		c.Set(middleware.JWTStoreIDKey, claims.StoreID)
		c.Set(middleware.JWTPermissions, claims.Permissions)
		middleware.SetStoreScope(c, storeID)
		c.Next()
	}
}

// StableUUID derives a UUID from seed so fixtures stay reproducible
func StableUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("storefront-test:"+seed))
}
