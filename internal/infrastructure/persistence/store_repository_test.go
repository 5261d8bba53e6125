package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/storefront/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createTestStore(t *testing.T, repo *GormStoreRepository, name string) *store.Store {
	t.Helper()
	s, err := store.NewStore(name, "", "usd")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), s))
	return s
}

func TestGormStoreRepository_FindBySlug_SQL(t *testing.T) {
	t.Run("finds live store by slug", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		mock := mdb.Mock
		repo := NewGormStoreRepository(mdb.DB)

		storeID := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "name", "slug", "currency", "status", "plan", "version", "created_at", "updated_at"}).
			AddRow(storeID, "Acme", "acme", "USD", "ACTIVE", "FREE", 1, time.Now(), time.Now())

		mock.ExpectQuery(`SELECT \* FROM "stores" WHERE slug = \$1 AND "stores"."deleted_at" IS NULL ORDER BY .* LIMIT .*`).
			WithArgs("acme", 1).
			WillReturnRows(rows)

		s, err := repo.FindBySlug(context.Background(), "acme")

		require.NoError(t, err)
		assert.Equal(t, storeID, s.ID)
		assert.Equal(t, store.StatusActive, s.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to not found", func(t *testing.T) {
		mdb := testutil.NewMockDB(t)
		mock := mdb.Mock
		repo := NewGormStoreRepository(mdb.DB)

		mock.ExpectQuery(`SELECT \* FROM "stores" WHERE slug = \$1`).
			WithArgs("missing", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		s, err := repo.FindBySlug(context.Background(), "missing")

		assert.Nil(t, s)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormStoreRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save and load", func(t *testing.T) {
		repo := NewGormStoreRepository(setupTestDB(t))
		s := createTestStore(t, repo, "Corner Shop")

		found, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "corner-shop", found.Slug)
		assert.Equal(t, "USD", found.Currency)

		bySlug, err := repo.FindBySlug(ctx, "corner-shop")
		require.NoError(t, err)
		assert.Equal(t, s.ID, bySlug.ID)
	})

	t.Run("soft delete hides the store and frees the slug", func(t *testing.T) {
		repo := NewGormStoreRepository(setupTestDB(t))
		s := createTestStore(t, repo, "Gone Shop")

		require.NoError(t, repo.Delete(ctx, s.ID))

		_, err := repo.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)

		exists, err := repo.ExistsBySlug(ctx, "gone-shop")
		require.NoError(t, err)
		assert.False(t, exists)

		assert.ErrorIs(t, repo.Delete(ctx, s.ID), shared.ErrNotFound)
	})

	t.Run("find by ids orders by name", func(t *testing.T) {
		repo := NewGormStoreRepository(setupTestDB(t))
		b := createTestStore(t, repo, "Beta")
		a := createTestStore(t, repo, "Alpha")

		stores, err := repo.FindByIDs(ctx, []uuid.UUID{b.ID, a.ID})
		require.NoError(t, err)
		require.Len(t, stores, 2)
		assert.Equal(t, "Alpha", stores[0].Name)

		empty, err := repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}
