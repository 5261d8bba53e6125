//go:build integration

// Package integration runs the storefront against a real PostgreSQL started
// with testcontainers. The tests are skipped in short mode.
package integration

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	mpg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const postgresImage = "postgres:16-alpine"

// shared is the container reused by NewSharedTestDB; TestMain terminates it
var shared struct {
	sync.Mutex
	container *tcpostgres.PostgresContainer
	dsn       string
}

// TestDB is a migrated PostgreSQL database for one test
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB starts a dedicated container. It is terminated when t ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, dsn := startPostgres(t, ctx, "storefront_test")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})
	return open(t, dsn, true)
}

// NewSharedTestDB connects to a package-wide container, starting and
// migrating it on first use. Callers own cleanup of the rows they write.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	shared.Lock()
	defer shared.Unlock()

	migrateNow := false
	if shared.container == nil {
		shared.container, shared.dsn = startPostgres(t, context.Background(), "storefront_shared_test")
		migrateNow = true
	}
	return open(t, shared.dsn, migrateNow)
}

func terminateShared() {
	shared.Lock()
	defer shared.Unlock()
	if shared.container == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = shared.container.Terminate(ctx)
	shared.container, shared.dsn = nil, ""
}

func startPostgres(t *testing.T, ctx context.Context, database string) (*tcpostgres.PostgresContainer, string) {
	t.Helper()
	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(database),
		tcpostgres.WithUsername("storefront"),
		tcpostgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute)),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return container, dsn
}

func open(t *testing.T, dsn string, migrateSchema bool) *TestDB {
	t.Helper()
	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if migrateSchema {
		applyMigrations(t, sqlDB)
	}
	return &TestDB{DB: db, t: t}
}

func applyMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()
	driver, err := mpg.WithInstance(sqlDB, &mpg.Config{})
	require.NoError(t, err)

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsDir(t), "postgres", driver)
	require.NoError(t, err)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		require.NoError(t, err, "apply migrations")
	}
}

// migrationsDir resolves <module root>/migrations from this file's location
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "migrations")
	_, err := os.Stat(dir)
	require.NoError(t, err, "migrations directory")
	return dir
}

// CleanTables truncates every application table
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		DO $$
		DECLARE r record;
		BEGIN
			FOR r IN SELECT tablename FROM pg_tables
				WHERE schemaname = 'public' AND tablename <> 'schema_migrations'
			LOOP
				EXECUTE format('TRUNCATE TABLE %I CASCADE', r.tablename);
			END LOOP;
		END $$`).Error
	require.NoError(tdb.t, err, "truncate tables")
}

// CreateTestStore inserts an active store and returns its ID
func (tdb *TestDB) CreateTestStore(slug, currency string) uuid.UUID {
	tdb.t.Helper()
	id := uuid.New()
	err := tdb.DB.Exec(`
		INSERT INTO stores (id, name, slug, currency, status, plan)
		VALUES (?, ?, ?, ?, 'ACTIVE', 'FREE')
	`, id, "Store "+slug, slug, currency).Error
	require.NoError(tdb.t, err, "create store %s", slug)
	return id
}

// CountRows counts rows of table matching cond
func (tdb *TestDB) CountRows(table, cond string, args ...any) int64 {
	tdb.t.Helper()
	var n int64
	require.NoError(tdb.t, tdb.DB.Table(table).Where(cond, args...).Count(&n).Error)
	return n
}

func skipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
}
