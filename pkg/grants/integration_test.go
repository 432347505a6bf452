//go:build integration

package grants

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/canopyhq/canopy/pkg/storage"
)

func setupPostgresTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("grants_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, db.Ping())

	require.NoError(t, storage.ApplyMigrations(ctx, db, MigrationComponent, Migrations()))

	cleanup := func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgresContainer.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

func TestSetUpsertAgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupPostgresTestDB(t)
	defer cleanup()

	store := NewSQLStore(db)
	ctx := context.Background()

	first, err := store.Set(ctx, "m@agency.test", "sub-1", true)
	require.NoError(t, err)

	second, err := store.Set(ctx, "m@agency.test", "sub-1", true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "repeat upsert must reuse the row")

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sub_account_grants WHERE subject_email = $1 AND resource_id = $2`,
		"m@agency.test", "sub-1",
	).Scan(&count))
	assert.Equal(t, 1, count, "exactly one row per (subject, resource) pair")
}

func TestConcurrentTogglesSingleRow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, cleanup := setupPostgresTestDB(t)
	defer cleanup()

	store := NewSQLStore(db)
	ctx := context.Background()

	const writers = 16
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := store.Set(ctx, "race@agency.test", "sub-1", i%2 == 0)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM sub_account_grants WHERE subject_email = $1 AND resource_id = $2`,
		"race@agency.test", "sub-1",
	).Scan(&count))
	assert.Equal(t, 1, count, "concurrent toggles must serialize onto one row")
}
