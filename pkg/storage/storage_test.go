package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid postgres", Config{Driver: DriverPostgres, DSN: "postgres://localhost/canopy"}, ""},
		{"valid sqlite", Config{Driver: DriverSQLite, DSN: "file:canopy.db"}, ""},
		{"unknown driver", Config{Driver: "oracle", DSN: "x"}, "unsupported database driver"},
		{"missing dsn", Config{Driver: DriverPostgres}, "DSN is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError("grants.set", nil))

	base := fmt.Errorf("connection refused")
	err := WrapError("grants.set", base)
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
	assert.True(t, errors.Is(err, base))
	assert.Contains(t, err.Error(), "grants.set")

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, IsStorageError(wrapped))

	assert.False(t, IsStorageError(fmt.Errorf("plain")))
}

func TestApplyMigrations(t *testing.T) {
	t.Run("applies pending migrations in order", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		migrations := []Migration{
			{Version: 2, Description: "second", SQL: "CREATE TABLE b (id INTEGER)"},
			{Version: 1, Description: "first", SQL: "CREATE TABLE a (id INTEGER)"},
		}

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))

		// Version 1 first despite the input ordering.
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
			WithArgs("test", 1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE a").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("test", 1, "first", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
			WithArgs("test", 2).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE b").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs("test", 2, "second", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		err = ApplyMigrations(context.Background(), db, "test", migrations)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips applied migrations", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
			WithArgs("test", 1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err = ApplyMigrations(context.Background(), db, "test", []Migration{
			{Version: 1, Description: "first", SQL: "CREATE TABLE a (id INTEGER)"},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM schema_migrations`).
			WithArgs("test", 1).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectExec("CREATE TABLE broken").
			WillReturnError(fmt.Errorf("syntax error"))
		mock.ExpectRollback()

		err = ApplyMigrations(context.Background(), db, "test", []Migration{
			{Version: 1, Description: "broken", SQL: "CREATE TABLE broken"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migration test/1")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
