//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/database"
)

func startPostgres(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "pgvector/pgvector:pg16",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "lookalike_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/lookalike_test?sslmode=disable", host, port.Port())
}

func TestMigratorIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	dsn := startPostgres(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.OpenSQL(ctx, dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	t.Run("Up creates the schema", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "lookalike_test", logger)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Up())
		// second run is a no-op
		require.NoError(t, migrator.Up())

		for _, table := range []string{"reference_faces", "members", "match_audits", "latest_results", "cache_entries"} {
			assertTableExists(t, db, table)
		}
	})

	t.Run("Version returns current version", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "lookalike_test", logger)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		version, dirty, err := migrator.Version()
		require.NoError(t, err)
		assert.False(t, dirty, "migration should not be dirty")
		assert.Equal(t, uint(2), version)
	})

	t.Run("members table has correct columns", func(t *testing.T) {
		columns := getTableColumns(t, db, "members")
		for _, col := range []string{"id", "name", "group_name", "age", "image_url", "image_names", "goods_links", "profile_url", "created_at"} {
			assert.Contains(t, columns, col, "members should have column %s", col)
		}
	})

	t.Run("reference_faces keeps float64 components", func(t *testing.T) {
		columns := getTableColumns(t, db, "reference_faces")
		assert.Contains(t, columns, "components")
	})

	t.Run("reference_faces accepts vectors of any dimension", func(t *testing.T) {
		_, err := db.Exec(`INSERT INTO reference_faces (identity_key, position, embedding) VALUES ('a.jpg', 0, '[1,0,0]')`)
		require.NoError(t, err)
	})

	t.Run("pool health check", func(t *testing.T) {
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(dsn))
		require.NoError(t, err)
		defer pool.Close()

		assert.NoError(t, database.HealthCheck(ctx, pool))
	})

	t.Run("Down drops the schema", func(t *testing.T) {
		migrator, err := database.NewMigrator(db, "lookalike_test", logger)
		require.NoError(t, err)
		defer func() { _ = migrator.Close() }()

		require.NoError(t, migrator.Down())
		version, _, err := migrator.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.NotContains(t, getTableColumns(t, db, "reference_faces"), "components")

		require.NoError(t, migrator.Down())
		version, _, err = migrator.Version()
		require.NoError(t, err)
		assert.Equal(t, uint(0), version)
	})
}

func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)

	require.NoError(t, err)
	assert.True(t, exists, "table %s should exist", tableName)
}

func getTableColumns(t *testing.T, db *sql.DB, tableName string) []string {
	t.Helper()

	rows, err := db.Query(`
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = $1
		ORDER BY ordinal_position
	`, tableName)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var columns []string
	for rows.Next() {
		var col string
		require.NoError(t, rows.Scan(&col))
		columns = append(columns, col)
	}

	return columns
}
