package postgresql_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ansel/internal/storage/postgresql"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = pgContainer.Terminate(ctx)
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
}

func TestMigrate(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}

	ctx := context.Background()

	s, err := postgresql.New(ctx, startPostgres(t))
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, s.Migrate(ctx))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, s.Migrate(ctx))
	})

	t.Run("schema recorded", func(t *testing.T) {
		var n int
		err := s.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("slug unique only when set", func(t *testing.T) {
		_, err := s.Pool().Exec(ctx, `INSERT INTO ansel_shares (share_owner, attribute_slug) VALUES ('a', ''), ('a', '')`)
		require.NoError(t, err)

		_, err = s.Pool().Exec(ctx, `INSERT INTO ansel_shares (share_owner, attribute_slug) VALUES ('a', 'dup')`)
		require.NoError(t, err)

		_, err = s.Pool().Exec(ctx, `INSERT INTO ansel_shares (share_owner, attribute_slug) VALUES ('b', 'dup')`)
		assert.Error(t, err)
	})
}
