//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/ingestkit/tipline/pkg/store"
	"github.com/ingestkit/tipline/pkg/store/models"
)

// TestPostgresBackendAutoMigratesAndRoundTrips exercises the Postgres
// dialect against a real container, since SQLite's relaxed typing can mask
// constraint or migration issues that only show up against Postgres.
func TestPostgresBackendAutoMigratesAndRoundTrips(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tipline"),
		postgres.WithUsername("tipline"),
		postgres.WithPassword("tipline"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	s, err := store.New(&store.Config{
		Type: store.DatabaseTypePostgres,
		Postgres: store.PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "tipline",
			User:     "tipline",
			Password: "tipline",
			SSLMode:  "disable",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	item := &models.WorkItem{TIP: "pg-tip-1", Kind: "CCC", Status: models.StatusPending}
	require.NoError(t, s.CreateWorkItem(ctx, item))

	got, err := s.GetWorkItem(ctx, "pg-tip-1")
	require.NoError(t, err)
	require.Equal(t, "CCC", got.Kind)
}
