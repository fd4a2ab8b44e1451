//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/starford/orgboard/internal/models"
)

func integrationChart() models.Chart {
	c := models.DefaultChart()
	c.Departments[0].Levels[0].Roles = []string{"Designer"}
	c.Departments = append(c.Departments, models.Department{
		ID:   "eng",
		Name: "Engineering",
		Levels: []models.Level{
			{ID: "eng-0", Roles: []string{"Backend", "Frontend"}},
			{ID: "eng-1", Roles: []string{}},
		},
	})
	return c
}

func TestRedisGateway_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	url, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	g, err := NewRedisGateway(ctx, url, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	fresh, err := g.Load(ctx)
	require.NoError(t, err)
	require.True(t, fresh.Equal(models.DefaultChart()))

	want := integrationChart()
	require.NoError(t, g.Save(ctx, want))

	got, err := g.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.Equal(want), "got %+v", got)
}

func TestPostgresGateway_Integration(t *testing.T) {
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("orgboard"),
		postgres.WithUsername("orgboard"),
		postgres.WithPassword("orgboard"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	g, err := NewPostgresGateway(connectCtx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	fresh, err := g.Load(ctx)
	require.NoError(t, err)
	require.True(t, fresh.Equal(models.DefaultChart()))

	want := integrationChart()
	require.NoError(t, g.Save(ctx, want))
	want.Departments[1].Levels[1].Roles = []string{"SRE"}
	require.NoError(t, g.Save(ctx, want))

	got, err := g.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.Equal(want), "got %+v", got)
}
