package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/feforecast/internal/config"
	"github.com/cory-johannsen/feforecast/internal/storage/postgres"
	"github.com/cory-johannsen/feforecast/internal/testutil"
)

func TestNewPoolUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := postgres.NewPool(ctx, config.DatabaseConfig{
		Host: "127.0.0.1", Port: 1, User: "x", Password: "x", Name: "x",
		SSLMode: "disable", MaxConns: 1,
	}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestPoolHealth(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)
	assert.NoError(t, pc.Pool.Health(context.Background(), 2*time.Second))
}

func TestPoolWatchHealthStopsOnCancel(t *testing.T) {
	pc := testutil.NewPostgresContainer(t)

	core, logs := observer.New(zap.InfoLevel)
	pool, err := postgres.NewPool(context.Background(), pc.Config, zap.New(core))
	require.NoError(t, err)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err = pool.WatchHealth(ctx, 20*time.Millisecond, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, logs.FilterMessage("database health check failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("database connected").Len())
}
