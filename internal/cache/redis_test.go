package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type item struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func startRedis(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestRedis_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, RedisConfig{URL: startRedis(t)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRedis[item](rdb, "portal:", nil)

	require.NoError(t, store.Set(ctx, "complaints_", item{ID: 0}, time.Minute))
	require.NoError(t, store.Set(ctx, "complaints_page=2", item{ID: 2}, time.Minute))
	require.NoError(t, store.Set(ctx, "complaint_42", item{ID: 42, Title: "Broken lamp"}, time.Minute))

	got, ok, err := store.Get(ctx, "complaint_42")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Broken lamp", got.Title)

	require.NoError(t, store.Clear(ctx, "complaints_"))

	_, ok, err = store.Get(ctx, "complaints_page=2")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, "complaint_42")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Set(ctx, "short", item{ID: 1}, 50*time.Millisecond))
	time.Sleep(150 * time.Millisecond)
	_, ok, err = store.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	t.Parallel()

	_, err := NewRedisClient(context.Background(), RedisConfig{URL: "not a url"})
	assert.Error(t, err)
}
