package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"go-storefront/models"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping redis tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNoop(t *testing.T) {
	var c ProductCache = Noop{}
	ctx := context.Background()

	assert.Equal(t, int64(0), c.Version(ctx))
	c.SetList(ctx, []models.Product{{Name: "x"}}, 0)
	_, ok := c.GetList(ctx)
	assert.False(t, ok)

	c.Set(ctx, &models.Product{ID: primitive.NewObjectID()}, 0)
	_, ok = c.Get(ctx, "anything")
	assert.False(t, ok)
	c.Invalidate(ctx, "")
}

func TestRedisProductCache(t *testing.T) {
	client := testRedis(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewRedisProductCache(client, time.Minute, log)
	ctx := context.Background()

	product := models.Product{ID: primitive.NewObjectID(), Name: "Reader", Price: decimal.RequireFromString("19.99")}

	_, ok := c.GetList(ctx)
	assert.False(t, ok)

	version := c.Version(ctx)
	assert.Equal(t, int64(0), version)
	c.SetList(ctx, []models.Product{product}, version)
	list, ok := c.GetList(ctx)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, product.ID, list[0].ID)
	assert.True(t, product.Price.Equal(list[0].Price))

	c.Set(ctx, &product, version)
	got, ok := c.Get(ctx, product.ID.Hex())
	require.True(t, ok)
	assert.Equal(t, "Reader", got.Name)

	c.Invalidate(ctx, product.ID.Hex())
	_, ok = c.GetList(ctx)
	assert.False(t, ok)
	_, ok = c.Get(ctx, product.ID.Hex())
	assert.False(t, ok)
	assert.Equal(t, version+1, c.Version(ctx))
}

func TestRedisProductCache_StaleFillDropped(t *testing.T) {
	client := testRedis(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewRedisProductCache(client, time.Minute, log)
	ctx := context.Background()

	product := models.Product{ID: primitive.NewObjectID(), Name: "Old"}

	// read started before a write invalidated the catalog
	readVersion := c.Version(ctx)
	c.Invalidate(ctx, product.ID.Hex())

	c.SetList(ctx, []models.Product{product}, readVersion)
	c.Set(ctx, &product, readVersion)

	_, ok := c.GetList(ctx)
	assert.False(t, ok, "list filled with a stale version must not be cached")
	_, ok = c.Get(ctx, product.ID.Hex())
	assert.False(t, ok, "product filled with a stale version must not be cached")

	c.SetList(ctx, []models.Product{product}, c.Version(ctx))
	_, ok = c.GetList(ctx)
	assert.True(t, ok)
}

func TestIdempotency_MarkOnce(t *testing.T) {
	client := testRedis(t)
	idem := NewIdempotency(client, "test:")
	ctx := context.Background()

	first, err := idem.MarkOnce(ctx, "order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := idem.MarkOnce(ctx, "order-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)

	require.NoError(t, idem.Release(ctx, "order-1"))
	again, err := idem.MarkOnce(ctx, "order-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)
}
