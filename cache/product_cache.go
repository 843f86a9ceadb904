package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"go-storefront/models"
)

const (
	productListKey    = "products:all"
	productKeyPrefix  = "product:"
	productVersionKey = "products:version"
)

// ProductCache holds catalog reads between writes. Misses and cache errors
// both report ok=false so callers fall through to the database.
//
// Fills are tagged with the Version read before the database query. A fill
// whose version is stale by the time it lands is dropped, so a read racing a
// write cannot re-cache the pre-write catalog.
type ProductCache interface {
	// Version returns the current catalog generation. A negative value means
	// the generation is unknown and fills will be skipped.
	Version(ctx context.Context) int64
	GetList(ctx context.Context) ([]models.Product, bool)
	SetList(ctx context.Context, products []models.Product, version int64)
	Get(ctx context.Context, id string) (*models.Product, bool)
	Set(ctx context.Context, product *models.Product, version int64)
	// Invalidate bumps the generation, then drops the catalog list and, when
	// id is non-empty, the product entry.
	Invalidate(ctx context.Context, id string)
}

// setIfVersion writes ARGV[2] to KEYS[2] only while KEYS[1] still holds ARGV[1].
// ARGV[3] is the TTL in milliseconds; zero keeps the value without expiry.
var setIfVersion = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then current = "0" end
if current ~= ARGV[1] then return 0 end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[2], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[2], ARGV[2])
end
return 1
`)

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisProductCache(client *redis.Client, ttl time.Duration, log *slog.Logger) ProductCache {
	return &redisProductCache{client: client, ttl: ttl, log: log}
}

func (c *redisProductCache) Version(ctx context.Context) int64 {
	version, err := c.client.Get(ctx, productVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		c.log.Warn("read product cache version", "error", err)
		return -1
	}
	return version
}

func (c *redisProductCache) GetList(ctx context.Context) ([]models.Product, bool) {
	var products []models.Product
	if !c.get(ctx, productListKey, &products) {
		return nil, false
	}
	return products, true
}

func (c *redisProductCache) SetList(ctx context.Context, products []models.Product, version int64) {
	c.set(ctx, productListKey, products, version)
}

func (c *redisProductCache) Get(ctx context.Context, id string) (*models.Product, bool) {
	var product models.Product
	if !c.get(ctx, productKeyPrefix+id, &product) {
		return nil, false
	}
	return &product, true
}

func (c *redisProductCache) Set(ctx context.Context, product *models.Product, version int64) {
	c.set(ctx, productKeyPrefix+product.ID.Hex(), product, version)
}

func (c *redisProductCache) Invalidate(ctx context.Context, id string) {
	keys := []string{productListKey}
	if id != "" {
		keys = append(keys, productKeyPrefix+id)
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, productVersionKey)
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		c.log.Warn("invalidate product cache", "keys", keys, "error", err)
	}
}

func (c *redisProductCache) get(ctx context.Context, key string, dst interface{}) bool {
	cached, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("read product cache", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(cached, dst); err != nil {
		c.log.Warn("decode product cache", "key", key, "error", err)
		return false
	}
	return true
}

func (c *redisProductCache) set(ctx context.Context, key string, value interface{}, version int64) {
	if version < 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warn("encode product cache", "key", key, "error", err)
		return
	}
	keys := []string{productVersionKey, key}
	stored, err := setIfVersion.Run(ctx, c.client, keys, version, data, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.log.Warn("write product cache", "key", key, "error", err)
		return
	}
	if stored == 0 {
		c.log.Debug("skip stale product cache fill", "key", key, "version", version)
	}
}

// Noop is the ProductCache used when Redis is not configured.
type Noop struct{}

func (Noop) Version(context.Context) int64                      { return 0 }
func (Noop) GetList(context.Context) ([]models.Product, bool) { return nil, false }
func (Noop) SetList(context.Context, []models.Product, int64) {}
func (Noop) Get(context.Context, string) (*models.Product, bool) { return nil, false }
func (Noop) Set(context.Context, *models.Product, int64) {}
func (Noop) Invalidate(context.Context, string) {}
