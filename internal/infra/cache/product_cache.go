package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wholesaleconnect/backend/internal/config"
	"github.com/wholesaleconnect/backend/internal/domain/model"
	repo "github.com/wholesaleconnect/backend/internal/repository"
)

var (
	_ repo.ProductCache = (*RedisProductCache)(nil)
	_ repo.ProductCache = NoopProductCache{}
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
}

type RedisProductCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisProductCache(client redis.Cmdable, ttl time.Duration) *RedisProductCache {
	return &RedisProductCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("products:%d", id)
}

func (c *RedisProductCache) Get(ctx context.Context, productID int64) (model.Product, bool, error) {
	data, err := c.client.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Product{}, false, nil
	}
	if err != nil {
		return model.Product{}, false, fmt.Errorf("get product %d from cache: %w", productID, err)
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Product{}, false, fmt.Errorf("decode cached product %d: %w", productID, err)
	}
	return p, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, p model.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product %d: %w", p.ID, err)
	}
	return c.client.Set(ctx, productKey(p.ID), data, c.ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context, productID int64) error {
	return c.client.Del(ctx, productKey(productID)).Err()
}

// NoopProductCache は Redis 未設定時に使う。常にミス。
type NoopProductCache struct{}

func (NoopProductCache) Get(context.Context, int64) (model.Product, bool, error) {
	return model.Product{}, false, nil
}

func (NoopProductCache) Set(context.Context, model.Product) error { return nil }

func (NoopProductCache) Invalidate(context.Context, int64) error { return nil }
