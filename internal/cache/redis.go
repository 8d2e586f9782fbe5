package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oscarvm/tpv-server/internal/config"
	"github.com/oscarvm/tpv-server/internal/models"
)

const (
	productListKey = "products:all"
	productListTTL = 5 * time.Minute
)

// ProductCache keeps the full product listing in Redis so the terminal's
// catalog screen does not hit PostgreSQL on every refresh.
type ProductCache struct {
	client *redis.Client
}

// NewProductCache connects to Redis and verifies the connection
func NewProductCache(cfg config.RedisConfig) (*ProductCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ProductCache{client: client}, nil
}

// GetAll returns the cached product listing, reporting a miss when the
// key is absent or unreadable.
func (c *ProductCache) GetAll(ctx context.Context) ([]models.Product, bool) {
	payload, err := c.client.Get(ctx, productListKey).Result()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Error reading product cache: %v", err)
		}
		return nil, false
	}

	var products []models.Product
	if err := json.Unmarshal([]byte(payload), &products); err != nil {
		log.Printf("Discarding unreadable product cache entry: %v", err)
		return nil, false
	}

	return products, true
}

// SetAll stores the product listing with a TTL
func (c *ProductCache) SetAll(ctx context.Context, products []models.Product) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("failed to encode products for cache: %w", err)
	}

	return c.client.Set(ctx, productListKey, payload, productListTTL).Err()
}

// Invalidate drops the cached listing; the next read repopulates it
func (c *ProductCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, productListKey).Err()
}

// Close closes the Redis connection
func (c *ProductCache) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
