package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/pkg/metrics"
)

const FeaturedKey = "featured_products"

func NewRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Featured stores the featured product list as one JSON value without expiry.
// Writers rewrite it whenever the featured set changes.
type Featured struct {
	rdb redis.UniversalClient
	key string
}

func NewFeatured(rdb redis.UniversalClient) *Featured {
	return &Featured{rdb: rdb, key: FeaturedKey}
}

// Get reports ok=false on a miss.
func (f *Featured) Get(ctx context.Context) ([]models.Product, bool, error) {
	raw, err := f.rdb.Get(ctx, f.key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordCache("featured", "miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.RecordCache("featured", "error")
		return nil, false, fmt.Errorf("redis get %s: %w", f.key, err)
	}

	var items []models.Product
	if err := json.Unmarshal(raw, &items); err != nil {
		metrics.RecordCache("featured", "error")
		return nil, false, fmt.Errorf("decode %s: %w", f.key, err)
	}
	metrics.RecordCache("featured", "hit")
	return items, true, nil
}

func (f *Featured) Set(ctx context.Context, items []models.Product) error {
	if items == nil {
		items = []models.Product{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := f.rdb.Set(ctx, f.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", f.key, err)
	}
	return nil
}

func (f *Featured) Invalidate(ctx context.Context) error {
	return f.rdb.Del(ctx, f.key).Err()
}
