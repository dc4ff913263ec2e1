package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strconv"
	"strings"
	"time"

	d "github.com/fjod/go_cart/marketplace-checkout/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedCatalog is a read-through Redis cache in front of a Catalog.
// Concurrent misses for the same id set share one catalog call.
type CachedCatalog struct {
	next    Catalog
	client  *redis.Client
	baseTTL time.Duration
	log     *zap.Logger
	sfg     singleflight.Group
}

func NewCachedCatalog(next Catalog, client *redis.Client, baseTTL time.Duration, log *zap.Logger) *CachedCatalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedCatalog{
		next:    next,
		client:  client,
		baseTTL: baseTTL,
		log:     log,
	}
}

func (c *CachedCatalog) GetProductsByIDs(ctx context.Context, ids []int64) ([]d.Product, error) {
	found, missing := c.fromCache(ctx, ids)
	if len(missing) == 0 {
		return found, nil
	}

	slices.Sort(missing)
	v, err, _ := c.sfg.Do(flightKey(missing), func() (interface{}, error) {
		products, err := c.next.GetProductsByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := c.store(setCtx, products); errSet != nil {
				c.log.Warn("product cache set failed", zap.Error(errSet))
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}

	return append(found, v.([]d.Product)...), nil
}

// Invalidate drops cached entries, e.g. after a price change.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (c *CachedCatalog) fromCache(ctx context.Context, ids []int64) ([]d.Product, []int64) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cacheKey(id))
	}

	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("product cache get failed", zap.Error(err))
		}
		return nil, slices.Clone(ids)
	}

	var found []d.Product
	var missing []int64
	for i, raw := range vals {
		s, ok := raw.(string)
		if !ok {
			missing = append(missing, ids[i])
			continue
		}
		var p d.Product
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			c.log.Warn("product cache entry unreadable", zap.Int64("product_id", ids[i]), zap.Error(err))
			missing = append(missing, ids[i])
			continue
		}
		found = append(found, p)
	}
	return found, missing
}

func (c *CachedCatalog) store(ctx context.Context, products []d.Product) error {
	pipe := c.client.Pipeline()
	for _, p := range products {
		data, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal product failed: %w", err)
		}
		jitter := time.Duration(rand.Intn(60)) * time.Second
		pipe.Set(ctx, cacheKey(p.ID), data, c.baseTTL+jitter)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func cacheKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

func flightKey(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}
