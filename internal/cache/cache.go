package cache

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"storefront_back_end/internal/metrics"
	"storefront_back_end/internal/models"
	"storefront_back_end/internal/store"
)

const ProductCacheTTL = 10 * time.Minute

func productKey(id string) string { return "product:" + id }

// ProductCache met GetProduct en cache Redis devant un ProductStore.
// Les produits absents ne sont jamais mis en cache.
type ProductCache struct {
	store.ProductStore
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewProductCache(next store.ProductStore, rdb redis.UniversalClient) *ProductCache {
	return &ProductCache{ProductStore: next, rdb: rdb, ttl: ProductCacheTTL}
}

// GetProduct : 1. Redis  2. store  3. mise en cache
func (c *ProductCache) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	key := productKey(id)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var p models.Product
		if json.Unmarshal(data, &p) == nil {
			metrics.ProductCacheHits.Inc()
			return &p, nil
		}
	}
	metrics.ProductCacheMisses.Inc()

	p, err := c.ProductStore.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("product_id", id).Msg("⚠️ Mise en cache produit impossible")
		}
	}
	return p, nil
}

func (c *ProductCache) CreateProduct(ctx context.Context, p *models.Product) error {
	if err := c.ProductStore.CreateProduct(ctx, p); err != nil {
		return err
	}
	c.Invalidate(ctx, p.ID)
	return nil
}

// Invalidate retire un produit du cache (mise à jour ou suppression côté catalogue)
func (c *ProductCache) Invalidate(ctx context.Context, productID string) {
	if err := c.rdb.Del(ctx, productKey(productID)).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("⚠️ Invalidation cache produit impossible")
	}
}
