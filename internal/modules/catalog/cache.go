package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	listKeyActive = "catalog:products:active"
	listKeyAll    = "catalog:products:all"
)

// cachedRepo is a cache-aside wrapper for product listings. Single-product
// reads go straight to the underlying repository so stock stays current.
type cachedRepo struct {
	next  Repository
	rdb   redis.Cmdable
	ttl   time.Duration
	group singleflight.Group
	log   zerolog.Logger
}

func NewCachedRepository(next Repository, rdb redis.Cmdable, ttl time.Duration, logger zerolog.Logger) Repository {
	return &cachedRepo{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  logger.With().Str("component", "catalog.cache").Logger(),
	}
}

func listKey(activeOnly bool) string {
	if activeOnly {
		return listKeyActive
	}
	return listKeyAll
}

func (c *cachedRepo) List(ctx context.Context, activeOnly bool) ([]*Product, error) {
	key := listKey(activeOnly)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var products []*Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		c.log.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		products, err := c.next.List(ctx, activeOnly)
		if err != nil {
			return nil, err
		}
		if encoded, err := json.Marshal(products); err == nil {
			if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
				c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*Product), nil
}

func (c *cachedRepo) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	return c.next.GetByID(ctx, id)
}

func (c *cachedRepo) Create(ctx context.Context, p *Product) error {
	if err := c.next.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *cachedRepo) Update(ctx context.Context, p *Product) error {
	if err := c.next.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *cachedRepo) invalidate(ctx context.Context) {
	if err := c.rdb.Del(ctx, listKeyActive, listKeyAll).Err(); err != nil {
		c.log.Warn().Err(err).Msg("cache invalidation failed")
	}
}
