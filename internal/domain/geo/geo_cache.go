package geo

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/loci-trip-planner/internal/types"
)

var _ Resolver = (*CachedResolver)(nil)

// CachedResolver remembers successful lookups. Misses are never cached.
type CachedResolver struct {
	next  Resolver
	cache *cache.Cache
}

func NewCachedResolver(next Resolver, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachedResolver) Resolve(ctx context.Context, place string) *locitypes.Coordinates {
	key := strings.ToLower(strings.Join(strings.Fields(place), " "))
	if key == "" {
		return nil
	}
	if v, ok := c.cache.Get(key); ok {
		coords := v.(locitypes.Coordinates)
		return &coords
	}
	coords := c.next.Resolve(ctx, place)
	if coords != nil {
		c.cache.SetDefault(key, *coords)
	}
	return coords
}
