package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/faciam-dev/guidecms/internal/customfield/registry"
	"github.com/faciam-dev/guidecms/pkg/metrics"
)

// Resolver is the schema source behind the cache.
type Resolver interface {
	Resolve(ctx context.Context, postType string) ([]registry.Field, registry.Source, error)
}

type entry struct {
	fields  []registry.Field
	source  registry.Source
	expires time.Time
}

// Cache keeps resolved schemas per post type for ttl. A ttl of zero disables
// caching and every call goes to the resolver.
type Cache struct {
	next   Resolver
	ttl    time.Duration
	now    func() time.Time
	logger *zap.SugaredLogger

	mu     sync.RWMutex
	byType map[string]entry
}

// New wraps next. logger may be nil.
func New(next Resolver, ttl time.Duration, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Cache{next: next, ttl: ttl, now: time.Now, logger: logger, byType: map[string]entry{}}
}

// Resolve returns the cached schema of postType or loads it.
func (c *Cache) Resolve(ctx context.Context, postType string) ([]registry.Field, registry.Source, error) {
	if c.ttl <= 0 {
		return c.next.Resolve(ctx, postType)
	}
	c.mu.RLock()
	e, ok := c.byType[postType]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expires) {
		metrics.CacheHits.Inc()
		return clone(e.fields), e.source, nil
	}
	metrics.CacheMisses.Inc()
	fields, src, err := c.next.Resolve(ctx, postType)
	if err != nil {
		return nil, "", err
	}
	c.mu.Lock()
	c.byType[postType] = entry{fields: clone(fields), source: src, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()
	c.logger.Debugw("schema cached", "post_type", postType, "fields", len(fields), "source", src)
	return fields, src, nil
}

// Invalidate drops postType, or every entry when no post type is given.
func (c *Cache) Invalidate(postTypes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(postTypes) == 0 {
		c.byType = map[string]entry{}
		c.logger.Debugw("schema cache cleared")
		return
	}
	for _, pt := range postTypes {
		delete(c.byType, pt)
	}
	c.logger.Debugw("schema cache invalidated", "post_types", postTypes)
}

func clone(in []registry.Field) []registry.Field {
	if in == nil {
		return nil
	}
	out := make([]registry.Field, len(in))
	copy(out, in)
	return out
}
