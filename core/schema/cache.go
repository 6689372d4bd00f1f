package schema

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sheet-reconciler/core/mapping"

	"golang.org/x/sync/singleflight"
)

// ModelSource provides resolved models by mapping document path.
type ModelSource interface {
	Get(ctx context.Context, path string) (*Model, error)
}

// cachedModel is a resolved model with its build time.
type cachedModel struct {
	model *Model
	built time.Time
}

// Cache holds resolved models keyed by mapping document path, rebuilding them after TTL.
type Cache struct {
	resolver *Resolver
	ttl      time.Duration
	load     func(path string) (*mapping.Document, error)

	mu     sync.RWMutex
	models map[string]cachedModel
	sf     singleflight.Group
}

// NewCache creates a cache over resolver. A zero ttl disables caching.
func NewCache(resolver *Resolver, ttl time.Duration) *Cache {
	return &Cache{
		resolver: resolver,
		ttl:      ttl,
		load:     mapping.Load,
		models:   make(map[string]cachedModel),
	}
}

func (c *Cache) expired(m cachedModel) bool {
	if c.ttl == 0 {
		return true // No caching
	}
	return time.Since(m.built) > c.ttl
}

// Get returns the resolved model for the document at path, loading and resolving it if needed.
// Concurrent callers share a single build.
func (c *Cache) Get(ctx context.Context, path string) (*Model, error) {
	// Fast path
	c.mu.RLock()
	cached, ok := c.models[path]
	c.mu.RUnlock()
	if ok && !c.expired(cached) {
		return cached.model, nil
	}

	result, err, _ := c.sf.Do(path, func() (any, error) {
		// Double-check after acquiring the flight
		c.mu.RLock()
		cached, ok := c.models[path]
		c.mu.RUnlock()
		if ok && !c.expired(cached) {
			return cached.model, nil
		}

		doc, err := c.load(path)
		if err != nil {
			return nil, err
		}
		model, err := c.resolver.Resolve(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		c.mu.Lock()
		c.models[path] = cachedModel{model: model, built: time.Now()}
		c.mu.Unlock()
		return model, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Model), nil
}

// Invalidate drops the cached model for path.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	delete(c.models, path)
	c.mu.Unlock()
}
