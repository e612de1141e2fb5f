package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/phenrril/buildmart/internal/domain"
)

const DefaultCatalogTTL = 5 * time.Minute

type catalogEntry struct {
	products  []domain.Product
	fetchedAt time.Time
}

// CachedCatalog keeps each query's result for TTL. Failed fetches are not
// cached.
type CachedCatalog struct {
	Source domain.CatalogSource
	TTL    time.Duration

	mu      sync.RWMutex
	entries map[domain.CatalogQuery]catalogEntry
	now     func() time.Time
}

func NewCachedCatalog(src domain.CatalogSource, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CachedCatalog{Source: src, TTL: ttl, entries: map[domain.CatalogQuery]catalogEntry{}, now: time.Now}
}

func (c *CachedCatalog) Fetch(ctx context.Context, q domain.CatalogQuery) ([]domain.Product, error) {
	c.mu.RLock()
	e, ok := c.entries[q]
	c.mu.RUnlock()
	if ok && c.now().Sub(e.fetchedAt) < c.TTL {
		return append([]domain.Product(nil), e.products...), nil
	}

	products, err := c.Source.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[q] = catalogEntry{products: products, fetchedAt: c.now()}
	c.mu.Unlock()
	return append([]domain.Product(nil), products...), nil
}

// Invalidate drops every cached query.
func (c *CachedCatalog) Invalidate() {
	c.mu.Lock()
	c.entries = map[domain.CatalogQuery]catalogEntry{}
	c.mu.Unlock()
}
