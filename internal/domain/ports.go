package domain

import "context"

// CatalogSource is the read-only product feed. The query is advisory: callers
// re-filter whatever comes back.
type CatalogSource interface {
	Fetch(ctx context.Context, q CatalogQuery) ([]Product, error)
}

type SearchSource interface {
	Search(ctx context.Context, term string) ([]SearchResult, error)
}

// KeyValueStore is the per-visitor persistence service. Get reports ok=false
// for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

type ReceiptExporter interface {
	Export(ctx context.Context, r Receipt) ([]byte, error)
	ContentType() string
}
