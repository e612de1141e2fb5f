package kv

import (
	"context"

	"github.com/phenrril/buildmart/internal/domain"
)

// Namespaced gives one visitor a private view of a shared store.
type Namespaced struct {
	Store  domain.KeyValueStore
	Prefix string
}

// ForVisitor scopes store to the visitor's session id.
func ForVisitor(store domain.KeyValueStore, visitorID string) *Namespaced {
	return &Namespaced{Store: store, Prefix: "visitor:" + visitorID + ":"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, bool, error) {
	return n.Store.Get(ctx, n.Prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.Store.Set(ctx, n.Prefix+key, value)
}

func (n *Namespaced) Delete(ctx context.Context, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = n.Prefix + k
	}
	return n.Store.Delete(ctx, full...)
}
