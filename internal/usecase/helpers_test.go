package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/phenrril/buildmart/internal/domain"
)

// MockStore is a mock implementation of domain.KeyValueStore
type MockStore struct {
	mock.Mock
}

var _ domain.KeyValueStore = (*MockStore)(nil)

func (m *MockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Set(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockExporter is a mock implementation of domain.ReceiptExporter
type MockExporter struct {
	mock.Mock
}

var _ domain.ReceiptExporter = (*MockExporter)(nil)

func (m *MockExporter) Export(ctx context.Context, r domain.Receipt) ([]byte, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockExporter) ContentType() string { return "application/pdf" }

// memStore is a plain map store for tests that only need persistence.
type memStore struct{ data map[string]string }

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (s *memStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *memStore) Set(_ context.Context, key, value string) error {
	s.data[key] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// funcSource adapts a function to domain.CatalogSource.
type funcSource func(ctx context.Context, q domain.CatalogQuery) ([]domain.Product, error)

func (f funcSource) Fetch(ctx context.Context, q domain.CatalogQuery) ([]domain.Product, error) {
	return f(ctx, q)
}

func staticSource(products ...domain.Product) funcSource {
	return func(context.Context, domain.CatalogQuery) ([]domain.Product, error) {
		return append([]domain.Product(nil), products...), nil
	}
}

func fixtureProducts() []domain.Product {
	return []domain.Product{
		{
			ID: "1", Name: "Ceramic Floor Tile 60x60", Description: "Matt ceramic tile",
			Category: "Tiles", Subcategory: "Floor Tiles", Subsubcategory: "Ceramic Floor Tiles",
			Variants:       []domain.Variant{{Price: 100, Size: "60x60", Color: "Beige"}},
			Images:         map[string][]string{"Beige": {"/img/1-beige.jpg"}},
			Specifications: map[string]string{"Material": "Ceramic", "Finish": "Matt", "Origin": "BD"},
		},
		{
			ID: "2", Name: "Porcelain Tile", Description: "Glossy porcelain",
			Category: "Tiles", Subcategory: "Floor Tiles", Subsubcategory: "Porcelain Floor Tiles",
			Variants:       []domain.Variant{{Price: 250, Size: "60x60"}},
			Specifications: map[string]string{"Material": "Porcelain", "Finish": "Glossy", "Origin": "BD"},
		},
		{
			ID: "3", Name: "basin mixer chrome", Description: "Single lever",
			Category: "Sanitary Ware", Subcategory: "Faucets", Subsubcategory: "Basin Mixers",
			Variants:       []domain.Variant{{Price: 500, Color: "Chrome"}},
			Specifications: map[string]string{"Material": "Brass", "Origin": "BD"},
		},
	}
}

func ids(products []domain.Product) []domain.ProductID {
	out := make([]domain.ProductID, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}
