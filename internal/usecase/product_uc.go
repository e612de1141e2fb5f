package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/phenrril/buildmart/internal/domain"
)

// ProductUC answers host-side catalog lookups: the details page and the
// search endpoint.
type ProductUC struct {
	Products domain.CatalogSource
}

func (uc *ProductUC) List(ctx context.Context) ([]domain.Product, error) {
	return uc.Products.Fetch(ctx, domain.CatalogQuery{})
}

func (uc *ProductUC) Get(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	if strings.TrimSpace(string(id)) == "" {
		return domain.Product{}, fmt.Errorf("empty product id: %w", domain.ErrNotFound)
	}
	if repo, ok := uc.Products.(interface {
		FindByID(context.Context, domain.ProductID) (domain.Product, error)
	}); ok {
		return repo.FindByID(ctx, id)
	}
	products, err := uc.List(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

// Search matches term against name, description and classification. Sources
// with their own search endpoint answer directly.
func (uc *ProductUC) Search(ctx context.Context, term string) ([]domain.SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.SearchResult{}, nil
	}
	if src, ok := uc.Products.(domain.SearchSource); ok {
		return src.Search(ctx, term)
	}
	products, err := uc.List(ctx)
	if err != nil {
		return nil, err
	}
	folded := domain.FoldString(term)
	out := []domain.SearchResult{}
	for _, p := range products {
		if !matchesSearch(p, folded) {
			continue
		}
		out = append(out, ToSearchResult(p))
		if len(out) == MaxSearchResults {
			break
		}
	}
	return out, nil
}

func ToSearchResult(p domain.Product) domain.SearchResult {
	imgs := p.Images[domain.DefaultImageKey]
	if dv, ok := p.DefaultVariant(); ok && len(p.Images[dv.Color]) > 0 {
		imgs = p.Images[dv.Color]
	}
	return domain.SearchResult{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price(),
		Currency:       p.CurrencyCode(),
		Category:       p.Category,
		Subcategory:    p.Subcategory,
		Subsubcategory: p.Subsubcategory,
		Images:         append([]string(nil), imgs...),
	}
}
