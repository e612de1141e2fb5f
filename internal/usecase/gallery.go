package usecase

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/buildmart/internal/domain"
)

// Gallery is the catalog store behind the product listing: the loaded
// products, the filter state and the facets derived from them.
type Gallery struct {
	Source domain.CatalogSource
	Tree   *domain.CategoryTree

	mu       sync.Mutex
	products []domain.Product
	filter   domain.FilterState
	facets   map[string][]string
	seq      uint64
	inflight int
	loadErr  error
}

func NewGallery(src domain.CatalogSource, tree *domain.CategoryTree) *Gallery {
	if tree == nil {
		tree = domain.DefaultCategoryTree()
	}
	return &Gallery{Source: src, Tree: tree, filter: domain.NewFilterState(), facets: map[string][]string{}}
}

// Load replaces the product list. hint is a category name (any level) that
// is forwarded to the source as an advisory pre-filter. On failure the
// previous products stay in place. Results of a load that has since been
// superseded are dropped with ErrStaleResponse.
func (g *Gallery) Load(ctx context.Context, hint string) error {
	g.mu.Lock()
	g.seq++
	token := g.seq
	g.inflight++
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()

	q := domain.CatalogQuery{}
	if h := strings.TrimSpace(hint); h != "" && !strings.EqualFold(h, domain.AllCategories) {
		c := g.Tree.Classify(h)
		q = domain.CatalogQuery{Field: c.Field, Value: c.Value}
	}

	products, err := g.Source.Fetch(ctx, q)

	g.mu.Lock()
	defer g.mu.Unlock()
	if token != g.seq {
		log.Debug().Uint64("token", token).Uint64("latest", g.seq).Msg("gallery: stale catalog response dropped")
		return domain.ErrStaleResponse
	}
	if err != nil {
		g.loadErr = fmt.Errorf("%w: %v", domain.ErrDataLoad, err)
		return g.loadErr
	}
	g.loadErr = nil
	g.products = products
	g.facets = DeriveFacets(products)
	for name := range g.filter.Specifications {
		if _, ok := g.facets[name]; !ok {
			delete(g.filter.Specifications, name)
		}
	}
	return nil
}

func (g *Gallery) Loading() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight > 0
}

// LoadError is the error of the latest completed load, if it failed.
func (g *Gallery) LoadError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loadErr
}

func (g *Gallery) SetFilter(p domain.FilterPatch) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applyPatch(p)
}

func (g *Gallery) applyPatch(p domain.FilterPatch) {
	if p.Category != nil {
		c := strings.TrimSpace(*p.Category)
		if c == "" || strings.EqualFold(c, domain.AllCategories) {
			g.filter.Category = domain.AllCategories
		} else {
			g.filter.Category = g.Tree.Canonical(c)
		}
	}
	if p.MaxPrice != nil {
		v := *p.MaxPrice
		switch {
		case math.IsNaN(v):
		case v < 0:
			g.filter.MaxPrice = 0
		default:
			g.filter.MaxPrice = v
		}
	}
	if p.Search != nil {
		g.filter.Search = domain.FoldString(strings.TrimSpace(*p.Search))
	}
	if p.Sort != nil {
		g.filter.Sort = domain.ParseSortKey(string(*p.Sort))
	}
}

// ApplyQuery seeds the filter from URL query parameters.
func (g *Gallery) ApplyQuery(v url.Values) {
	st := FilterFromQuery(v, g.Tree)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = st
}

// ToggleSpecification adds or removes a facet value. Removing the last value
// deletes the facet key.
func (g *Gallery) ToggleSpecification(facet, value string, selected bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	set := g.filter.Specifications[facet]
	if selected {
		if set == nil {
			set = map[string]struct{}{}
			g.filter.Specifications[facet] = set
		}
		set[value] = struct{}{}
		return
	}
	if set == nil {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(g.filter.Specifications, facet)
	}
}

// ClearSpecifications drops every facet selection and returns the new view.
func (g *Gallery) ClearSpecifications() []domain.Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter.Specifications = map[string]map[string]struct{}{}
	return g.computeView()
}

func (g *Gallery) State() domain.FilterState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filter.Clone()
}

func (g *Gallery) Products() []domain.Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.Product(nil), g.products...)
}

func (g *Gallery) Facets() map[string][]string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string][]string, len(g.facets))
	for k, v := range g.facets {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (g *Gallery) Product(id domain.ProductID) (domain.Product, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, p := range g.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrNotFound
}

// PriceBounds is the min and max default-variant price of the loaded set.
func (g *Gallery) PriceBounds() (float64, float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.products) == 0 {
		return 0, 0
	}
	lo, hi := math.MaxFloat64, 0.0
	for _, p := range g.products {
		pr := p.Price()
		if pr < lo {
			lo = pr
		}
		if pr > hi {
			hi = pr
		}
	}
	return lo, hi
}

func (g *Gallery) ComputeView() []domain.Product {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.computeView()
}

func (g *Gallery) computeView() []domain.Product {
	return FilterProducts(g.products, g.filter, g.Tree)
}

// FilterProducts applies every filter dimension, then a stable sort.
func FilterProducts(products []domain.Product, f domain.FilterState, tree *domain.CategoryTree) []domain.Product {
	var cls domain.Classification
	byCategory := !f.IsAllCategories()
	if byCategory {
		cls = tree.Classify(f.Category)
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Price() > f.MaxPrice {
			continue
		}
		if f.Search != "" && !matchesSearch(p, f.Search) {
			continue
		}
		if byCategory && !domain.EqualName(p.Field(cls.Field), cls.Value) {
			continue
		}
		if !matchesFacets(p, f.Specifications) {
			continue
		}
		out = append(out, p)
	}
	SortProducts(out, f.Sort)
	return out
}

func matchesSearch(p domain.Product, folded string) bool {
	for _, field := range []string{p.Name, p.Description, p.Category, p.Subcategory, p.Subsubcategory} {
		if field != "" && strings.Contains(domain.FoldString(field), folded) {
			return true
		}
	}
	return false
}

// SortProducts sorts in place; equal keys keep their original order.
func SortProducts(products []domain.Product, key domain.SortKey) {
	switch key {
	case domain.SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price() < products[j].Price() })
	case domain.SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Price() > products[j].Price() })
	case domain.SortCategory:
		sort.SliceStable(products, func(i, j int) bool { return products[i].Category < products[j].Category })
	default:
		sort.SliceStable(products, func(i, j int) bool {
			return domain.FoldString(products[i].Name) < domain.FoldString(products[j].Name)
		})
	}
}
