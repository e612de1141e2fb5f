package usecase

import (
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/phenrril/buildmart/internal/domain"
)

type ProductCard struct {
	ID        domain.ProductID
	Name      string
	Price     float64
	PriceText string
	Currency  string
	Image     string
	Category  string
	Available bool
	URL       string
}

type Crumb struct {
	Name   string
	URL    string
	Active bool
}

type FacetOption struct {
	Value    string
	Selected bool
}

type FacetView struct {
	Name    string
	Options []FacetOption
}

// GalleryView is everything the listing page renders. Exactly one of the
// grid and the empty state is shown.
type GalleryView struct {
	Cards         []ProductCard
	Showing       int
	Total         int
	ResultText    string
	FilterSummary string
	Breadcrumb    []Crumb
	Facets        []FacetView
	Empty         bool
	EmptyMessage  string
	Loading       bool
	Error         string
	RetryURL      string
	Query         string
	State         domain.FilterState
	PriceMin      float64
	PriceMax      float64
	// SliderMax is PriceMax rounded up so the slider's top stop never cuts
	// off the dearest product. SliderValue sits at SliderMax until the
	// shopper sets a limit below it.
	SliderMax   float64
	SliderValue float64
}

func (v GalleryView) ShowGrid() bool { return !v.Empty }

// ProjectGallery renders the gallery's current state into a view.
func ProjectGallery(g *Gallery, basePath string) GalleryView {
	view := g.ComputeView()
	st := g.State()
	total := len(g.Products())
	lo, hi := g.PriceBounds()
	q := QueryFromFilter(st, g.Tree)

	v := GalleryView{
		Showing:  len(view),
		Total:    total,
		Loading:  g.Loading(),
		Query:    q.Encode(),
		State:    st,
		PriceMin: lo,
		PriceMax: hi,
	}
	v.SliderMax = math.Ceil(hi)
	v.SliderValue = v.SliderMax
	if st.HasPriceLimit() && st.MaxPrice < v.SliderMax {
		v.SliderValue = st.MaxPrice
	}
	v.ResultText = fmt.Sprintf("Showing %d of %d products", v.Showing, v.Total)
	v.Cards = make([]ProductCard, 0, len(view))
	for _, p := range view {
		v.Cards = append(v.Cards, ProductCard{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price(),
			PriceText: FormatPrice(p.Price(), p.CurrencyCode()),
			Currency:  p.CurrencyCode(),
			Image:     p.CoverImage(),
			Category:  firstNonEmpty(p.Subsubcategory, p.Subcategory, p.Category),
			Available: p.Available(),
			URL:       "/product?id=" + url.QueryEscape(string(p.ID)),
		})
	}
	v.Empty = len(v.Cards) == 0
	if v.Empty {
		v.EmptyMessage = "No products match the current filters."
	}
	v.FilterSummary = FilterSummary(st)
	v.Breadcrumb = buildBreadcrumb(g.Tree, st, basePath)
	v.Facets = facetViews(g.Facets(), st)

	if g.LoadError() != nil {
		v.Error = "We could not load the catalog right now."
		v.RetryURL = basePath
		if v.Query != "" {
			v.RetryURL += "?" + v.Query
		}
	}
	return v
}

// FilterSummary describes the active filters in one line.
func FilterSummary(st domain.FilterState) string {
	parts := []string{}
	if !st.IsAllCategories() {
		parts = append(parts, "Category: "+st.Category)
	}
	if st.Search != "" {
		parts = append(parts, fmt.Sprintf("Search: %q", st.Search))
	}
	if st.HasPriceLimit() {
		parts = append(parts, "Up to "+FormatPrice(st.MaxPrice, domain.DefaultCurrency))
	}
	for _, facet := range st.ActiveFacets() {
		parts = append(parts, facet+": "+strings.Join(st.SelectedValues(facet), ", "))
	}
	if len(parts) == 0 {
		return "No filters applied"
	}
	return strings.Join(parts, " · ")
}

func buildBreadcrumb(tree *domain.CategoryTree, st domain.FilterState, basePath string) []Crumb {
	crumbs := []Crumb{{Name: "All Products", URL: basePath}}
	path := tree.PathOf(st.Category)
	if len(path) == 0 && !st.IsAllCategories() {
		// not in the tree: still show what the shopper filtered on
		path = []string{st.Category}
	}
	for _, name := range path {
		only := domain.NewFilterState()
		only.Category = name
		q := QueryFromFilter(only, tree)
		crumbs = append(crumbs, Crumb{Name: name, URL: basePath + "?" + q.Encode()})
	}
	crumbs[len(crumbs)-1].Active = true
	return crumbs
}

func facetViews(facets map[string][]string, st domain.FilterState) []FacetView {
	out := make([]FacetView, 0, len(facets))
	for _, name := range FacetNames(facets) {
		fv := FacetView{Name: name}
		selected := st.Specifications[name]
		for _, val := range facets[name] {
			_, on := selected[val]
			fv.Options = append(fv.Options, FacetOption{Value: val, Selected: on})
		}
		out = append(out, fv)
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
