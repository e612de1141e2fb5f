package usecase

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/phenrril/buildmart/internal/domain"
)

const specParamPrefix = "spec."

// FilterFromQuery builds the initial filter state from the page URL. The
// most specific category parameter wins.
func FilterFromQuery(v url.Values, tree *domain.CategoryTree) domain.FilterState {
	st := domain.NewFilterState()
	for _, key := range []string{"subsubcategory", "subcategory", "category"} {
		if c := strings.TrimSpace(v.Get(key)); c != "" {
			if strings.EqualFold(c, domain.AllCategories) {
				break
			}
			st.Category = tree.Canonical(c)
			break
		}
	}
	st.Search = domain.FoldString(strings.TrimSpace(v.Get("search")))
	st.Sort = domain.ParseSortKey(v.Get("sort"))
	if raw := strings.TrimSpace(v.Get("maxPrice")); raw != "" {
		if p, err := strconv.ParseFloat(raw, 64); err == nil && p >= 0 {
			st.MaxPrice = p
		}
	}
	for key, values := range v {
		if !strings.HasPrefix(key, specParamPrefix) {
			continue
		}
		facet := strings.TrimPrefix(key, specParamPrefix)
		if facet == "" {
			continue
		}
		for _, val := range values {
			val = strings.TrimSpace(val)
			if val == "" {
				continue
			}
			set := st.Specifications[facet]
			if set == nil {
				set = map[string]struct{}{}
				st.Specifications[facet] = set
			}
			set[val] = struct{}{}
		}
	}
	return st
}

// QueryFromFilter is the canonical URL query for a filter state. Defaults are
// left out so an untouched listing has an empty query.
func QueryFromFilter(st domain.FilterState, tree *domain.CategoryTree) url.Values {
	v := url.Values{}
	if !st.IsAllCategories() {
		c := tree.Classify(st.Category)
		v.Set(string(c.Field), c.Value)
	}
	if st.Search != "" {
		v.Set("search", st.Search)
	}
	if st.Sort != "" && st.Sort != domain.SortName {
		v.Set("sort", string(st.Sort))
	}
	if st.HasPriceLimit() {
		v.Set("maxPrice", strconv.FormatFloat(st.MaxPrice, 'f', -1, 64))
	}
	for _, facet := range st.ActiveFacets() {
		for _, val := range st.SelectedValues(facet) {
			v.Add(specParamPrefix+facet, val)
		}
	}
	return v
}

// CategoryHint is the category value to pass to Gallery.Load for a URL.
func CategoryHint(v url.Values) string {
	for _, key := range []string{"subsubcategory", "subcategory", "category"} {
		if c := strings.TrimSpace(v.Get(key)); c != "" {
			return c
		}
	}
	return ""
}
