package usecase

import (
	"sort"
	"strings"

	"github.com/phenrril/buildmart/internal/domain"
)

// DeriveFacets scans specifications and keeps only facets that can split the
// set: at least two distinct non-empty values. Values are sorted.
func DeriveFacets(products []domain.Product) map[string][]string {
	seen := map[string]map[string]struct{}{}
	for _, p := range products {
		for name, value := range p.Specifications {
			name = strings.TrimSpace(name)
			value = strings.TrimSpace(value)
			if name == "" || value == "" {
				continue
			}
			set, ok := seen[name]
			if !ok {
				set = map[string]struct{}{}
				seen[name] = set
			}
			set[value] = struct{}{}
		}
	}
	out := map[string][]string{}
	for name, set := range seen {
		if len(set) < 2 {
			continue
		}
		values := make([]string, 0, len(set))
		for v := range set {
			values = append(values, v)
		}
		sort.Strings(values)
		out[name] = values
	}
	return out
}

// FacetNames returns facet keys in display order.
func FacetNames(facets map[string][]string) []string {
	names := make([]string, 0, len(facets))
	for k := range facets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func matchesFacets(p domain.Product, specs map[string]map[string]struct{}) bool {
	for name, selected := range specs {
		if len(selected) == 0 {
			continue
		}
		value, ok := p.Specifications[name]
		if !ok {
			return false
		}
		if _, hit := selected[strings.TrimSpace(value)]; !hit {
			return false
		}
	}
	return true
}
