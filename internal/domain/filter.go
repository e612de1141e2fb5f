package domain

import (
	"math"
	"sort"
	"strings"
)

type SortKey string

const (
	SortName      SortKey = "name"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortCategory  SortKey = "category"
)

// NoPriceLimit is the ceiling used until the shopper moves the price slider.
const NoPriceLimit = math.MaxFloat64

func ParseSortKey(s string) SortKey {
	switch SortKey(strings.TrimSpace(strings.ToLower(s))) {
	case SortPriceLow:
		return SortPriceLow
	case SortPriceHigh:
		return SortPriceHigh
	case SortCategory:
		return SortCategory
	default:
		return SortName
	}
}

type FilterState struct {
	Category       string
	MaxPrice       float64
	Search         string
	Sort           SortKey
	Specifications map[string]map[string]struct{}
}

func NewFilterState() FilterState {
	return FilterState{
		Category:       AllCategories,
		MaxPrice:       NoPriceLimit,
		Sort:           SortName,
		Specifications: map[string]map[string]struct{}{},
	}
}

// Clone deep-copies the specification sets.
func (f FilterState) Clone() FilterState {
	out := f
	out.Specifications = make(map[string]map[string]struct{}, len(f.Specifications))
	for k, set := range f.Specifications {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out.Specifications[k] = cp
	}
	return out
}

func (f FilterState) HasPriceLimit() bool { return f.MaxPrice < NoPriceLimit }

func (f FilterState) IsAllCategories() bool {
	return f.Category == "" || strings.EqualFold(f.Category, AllCategories)
}

// ActiveFacets lists facet names with a non-empty selection, sorted.
func (f FilterState) ActiveFacets() []string {
	out := make([]string, 0, len(f.Specifications))
	for k, set := range f.Specifications {
		if len(set) > 0 {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// SelectedValues returns the sorted selection for a facet.
func (f FilterState) SelectedValues(facet string) []string {
	set := f.Specifications[facet]
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// FilterPatch is a partial update; nil fields are left untouched.
type FilterPatch struct {
	Category *string
	MaxPrice *float64
	Search   *string
	Sort     *SortKey
}
