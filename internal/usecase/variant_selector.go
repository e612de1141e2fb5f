package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/buildmart/internal/domain"
)

type Dimension string

const (
	DimensionSize  Dimension = "size"
	DimensionColor Dimension = "color"
)

const SelectVariantPlaceholder = "Select a variant"

type AddStatus string

const (
	AddStatusAdded     AddStatus = "added"
	AddStatusDuplicate AddStatus = "duplicate"
)

// AddResult reports what happened to one matching variant on add-to-cart.
type AddResult struct {
	Variant domain.Variant
	Item    domain.LineItem
	Status  AddStatus
}

// VariantSelector holds the size/color selection for one product on the
// details page.
type VariantSelector struct {
	Product domain.Product

	mu         sync.Mutex
	sizes      []string
	colors     []string
	selSizes   map[string]struct{}
	selColors  map[string]struct{}
	imageColor string
	imageIndex int
}

func NewVariantSelector(p domain.Product) *VariantSelector {
	s := &VariantSelector{
		Product:   p,
		selSizes:  map[string]struct{}{},
		selColors: map[string]struct{}{},
	}
	s.sizes = distinct(p.Variants, func(v domain.Variant) string { return v.Size })
	s.colors = distinct(p.Variants, func(v domain.Variant) string { return v.Color })
	// a dimension with a single value is implicitly chosen
	if len(s.sizes) == 1 {
		s.selSizes[s.sizes[0]] = struct{}{}
	}
	if len(s.colors) == 1 {
		s.selColors[s.colors[0]] = struct{}{}
	}
	if dv, ok := p.DefaultVariant(); ok {
		s.imageColor = dv.Color
	}
	return s
}

func distinct(vs []domain.Variant, get func(domain.Variant) string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, v := range vs {
		val := strings.TrimSpace(get(v))
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}

func (s *VariantSelector) Sizes() []string  { return append([]string(nil), s.sizes...) }
func (s *VariantSelector) Colors() []string { return append([]string(nil), s.colors...) }

func (s *VariantSelector) SizeSelectable() bool  { return len(s.sizes) >= 2 }
func (s *VariantSelector) ColorSelectable() bool { return len(s.colors) >= 2 }

func (s *VariantSelector) Selected(dim Dimension, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.set(dim)
	if set == nil {
		return false
	}
	_, ok := set[value]
	return ok
}

func (s *VariantSelector) set(dim Dimension) map[string]struct{} {
	switch dim {
	case DimensionSize:
		return s.selSizes
	case DimensionColor:
		return s.selColors
	}
	return nil
}

// Toggle flips value in the given dimension. Dimensions with fewer than two
// values and values the product does not offer are ignored.
func (s *VariantSelector) Toggle(dim Dimension, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var options []string
	switch dim {
	case DimensionSize:
		options = s.sizes
	case DimensionColor:
		options = s.colors
	default:
		return
	}
	if len(options) < 2 || !contains(options, value) {
		return
	}
	set := s.set(dim)
	if _, on := set[value]; on {
		delete(set, value)
		return
	}
	set[value] = struct{}{}
	if dim == DimensionColor {
		s.imageColor = value
		s.imageIndex = 0
	}
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// MatchingVariants are the variants allowed by the current selection, in
// catalog order.
func (s *VariantSelector) MatchingVariants() []domain.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matching()
}

func (s *VariantSelector) matching() []domain.Variant {
	var out []domain.Variant
	for _, v := range s.Product.Variants {
		if s.SizeSelectable() {
			if _, ok := s.selSizes[strings.TrimSpace(v.Size)]; !ok {
				continue
			}
		}
		if s.ColorSelectable() {
			if _, ok := s.selColors[strings.TrimSpace(v.Color)]; !ok {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

// PriceRange is the min and max price over variants; ok is false for none.
func PriceRange(variants []domain.Variant) (lo, hi float64, ok bool) {
	for i, v := range variants {
		p, _ := safePrice(v.Price).Float64()
		if i == 0 || p < lo {
			lo = p
		}
		if i == 0 || p > hi {
			hi = p
		}
	}
	return lo, hi, len(variants) > 0
}

func (s *VariantSelector) PriceDisplay() string {
	lo, hi, ok := PriceRange(s.MatchingVariants())
	if !ok {
		return SelectVariantPlaceholder
	}
	return FormatPriceRange(lo, hi, s.Product.CurrencyCode())
}

// ChangeImage points the gallery at images[colorKey][index].
func (s *VariantSelector) ChangeImage(colorKey string, index int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageColor = colorKey
	s.imageIndex = index
	return s.Product.ImageAt(colorKey, index)
}

func (s *VariantSelector) CurrentImage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Product.ImageAt(s.imageColor, s.imageIndex)
}

// Thumbnails lists the images shown for the current image color.
// ImagePosition is the color key and index ChangeImage last pointed at.
func (s *VariantSelector) ImagePosition() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageColor, s.imageIndex
}

func (s *VariantSelector) Thumbnails() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.Product.Images[s.imageColor]
	if len(list) == 0 {
		list = s.Product.Images[domain.DefaultImageKey]
	}
	if len(list) == 0 {
		return []string{domain.PlaceholderImage}
	}
	return append([]string(nil), list...)
}

// LineItemFor builds the cart entry for one variant of the product.
func LineItemFor(p domain.Product, v domain.Variant, qty int) domain.LineItem {
	if qty < 1 {
		qty = 1
	}
	price, _ := safePrice(v.Price).Float64()
	return domain.LineItem{
		ProductID:      p.ID,
		Name:           p.Name,
		Price:          price,
		Quantity:       qty,
		Size:           strings.TrimSpace(v.Size),
		Color:          strings.TrimSpace(v.Color),
		Image:          p.ImageAt(v.Color, 0),
		Category:       p.Category,
		Subcategory:    p.Subcategory,
		Subsubcategory: p.Subsubcategory,
	}
}

// AddToCart adds one line item per matching variant. Variants already in the
// cart are reported as duplicates and the rest still go in. A storage failure
// stops the loop and is returned along with the results so far.
func (s *VariantSelector) AddToCart(ctx context.Context, cart *Cart, qty int) ([]AddResult, error) {
	if !s.Product.Available() {
		return nil, domain.ErrOutOfStock
	}
	matching := s.MatchingVariants()
	if len(matching) == 0 {
		return nil, domain.ErrNoVariantSelected
	}
	results := make([]AddResult, 0, len(matching))
	for _, v := range matching {
		item := LineItemFor(s.Product, v, qty)
		err := cart.Add(ctx, item)
		switch {
		case err == nil:
			results = append(results, AddResult{Variant: v, Item: item, Status: AddStatusAdded})
		case errors.Is(err, domain.ErrDuplicateItem):
			log.Debug().Str("product", string(item.ProductID)).Str("variant", item.VariantLabel()).Msg("variant already in cart")
			results = append(results, AddResult{Variant: v, Item: item, Status: AddStatusDuplicate})
		default:
			return results, err
		}
	}
	return results, nil
}
