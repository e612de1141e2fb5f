package usecase

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/phenrril/buildmart/internal/domain"
)

type OptionView struct {
	Value    string
	HexColor string
	Selected bool
}

// Thumb links to the details page with that image shown.
type Thumb struct {
	Src    string
	URL    string
	Active bool
}

type SpecRow struct {
	Name  string
	Value string
}

// ProductView is the details page.
type ProductView struct {
	Product         domain.Product
	PriceText       string
	CanAdd          bool
	Available       bool
	Image           string
	Thumbnails      []string
	Thumbs          []Thumb
	Sizes           []OptionView
	Colors          []OptionView
	SizeSelectable  bool
	ColorSelectable bool
	Specs           []SpecRow
	Breadcrumb      []Crumb
	Query           string
}

func ProjectProduct(s *VariantSelector, tree *domain.CategoryTree, basePath string) ProductView {
	p := s.Product
	v := ProductView{
		Product:         p,
		PriceText:       s.PriceDisplay(),
		Available:       p.Available(),
		Image:           s.CurrentImage(),
		Thumbnails:      s.Thumbnails(),
		SizeSelectable:  s.SizeSelectable(),
		ColorSelectable: s.ColorSelectable(),
	}
	v.CanAdd = v.Available && len(s.MatchingVariants()) > 0

	hex := map[string]string{}
	for _, vr := range p.Variants {
		if vr.Color != "" && vr.HexColor != "" {
			hex[vr.Color] = vr.HexColor
		}
	}
	for _, size := range s.Sizes() {
		v.Sizes = append(v.Sizes, OptionView{Value: size, Selected: s.Selected(DimensionSize, size)})
	}
	for _, color := range s.Colors() {
		v.Colors = append(v.Colors, OptionView{Value: color, HexColor: hex[color], Selected: s.Selected(DimensionColor, color)})
	}

	for name, val := range p.Specifications {
		v.Specs = append(v.Specs, SpecRow{Name: name, Value: val})
	}
	sort.Slice(v.Specs, func(i, j int) bool { return v.Specs[i].Name < v.Specs[j].Name })

	st := domain.NewFilterState()
	st.Category = firstNonEmpty(p.Subsubcategory, p.Subcategory, p.Category, domain.AllCategories)
	v.Breadcrumb = buildBreadcrumb(tree, st, basePath)
	v.Breadcrumb[len(v.Breadcrumb)-1].Active = false
	v.Breadcrumb = append(v.Breadcrumb, Crumb{Name: p.Name, Active: true})

	q := url.Values{}
	q.Set("id", string(p.ID))
	for _, o := range v.Sizes {
		if o.Selected && v.SizeSelectable {
			q.Add("size", o.Value)
		}
	}
	for _, o := range v.Colors {
		if o.Selected && v.ColorSelectable {
			q.Add("color", o.Value)
		}
	}
	v.Query = q.Encode()

	key, cur := s.ImagePosition()
	for i, src := range v.Thumbnails {
		tq := url.Values{}
		for k, vals := range q {
			tq[k] = append([]string(nil), vals...)
		}
		tq.Set("image", firstNonEmpty(key, domain.DefaultImageKey))
		tq.Set("index", strconv.Itoa(i))
		v.Thumbs = append(v.Thumbs, Thumb{Src: src, URL: "/product?" + tq.Encode(), Active: i == cur})
	}
	return v
}

// ApplySelection restores size/color picks carried in the page URL.
func (s *VariantSelector) ApplySelection(q url.Values) {
	for _, size := range q["size"] {
		if !s.Selected(DimensionSize, size) {
			s.Toggle(DimensionSize, size)
		}
	}
	for _, color := range q["color"] {
		if !s.Selected(DimensionColor, color) {
			s.Toggle(DimensionColor, color)
		}
	}
}
