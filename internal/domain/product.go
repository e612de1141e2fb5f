package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

const (
	DefaultCurrency  = "BDT"
	DefaultImageKey  = "default"
	PlaceholderImage = "/public/img/placeholder.png"
)

// ProductID is the opaque catalog identifier. Feeds send it either as a JSON
// string or as a number; both decode to the same textual form.
type ProductID string

func (id *ProductID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProductID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("product id: expected string or number")
	}
	*id = ProductID(n.String())
	return nil
}

func (id ProductID) String() string { return string(id) }

type Variant struct {
	Price    float64 `json:"price"`
	Size     string  `json:"size,omitempty"`
	Color    string  `json:"color,omitempty"`
	HexColor string  `json:"hexColor,omitempty"`
}

type Product struct {
	ID             ProductID           `json:"id"`
	Name           string              `json:"name"`
	Description    string              `json:"description,omitempty"`
	Category       string              `json:"category,omitempty"`
	Subcategory    string              `json:"subcategory,omitempty"`
	Subsubcategory string              `json:"subsubcategory,omitempty"`
	Variants       []Variant           `json:"variants"`
	Images         map[string][]string `json:"images,omitempty"`
	Specifications map[string]string   `json:"specifications,omitempty"`
	Currency       string              `json:"currency,omitempty"`
	// Stock is nil when the feed does not track inventory.
	Stock *int `json:"stock,omitempty"`
}

// DefaultVariant is the first variant; it drives list price and card image.
func (p Product) DefaultVariant() (Variant, bool) {
	if len(p.Variants) == 0 {
		return Variant{}, false
	}
	return p.Variants[0], true
}

func (p Product) Price() float64 {
	v, ok := p.DefaultVariant()
	if !ok {
		return 0
	}
	return v.Price
}

func (p Product) CurrencyCode() string {
	c := strings.TrimSpace(p.Currency)
	if c == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(c)
}

func (p Product) Available() bool {
	return p.Stock == nil || *p.Stock > 0
}

// Field returns the product's classification value for the given level field.
func (p Product) Field(f CategoryField) string {
	switch f {
	case FieldCategory:
		return p.Category
	case FieldSubcategory:
		return p.Subcategory
	default:
		return p.Subsubcategory
	}
}

// ImageAt resolves images[colorKey][index], then images["default"][index],
// then the placeholder. It never returns an empty string.
func (p Product) ImageAt(colorKey string, index int) string {
	if index < 0 {
		index = 0
	}
	if colorKey != "" {
		if list := p.Images[colorKey]; index < len(list) && strings.TrimSpace(list[index]) != "" {
			return list[index]
		}
	}
	if list := p.Images[DefaultImageKey]; index < len(list) && strings.TrimSpace(list[index]) != "" {
		return list[index]
	}
	return PlaceholderImage
}

// CoverImage is the card thumbnail: the default variant's color, then "default".
func (p Product) CoverImage() string {
	v, _ := p.DefaultVariant()
	return p.ImageAt(v.Color, 0)
}

// CatalogQuery is the advisory server-side pre-filter sent to a catalog source.
// An empty Value means "everything".
type CatalogQuery struct {
	Field CategoryField
	Value string
}

type SearchResult struct {
	ID             ProductID `json:"id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Currency       string    `json:"currency"`
	Category       string    `json:"category,omitempty"`
	Subcategory    string    `json:"subcategory,omitempty"`
	Subsubcategory string    `json:"subsubcategory,omitempty"`
	Images         []string  `json:"images,omitempty"`
}
