package usecase

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/buildmart/internal/domain"
)

func wallTile() domain.Product {
	return domain.Product{
		ID: "7", Name: "Glazed Wall Tile",
		Category: "Tiles", Subcategory: "Wall Tiles", Subsubcategory: "Kitchen Wall Tiles",
		Variants: []domain.Variant{
			{Price: 100, Size: "M", Color: "Red"},
			{Price: 120, Size: "L", Color: "Red"},
			{Price: 110, Size: "M", Color: "Blue"},
		},
		Images: map[string][]string{
			"Red":     {"/img/red-0.jpg", "/img/red-1.jpg"},
			"default": {"/img/default-0.jpg"},
		},
		Specifications: map[string]string{"Finish": "Glossy", "Material": "Ceramic"},
	}
}

func TestNewVariantSelector_Dimensions(t *testing.T) {
	s := NewVariantSelector(wallTile())
	assert.Equal(t, []string{"M", "L"}, s.Sizes())
	assert.Equal(t, []string{"Red", "Blue"}, s.Colors())
	assert.True(t, s.SizeSelectable())
	assert.True(t, s.ColorSelectable())
	assert.Empty(t, s.MatchingVariants())
	assert.Equal(t, SelectVariantPlaceholder, s.PriceDisplay())
}

func TestNewVariantSelector_SingleValueImplicitlySelected(t *testing.T) {
	p := domain.Product{ID: "9", Name: "Cement Bag", Variants: []domain.Variant{
		{Price: 550, Size: "50kg"},
		{Price: 560, Size: "50kg"},
	}}
	s := NewVariantSelector(p)
	assert.False(t, s.SizeSelectable())
	assert.True(t, s.Selected(DimensionSize, "50kg"))

	// toggling a fixed dimension is a no-op
	s.Toggle(DimensionSize, "50kg")
	assert.True(t, s.Selected(DimensionSize, "50kg"))
	assert.Len(t, s.MatchingVariants(), 2)
	assert.Equal(t, "BDT 550.00 – 560.00", s.PriceDisplay())
}

func TestToggle_NarrowsMatchingVariants(t *testing.T) {
	s := NewVariantSelector(wallTile())
	s.Toggle(DimensionSize, "M")
	assert.Empty(t, s.MatchingVariants())

	s.Toggle(DimensionColor, "Red")
	require.Len(t, s.MatchingVariants(), 1)
	assert.Equal(t, "BDT 100.00", s.PriceDisplay())

	s.Toggle(DimensionColor, "Blue")
	assert.Len(t, s.MatchingVariants(), 2)

	s.Toggle(DimensionColor, "Red")
	assert.False(t, s.Selected(DimensionColor, "Red"))

	s.Toggle(DimensionColor, "Green")
	assert.False(t, s.Selected(DimensionColor, "Green"))
}

func TestVariantSelector_ImageFallbacks(t *testing.T) {
	s := NewVariantSelector(wallTile())
	assert.Equal(t, "/img/red-0.jpg", s.CurrentImage())
	assert.Equal(t, "/img/red-1.jpg", s.ChangeImage("Red", 1))

	s.Toggle(DimensionColor, "Blue")
	assert.Equal(t, "/img/default-0.jpg", s.CurrentImage())
	assert.Equal(t, []string{"/img/default-0.jpg"}, s.Thumbnails())

	assert.Equal(t, domain.PlaceholderImage, s.ChangeImage("Blue", 5))
	assert.Equal(t, domain.PlaceholderImage, domain.Product{}.ImageAt("", 0))
}

func TestApplySelection(t *testing.T) {
	s := NewVariantSelector(wallTile())
	s.ApplySelection(url.Values{"size": {"L"}, "color": {"Red", "Pink"}})
	assert.True(t, s.Selected(DimensionSize, "L"))
	assert.True(t, s.Selected(DimensionColor, "Red"))
	assert.False(t, s.Selected(DimensionColor, "Pink"))
	assert.Len(t, s.MatchingVariants(), 1)
}

func TestAddToCart_ReportsDuplicatesAndAddsTheRest(t *testing.T) {
	ctx := context.Background()
	cart := OpenCart(ctx, newMemStore())
	s := NewVariantSelector(wallTile())
	s.Toggle(DimensionSize, "M")
	s.Toggle(DimensionColor, "Red")
	_, err := s.AddToCart(ctx, cart, 1)
	require.NoError(t, err)

	s.Toggle(DimensionColor, "Blue")
	results, err := s.AddToCart(ctx, cart, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, AddStatusDuplicate, results[0].Status)
	assert.Equal(t, AddStatusAdded, results[1].Status)
	assert.Equal(t, "M / Blue", results[1].Item.VariantLabel())
	assert.Equal(t, 2, cart.Len())
	assert.Equal(t, 3, cart.Count())
}

func TestAddToCart_RequiresSelection(t *testing.T) {
	ctx := context.Background()
	s := NewVariantSelector(wallTile())
	_, err := s.AddToCart(ctx, OpenCart(ctx, newMemStore()), 1)
	assert.ErrorIs(t, err, domain.ErrNoVariantSelected)
}

func TestAddToCart_OutOfStock(t *testing.T) {
	ctx := context.Background()
	p := wallTile()
	zero := 0
	p.Stock = &zero
	s := NewVariantSelector(p)
	s.Toggle(DimensionSize, "M")
	s.Toggle(DimensionColor, "Red")

	cart := OpenCart(ctx, newMemStore())
	_, err := s.AddToCart(ctx, cart, 1)
	assert.ErrorIs(t, err, domain.ErrOutOfStock)
	assert.Zero(t, cart.Len())
}

func TestLineItemFor(t *testing.T) {
	p := wallTile()
	item := LineItemFor(p, p.Variants[1], 0)
	assert.Equal(t, domain.LineItem{
		ProductID: "7", Name: "Glazed Wall Tile", Price: 120, Quantity: 1,
		Size: "L", Color: "Red", Image: "/img/red-0.jpg",
		Category: "Tiles", Subcategory: "Wall Tiles", Subsubcategory: "Kitchen Wall Tiles",
	}, item)
}
