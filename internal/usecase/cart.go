package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/buildmart/internal/domain"
)

// Cart is the visitor's ordered list of line items. Every mutation writes
// the whole list back to the store under domain.KeyCartItems.
type Cart struct {
	Store domain.KeyValueStore

	mu    sync.Mutex
	items []domain.LineItem
}

// OpenCart reads the persisted cart. A missing, unreadable or corrupt value
// yields an empty cart.
func OpenCart(ctx context.Context, store domain.KeyValueStore) *Cart {
	c := &Cart{Store: store}
	c.items = readItems(ctx, store, domain.KeyCartItems)
	return c
}

func readItems(ctx context.Context, store domain.KeyValueStore, key string) []domain.LineItem {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cart: read failed, using empty list")
		return nil
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	var items []domain.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cart: corrupt value, using empty list")
		return nil
	}
	out := items[:0]
	for _, it := range items {
		if it.ProductID == "" {
			continue
		}
		if it.Quantity < 1 {
			it.Quantity = 1
		}
		out = append(out, it)
	}
	return out
}

func (c *Cart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.LineItem(nil), c.items...)
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Count is the sum of quantities, shown on the cart badge.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Has reports whether the (productId, size, color) key is already present.
func (c *Cart) Has(item domain.LineItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.indexOfVariant(item) >= 0
}

func (c *Cart) indexOfVariant(item domain.LineItem) int {
	for i, it := range c.items {
		if it.SameVariant(item) {
			return i
		}
	}
	return -1
}

// Add appends a new line item. An item with the same variant key is rejected
// with ErrDuplicateItem and the cart is left unchanged.
func (c *Cart) Add(ctx context.Context, item domain.LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexOfVariant(item) >= 0 {
		return domain.ErrDuplicateItem
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	prev := c.items
	c.items = append(append([]domain.LineItem(nil), c.items...), item)
	return c.commit(ctx, prev)
}

// IncrementOrAdd is the catalog-grid quick add: any existing line for the
// product (whatever its size and color) gains one unit, otherwise defaults
// is appended with quantity 1.
func (c *Cart) IncrementOrAdd(ctx context.Context, productID domain.ProductID, defaults domain.LineItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.items
	next := append([]domain.LineItem(nil), c.items...)
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity++
			c.items = next
			return c.commit(ctx, prev)
		}
	}
	defaults.ProductID = productID
	defaults.Quantity = 1
	c.items = append(next, defaults)
	return c.commit(ctx, prev)
}

// ChangeQuantity adds delta to the item at index, never going below 1.
// Out-of-range indexes are ignored.
func (c *Cart) ChangeQuantity(ctx context.Context, index, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.items) {
		return nil
	}
	prev := c.items
	next := append([]domain.LineItem(nil), c.items...)
	q := next[index].Quantity + delta
	if q < 1 {
		q = 1
	}
	next[index].Quantity = q
	c.items = next
	return c.commit(ctx, prev)
}

// Remove deletes the item at index. Out-of-range indexes are ignored.
func (c *Cart) Remove(ctx context.Context, index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.items) {
		return nil
	}
	prev := c.items
	next := make([]domain.LineItem, 0, len(c.items)-1)
	next = append(next, c.items[:index]...)
	next = append(next, c.items[index+1:]...)
	c.items = next
	return c.commit(ctx, prev)
}

// Clear empties the cart and erases the compare snapshot and saved form.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Store.Delete(ctx, domain.KeyCartItems, domain.KeyCompareSnapshot, domain.KeyFormData); err != nil {
		log.Error().Err(err).Msg("cart: clear failed")
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	c.items = nil
	return nil
}

func (c *Cart) TotalAmount() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sumItems(c.items)
}

func sumItems(items []domain.LineItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(lineTotal(it.Price, it.Quantity))
	}
	f, _ := total.Round(2).Float64()
	return f
}

// commit persists c.items; on failure the previous list is restored.
func (c *Cart) commit(ctx context.Context, prev []domain.LineItem) error {
	items := c.items
	if items == nil {
		items = []domain.LineItem{}
	}
	b, err := json.Marshal(items)
	if err == nil {
		err = c.Store.Set(ctx, domain.KeyCartItems, string(b))
	}
	if err != nil {
		c.items = prev
		log.Error().Err(err).Msg("cart: write failed")
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// SaveCompareSnapshot stores a copy of the current items for the compare view.
func (c *Cart) SaveCompareSnapshot(ctx context.Context) error {
	c.mu.Lock()
	items := append([]domain.LineItem{}, c.items...)
	c.mu.Unlock()
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := c.Store.Set(ctx, domain.KeyCompareSnapshot, string(b)); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func (c *Cart) CompareSnapshot(ctx context.Context) []domain.LineItem {
	return readItems(ctx, c.Store, domain.KeyCompareSnapshot)
}

func (c *Cart) SaveContact(ctx context.Context, form domain.ContactForm) error {
	b, err := json.Marshal(form)
	if err != nil {
		return err
	}
	if err := c.Store.Set(ctx, domain.KeyFormData, string(b)); err != nil {
		log.Error().Err(err).Msg("cart: saving contact form failed")
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

// Contact returns the saved contact form, or a blank one.
func (c *Cart) Contact(ctx context.Context) domain.ContactForm {
	var form domain.ContactForm
	raw, ok, err := c.Store.Get(ctx, domain.KeyFormData)
	if err != nil {
		log.Warn().Err(err).Msg("cart: contact form unreadable")
		return form
	}
	if !ok {
		return form
	}
	if err := json.Unmarshal([]byte(raw), &form); err != nil {
		log.Warn().Err(err).Msg("cart: contact form corrupt")
		return domain.ContactForm{}
	}
	return form
}

// LoadCombinedSelection reads the payload another page leaves for the cart.
// ok is false when nothing usable is stored.
func LoadCombinedSelection(ctx context.Context, store domain.KeyValueStore) (domain.CombinedSelection, bool) {
	var sel domain.CombinedSelection
	raw, ok, err := store.Get(ctx, domain.KeyCombinedSelection)
	if err != nil {
		log.Warn().Err(err).Msg("cart: combined selection unreadable")
		return sel, false
	}
	if !ok {
		return sel, false
	}
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		log.Warn().Err(err).Msg("cart: combined selection corrupt")
		return domain.CombinedSelection{}, false
	}
	if sel.TotalAmount <= 0 {
		sel.TotalAmount = sumItems(sel.Items)
	}
	return sel, len(sel.Items) > 0
}

// IsDuplicate is a convenience for callers that surface duplicates as info.
// SaveCombinedSelection validates a selection posted by the partner origin
// and stores it for the read-only combined cart view.
func SaveCombinedSelection(ctx context.Context, store domain.KeyValueStore, sel domain.CombinedSelection) error {
	var bad []string
	if len(sel.Items) == 0 {
		bad = append(bad, "items")
	}
	for i, it := range sel.Items {
		if strings.TrimSpace(string(it.ProductID)) == "" || strings.TrimSpace(it.Name) == "" {
			bad = append(bad, fmt.Sprintf("items[%d]", i))
			continue
		}
		if it.Quantity < 1 || math.IsNaN(it.Price) || math.IsInf(it.Price, 0) || it.Price < 0 {
			bad = append(bad, fmt.Sprintf("items[%d]", i))
		}
	}
	if math.IsNaN(sel.TotalAmount) || math.IsInf(sel.TotalAmount, 0) || sel.TotalAmount < 0 {
		bad = append(bad, "totalAmount")
	}
	if len(bad) > 0 {
		return &domain.ValidationError{Fields: bad}
	}
	if sel.TotalAmount == 0 {
		sel.TotalAmount = sumItems(sel.Items)
	}
	b, err := json.Marshal(sel)
	if err == nil {
		err = store.Set(ctx, domain.KeyCombinedSelection, string(b))
	}
	if err != nil {
		log.Error().Err(err).Msg("cart: combined selection not saved")
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func IsDuplicate(err error) bool { return errors.Is(err, domain.ErrDuplicateItem) }
