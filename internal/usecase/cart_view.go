package usecase

import (
	"github.com/phenrril/buildmart/internal/domain"
)

type CartLineView struct {
	Index        int
	Item         domain.LineItem
	Variant      string
	PriceText    string
	SubtotalText string
	CanDecrement bool
}

type PaymentOption struct {
	Value    domain.PaymentMethod
	Label    string
	Selected bool
}

// CartView is the cart page. Combined carts come from another origin and are
// shown read-only.
type CartView struct {
	Lines     []CartLineView
	Count     int
	Total     float64
	TotalText string
	Empty     bool
	ReadOnly  bool
	Contact   domain.ContactForm
	Payments  []PaymentOption
	Message   string
}

func ProjectCart(items []domain.LineItem, contact domain.ContactForm, readOnly bool) CartView {
	v := CartView{
		ReadOnly: readOnly,
		Contact:  contact,
		Empty:    len(items) == 0,
		Lines:    make([]CartLineView, 0, len(items)),
	}
	for i, it := range items {
		sub, _ := lineTotal(it.Price, it.Quantity).Round(2).Float64()
		v.Lines = append(v.Lines, CartLineView{
			Index:        i,
			Item:         it,
			Variant:      it.VariantLabel(),
			PriceText:    FormatPrice(it.Price, domain.DefaultCurrency),
			SubtotalText: FormatPrice(sub, domain.DefaultCurrency),
			CanDecrement: !readOnly && it.Quantity > 1,
		})
		v.Count += it.Quantity
	}
	v.Total = sumItems(items)
	v.TotalText = FormatPrice(v.Total, domain.DefaultCurrency)
	for _, m := range domain.PaymentMethods {
		v.Payments = append(v.Payments, PaymentOption{Value: m, Label: m.Label(), Selected: contact.Payment == m})
	}
	return v
}
