package domain

import (
	"strings"
	"time"
)

// Keys under which the storefront persists visitor state.
const (
	KeyCartItems         = "cartItems"
	KeyCompareSnapshot   = "compareSnapshot"
	KeyFormData          = "cartFormData"
	KeyCombinedSelection = "combinedSelection"
)

type LineItem struct {
	ProductID      ProductID `json:"productId"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Quantity       int       `json:"quantity"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Image          string    `json:"image"`
	Category       string    `json:"category"`
	Subcategory    string    `json:"subcategory"`
	Subsubcategory string    `json:"subsubcategory"`
}

// SameVariant reports whether both items share the (productId, size, color) key.
func (li LineItem) SameVariant(o LineItem) bool {
	return li.ProductID == o.ProductID &&
		strings.TrimSpace(li.Size) == strings.TrimSpace(o.Size) &&
		strings.TrimSpace(li.Color) == strings.TrimSpace(o.Color)
}

// VariantLabel is "Size / Color" with blank parts omitted.
func (li LineItem) VariantLabel() string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(li.Size); s != "" {
		parts = append(parts, s)
	}
	if c := strings.TrimSpace(li.Color); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, " / ")
}

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash-on-delivery"
	PaymentBKash          PaymentMethod = "bkash"
	PaymentNagad          PaymentMethod = "nagad"
	PaymentBankTransfer   PaymentMethod = "bank-transfer"
)

var PaymentMethods = []PaymentMethod{PaymentCashOnDelivery, PaymentBKash, PaymentNagad, PaymentBankTransfer}

func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

func (p PaymentMethod) Label() string {
	switch p {
	case PaymentCashOnDelivery:
		return "Cash on delivery"
	case PaymentBKash:
		return "bKash"
	case PaymentNagad:
		return "Nagad"
	case PaymentBankTransfer:
		return "Bank transfer"
	}
	return string(p)
}

type ContactForm struct {
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Address string        `json:"address"`
	Payment PaymentMethod `json:"payment"`
}

// CombinedSelection is written by another origin and only read here.
type CombinedSelection struct {
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"totalAmount"`
}

type ReceiptLine struct {
	Name      string
	Variant   string
	Quantity  int
	UnitPrice float64
	Subtotal  float64
}

type Receipt struct {
	Number   string
	IssuedAt time.Time
	Currency string
	Lines    []ReceiptLine
	Total    float64
	Contact  ContactForm
	Store    string
}
