package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/buildmart/internal/domain"
)

const DefaultReceiptPrefix = "INV"

var prefixRe = regexp.MustCompile(`^[A-Z]+$`)

// NewReceiptNumber formats PREFIX/MMYYYY/NNNN, NNNN being the last four
// digits of now in Unix milliseconds.
func NewReceiptNumber(prefix string, now time.Time) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !prefixRe.MatchString(prefix) {
		prefix = DefaultReceiptPrefix
	}
	ms := now.UnixMilli() % 10000
	if ms < 0 {
		ms = -ms
	}
	return fmt.Sprintf("%s/%02d%04d/%04d", prefix, int(now.Month()), now.Year(), ms)
}

// ProjectReceipt turns cart items into a receipt. It never mutates the cart.
func ProjectReceipt(items []domain.LineItem, contact domain.ContactForm, prefix string, now time.Time) domain.Receipt {
	r := domain.Receipt{
		Number:   NewReceiptNumber(prefix, now),
		IssuedAt: now,
		Currency: domain.DefaultCurrency,
		Contact:  contact,
		Lines:    make([]domain.ReceiptLine, 0, len(items)),
	}
	total := decimal.Zero
	for _, it := range items {
		unit := safePrice(it.Price)
		sub := lineTotal(it.Price, it.Quantity)
		total = total.Add(sub)
		up, _ := unit.Float64()
		st, _ := sub.Round(2).Float64()
		r.Lines = append(r.Lines, domain.ReceiptLine{
			Name:      it.Name,
			Variant:   it.VariantLabel(),
			Quantity:  it.Quantity,
			UnitPrice: up,
			Subtotal:  st,
		})
	}
	r.Total, _ = total.Round(2).Float64()
	return r
}

// ValidateContact returns a *domain.ValidationError naming every blocking field.
func ValidateContact(c domain.ContactForm) error {
	var missing []string
	if strings.TrimSpace(c.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(c.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(c.Address) == "" {
		missing = append(missing, "address")
	}
	if !c.Payment.Valid() {
		missing = append(missing, "payment")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}

type ReceiptUC struct {
	Exporter  domain.ReceiptExporter
	Prefix    string
	StoreName string
	Now       func() time.Time
}

func (uc *ReceiptUC) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

// Build validates the contact form and projects the cart.
func (uc *ReceiptUC) Build(items []domain.LineItem, contact domain.ContactForm) (domain.Receipt, error) {
	if err := ValidateContact(contact); err != nil {
		return domain.Receipt{}, err
	}
	r := ProjectReceipt(items, contact, uc.Prefix, uc.now())
	r.Store = uc.StoreName
	return r, nil
}

// Export renders the receipt with the configured exporter.
func (uc *ReceiptUC) Export(ctx context.Context, items []domain.LineItem, contact domain.ContactForm) (domain.Receipt, []byte, error) {
	r, err := uc.Build(items, contact)
	if err != nil {
		return domain.Receipt{}, nil, err
	}
	b, err := uc.Exporter.Export(ctx, r)
	if err != nil {
		log.Error().Err(err).Str("receipt", r.Number).Msg("receipt export failed")
		return r, nil, fmt.Errorf("export receipt %s: %w", r.Number, err)
	}
	return r, b, nil
}
