package usecase

import (
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/phenrril/buildmart/internal/domain"
)

// FormatPrice renders "BDT 1,250.00".
func FormatPrice(amount float64, currency string) string {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s %.2f", currency, amount)
}

// FormatPriceRange collapses to a single price when min == max.
func FormatPriceRange(min, max float64, currency string) string {
	if min == max {
		return FormatPrice(min, currency)
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%s %.2f – %.2f", currency, min, max)
}

// safePrice treats NaN, infinities and negatives as zero.
func safePrice(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func lineTotal(price float64, qty int) decimal.Decimal {
	if qty < 0 {
		qty = 0
	}
	return safePrice(price).Mul(decimal.NewFromInt(int64(qty)))
}
