package usecase

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phenrril/buildmart/internal/domain"
)

var receiptNumberRe = regexp.MustCompile(`^[A-Z]+/\d{6}/\d{4}$`)

func validContact() domain.ContactForm {
	return domain.ContactForm{Name: "Rahim Uddin", Phone: "01711000000", Address: "House 4, Road 2, Dhaka", Payment: domain.PaymentBKash}
}

func TestNewReceiptNumber_Format(t *testing.T) {
	now := time.Date(2025, time.March, 9, 10, 0, 0, 0, time.UTC).Add(1234 * time.Millisecond)
	n := NewReceiptNumber("INV", now)
	assert.Regexp(t, receiptNumberRe, n)
	assert.Equal(t, "INV/032025/", n[:11])

	for _, prefix := range []string{"", "inv-1", "12"} {
		assert.Regexp(t, `^INV/`, NewReceiptNumber(prefix, now))
	}
	assert.Regexp(t, `^BM/`, NewReceiptNumber("bm", now))
}

func TestProjectReceipt_TotalsAndLabels(t *testing.T) {
	items := []domain.LineItem{
		{ProductID: "1", Name: "Floor Tile", Price: 99.99, Quantity: 3, Size: "60x60"},
		{ProductID: "2", Name: "Mixer", Price: 1500, Quantity: 1, Color: "Chrome"},
	}
	r := ProjectReceipt(items, validContact(), "INV", time.Now())
	require.Len(t, r.Lines, 2)
	assert.Equal(t, 299.97, r.Lines[0].Subtotal)
	assert.Equal(t, "60x60", r.Lines[0].Variant)
	assert.Equal(t, "Chrome", r.Lines[1].Variant)
	assert.Equal(t, 1799.97, r.Total)
	assert.Equal(t, domain.DefaultCurrency, r.Currency)
	assert.Len(t, items, 2)
}

func TestValidateContact(t *testing.T) {
	assert.NoError(t, ValidateContact(validContact()))

	err := ValidateContact(domain.ContactForm{Name: " ", Phone: "017", Payment: "cheque"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"name", "address", "payment"}, ve.Fields)
}

func TestReceiptUC_ExportSkipsExporterOnInvalidContact(t *testing.T) {
	exp := new(MockExporter)
	uc := &ReceiptUC{Exporter: exp, Prefix: "INV"}

	_, _, err := uc.Export(context.Background(), nil, domain.ContactForm{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	exp.AssertNotCalled(t, "Export", mock.Anything, mock.Anything)
}

func TestReceiptUC_Export(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, time.December, 1, 8, 0, 0, 0, time.UTC)
	exp := new(MockExporter)
	exp.On("Export", ctx, mock.MatchedBy(func(r domain.Receipt) bool {
		return r.Store == "BuildMart" && r.Total == 240 && r.IssuedAt.Equal(fixed)
	})).Return([]byte("%PDF-1.3"), nil)

	uc := &ReceiptUC{Exporter: exp, Prefix: "INV", StoreName: "BuildMart", Now: func() time.Time { return fixed }}
	items := []domain.LineItem{{ProductID: "7", Name: "Wall Tile", Price: 120, Quantity: 2}}
	r, b, err := uc.Export(ctx, items, validContact())

	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(b))
	assert.Equal(t, "INV/122025/0000", r.Number)
	exp.AssertExpectations(t)
}

func TestReceiptUC_ExportFailure(t *testing.T) {
	ctx := context.Background()
	exp := new(MockExporter)
	exp.On("Export", ctx, mock.Anything).Return(nil, errors.New("font missing"))

	uc := &ReceiptUC{Exporter: exp}
	r, b, err := uc.Export(ctx, nil, validContact())
	require.Error(t, err)
	assert.Nil(t, b)
	assert.Contains(t, err.Error(), r.Number)
}
