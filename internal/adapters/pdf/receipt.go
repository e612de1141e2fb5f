package pdf

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/skip2/go-qrcode"

	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
)

// ReceiptExporter renders a receipt as an A4 PDF with a QR code of the
// receipt number.
type ReceiptExporter struct{}

func NewReceiptExporter() *ReceiptExporter { return &ReceiptExporter{} }

func (e *ReceiptExporter) ContentType() string { return "application/pdf" }

func (e *ReceiptExporter) Export(ctx context.Context, r domain.Receipt) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	qr, err := QRCode(r.Number)
	if err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(10).
		WithTopMargin(15).
		WithRightMargin(10).
		Build()
	m := maroto.New(cfg)

	addHeader(m, r, qr)
	addContact(m, r)
	addLines(m, r)
	addTotal(m, r)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// QRCode encodes payload as a PNG.
func QRCode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}
	return png, nil
}

func addHeader(m core.Maroto, r domain.Receipt, qr []byte) {
	store := r.Store
	if store == "" {
		store = "Receipt"
	}
	m.AddRow(30,
		col.New(7).Add(
			text.New(store, props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Left}),
			text.New("Receipt # "+r.Number, props.Text{Size: 10, Top: 9, Align: align.Left}),
			text.New("Date: "+r.IssuedAt.Format("Jan 02, 2006 15:04"), props.Text{Size: 9, Top: 15, Align: align.Left}),
		),
		col.New(2),
		image.NewFromBytesCol(3, qr, extension.Png, props.Rect{Center: true, Percent: 90}),
	)
	m.AddRow(5, line.NewCol(12))
}

func addContact(m core.Maroto, r domain.Receipt) {
	c := r.Contact
	m.AddRow(24,
		col.New(6).Add(
			text.New("BILL TO:", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left}),
			text.New(c.Name, props.Text{Size: 9, Top: 5, Align: align.Left}),
			text.New(c.Phone, props.Text{Size: 9, Top: 10, Align: align.Left}),
			text.New(c.Address, props.Text{Size: 9, Top: 15, Align: align.Left}),
		),
		col.New(6).Add(
			text.New("PAYMENT:", props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right}),
			text.New(c.Payment.Label(), props.Text{Size: 9, Top: 5, Align: align.Right}),
		),
	)
	m.AddRow(5, line.NewCol(12))
}

func addLines(m core.Maroto, r domain.Receipt) {
	head := props.Text{Size: 10, Style: fontstyle.Bold}
	m.AddRow(8,
		col.New(5).Add(text.New("Item", withAlign(head, align.Left))),
		col.New(2).Add(text.New("Variant", withAlign(head, align.Center))),
		col.New(1).Add(text.New("Qty", withAlign(head, align.Center))),
		col.New(2).Add(text.New("Price", withAlign(head, align.Right))),
		col.New(2).Add(text.New("Total", withAlign(head, align.Right))),
	)
	m.AddRow(2, line.NewCol(12))

	cell := props.Text{Size: 9}
	for _, l := range r.Lines {
		m.AddRow(8,
			col.New(5).Add(text.New(l.Name, withAlign(cell, align.Left))),
			col.New(2).Add(text.New(l.Variant, withAlign(cell, align.Center))),
			col.New(1).Add(text.New(fmt.Sprintf("%d", l.Quantity), withAlign(cell, align.Center))),
			col.New(2).Add(text.New(usecase.FormatPrice(l.UnitPrice, r.Currency), withAlign(cell, align.Right))),
			col.New(2).Add(text.New(usecase.FormatPrice(l.Subtotal, r.Currency), withAlign(cell, align.Right))),
		)
	}
	m.AddRow(5, line.NewCol(12))
}

func addTotal(m core.Maroto, r domain.Receipt) {
	m.AddRow(10,
		col.New(8),
		col.New(2).Add(text.New("TOTAL", props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right})),
		col.New(2).Add(text.New(usecase.FormatPrice(r.Total, r.Currency), props.Text{Size: 11, Style: fontstyle.Bold, Align: align.Right})),
	)
}

func withAlign(p props.Text, a align.Type) props.Text {
	p.Align = a
	return p
}
