package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/buildmart/internal/domain"
)

const specColumnPrefix = "spec:"

// XLSXSource reads the catalog from a workbook. The first row of each sheet
// is a header; every following row is one variant, grouped into products by
// the id column. Columns: id, name, description, category, subcategory,
// subsubcategory, price, size, color, hexColor, currency, stock, images
// (separated by "|") and any number of "spec:<Facet>" columns.
type XLSXSource struct {
	Path string
}

func (s *XLSXSource) Fetch(ctx context.Context, _ domain.CatalogQuery) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return ReadWorkbook(f)
}

// ReadWorkbook groups rows of every sheet into products, in first-seen order.
func ReadWorkbook(f *excelize.File) ([]domain.Product, error) {
	var order []domain.ProductID
	byID := map[domain.ProductID]*domain.Product{}

	for _, sh := range f.GetSheetList() {
		rows, err := f.GetRows(sh)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sh, err)
		}
		if len(rows) < 2 {
			continue
		}
		cols := map[string]int{}
		for i, h := range rows[0] {
			h = strings.TrimSpace(h)
			if strings.HasPrefix(strings.ToLower(h), specColumnPrefix) {
				cols[specColumnPrefix+strings.TrimSpace(h[len(specColumnPrefix):])] = i
				continue
			}
			cols[strings.ToLower(h)] = i
		}
		cell := func(row []string, name string) string {
			i, ok := cols[strings.ToLower(name)]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		for n, row := range rows[1:] {
			id := domain.ProductID(cell(row, "id"))
			if id == "" {
				continue
			}
			price, err := strconv.ParseFloat(cell(row, "price"), 64)
			if err != nil || price <= 0 {
				log.Warn().Str("sheet", sh).Int("row", n+2).Str("id", string(id)).Msg("catalog: row without valid price skipped")
				continue
			}
			p, ok := byID[id]
			if !ok {
				p = &domain.Product{
					ID:             id,
					Name:           cell(row, "name"),
					Description:    cell(row, "description"),
					Category:       cell(row, "category"),
					Subcategory:    cell(row, "subcategory"),
					Subsubcategory: cell(row, "subsubcategory"),
					Currency:       cell(row, "currency"),
					Images:         map[string][]string{},
					Specifications: map[string]string{},
				}
				if raw := cell(row, "stock"); raw != "" {
					if st, err := strconv.Atoi(raw); err == nil && st >= 0 {
						p.Stock = &st
					}
				}
				byID[id] = p
				order = append(order, id)
			}
			v := domain.Variant{
				Price:    price,
				Size:     cell(row, "size"),
				Color:    cell(row, "color"),
				HexColor: cell(row, "hexColor"),
			}
			p.Variants = append(p.Variants, v)

			key := v.Color
			if key == "" {
				key = domain.DefaultImageKey
			}
			for _, img := range strings.Split(cell(row, "images"), "|") {
				if img = strings.TrimSpace(img); img != "" {
					p.Images[key] = append(p.Images[key], img)
				}
			}
			for name, i := range cols {
				if !strings.HasPrefix(name, specColumnPrefix) || i >= len(row) {
					continue
				}
				if val := strings.TrimSpace(row[i]); val != "" {
					p.Specifications[strings.TrimPrefix(name, specColumnPrefix)] = val
				}
			}
		}
	}

	out := make([]domain.Product, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	return out, nil
}
