package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
)

type productRow struct {
	ID             string              `gorm:"primaryKey;size:64"`
	Name           string              `gorm:"size:200;not null"`
	Description    string              `gorm:"type:text"`
	Category       string              `gorm:"size:120;index"`
	Subcategory    string              `gorm:"size:120;index"`
	Subsubcategory string              `gorm:"size:120;index"`
	Currency       string              `gorm:"size:8"`
	Stock          *int                `gorm:""`
	Images         map[string][]string `gorm:"serializer:json;type:jsonb"`
	Specifications map[string]string   `gorm:"serializer:json;type:jsonb"`
	Active         bool                `gorm:"default:true;index"`
	Variants       []variantRow        `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (productRow) TableName() string { return "catalog_products" }

type variantRow struct {
	ID        uint    `gorm:"primaryKey"`
	ProductID string  `gorm:"size:64;index"`
	Position  int     `gorm:"not null;default:0"`
	Price     float64 `gorm:"type:decimal(12,2);not null"`
	Size      string  `gorm:"size:60"`
	Color     string  `gorm:"size:60"`
	HexColor  string  `gorm:"size:9"`
}

func (variantRow) TableName() string { return "catalog_variants" }

func (r productRow) toDomain() domain.Product {
	p := domain.Product{
		ID:             domain.ProductID(r.ID),
		Name:           r.Name,
		Description:    r.Description,
		Category:       r.Category,
		Subcategory:    r.Subcategory,
		Subsubcategory: r.Subsubcategory,
		Currency:       r.Currency,
		Stock:          r.Stock,
		Images:         r.Images,
		Specifications: r.Specifications,
	}
	for _, v := range r.Variants {
		p.Variants = append(p.Variants, domain.Variant{Price: v.Price, Size: v.Size, Color: v.Color, HexColor: v.HexColor})
	}
	return p
}

// CatalogRepo reads the product catalog from PostgreSQL. The storefront
// never writes to it; Import exists for seeding.
type CatalogRepo struct{ db *gorm.DB }

func NewCatalogRepo(db *gorm.DB) *CatalogRepo { return &CatalogRepo{db: db} }

func (r *CatalogRepo) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&productRow{}).
		Where("active = ?", true).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") })
}

func (r *CatalogRepo) Fetch(ctx context.Context, q domain.CatalogQuery) ([]domain.Product, error) {
	tx := r.base(ctx)
	if v := strings.TrimSpace(q.Value); v != "" {
		switch q.Field {
		case domain.FieldCategory, domain.FieldSubcategory, domain.FieldSubsubcategory:
			tx = tx.Where("LOWER("+string(q.Field)+") = LOWER(?)", v)
		}
	}
	var rows []productRow
	if err := tx.Order("name asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

func (r *CatalogRepo) FindByID(ctx context.Context, id domain.ProductID) (domain.Product, error) {
	var row productRow
	if err := r.base(ctx).First(&row, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, err
	}
	if len(row.Variants) == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return row.toDomain(), nil
}

// Search does a case-insensitive LIKE over name and classification.
func (r *CatalogRepo) Search(ctx context.Context, term string) ([]domain.SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []domain.SearchResult{}, nil
	}
	like := "%" + term + "%"
	var rows []productRow
	err := r.base(ctx).
		Where("name ILIKE ? OR description ILIKE ? OR category ILIKE ? OR subcategory ILIKE ? OR subsubcategory ILIKE ?", like, like, like, like, like).
		Order("name asc").
		Limit(10).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.SearchResult, 0, len(rows))
	for _, p := range toProducts(rows) {
		out = append(out, usecase.ToSearchResult(p))
	}
	return out, nil
}

func (r *CatalogRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&productRow{}).Count(&n).Error
	return n, err
}

// Import upserts products and replaces their variants.
func (r *CatalogRepo) Import(ctx context.Context, products []domain.Product) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range products {
			row := productRow{
				ID:             string(p.ID),
				Name:           p.Name,
				Description:    p.Description,
				Category:       p.Category,
				Subcategory:    p.Subcategory,
				Subsubcategory: p.Subsubcategory,
				Currency:       p.Currency,
				Stock:          p.Stock,
				Images:         p.Images,
				Specifications: p.Specifications,
				Active:         true,
			}
			if err := tx.Omit("Variants").Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return err
			}
			if err := tx.Where("product_id = ?", row.ID).Delete(&variantRow{}).Error; err != nil {
				return err
			}
			for i, v := range p.Variants {
				vr := variantRow{ProductID: row.ID, Position: i, Price: v.Price, Size: v.Size, Color: v.Color, HexColor: v.HexColor}
				if err := tx.Create(&vr).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func toProducts(rows []productRow) []domain.Product {
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		if len(row.Variants) == 0 {
			continue
		}
		out = append(out, row.toDomain())
	}
	return out
}
