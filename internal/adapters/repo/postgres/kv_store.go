package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type kvRow struct {
	Key       string `gorm:"primaryKey;size:200"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (kvRow) TableName() string { return "visitor_state" }

// KVStore keeps visitor state in PostgreSQL next to the catalog.
type KVStore struct{ db *gorm.DB }

func NewKVStore(db *gorm.DB) *KVStore { return &KVStore{db: db} }

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	var row kvRow
	if err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	row := kvRow{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *KVStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("key IN ?", keys).Delete(&kvRow{}).Error
}

const specsIndexDDL = "CREATE INDEX IF NOT EXISTS idx_catalog_products_specs_gin ON catalog_products USING gin (specifications)"

// Migrate creates the catalog and visitor-state tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&productRow{}, &variantRow{}, &kvRow{}); err != nil {
		return err
	}
	if err := db.Exec(specsIndexDDL).Error; err != nil {
		// facet queries still work, only slower
		log.Warn().Err(err).Msg("postgres: specifications index not created")
	}
	return nil
}
