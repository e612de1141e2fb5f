package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/phenrril/buildmart/internal/domain"
)

// Runs against a disposable database: TEST_DB_DSN="host=localhost ..." go test ./...
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestCatalogRepo_ImportFetchSearch(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepo(testDB(t))
	id := domain.ProductID("test-" + uuid.NewString())

	err := repo.Import(ctx, []domain.Product{{
		ID: id, Name: "Zz Test Vitrified Tile", Category: "Tiles", Subcategory: "Floor Tiles", Subsubcategory: "Vitrified Tiles",
		Variants:       []domain.Variant{{Price: 900, Size: "80x80"}, {Price: 950, Size: "60x120"}},
		Specifications: map[string]string{"Finish": "Polished"},
	}})
	require.NoError(t, err)

	p, err := repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "80x80", p.Variants[0].Size)
	assert.Equal(t, "Polished", p.Specifications["Finish"])

	ps, err := repo.Fetch(ctx, domain.CatalogQuery{Field: domain.FieldSubsubcategory, Value: "vitrified tiles"})
	require.NoError(t, err)
	assert.NotEmpty(t, ps)

	res, err := repo.Search(ctx, "zz test vitrified")
	require.NoError(t, err)
	assert.NotEmpty(t, res)

	_, err = repo.FindByID(ctx, "missing-"+domain.ProductID(uuid.NewString()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewKVStore(testDB(t))
	key := "test:" + uuid.NewString()

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, "1"))
	require.NoError(t, s.Set(ctx, key, "2"))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, _ = s.Get(ctx, key)
	assert.False(t, ok)
}

func TestMigrate_CreatesSpecsIndex(t *testing.T) {
	db := testDB(t)
	require.NoError(t, Migrate(db))

	var n int64
	require.NoError(t, db.Raw("SELECT count(*) FROM pg_indexes WHERE indexname = ?", "idx_catalog_products_specs_gin").Scan(&n).Error)
	assert.EqualValues(t, 1, n)
}
