package app

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/phenrril/buildmart/internal/adapters/catalog"
	"github.com/phenrril/buildmart/internal/adapters/httpserver"
	"github.com/phenrril/buildmart/internal/adapters/kv"
	"github.com/phenrril/buildmart/internal/adapters/kv/redisstore"
	"github.com/phenrril/buildmart/internal/adapters/kv/sqlite"
	"github.com/phenrril/buildmart/internal/adapters/pdf"
	"github.com/phenrril/buildmart/internal/adapters/repo/postgres"
	"github.com/phenrril/buildmart/internal/domain"
	"github.com/phenrril/buildmart/internal/usecase"
	"github.com/phenrril/buildmart/internal/views"
)

type App struct {
	Config    Config
	DB        *gorm.DB
	Tmpl      *template.Template
	Tree      *domain.CategoryTree
	Catalog   *usecase.CachedCatalog
	ProductUC *usecase.ProductUC
	ReceiptUC *usecase.ReceiptUC
	Store     domain.KeyValueStore

	closers []io.Closer
}

// NewApp wires adapters for cfg. db may be nil unless cfg.NeedsPostgres().
func NewApp(cfg Config, db *gorm.DB) (*App, error) {
	if cfg.NeedsPostgres() && db == nil {
		return nil, errors.New("postgres backend selected but no database connection")
	}
	a := &App{Config: cfg, DB: db, Tree: domain.DefaultCategoryTree()}

	src, err := a.catalogSource()
	if err != nil {
		return nil, err
	}
	a.Catalog = usecase.NewCachedCatalog(src, cfg.CatalogTTL)

	a.ProductUC = &usecase.ProductUC{Products: a.Catalog}
	if cfg.SearchURL != "" {
		a.ProductUC = &usecase.ProductUC{Products: searchableCatalog{CatalogSource: a.Catalog, SearchSource: catalog.NewHTTPSearch(cfg.SearchURL)}}
	} else if repo, ok := src.(*postgres.CatalogRepo); ok {
		a.ProductUC = &usecase.ProductUC{Products: searchableCatalog{CatalogSource: a.Catalog, SearchSource: repo}}
	}

	a.ReceiptUC = &usecase.ReceiptUC{
		Exporter:  pdf.NewReceiptExporter(),
		Prefix:    cfg.ReceiptPrefix,
		StoreName: cfg.StoreName,
	}

	if a.Store, err = a.openStore(); err != nil {
		return nil, err
	}

	var tmpl *template.Template
	if cfg.IsDev() {
		tmpl, err = views.ParseDir("internal/views")
		if err != nil {
			// running outside the repo root; fall back to the embedded copy
			log.Warn().Err(err).Msg("views not found on disk, using embedded templates")
			tmpl, err = views.Parse()
		}
	} else {
		tmpl, err = views.Parse()
	}
	if err != nil {
		return nil, err
	}
	a.Tmpl = tmpl
	return a, nil
}

// searchableCatalog pairs the cached feed with a dedicated search backend.
type searchableCatalog struct {
	domain.CatalogSource
	domain.SearchSource
}

func (a *App) catalogSource() (domain.CatalogSource, error) {
	cfg := a.Config
	switch cfg.CatalogSource {
	case "url":
		if cfg.CatalogURL == "" {
			return nil, errors.New("CATALOG_URL is required for the url catalog source")
		}
		return catalog.NewHTTPSource(cfg.CatalogURL), nil
	case "file", "":
		return &catalog.FileSource{Path: cfg.CatalogFile}, nil
	case "xlsx":
		return &catalog.XLSXSource{Path: cfg.CatalogXLSX}, nil
	case "postgres":
		return postgres.NewCatalogRepo(a.DB), nil
	}
	return nil, fmt.Errorf("unknown CATALOG_SOURCE %q", cfg.CatalogSource)
}

func (a *App) openStore() (domain.KeyValueStore, error) {
	cfg := a.Config
	switch cfg.StorageBackend {
	case "memory":
		return kv.NewMemoryStore(), nil
	case "sqlite", "":
		st, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, st)
		return st, nil
	case "redis":
		st := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTTL)
		if err := st.Ping(context.Background()); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
		}
		a.closers = append(a.closers, st)
		return st, nil
	case "postgres":
		return postgres.NewKVStore(a.DB), nil
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
}

func (a *App) HTTPHandler() http.Handler {
	return httpserver.New(a.Tmpl, httpserver.Options{
		Catalog:     a.Catalog,
		Tree:        a.Tree,
		Products:    a.ProductUC,
		Receipts:    a.ReceiptUC,
		Store:       a.Store,
		Secret:      []byte(a.Config.SessionKey),
		StoreName:   a.Config.StoreName,
		RateLimit:   a.Config.RateLimit,
		CORSOrigins: a.Config.CORSOrigins,
		SearchQuiet: a.Config.SearchQuiet,
	})
}

// MigrateAndSeed prepares the database tables and, when the catalog table is
// empty, imports CATALOG_SEED_FILE (.json or .xlsx).
func (a *App) MigrateAndSeed(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	if err := postgres.Migrate(a.DB); err != nil {
		return err
	}
	if a.Config.CatalogSeed == "" {
		return nil
	}
	repo := postgres.NewCatalogRepo(a.DB)
	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	var seed domain.CatalogSource = &catalog.FileSource{Path: a.Config.CatalogSeed}
	if strings.EqualFold(filepath.Ext(a.Config.CatalogSeed), ".xlsx") {
		seed = &catalog.XLSXSource{Path: a.Config.CatalogSeed}
	}
	products, err := seed.Fetch(ctx, domain.CatalogQuery{})
	if err != nil {
		return fmt.Errorf("read seed catalog: %w", err)
	}
	if err := repo.Import(ctx, products); err != nil {
		return err
	}
	// the cache may already hold the empty table
	a.Catalog.Invalidate()
	log.Info().Int("products", len(products)).Str("file", a.Config.CatalogSeed).Msg("catalog seeded")
	return nil
}

// ReloadCatalog drops cached catalog queries so the next page load reads
// the source again.
func (a *App) ReloadCatalog() {
	a.Catalog.Invalidate()
	log.Info().Str("catalog", a.Config.CatalogSource).Msg("catalog cache cleared")
}

func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Warn().Err(err).Msg("close")
		}
	}
}
