package catalog

import (
	"context"
	"os"

	"github.com/phenrril/buildmart/internal/domain"
)

// FileSource serves a static JSON catalog. The query is ignored; the gallery
// filters locally.
type FileSource struct {
	Path string
}

func (s *FileSource) Fetch(ctx context.Context, _ domain.CatalogQuery) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeProducts(f)
}
