package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/buildmart/internal/domain"
)

type envelope struct {
	Results []domain.Product `json:"results"`
}

type searchEnvelope struct {
	Results []domain.SearchResult `json:"results"`
}

// DecodeProducts accepts either a bare JSON array or {"results": [...]}.
// Records without an id or without variants are dropped.
func DecodeProducts(r io.Reader) ([]domain.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty catalog payload")
	}
	var raw []domain.Product
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("decode catalog array: %w", err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode catalog object: %w", err)
		}
		raw = env.Results
	default:
		return nil, errors.New("catalog payload is neither an array nor an object")
	}
	return sanitize(raw), nil
}

func sanitize(raw []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(raw))
	for _, p := range raw {
		if p.ID == "" {
			log.Warn().Str("name", p.Name).Msg("catalog: product without id dropped")
			continue
		}
		if len(p.Variants) == 0 {
			log.Warn().Str("id", string(p.ID)).Msg("catalog: product without variants dropped")
			continue
		}
		out = append(out, p)
	}
	return out
}

// DecodeSearch reads {"results": [...]}; absent results decode to none.
func DecodeSearch(r io.Reader) ([]domain.SearchResult, error) {
	var env searchEnvelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.SearchResult{}, nil
		}
		return nil, fmt.Errorf("decode search results: %w", err)
	}
	if env.Results == nil {
		return []domain.SearchResult{}, nil
	}
	return env.Results, nil
}
