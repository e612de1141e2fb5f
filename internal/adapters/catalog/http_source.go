package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phenrril/buildmart/internal/domain"
)

// HTTPSource reads the catalog from a remote JSON endpoint.
type HTTPSource struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPSource(endpoint string) *HTTPSource {
	return &HTTPSource{endpoint: endpoint, httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (s *HTTPSource) Fetch(ctx context.Context, q domain.CatalogQuery) ([]domain.Product, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("catalog url: %w", err)
	}
	if v := strings.TrimSpace(q.Value); v != "" && q.Field != "" {
		params := u.Query()
		params.Set(string(q.Field), v)
		u.RawQuery = params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("catalog status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return DecodeProducts(resp.Body)
}

// HTTPSearch queries a remote GET <endpoint>?q=<term> search API.
type HTTPSearch struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPSearch(endpoint string) *HTTPSearch {
	return &HTTPSearch{endpoint: endpoint, httpClient: &http.Client{Timeout: 5 * time.Second}}
}

func (s *HTTPSearch) Search(ctx context.Context, term string) ([]domain.SearchResult, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("search url: %w", err)
	}
	params := u.Query()
	params.Set("q", term)
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search status %d", resp.StatusCode)
	}
	return DecodeSearch(resp.Body)
}
