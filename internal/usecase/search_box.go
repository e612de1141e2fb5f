package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/phenrril/buildmart/internal/domain"
)

const (
	// DefaultQuietPeriod is how long the page waits after the last keystroke
	// or slider move before it asks the host again.
	DefaultQuietPeriod = 300 * time.Millisecond
	MaxSearchResults   = 10
)

// SearchPanel is what the autocomplete dropdown shows.
type SearchPanel struct {
	Term    string                `json:"term"`
	Results []domain.SearchResult `json:"results"`
	Visible bool                  `json:"visible"`
	Loading bool                  `json:"loading"`
	Error   string                `json:"error,omitempty"`
}

// SearchBox holds the autocomplete panel. Only the latest request may update
// it.
type SearchBox struct {
	Source domain.SearchSource

	mu       sync.Mutex
	seq      uint64
	inflight int
	panel    SearchPanel
}

func NewSearchBox(src domain.SearchSource) *SearchBox {
	return &SearchBox{Source: src, panel: SearchPanel{Results: []domain.SearchResult{}}}
}

// Search fetches term. It returns domain.ErrStaleResponse when a newer
// request was issued while this one was in flight. A blank term hides the
// panel without fetching.
func (s *SearchBox) Search(ctx context.Context, term string) error {
	term = strings.TrimSpace(term)
	s.mu.Lock()
	s.seq++
	token := s.seq
	if term == "" {
		s.panel = SearchPanel{Results: []domain.SearchResult{}, Loading: s.inflight > 0}
		s.mu.Unlock()
		return nil
	}
	s.inflight++
	s.panel.Term = term
	s.panel.Loading = true
	s.mu.Unlock()

	results, err := s.Source.Search(ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if token != s.seq {
		s.panel.Loading = s.inflight > 0
		log.Debug().Str("term", term).Msg("search: stale response dropped")
		return domain.ErrStaleResponse
	}
	s.panel = SearchPanel{Term: term, Results: []domain.SearchResult{}, Loading: s.inflight > 0}
	if err != nil {
		s.panel.Error = "Search is unavailable right now."
		log.Warn().Err(err).Str("term", term).Msg("search failed")
		return fmt.Errorf("%w: %v", domain.ErrDataLoad, err)
	}
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	if results != nil {
		s.panel.Results = results
	}
	s.panel.Visible = len(results) > 0
	return nil
}

func (s *SearchBox) Panel() SearchPanel {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.panel
	p.Results = append([]domain.SearchResult{}, s.panel.Results...)
	return p
}
