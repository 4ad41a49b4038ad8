package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// DefaultSearchDebounce is the delay between the last keystroke and the
// backend search request.
const DefaultSearchDebounce = 300 * time.Millisecond

// MinSearchLength is the shortest query that triggers a backend search
const MinSearchLength = 2

// SearchService debounces description search queries against the backend.
// Each query change restarts the debounce timer; results from a request
// whose query is no longer current are discarded.
type SearchService struct {
	log      logger.Logger
	client   stockapi.Client
	interval time.Duration

	mu        sync.Mutex
	itemType  string
	query     string
	results   []models.SearchResult
	searching bool
	timer     *time.Timer
	onResults func(query string, results []models.SearchResult)
}

// NewSearchService creates a SearchService with the default debounce interval
func NewSearchService(log logger.Logger, client stockapi.Client) *SearchService {
	return NewSearchServiceWithInterval(log, client, DefaultSearchDebounce)
}

// NewSearchServiceWithInterval creates a SearchService with a custom
// debounce interval. Tests use a short interval.
func NewSearchServiceWithInterval(log logger.Logger, client stockapi.Client, interval time.Duration) *SearchService {
	return &SearchService{log: log, client: client, interval: interval}
}

// OnResults registers a callback invoked whenever a search completes with
// results that are still current. Used to push results to connected clients.
func (s *SearchService) OnResults(fn func(query string, results []models.SearchResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onResults = fn
}

// SetItemType sets the item type scope for subsequent searches. Changing
// it invalidates the current results.
func (s *SearchService) SetItemType(itemType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.itemType == itemType {
		return
	}
	s.itemType = itemType
	s.results = nil
	s.stopTimerLocked()
}

// SetQuery records a keystroke. A query under the minimum length clears the
// results immediately; otherwise the debounce timer is restarted and a
// backend search fires once the operator pauses.
func (s *SearchService) SetQuery(query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.query = query
	trimmed := strings.TrimSpace(query)
	if s.itemType == "" || len(trimmed) < MinSearchLength {
		s.results = nil
		s.searching = false
		s.stopTimerLocked()
		return
	}

	s.searching = true
	itemType := s.itemType
	s.stopTimerLocked()
	s.timer = time.AfterFunc(s.interval, func() {
		s.runSearch(itemType, query)
	})
}

// runSearch performs the backend search and applies the results only when
// the query is still the one the operator last typed.
func (s *SearchService) runSearch(itemType, query string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := s.client.SearchDescriptions(ctx, itemType, strings.TrimSpace(query))

	s.mu.Lock()
	if s.query != query || s.itemType != itemType {
		s.mu.Unlock()
		s.log.Debug("discarding stale search results", "query", query)
		return
	}
	s.searching = false
	if err != nil {
		s.results = nil
		s.mu.Unlock()
		s.log.Warn("description search failed", "query", query, "error", err)
		return
	}

	converted := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		converted = append(converted, models.SearchResult{
			Group:       r.Group,
			Subgroup:    r.Subgroup,
			Particulars: r.Particulars,
			UOM:         r.UOM.Value,
		})
	}
	s.results = converted
	callback := s.onResults
	s.mu.Unlock()

	s.log.Debug("search completed", "query", query, "results", len(converted))
	if callback != nil {
		callback(query, converted)
	}
}

// Results returns the current result set and whether a search is in flight
func (s *SearchService) Results() (query string, results []models.SearchResult, searching bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query, s.results, s.searching
}

// Clear resets the query and results, cancelling any pending search
func (s *SearchService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = ""
	s.results = nil
	s.searching = false
	s.stopTimerLocked()
}

func (s *SearchService) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
