package stockapi

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// MockClient is a mock backend client for testing
type MockClient struct {
	mu            sync.Mutex
	catalogs      map[string][]Group // itemType -> groups
	searchResults []SearchResult
	baseURL       string
	token         string
	catalogErr    error
	searchErr     error
	submitErr     error
	catalogHook   func(itemType string) // runs inside FetchCatalog before returning
	searchHook    func(query string)    // runs inside SearchDescriptions before returning
	catalogCalls  atomic.Int64
	searchCalls   atomic.Int64
	submitted     [][]Entry
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithCatalog sets the groups returned for an item type
func WithCatalog(itemType string, groups []Group) MockOption {
	return func(m *MockClient) {
		m.catalogs[itemType] = groups
	}
}

// WithCatalogError sets an error to return from FetchCatalog
func WithCatalogError(err error) MockOption {
	return func(m *MockClient) {
		m.catalogErr = err
	}
}

// WithSearchResults sets the results to return from SearchDescriptions
func WithSearchResults(results []SearchResult) MockOption {
	return func(m *MockClient) {
		m.searchResults = results
	}
}

// WithSearchError sets an error to return from SearchDescriptions
func WithSearchError(err error) MockOption {
	return func(m *MockClient) {
		m.searchErr = err
	}
}

// WithSubmitError sets an error to return from SubmitEntries
func WithSubmitError(err error) MockOption {
	return func(m *MockClient) {
		m.submitErr = err
	}
}

// WithCatalogHook installs a hook that runs inside FetchCatalog before it
// returns; tests use it to hold a fetch in flight
func WithCatalogHook(hook func(itemType string)) MockOption {
	return func(m *MockClient) {
		m.catalogHook = hook
	}
}

// WithSearchHook installs a hook that runs inside SearchDescriptions before
// it returns
func WithSearchHook(hook func(query string)) MockOption {
	return func(m *MockClient) {
		m.searchHook = hook
	}
}

// NewMockClient creates a new mock backend client
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:  "http://mock-backend.local",
		catalogs: make(map[string][]Group),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	return m.baseURL
}

// SetBaseURL updates the base URL
func (m *MockClient) SetBaseURL(url string) {
	m.baseURL = url
}

// SetToken records the bearer token
func (m *MockClient) SetToken(token string) {
	m.token = token
}

// FetchCatalog returns the configured groups for the item type
func (m *MockClient) FetchCatalog(ctx context.Context, itemType string) ([]Group, error) {
	m.catalogCalls.Add(1)
	if m.catalogHook != nil {
		m.catalogHook(itemType)
	}
	if m.catalogErr != nil {
		return nil, m.catalogErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalogs[itemType], nil
}

// SearchDescriptions returns the configured search results
func (m *MockClient) SearchDescriptions(ctx context.Context, itemType, query string) ([]SearchResult, error) {
	m.searchCalls.Add(1)
	if m.searchHook != nil {
		m.searchHook(query)
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchResults, nil
}

// SubmitEntries records the submitted batch and returns a receipt
func (m *MockClient) SubmitEntries(ctx context.Context, entries []Entry) (*SubmitReceipt, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.mu.Lock()
	m.submitted = append(m.submitted, entries)
	m.mu.Unlock()
	return &SubmitReceipt{
		ReceiptID: uuid.NewString(),
		Inserted:  len(entries),
	}, nil
}

// SetCatalog replaces the groups returned for an item type
func (m *MockClient) SetCatalog(itemType string, groups []Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.catalogs[itemType] = groups
}

// SetSearchResults replaces the configured search results
func (m *MockClient) SetSearchResults(results []SearchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchResults = results
}

// CatalogCalls returns how many times FetchCatalog was called
func (m *MockClient) CatalogCalls() int {
	return int(m.catalogCalls.Load())
}

// SearchCalls returns how many times SearchDescriptions was called
func (m *MockClient) SearchCalls() int {
	return int(m.searchCalls.Load())
}

// Submitted returns the batches passed to SubmitEntries
func (m *MockClient) Submitted() [][]Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]Entry, len(m.submitted))
	copy(out, m.submitted)
	return out
}

// Ensure MockClient implements Client
var _ Client = (*MockClient)(nil)
