// Package stockapi provides a client for the stock-take backend service
// (categorial inventory and entry submission endpoints).
package stockapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/stocktakehq/stocktake/internal/logger"
)

// FlexFloat is a *float64 that can be unmarshaled from a JSON number, a
// numeric string, or null. The backend is inconsistent about how it encodes
// UOM values depending on which import populated the catalog row.
type FlexFloat struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler for FlexFloat
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		f.Value = nil
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = &n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" {
			f.Value = nil
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("FlexFloat: cannot parse %q", s)
		}
		f.Value = &parsed
		return nil
	}

	return fmt.Errorf("FlexFloat: cannot unmarshal %s", string(data))
}

// MarshalJSON implements json.Marshaler for FlexFloat
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*f.Value)
}

// Particular is a leaf catalog description with its per-unit weight in kg
type Particular struct {
	Name string    `json:"name"`
	UOM  FlexFloat `json:"uom"`
}

// Subgroup is a second-level catalog node
type Subgroup struct {
	Name        string       `json:"name"`
	Particulars []Particular `json:"particulars"`
}

// Group is a top-level catalog node
type Group struct {
	Name      string     `json:"name"`
	Subgroups []Subgroup `json:"subgroups"`
}

// CatalogResponse is the response from the categorial-inv endpoint
type CatalogResponse struct {
	Groups []Group `json:"groups"`
}

// SearchResult is one flattened match from the description search endpoint
type SearchResult struct {
	Group       string    `json:"group"`
	Subgroup    string    `json:"subgroup"`
	Particulars string    `json:"particulars"`
	UOM         FlexFloat `json:"uom"`
}

// SearchResponse is the response from the description search endpoint.
// An empty result list is a valid "no matches" outcome, not an error.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// Entry is one stock-take entry row as the backend expects it on submission
type Entry struct {
	ItemName    string  `json:"itemName"`
	Description string  `json:"description"`
	ItemType    string  `json:"itemType"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	FloorName   string  `json:"floorName"`
	Warehouse   string  `json:"warehouse"`
	Units       float64 `json:"units"`
	PackageSize float64 `json:"unitUom"`
	TotalWeight float64 `json:"totalWeight"`
	Authority   string  `json:"authority"`
	EnteredBy   string  `json:"enteredBy,omitempty"`
}

// SubmitReceipt is the backend's acknowledgement for a batch of entries
type SubmitReceipt struct {
	ReceiptID string `json:"receiptId"`
	Inserted  int    `json:"inserted"`
	Message   string `json:"message,omitempty"`
}

// Client defines the interface for stock-take backend operations
type Client interface {
	// FetchCatalog retrieves the full category hierarchy for one item type
	FetchCatalog(ctx context.Context, itemType string) ([]Group, error)
	// SearchDescriptions free-text searches catalog descriptions
	SearchDescriptions(ctx context.Context, itemType, query string) ([]SearchResult, error)
	// SubmitEntries uploads a batch of committed entries
	SubmitEntries(ctx context.Context, entries []Entry) (*SubmitReceipt, error)
	// BaseURL returns the configured backend base URL
	BaseURL() string
	// SetBaseURL updates the backend base URL
	SetBaseURL(url string)
	// SetToken configures the bearer token sent with every request
	SetToken(token string)
}

// HTTPClient is a real HTTP client for the stock-take backend
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger
	token      string
}

// NewHTTPClient creates a new backend HTTP client
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// NewHTTPClientWithHTTPClient creates a backend client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// BaseURL returns the configured backend base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the backend base URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = url
}

// SetToken configures the bearer token sent with every request
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// doGet executes a GET request and decodes the JSON response into out
func (c *HTTPClient) doGet(ctx context.Context, path string, out interface{}) error {
	reqURL := c.baseURL + path

	c.log.Debug("Backend request", "method", "GET", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, out)
}

// doPost executes a POST request with a JSON body and decodes the response
func (c *HTTPClient) doPost(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	reqURL := c.baseURL + path

	c.log.Debug("Backend request", "method", "POST", "url", reqURL, "body", string(payload))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req, out)
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func (c *HTTPClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to backend: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("Backend response", "status", resp.StatusCode, "body", string(body))

	if resp.StatusCode != http.StatusOK {
		// Error payloads carry {"error": "..."} when the backend produced them
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

// FetchCatalog retrieves the full category hierarchy for one item type
func (c *HTTPClient) FetchCatalog(ctx context.Context, itemType string) ([]Group, error) {
	var response CatalogResponse
	path := fmt.Sprintf("/api/categorial-inv/%s", url.PathEscape(itemType))
	if err := c.doGet(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Groups, nil
}

// SearchDescriptions free-text searches catalog descriptions for one item type
func (c *HTTPClient) SearchDescriptions(ctx context.Context, itemType, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("query", query)

	var response SearchResponse
	path := fmt.Sprintf("/api/categorial-inv/%s/search?%s", url.PathEscape(itemType), params.Encode())
	if err := c.doGet(ctx, path, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

// SubmitEntries uploads a batch of committed entries
func (c *HTTPClient) SubmitEntries(ctx context.Context, entries []Entry) (*SubmitReceipt, error) {
	body := map[string]interface{}{"entries": entries}

	var receipt SubmitReceipt
	if err := c.doPost(ctx, "/api/stocktake-entries/submit", body, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// Ensure HTTPClient implements Client
var _ Client = (*HTTPClient)(nil)
