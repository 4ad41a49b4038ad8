package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stocktakehq/stocktake/internal/handlers"
	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/repository/mock"
	"github.com/stocktakehq/stocktake/internal/services"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// noopLogger implements logger.Logger but discards all output
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

func (noopLogger) SetLevel(level slog.Level) {}

func (noopLogger) GetLevel() slog.Level { return slog.LevelInfo }

func (noopLogger) EnableHTTPLogging() {}

func (noopLogger) DisableHTTPLogging() {}

func (noopLogger) IsHTTPLoggingEnabled() bool { return false }

var _ logger.Logger = noopLogger{}

type testSetup struct {
	repo   *mock.Repository
	client *stockapi.MockClient
	form   *services.FormService
	router chi.Router
}

func uomPtr(v float64) *float64 { return &v }

func testCatalog() []stockapi.Group {
	return []stockapi.Group{
		{
			Name: "SOLVENTS",
			Subgroups: []stockapi.Subgroup{
				{
					Name: "ACETONE",
					Particulars: []stockapi.Particular{
						{Name: "ACETONE 99%", UOM: stockapi.FlexFloat{Value: uomPtr(25)}},
					},
				},
			},
		},
	}
}

func newTestSetup(t *testing.T, opts ...stockapi.MockOption) *testSetup {
	t.Helper()

	repo := mock.New()
	opts = append([]stockapi.MockOption{stockapi.WithCatalog("rm", testCatalog())}, opts...)
	client := stockapi.NewMockClient(opts...)
	log := noopLogger{}

	sessionSvc := services.NewSessionService(log, repo, client)
	entrySvc := services.NewEntryService(log, repo)
	searchSvc := services.NewSearchServiceWithInterval(log, client, 5*time.Millisecond)
	formSvc := services.NewFormService(log, client)

	h := handlers.NewForTesting(sessionSvc, entrySvc, searchSvc, formSvc)
	return &testSetup{
		repo:   repo,
		client: client,
		form:   formSvc,
		router: h.Router(),
	}
}

func (s *testSetup) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testSetup) startSession(t *testing.T) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/sessions", map[string]string{
		"warehouse": "WH-A",
		"floorName": "Floor 2",
		"authority": "J. Patel",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("failed to start session: %d %s", rec.Code, rec.Body.String())
	}
}

// selectItemType sets the item type and waits for the catalog load to settle
func (s *testSetup) selectItemType(t *testing.T, itemType string) {
	t.Helper()
	rec := s.do(t, http.MethodPut, "/api/session/current/item-type", map[string]string{"itemType": itemType})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed to set item type: %d %s", rec.Code, rec.Body.String())
	}
	if !s.form.AwaitIdle(time.Second) {
		t.Fatal("catalog load did not settle")
	}
}

func (s *testSetup) patchForm(t *testing.T, field, value string) {
	t.Helper()
	rec := s.do(t, http.MethodPatch, "/api/session/current/form", map[string]string{"field": field, "value": value})
	if rec.Code != http.StatusOK {
		t.Fatalf("failed to set form field %s: %d %s", field, rec.Code, rec.Body.String())
	}
}

// fillValidForm walks the form to a state that passes entry validation
func (s *testSetup) fillValidForm(t *testing.T) {
	t.Helper()
	s.patchForm(t, "stockType", "fresh")
	s.patchForm(t, "category", "SOLVENTS")
	s.patchForm(t, "subcategory", "ACETONE")
	s.patchForm(t, "description", "ACETONE 99%")
	s.patchForm(t, "units", "4")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestHandleStartSession_Success(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/sessions", map[string]string{
		"warehouse": "WH-A",
		"floorName": "Floor 2",
		"authority": "J. Patel",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	session, ok := body["session"].(map[string]interface{})
	if !ok {
		t.Fatal("expected session in response")
	}
	if session["warehouse"] != "WH-A" || session["status"] != "IN_PROGRESS" {
		t.Errorf("session fields wrong: %+v", session)
	}
}

func TestHandleStartSession_MissingFields(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodPost, "/api/sessions", map[string]string{"warehouse": "WH-A"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleGetCurrentSession_NoSession(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/session/current", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	body := decodeBody(t, rec)
	if body["code"] != "NO_ACTIVE_SESSION" {
		t.Errorf("expected NO_ACTIVE_SESSION code, got %v", body["code"])
	}
	if body["redirect"] != "/" {
		t.Errorf("expected redirect hint /, got %v", body["redirect"])
	}
}

func TestHandleGetCurrentSession_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodGet, "/api/session/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
}

func TestHandleSetItemType_Invalid(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPut, "/api/session/current/item-type", map[string]string{"itemType": "scrap"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleSetItemType_LoadsCatalog(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")

	rec := setup.do(t, http.MethodGet, "/api/session/current/form", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	body := decodeBody(t, rec)
	categories, ok := body["categories"].([]interface{})
	if !ok || len(categories) != 1 || categories[0] != "SOLVENTS" {
		t.Errorf("expected [SOLVENTS] categories, got %v", body["categories"])
	}
}

func TestHandleUpdateForm_CascadeOptions(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")

	setup.patchForm(t, "category", "SOLVENTS")
	rec := setup.do(t, http.MethodGet, "/api/session/current/form", nil)
	body := decodeBody(t, rec)

	subs, ok := body["subcategories"].([]interface{})
	if !ok || len(subs) != 1 || subs[0] != "ACETONE" {
		t.Errorf("expected [ACETONE] subcategories, got %v", body["subcategories"])
	}
}

func TestHandleUpdateForm_UnknownField(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPatch, "/api/session/current/form", map[string]string{"field": "flavor", "value": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleAddItem_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)

	rec := setup.do(t, http.MethodPost, "/api/session/current/items", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["itemCount"] != float64(1) {
		t.Errorf("expected itemCount 1, got %v", body["itemCount"])
	}
	if body["totalWeight"] != float64(100) {
		t.Errorf("expected totalWeight 100, got %v", body["totalWeight"])
	}

	item, ok := body["item"].(map[string]interface{})
	if !ok {
		t.Fatal("expected item in response")
	}
	if item["description"] != "ACETONE 99%" {
		t.Errorf("item description wrong: %v", item["description"])
	}
}

func TestHandleAddItem_IncompleteForm(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.patchForm(t, "stockType", "fresh")

	rec := setup.do(t, http.MethodPost, "/api/session/current/items", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestHandleAddItem_ResetsFormButKeepsTypes(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)

	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	state := setup.form.State()
	if state.Category != "" || state.Units != "" {
		t.Errorf("expected cleared form fields, got %+v", state)
	}
	if state.StockType != "fresh" || state.ItemType != "rm" {
		t.Errorf("expected stock and item type preserved, got %+v", state)
	}
}

func TestHandleAddQuantity_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/items/quantity", map[string]string{
		"itemKey":  "ACETONE|ACETONE 99%",
		"quantity": "2",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["itemCount"] != float64(2) {
		t.Errorf("expected itemCount 2, got %v", body["itemCount"])
	}
	if body["totalWeight"] != float64(150) {
		t.Errorf("expected totalWeight 150, got %v", body["totalWeight"])
	}
}

func TestHandleAddQuantity_InvalidQuantity(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/items/quantity", map[string]string{
		"itemKey":  "ACETONE|ACETONE 99%",
		"quantity": "abc",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleRemoveItem_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)

	rec := setup.do(t, http.MethodPost, "/api/session/current/items", nil)
	body := decodeBody(t, rec)
	item := body["item"].(map[string]interface{})
	itemID := item["id"].(string)

	rec = setup.do(t, http.MethodDelete, "/api/session/current/items/"+itemID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rec.Code, rec.Body.String())
	}
}

func TestHandleRemoveItem_NotFound(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodDelete, "/api/session/current/items/item-nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleGroupedItems(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodGet, "/api/session/current/items/grouped", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["totalWeight"] != float64(100) {
		t.Errorf("expected totalWeight 100, got %v", body["totalWeight"])
	}
	categories, ok := body["categories"].([]interface{})
	if !ok || len(categories) != 1 {
		t.Fatalf("expected 1 grouped category, got %v", body["categories"])
	}
}

func TestHandleSaveSession_RequiresItems(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPost, "/api/session/current/save", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestHandleSaveSession_VisibleInSessionList(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	saved := decodeBody(t, rec)["session"].(map[string]interface{})
	sessionID := saved["id"].(string)

	rec = setup.do(t, http.MethodGet, "/api/sessions", nil)
	if body := decodeBody(t, rec); body["count"] != float64(1) {
		t.Fatalf("unsubmitted saved session missing from list: %v", body["count"])
	}

	// The collection copy must round-trip the full item blob
	rec = setup.do(t, http.MethodGet, "/api/sessions/"+sessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	session := decodeBody(t, rec)["session"].(map[string]interface{})
	if session["status"] != "IN_PROGRESS" {
		t.Errorf("status = %v, want IN_PROGRESS", session["status"])
	}
	items := session["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 item in collection copy, got %d", len(items))
	}
	item := items[0].(map[string]interface{})
	if item["description"] != "ACETONE 99%" || item["category"] != "SOLVENTS" || item["subcategory"] != "ACETONE" {
		t.Errorf("item blob wrong: %+v", item)
	}
	if item["packageSize"] != float64(25) || item["units"] != float64(4) || item["totalWeight"] != float64(100) {
		t.Errorf("item numbers wrong: %+v", item)
	}
}

func TestHandleSubmitSession_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/submit", map[string]string{"enteredBy": "j.patel"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["receiptId"] == nil || body["receiptId"] == "" {
		t.Error("expected receiptId in response")
	}
	if len(setup.client.Submitted()) != 1 {
		t.Errorf("expected 1 submission, got %d", len(setup.client.Submitted()))
	}
}

func TestHandleSubmitSession_BackendDown(t *testing.T) {
	setup := newTestSetup(t, stockapi.WithSubmitError(errors.New("connection refused")))
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/submit", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadGateway, rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["code"] != "BACKEND_UNAVAILABLE" {
		t.Errorf("expected BACKEND_UNAVAILABLE code, got %v", body["code"])
	}
}

func TestHandleSubmitSession_NoItems(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPost, "/api/session/current/submit", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}

func TestHandleListSessions_AfterSubmit(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)
	setup.do(t, http.MethodPost, "/api/session/current/submit", nil)

	rec := setup.do(t, http.MethodGet, "/api/sessions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	body := decodeBody(t, rec)
	if body["count"] != float64(1) {
		t.Errorf("expected 1 session, got %v", body["count"])
	}
}

func TestHandleGetSession_NotFound(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.do(t, http.MethodGet, "/api/sessions/session-nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestHandleReceiptQR_Success(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.fillValidForm(t)
	setup.do(t, http.MethodPost, "/api/session/current/items", nil)

	rec := setup.do(t, http.MethodPost, "/api/session/current/submit", nil)
	body := decodeBody(t, rec)
	sessionID := body["sessionId"].(string)

	rec = setup.do(t, http.MethodGet, fmt.Sprintf("/api/sessions/%s/receipt-qr", sessionID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	png := rec.Body.Bytes()
	if len(png) < 8 || png[0] != 0x89 || png[1] != 'P' || png[2] != 'N' || png[3] != 'G' {
		t.Error("response is not a PNG")
	}
}

func TestHandleSearch_SetAndPoll(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")
	setup.client.SetSearchResults([]stockapi.SearchResult{
		{Group: "SOLVENTS", Subgroup: "ACETONE", Particulars: "ACETONE 99%", UOM: stockapi.FlexFloat{Value: uomPtr(25)}},
	})

	rec := setup.do(t, http.MethodPut, "/api/session/current/search", map[string]string{"query": "acet"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	// Debounce interval is 5ms in tests; poll until the results land
	deadline := time.Now().Add(time.Second)
	for {
		rec = setup.do(t, http.MethodGet, "/api/session/current/search", nil)
		body := decodeBody(t, rec)
		if results, ok := body["results"].([]interface{}); ok && len(results) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("search results never arrived: %s", rec.Body.String())
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestHandleSelectSearchResult_AppliesToForm(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)
	setup.selectItemType(t, "rm")

	rec := setup.do(t, http.MethodPost, "/api/session/current/search/select", map[string]interface{}{
		"group":       "SOLVENTS",
		"subgroup":    "ACETONE",
		"particulars": "ACETONE 99%",
		"uom":         25,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	state := setup.form.State()
	if state.Category != "SOLVENTS" || state.Subcategory != "ACETONE" || state.Description != "ACETONE 99%" {
		t.Errorf("selection not applied: %+v", state)
	}
	if state.PackageSize != "25.000" {
		t.Errorf("expected package size 25.000, got %q", state.PackageSize)
	}
}

func TestHandleSelectSearchResult_MissingTriple(t *testing.T) {
	setup := newTestSetup(t)
	setup.startSession(t)

	rec := setup.do(t, http.MethodPost, "/api/session/current/search/select", map[string]string{"group": "SOLVENTS"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
