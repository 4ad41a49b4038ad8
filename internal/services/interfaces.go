package services

import (
	"context"
	"time"

	"github.com/stocktakehq/stocktake/internal/models"
)

// SessionServicer defines the interface for session lifecycle operations
type SessionServicer interface {
	Start(ctx context.Context, warehouse, floorName, authority string) (*models.FloorSession, error)
	Current(ctx context.Context) (*models.FloorSession, error)
	SetItemType(ctx context.Context, itemType string) (*models.FloorSession, error)
	SaveFormState(ctx context.Context, form *models.FormState)
	SaveAndContinue(ctx context.Context) (*models.FloorSession, error)
	Submit(ctx context.Context, enteredBy string) (*SubmitResult, error)
	ListSessions(ctx context.Context) ([]models.FloorSession, error)
	GetSession(ctx context.Context, id string) (*models.FloorSession, error)
	ReceiptQR(ctx context.Context, sessionID string) ([]byte, error)
}

// EntryServicer defines the interface for item entry operations
type EntryServicer interface {
	BuildItem(form *models.FormState) (*models.AddedItem, error)
	AddItem(ctx context.Context, item *models.AddedItem) (*models.FloorSession, error)
	AddQuantity(ctx context.Context, itemKey, quantity string) (*models.AddedItem, error)
	RemoveItem(ctx context.Context, id string) (*models.FloorSession, error)
	GroupedForCurrent(ctx context.Context) (GroupedItems, error)
}

// SearchServicer defines the interface for debounced description search
type SearchServicer interface {
	OnResults(fn func(query string, results []models.SearchResult))
	SetItemType(itemType string)
	SetQuery(query string)
	Results() (query string, results []models.SearchResult, searching bool)
	Clear()
}

// FormServicer defines the interface for the entry form state machine
type FormServicer interface {
	OnChange(fn func(FormSnapshot))
	SetItemType(itemType string)
	RefreshCatalog()
	SetCategory(category string)
	SetSubcategory(subcategory string)
	SetDescription(description string)
	SetField(name, value string) error
	SelectSearchResult(result models.SearchResult)
	Restore(session *models.FloorSession)
	ResetAfterAdd()
	ClearWarning()
	State() models.FormState
	Snapshot() FormSnapshot
	AwaitIdle(timeout time.Duration) bool
}

// Interface compliance checks
var (
	_ SessionServicer = (*SessionService)(nil)
	_ EntryServicer   = (*EntryService)(nil)
	_ SearchServicer  = (*SearchService)(nil)
	_ FormServicer    = (*FormService)(nil)
)
