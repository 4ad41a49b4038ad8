package models

// Item types gating which catalog is fetched
const (
	ItemTypePM = "pm" // packaging material
	ItemTypeRM = "rm" // raw material
	ItemTypeFG = "fg" // finished good
)

// Stock type values as stored on entries
const (
	StockTypeFresh    = "Fresh Stock"
	StockTypeOffGrade = "Off Grade/Rejection"
)

// Session statuses
const (
	StatusInProgress = "IN_PROGRESS"
	StatusSubmitted  = "SUBMITTED"
)

// CatalogGroup is one top-level category in a fetched catalog snapshot.
// Names are stored upper-cased; snapshots are immutable and replaced
// wholesale on refetch.
type CatalogGroup struct {
	Name      string            `json:"name"`
	Subgroups []CatalogSubgroup `json:"subgroups"`
}

// CatalogSubgroup belongs to exactly one group for the lifetime of a snapshot
type CatalogSubgroup struct {
	Name        string              `json:"name"`
	Particulars []CatalogParticular `json:"particulars"`
}

// CatalogParticular is a leaf description; UOM is kg per unit, nil when the
// item has no standard package size
type CatalogParticular struct {
	Name string   `json:"name"`
	UOM  *float64 `json:"uom"`
}

// SearchResult is a flattened catalog triple returned by description search
type SearchResult struct {
	Group       string   `json:"group"`
	Subgroup    string   `json:"subgroup"`
	Particulars string   `json:"particulars"`
	UOM         *float64 `json:"uom"`
}

// PendingSelection is a deferred intent to populate the cascading selectors,
// created when a search result or restored form state references catalog data
// that has not been fetched yet
type PendingSelection struct {
	Group       string   `json:"group"`
	Subgroup    string   `json:"subgroup"`
	Particulars string   `json:"particulars"`
	UOM         *float64 `json:"uom"`
}

// AddedItem is one committed quantity entry. TotalWeight is computed at
// append time as PackageSize * Units and never recomputed afterward.
// Repeated counts of the same catalog item are stored as sibling entries.
type AddedItem struct {
	ID          string  `json:"id"`
	StockType   string  `json:"stockType,omitempty"`
	ItemType    string  `json:"itemType,omitempty"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Description string  `json:"description"`
	PackageSize float64 `json:"packageSize"` // kg per unit
	Units       float64 `json:"units"`
	TotalWeight float64 `json:"totalWeight"`
}

// FormState is an ephemeral snapshot of uncommitted form fields, persisted
// for crash/navigation recovery. Numeric fields are kept as entered.
type FormState struct {
	StockType      string `json:"stockType"`
	ItemType       string `json:"itemType"`
	Category       string `json:"category"`
	CustomCategory string `json:"customCategory,omitempty"`
	Subcategory    string `json:"subcategory"`
	Description    string `json:"description"`
	CustomItemName string `json:"customItemName,omitempty"`
	PackageSize    string `json:"packageSize"`
	Units          string `json:"units"`
	LastFormUpdate string `json:"lastFormUpdate,omitempty"`
}

// FloorSession is one floor's stock-count pass. Owned by this service until
// submission; after submission it is read-mostly (editing reloads it here).
type FloorSession struct {
	ID               string      `json:"id"`
	Warehouse        string      `json:"warehouse"`
	FloorName        string      `json:"floorName"`
	Authority        string      `json:"authority"`
	ItemType         string      `json:"itemType,omitempty"`
	Status           string      `json:"status,omitempty"`
	Items            []AddedItem `json:"items"`
	CreatedAt        string      `json:"createdAt"`
	SubmittedAt      string      `json:"submittedAt,omitempty"`
	LastModified     string      `json:"lastModified,omitempty"`
	ReceiptID        string      `json:"receiptId,omitempty"`
	CurrentFormState *FormState  `json:"currentFormState,omitempty"`
}

// TotalWeight sums the committed entries
func (s *FloorSession) TotalWeight() float64 {
	var sum float64
	for _, item := range s.Items {
		sum += item.TotalWeight
	}
	return sum
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
