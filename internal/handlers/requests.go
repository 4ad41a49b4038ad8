package handlers

// SessionStartRequest represents a request to start a floor session
type SessionStartRequest struct {
	Warehouse string `json:"warehouse"`
	FloorName string `json:"floorName"`
	Authority string `json:"authority"`
}

// ItemTypeRequest represents a request to set the session item type
type ItemTypeRequest struct {
	ItemType string `json:"itemType"`
}

// FormFieldRequest represents a single form field update
type FormFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// SearchQueryRequest represents a description search keystroke
type SearchQueryRequest struct {
	Query string `json:"query"`
}

// SearchSelectRequest represents picking a search result
type SearchSelectRequest struct {
	Group       string   `json:"group"`
	Subgroup    string   `json:"subgroup"`
	Particulars string   `json:"particulars"`
	UOM         *float64 `json:"uom"`
}

// AddQuantityRequest represents adding a count to an existing item line
type AddQuantityRequest struct {
	ItemKey  string `json:"itemKey"`
	Quantity string `json:"quantity"`
}

// SubmitRequest represents a session submission
type SubmitRequest struct {
	EnteredBy string `json:"enteredBy"`
}
