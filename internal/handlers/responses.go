package handlers

import "github.com/stocktakehq/stocktake/internal/models"

// SessionResponse is the JSON response for session operations
type SessionResponse struct {
	Session *models.FloorSession `json:"session"`
}

// ItemAddedResponse is the response for adding an item or quantity
type ItemAddedResponse struct {
	Item        *models.AddedItem `json:"item"`
	ItemCount   int               `json:"itemCount"`
	TotalWeight float64           `json:"totalWeight"`
}

// SearchStateResponse is the response for polling search results
type SearchStateResponse struct {
	Query     string                `json:"query"`
	Results   []models.SearchResult `json:"results"`
	Searching bool                  `json:"searching"`
}

// SessionListResponse is the response for listing sessions
type SessionListResponse struct {
	Sessions []models.FloorSession `json:"sessions"`
	Count    int                   `json:"count"`
}
