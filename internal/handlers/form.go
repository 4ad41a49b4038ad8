package handlers

import (
	"net/http"

	"github.com/stocktakehq/stocktake/internal/models"
)

// handleGetForm returns the form snapshot including cascade options
func (h *Handlers) handleGetForm(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.Form.Snapshot())
}

// handleUpdateForm applies one field update to the entry form
func (h *Handlers) handleUpdateForm(w http.ResponseWriter, r *http.Request) {
	var req FormFieldRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	switch req.Field {
	case "category":
		h.Form.SetCategory(req.Value)
	case "subcategory":
		h.Form.SetSubcategory(req.Value)
	case "description":
		h.Form.SetDescription(req.Value)
	default:
		if err := h.Form.SetField(req.Field, req.Value); err != nil {
			respondError(w, err)
			return
		}
	}

	state := h.Form.State()
	h.Session.SaveFormState(r.Context(), &state)
	respondOK(w, h.Form.Snapshot())
}

// handleSetSearchQuery records a search keystroke; results arrive over the
// websocket or via polling once the debounce interval passes.
func (h *Handlers) handleSetSearchQuery(w http.ResponseWriter, r *http.Request) {
	var req SearchQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	h.Search.SetQuery(req.Query)
	query, results, searching := h.Search.Results()
	respondOK(w, SearchStateResponse{Query: query, Results: results, Searching: searching})
}

// handleGetSearchResults returns the current search state
func (h *Handlers) handleGetSearchResults(w http.ResponseWriter, r *http.Request) {
	query, results, searching := h.Search.Results()
	respondOK(w, SearchStateResponse{Query: query, Results: results, Searching: searching})
}

// handleSelectSearchResult applies a picked search result to the form
func (h *Handlers) handleSelectSearchResult(w http.ResponseWriter, r *http.Request) {
	var req SearchSelectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Group == "" || req.Subgroup == "" || req.Particulars == "" {
		respondError(w, BadRequest("group, subgroup and particulars are required"))
		return
	}

	h.Form.SelectSearchResult(models.SearchResult{
		Group:       req.Group,
		Subgroup:    req.Subgroup,
		Particulars: req.Particulars,
		UOM:         req.UOM,
	})
	h.Search.Clear()

	state := h.Form.State()
	h.Session.SaveFormState(r.Context(), &state)
	respondOK(w, h.Form.Snapshot())
}
