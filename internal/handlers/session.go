package handlers

import (
	"net/http"

	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/internal/websocket"
)

// handleStartSession creates a new floor session and makes it current
func (h *Handlers) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req SessionStartRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := h.Session.Start(r.Context(), req.Warehouse, req.FloorName, req.Authority)
	if err != nil {
		respondError(w, err)
		return
	}

	h.Form.Restore(session)
	respondCreated(w, SessionResponse{Session: session})
}

// handleGetCurrentSession returns the active floor session
func (h *Handlers) handleGetCurrentSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Session.Current(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, SessionResponse{Session: session})
}

// handleSetItemType records the item type and reloads the catalog for it
func (h *Handlers) handleSetItemType(w http.ResponseWriter, r *http.Request) {
	var req ItemTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	switch req.ItemType {
	case models.ItemTypePM, models.ItemTypeRM, models.ItemTypeFG, "":
	default:
		respondError(w, BadRequest("Invalid item type: "+req.ItemType))
		return
	}

	session, err := h.Session.SetItemType(r.Context(), req.ItemType)
	if err != nil {
		respondError(w, err)
		return
	}

	h.Form.SetItemType(req.ItemType)
	h.Search.SetItemType(req.ItemType)
	respondOK(w, SessionResponse{Session: session})
}

// handleSaveSession persists the current session and its items
func (h *Handlers) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.Session.SaveAndContinue(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	h.broadcast(func(hub *websocket.Hub) { hub.BroadcastSessionSaved(session) })
	respondOK(w, SessionResponse{Session: session})
}

// handleSubmitSession sends every entry to the backend and closes the session
func (h *Handlers) handleSubmitSession(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	// Body is optional; enteredBy defaults to the session authority
	_ = decodeJSON(r, &req)

	result, err := h.Session.Submit(r.Context(), req.EnteredBy)
	if err != nil {
		respondError(w, err)
		return
	}

	h.broadcast(func(hub *websocket.Hub) {
		hub.BroadcastMessage("session_submitted", result)
	})
	respondOK(w, result)
}

// handleListSessions returns every recorded session
func (h *Handlers) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.Session.ListSessions(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, SessionListResponse{Sessions: sessions, Count: len(sessions)})
}

// handleGetSession returns one recorded session by id
func (h *Handlers) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	session, err := h.Session.GetSession(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, SessionResponse{Session: session})
}

// handleReceiptQR serves a submitted session's receipt as a PNG QR code
func (h *Handlers) handleReceiptQR(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	png, err := h.Session.ReceiptQR(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
