package handlers

import (
	"net/http"

	"github.com/stocktakehq/stocktake/internal/websocket"
)

// handleAddItem validates the current form and appends the entry to the session
func (h *Handlers) handleAddItem(w http.ResponseWriter, r *http.Request) {
	state := h.Form.State()
	item, err := h.Entry.BuildItem(&state)
	if err != nil {
		respondError(w, err)
		return
	}

	session, err := h.Entry.AddItem(r.Context(), item)
	if err != nil {
		respondError(w, err)
		return
	}

	h.Form.ResetAfterAdd()
	h.broadcast(func(hub *websocket.Hub) {
		hub.BroadcastEntryAdded(item, session.TotalWeight())
	})
	respondCreated(w, ItemAddedResponse{
		Item:        item,
		ItemCount:   len(session.Items),
		TotalWeight: session.TotalWeight(),
	})
}

// handleAddQuantity records an additional count against an existing item line
func (h *Handlers) handleAddQuantity(w http.ResponseWriter, r *http.Request) {
	var req AddQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	item, err := h.Entry.AddQuantity(r.Context(), req.ItemKey, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}

	session, err := h.Session.Current(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	h.broadcast(func(hub *websocket.Hub) {
		hub.BroadcastEntryAdded(item, session.TotalWeight())
	})
	respondCreated(w, ItemAddedResponse{
		Item:        item,
		ItemCount:   len(session.Items),
		TotalWeight: session.TotalWeight(),
	})
}

// handleRemoveItem deletes one entry by id
func (h *Handlers) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := stringParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	session, err := h.Entry.RemoveItem(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	h.broadcast(func(hub *websocket.Hub) {
		hub.BroadcastEntryRemoved(id, session.TotalWeight())
	})
	respondDeleted(w)
}

// handleGroupedItems returns the session tally grouped for display
func (h *Handlers) handleGroupedItems(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.Entry.GroupedForCurrent(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, grouped)
}
