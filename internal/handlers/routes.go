package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Session lifecycle
	r.Post("/api/sessions", h.handleStartSession)
	r.Get("/api/sessions", h.handleListSessions)
	r.Get("/api/sessions/{id}", h.handleGetSession)
	r.Get("/api/sessions/{id}/receipt-qr", h.handleReceiptQR)

	// Current session
	r.Route("/api/session/current", func(r chi.Router) {
		r.Get("/", h.handleGetCurrentSession)
		r.Put("/item-type", h.handleSetItemType)
		r.Post("/save", h.handleSaveSession)
		r.Post("/submit", h.handleSubmitSession)

		// Entry form
		r.Get("/form", h.handleGetForm)
		r.Patch("/form", h.handleUpdateForm)

		// Description search
		r.Put("/search", h.handleSetSearchQuery)
		r.Get("/search", h.handleGetSearchResults)
		r.Post("/search/select", h.handleSelectSearchResult)

		// Items
		r.Post("/items", h.handleAddItem)
		r.Post("/items/quantity", h.handleAddQuantity)
		r.Delete("/items/{id}", h.handleRemoveItem)
		r.Get("/items/grouped", h.handleGroupedItems)
	})

	return r
}
