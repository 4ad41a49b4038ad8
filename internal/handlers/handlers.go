package handlers

import (
	"github.com/stocktakehq/stocktake/internal/services"
	"github.com/stocktakehq/stocktake/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Session services.SessionServicer
	Entry   services.EntryServicer
	Search  services.SearchServicer
	Form    services.FormServicer
	Hub     *websocket.Hub
	Log     HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	session services.SessionServicer,
	entry services.EntryServicer,
	search services.SearchServicer,
	form services.FormServicer,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Session: session,
		Entry:   entry,
		Search:  search,
		Form:    form,
		Hub:     hub,
		Log:     log,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without a websocket hub
func NewForTesting(
	session services.SessionServicer,
	entry services.EntryServicer,
	search services.SearchServicer,
	form services.FormServicer,
) *Handlers {
	return &Handlers{
		Session: session,
		Entry:   entry,
		Search:  search,
		Form:    form,
		Log:     NoopHTTPLogger{},
	}
}

// broadcast safely invokes a hub notification; the hub is nil in tests
func (h *Handlers) broadcast(fn func(hub *websocket.Hub)) {
	if h.Hub != nil {
		fn(h.Hub)
	}
}
