// Package mock provides an in-memory repository for tests.
package mock

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/internal/repository"
)

// Repository is an in-memory repository.FullRepository with error injection.
// Sessions are deep-copied on the way in and out so tests cannot alias
// repository state through shared slices.
type Repository struct {
	mu       sync.Mutex
	current  *models.FloorSession
	sessions map[string]*models.FloorSession
	settings map[string]string

	// Error injection; when set, the corresponding operation fails
	GetCurrentErr  error
	SaveCurrentErr error
	CreateErr      error
	UpdateErr      error
	ListErr        error

	SaveCurrentCalls int
}

// New creates an empty in-memory repository
func New() *Repository {
	return &Repository{
		sessions: make(map[string]*models.FloorSession),
		settings: make(map[string]string),
	}
}

func copySession(s *models.FloorSession) *models.FloorSession {
	if s == nil {
		return nil
	}
	// JSON round-trip keeps the copy honest as the model grows
	payload, _ := json.Marshal(s)
	var out models.FloorSession
	_ = json.Unmarshal(payload, &out)
	return &out
}

// GetCurrent reads the current-session slot
func (r *Repository) GetCurrent(ctx context.Context) (*models.FloorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetCurrentErr != nil {
		return nil, r.GetCurrentErr
	}
	if r.current == nil {
		return nil, repository.ErrNotFound
	}
	return copySession(r.current), nil
}

// SaveCurrent overwrites the current-session slot
func (r *Repository) SaveCurrent(ctx context.Context, session *models.FloorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SaveCurrentCalls++
	if r.SaveCurrentErr != nil {
		return r.SaveCurrentErr
	}
	r.current = copySession(session)
	return nil
}

// ClearCurrent empties the current-session slot
func (r *Repository) ClearCurrent(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = nil
	return nil
}

// GetSession reads one session from the collection
func (r *Repository) GetSession(ctx context.Context, id string) (*models.FloorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return copySession(session), nil
}

// ListSessions returns every session in the collection
func (r *Repository) ListSessions(ctx context.Context) ([]models.FloorSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	var out []models.FloorSession
	for _, session := range r.sessions {
		out = append(out, *copySession(session))
	}
	return out, nil
}

// CreateSession inserts a session into the collection
func (r *Repository) CreateSession(ctx context.Context, session *models.FloorSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	if _, exists := r.sessions[session.ID]; exists {
		return repository.ErrDuplicateID
	}
	r.sessions[session.ID] = copySession(session)
	return nil
}

// UpdateSession replaces a session in the collection if it exists
func (r *Repository) UpdateSession(ctx context.Context, session *models.FloorSession) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return false, r.UpdateErr
	}
	if _, exists := r.sessions[session.ID]; !exists {
		return false, nil
	}
	r.sessions[session.ID] = copySession(session)
	return true, nil
}

// GetSetting retrieves a setting value by key
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings[key], nil
}

// SetSetting stores a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[key] = value
	return nil
}

// Ping always succeeds
func (r *Repository) Ping(ctx context.Context) error { return nil }

// Close is a no-op
func (r *Repository) Close() error { return nil }

// SessionCount reports how many sessions are in the collection
func (r *Repository) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Ensure Repository implements the full interface
var _ repository.FullRepository = (*Repository)(nil)
