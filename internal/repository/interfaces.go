package repository

import (
	"context"

	"github.com/stocktakehq/stocktake/internal/models"
)

// SessionRepository defines durable floor-session storage: a single "current
// session" slot plus the collection of all sessions. Writes are
// last-writer-wins with no versioning.
type SessionRepository interface {
	// GetCurrent reads the current-session slot; ErrNotFound when empty
	GetCurrent(ctx context.Context) (*models.FloorSession, error)
	// SaveCurrent overwrites the current-session slot
	SaveCurrent(ctx context.Context, session *models.FloorSession) error
	// ClearCurrent empties the current-session slot
	ClearCurrent(ctx context.Context) error
	// GetSession reads one session from the all-sessions collection
	GetSession(ctx context.Context, id string) (*models.FloorSession, error)
	// ListSessions returns every session in the collection
	ListSessions(ctx context.Context) ([]models.FloorSession, error)
	// CreateSession inserts a session into the collection
	CreateSession(ctx context.Context, session *models.FloorSession) error
	// UpdateSession replaces a session in the collection if it exists,
	// returning whether a matching id was found
	UpdateSession(ctx context.Context, session *models.FloorSession) (bool, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	SessionRepository
	SettingsRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure implementations satisfy the combined interface
var (
	_ FullRepository = (*Repository)(nil)
	_ FullRepository = (*RedisRepository)(nil)
)
