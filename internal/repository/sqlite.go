package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stocktakehq/stocktake/internal/models"
)

// Repository provides SQLite-backed data access
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// NewWithDB creates a Repository around an existing database handle (tests)
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			warehouse TEXT NOT NULL,
			floor_name TEXT NOT NULL,
			authority TEXT,
			item_type TEXT,
			status TEXT DEFAULT 'IN_PROGRESS',
			created_at TEXT,
			submitted_at TEXT,
			last_modified TEXT,
			receipt_id TEXT,
			items TEXT NOT NULL DEFAULT '[]',
			form_state TEXT
		)`,
		// The current-session slot is a single-row table holding the full
		// session payload; last writer wins.
		`CREATE TABLE IF NOT EXISTS current_session (
			slot INTEGER PRIMARY KEY CHECK (slot = 1),
			payload TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_warehouse ON sessions(warehouse, floor_name)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	defaultSettings := map[string]string{
		"backend_url": "",
	}

	for key, value := range defaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// ==================== Current Session Slot ====================

// GetCurrent reads the current-session slot
func (r *Repository) GetCurrent(ctx context.Context) (*models.FloorSession, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM current_session WHERE slot = 1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var session models.FloorSession
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("corrupt current session payload: %w", err)
	}
	return &session, nil
}

// SaveCurrent overwrites the current-session slot
func (r *Repository) SaveCurrent(ctx context.Context, session *models.FloorSession) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO current_session (slot, payload) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload
	`, string(payload))
	return err
}

// ClearCurrent empties the current-session slot
func (r *Repository) ClearCurrent(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM current_session WHERE slot = 1`)
	return err
}

// ==================== All-Sessions Collection ====================

const sessionColumns = `id, warehouse, floor_name, authority, item_type, status,
	created_at, submitted_at, last_modified, receipt_id, items, form_state`

// GetSession reads one session from the collection by id
func (r *Repository) GetSession(ctx context.Context, id string) (*models.FloorSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return session, err
}

// ListSessions returns every session, newest first
func (r *Repository) ListSessions(ctx context.Context) ([]models.FloorSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.FloorSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// CreateSession inserts a session into the collection
func (r *Repository) CreateSession(ctx context.Context, session *models.FloorSession) error {
	items, formState, err := encodeSessionBlobs(session)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.Warehouse, session.FloorName, session.Authority,
		session.ItemType, session.Status, session.CreatedAt, session.SubmittedAt,
		session.LastModified, session.ReceiptID, items, formState)
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateID
	}
	return err
}

// UpdateSession replaces a session in the collection if it exists
func (r *Repository) UpdateSession(ctx context.Context, session *models.FloorSession) (bool, error) {
	items, formState, err := encodeSessionBlobs(session)
	if err != nil {
		return false, err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET
			warehouse = ?, floor_name = ?, authority = ?, item_type = ?,
			status = ?, created_at = ?, submitted_at = ?, last_modified = ?,
			receipt_id = ?, items = ?, form_state = ?
		WHERE id = ?
	`, session.Warehouse, session.FloorName, session.Authority, session.ItemType,
		session.Status, session.CreatedAt, session.SubmittedAt, session.LastModified,
		session.ReceiptID, items, formState, session.ID)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ==================== Settings ====================

// GetSetting retrieves a setting value by key
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting stores a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// ==================== Helpers ====================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.FloorSession, error) {
	var s models.FloorSession
	var authority, itemType, status, createdAt, submittedAt, lastModified, receiptID sql.NullString
	var items string
	var formState sql.NullString

	err := row.Scan(&s.ID, &s.Warehouse, &s.FloorName, &authority, &itemType,
		&status, &createdAt, &submittedAt, &lastModified, &receiptID, &items, &formState)
	if err != nil {
		return nil, err
	}

	s.Authority = authority.String
	s.ItemType = itemType.String
	s.Status = status.String
	s.CreatedAt = createdAt.String
	s.SubmittedAt = submittedAt.String
	s.LastModified = lastModified.String
	s.ReceiptID = receiptID.String

	if err := json.Unmarshal([]byte(items), &s.Items); err != nil {
		return nil, fmt.Errorf("corrupt items payload for session %s: %w", s.ID, err)
	}
	if formState.Valid && formState.String != "" {
		var fs models.FormState
		if err := json.Unmarshal([]byte(formState.String), &fs); err != nil {
			return nil, fmt.Errorf("corrupt form state for session %s: %w", s.ID, err)
		}
		s.CurrentFormState = &fs
	}

	return &s, nil
}

func encodeSessionBlobs(session *models.FloorSession) (items string, formState interface{}, err error) {
	itemList := session.Items
	if itemList == nil {
		itemList = []models.AddedItem{}
	}
	itemsBytes, err := json.Marshal(itemList)
	if err != nil {
		return "", nil, err
	}

	if session.CurrentFormState == nil {
		return string(itemsBytes), nil, nil
	}
	fsBytes, err := json.Marshal(session.CurrentFormState)
	if err != nil {
		return "", nil, err
	}
	return string(itemsBytes), string(fsBytes), nil
}

func isUniqueViolation(err error) bool {
	// go-sqlite3 reports constraint violations in the error text; matching on
	// the message avoids importing the driver's error types here
	return err != nil && strings.Contains(err.Error(), "constraint failed")
}
