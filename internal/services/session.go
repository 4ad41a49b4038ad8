package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/stocktakehq/stocktake/internal/errors"
	"github.com/stocktakehq/stocktake/internal/logger"
	"github.com/stocktakehq/stocktake/internal/models"
	"github.com/stocktakehq/stocktake/internal/repository"
	"github.com/stocktakehq/stocktake/pkg/stockapi"
)

// SessionServiceRepository defines the repository methods needed by SessionService
type SessionServiceRepository interface {
	repository.SessionRepository
	repository.SettingsRepository
}

// SessionService handles floor session lifecycle: start, restore, save,
// submit to the backend and receipt generation.
type SessionService struct {
	log    logger.Logger
	repo   SessionServiceRepository
	client stockapi.Client
}

// NewSessionService creates a new SessionService
func NewSessionService(log logger.Logger, repo SessionServiceRepository, client stockapi.Client) *SessionService {
	return &SessionService{log: log, repo: repo, client: client}
}

// SubmitResult contains the outcome of a session submission
type SubmitResult struct {
	SessionID   string `json:"sessionId"`
	ReceiptID   string `json:"receiptId"`
	Inserted    int    `json:"inserted"`
	Message     string `json:"message,omitempty"`
	SubmittedAt string `json:"submittedAt"`
}

// Start creates a new floor session and makes it current. Any previous
// current session is replaced; callers decide whether that is acceptable.
func (s *SessionService) Start(ctx context.Context, warehouse, floorName, authority string) (*models.FloorSession, error) {
	if warehouse == "" || floorName == "" || authority == "" {
		return nil, ErrSessionFieldsReq
	}

	now := time.Now()
	session := &models.FloorSession{
		ID:           fmt.Sprintf("session-%d", now.UnixMilli()),
		Warehouse:    warehouse,
		FloorName:    floorName,
		Authority:    authority,
		Status:       models.StatusInProgress,
		Items:        []models.AddedItem{},
		CreatedAt:    now.UTC().Format(time.RFC3339),
		LastModified: now.UTC().Format(time.RFC3339),
	}

	if err := s.repo.SaveCurrent(ctx, session); err != nil {
		return nil, fmt.Errorf("starting session: %w", err)
	}
	s.log.Info("session started", "id", session.ID, "warehouse", warehouse, "floor", floorName)
	return session, nil
}

// Current returns the active floor session
func (s *SessionService) Current(ctx context.Context) (*models.FloorSession, error) {
	session, err := s.repo.GetCurrent(ctx)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNoActiveSession
		}
		return nil, err
	}
	return session, nil
}

// SetItemType records the session-level item type selection
func (s *SessionService) SetItemType(ctx context.Context, itemType string) (*models.FloorSession, error) {
	session, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	session.ItemType = itemType
	session.LastModified = time.Now().UTC().Format(time.RFC3339)
	if err := s.repo.SaveCurrent(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SaveFormState snapshots the entry form onto the current session so a
// restore can resume exactly where the operator left off. Persistence
// failures are logged and swallowed; a form keystroke must never error out.
func (s *SessionService) SaveFormState(ctx context.Context, form *models.FormState) {
	session, err := s.Current(ctx)
	if err != nil {
		return
	}
	form.LastFormUpdate = time.Now().UTC().Format(time.RFC3339)
	session.CurrentFormState = form
	if err := s.repo.SaveCurrent(ctx, session); err != nil {
		s.log.Warn("form state save failed", "session", session.ID, "error", err)
	}
}

// SaveAndContinue persists the current session's items and mirrors the
// session into the session collection, creating the collection copy on the
// first save so unsubmitted sessions show up in listings.
func (s *SessionService) SaveAndContinue(ctx context.Context) (*models.FloorSession, error) {
	session, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if len(session.Items) == 0 {
		return nil, ErrNoItems
	}

	session.LastModified = time.Now().UTC().Format(time.RFC3339)
	if err := s.repo.SaveCurrent(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	if updated, err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("updating session collection: %w", err)
	} else if !updated {
		if err := s.repo.CreateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("recording saved session: %w", err)
		}
	}
	s.log.Info("session saved", "id", session.ID, "items", len(session.Items))
	return session, nil
}

// Submit sends every entry of the current session to the backend, marks the
// session submitted and records it in the session collection.
func (s *SessionService) Submit(ctx context.Context, enteredBy string) (*SubmitResult, error) {
	session, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	if session.Status == models.StatusSubmitted {
		return nil, ErrSessionSubmitted
	}
	if len(session.Items) == 0 {
		return nil, ErrNoItems
	}

	entries := make([]stockapi.Entry, 0, len(session.Items))
	for _, item := range session.Items {
		itemType := item.ItemType
		if itemType == "" {
			itemType = session.ItemType
		}
		entries = append(entries, stockapi.Entry{
			ItemName:    item.Description,
			Description: item.Description,
			ItemType:    itemType,
			Category:    item.Category,
			Subcategory: item.Subcategory,
			FloorName:   session.FloorName,
			Warehouse:   session.Warehouse,
			Units:       item.Units,
			PackageSize: item.PackageSize,
			TotalWeight: item.TotalWeight,
			Authority:   session.Authority,
			EnteredBy:   enteredBy,
		})
	}

	receipt, err := s.client.SubmitEntries(ctx, entries)
	if err != nil {
		return nil, errors.Unavailable("failed to submit entries to the backend", err)
	}

	receiptID := receipt.ReceiptID
	if receiptID == "" {
		receiptID = uuid.NewString()
	}
	submittedAt := time.Now().UTC().Format(time.RFC3339)

	session.Status = models.StatusSubmitted
	session.SubmittedAt = submittedAt
	session.ReceiptID = receiptID
	session.LastModified = submittedAt

	if err := s.repo.SaveCurrent(ctx, session); err != nil {
		return nil, fmt.Errorf("saving submitted session: %w", err)
	}
	if updated, err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("updating session collection: %w", err)
	} else if !updated {
		if err := s.repo.CreateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("recording submitted session: %w", err)
		}
	}

	s.log.Info("session submitted", "id", session.ID, "entries", len(entries), "receipt", receiptID)
	return &SubmitResult{
		SessionID:   session.ID,
		ReceiptID:   receiptID,
		Inserted:    receipt.Inserted,
		Message:     receipt.Message,
		SubmittedAt: submittedAt,
	}, nil
}

// ListSessions returns every recorded session
func (s *SessionService) ListSessions(ctx context.Context) ([]models.FloorSession, error) {
	return s.repo.ListSessions(ctx)
}

// GetSession returns one recorded session by id
func (s *SessionService) GetSession(ctx context.Context, id string) (*models.FloorSession, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, &ServiceError{Message: "session not found"}
		}
		return nil, err
	}
	return session, nil
}

// ReceiptQR renders a submitted session's receipt as a PNG QR code
func (s *SessionService) ReceiptQR(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ReceiptID == "" {
		return nil, &ServiceError{Message: "session has no receipt"}
	}
	content := fmt.Sprintf("stocktake:receipt:%s:%s", session.ID, session.ReceiptID)
	png, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encoding receipt QR: %w", err)
	}
	return png, nil
}
