package repository

import (
	"context"
	"testing"

	"github.com/stocktakehq/stocktake/internal/models"
)

// newTestRepo creates a new in-memory repository for testing.
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleSession(id string) *models.FloorSession {
	return &models.FloorSession{
		ID:        id,
		Warehouse: "WH-A",
		FloorName: "Floor 2",
		Authority: "J. Patel",
		ItemType:  "rm",
		Status:    models.StatusInProgress,
		Items: []models.AddedItem{
			{
				ID:          "item-1",
				StockType:   models.StockTypeFresh,
				ItemType:    "RM",
				Category:    "SOLVENTS",
				Subcategory: "ACETONE",
				Description: "ACETONE 99%",
				PackageSize: 25,
				Units:       4,
				TotalWeight: 100,
			},
		},
		CreatedAt: "2026-08-01T10:00:00Z",
	}
}

// ==================== Current Session Slot ====================

func TestGetCurrent_EmptySlot(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetCurrent(context.Background())
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveCurrent_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := sampleSession("session-1")
	session.CurrentFormState = &models.FormState{Category: "SOLVENTS", Units: "4"}
	if err := repo.SaveCurrent(ctx, session); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}

	got, err := repo.GetCurrent(ctx)
	if err != nil {
		t.Fatalf("GetCurrent failed: %v", err)
	}
	if got.ID != "session-1" || got.Warehouse != "WH-A" {
		t.Errorf("session fields wrong: %+v", got)
	}
	if len(got.Items) != 1 || got.Items[0].Description != "ACETONE 99%" {
		t.Errorf("items not round-tripped: %+v", got.Items)
	}
	if got.CurrentFormState == nil || got.CurrentFormState.Category != "SOLVENTS" {
		t.Errorf("form state not round-tripped: %+v", got.CurrentFormState)
	}
}

func TestSaveCurrent_LastWriterWins(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveCurrent(ctx, sampleSession("session-1")); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}
	second := sampleSession("session-2")
	if err := repo.SaveCurrent(ctx, second); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}

	got, err := repo.GetCurrent(ctx)
	if err != nil {
		t.Fatalf("GetCurrent failed: %v", err)
	}
	if got.ID != "session-2" {
		t.Errorf("expected session-2 in slot, got %q", got.ID)
	}
}

func TestClearCurrent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveCurrent(ctx, sampleSession("session-1")); err != nil {
		t.Fatalf("SaveCurrent failed: %v", err)
	}
	if err := repo.ClearCurrent(ctx); err != nil {
		t.Fatalf("ClearCurrent failed: %v", err)
	}
	if _, err := repo.GetCurrent(ctx); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after clear, got %v", err)
	}
}

// ==================== Session Collection ====================

func TestCreateSession_AndGet(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := sampleSession("session-1")
	session.Status = models.StatusSubmitted
	session.SubmittedAt = "2026-08-01T12:00:00Z"
	session.ReceiptID = "receipt-1"
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != models.StatusSubmitted || got.ReceiptID != "receipt-1" {
		t.Errorf("session fields wrong: %+v", got)
	}
	if len(got.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(got.Items))
	}
}

func TestCreateSession_DuplicateID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateSession(ctx, sampleSession("session-1")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := repo.CreateSession(ctx, sampleSession("session-1")); err != ErrDuplicateID {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestGetSession_NonExistent(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.GetSession(context.Background(), "session-unknown")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListSessions_NewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	older := sampleSession("session-1")
	older.CreatedAt = "2026-08-01T10:00:00Z"
	newer := sampleSession("session-2")
	newer.CreatedAt = "2026-08-02T10:00:00Z"

	if err := repo.CreateSession(ctx, older); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := repo.CreateSession(ctx, newer); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	sessions, err := repo.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "session-2" || sessions[1].ID != "session-1" {
		t.Errorf("order wrong: %q, %q", sessions[0].ID, sessions[1].ID)
	}
}

func TestUpdateSession(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := sampleSession("session-1")
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	session.Status = models.StatusSubmitted
	session.Items = append(session.Items, models.AddedItem{ID: "item-2", Description: "TOLUENE TECH"})
	updated, err := repo.UpdateSession(ctx, session)
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if !updated {
		t.Fatal("expected update to report true")
	}

	got, _ := repo.GetSession(ctx, "session-1")
	if got.Status != models.StatusSubmitted || len(got.Items) != 2 {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestUpdateSession_NonExistent(t *testing.T) {
	repo := newTestRepo(t)

	updated, err := repo.UpdateSession(context.Background(), sampleSession("session-unknown"))
	if err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if updated {
		t.Error("expected update to report false for unknown session")
	}
}

// ==================== Settings ====================

func TestSettings_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SetSetting(ctx, "backend_url", "https://api.example.com"); err != nil {
		t.Fatalf("SetSetting failed: %v", err)
	}
	got, err := repo.GetSetting(ctx, "backend_url")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "https://api.example.com" {
		t.Errorf("value = %q", got)
	}
}

func TestGetSetting_Missing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetSetting(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetSetting failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}
