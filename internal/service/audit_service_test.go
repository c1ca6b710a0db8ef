package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/observability"
)

type fakeOutcomeRepo struct {
	mu      sync.Mutex
	rows    []domain.LoginOutcome
	failing error
}

func (r *fakeOutcomeRepo) Insert(_ context.Context, o *domain.LoginOutcome) error {
	if r.failing != nil {
		return r.failing
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *o)
	return nil
}

func (r *fakeOutcomeRepo) ListBySession(_ context.Context, sessionID string) ([]domain.LoginOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.LoginOutcome
	for _, o := range r.rows {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOutcomeRepo) ListRecent(_ context.Context, limit int) ([]domain.LoginOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.rows) {
		limit = len(r.rows)
	}
	return append([]domain.LoginOutcome(nil), r.rows[:limit]...), nil
}

func TestAuditService_RecordsSettledOutcome(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	repo := &fakeOutcomeRepo{}
	metrics := observability.NewMetrics()
	NewAuditService(dispatcher, repo, metrics, nil).RegisterHandlers()

	userID := int64(42)
	at := time.Date(2024, 3, 11, 12, 0, 0, 0, time.UTC)
	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "ev-1",
		Type:      events.EventLoginSettled,
		SessionID: "s-1",
		Timestamp: at,
		Payload: events.LoginSettledPayload{
			Status:  "loaded",
			UserID:  &userID,
			Elapsed: 250 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(repo.rows))
	}
	row := repo.rows[0]
	if row.ID != "ev-1" || row.Status != "loaded" || row.ElapsedMS != 250 || !row.OccurredAt.Equal(at) {
		t.Fatalf("row = %+v", row)
	}
	if row.UserID == nil || *row.UserID != 42 {
		t.Fatalf("user id = %v, want 42", row.UserID)
	}
	if row.ErrorCode != nil || row.Error != nil {
		t.Fatalf("unexpected error columns: %v %v", row.ErrorCode, row.Error)
	}
	if got := metrics.Snapshot().Logins["loaded"].Count; got != 1 {
		t.Fatalf("loaded count = %d, want 1", got)
	}
}

func TestAuditService_RecordsFailureDetails(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	repo := &fakeOutcomeRepo{}
	NewAuditService(dispatcher, repo, nil, nil).RegisterHandlers()

	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "ev-2",
		Type:      events.EventLoginSettled,
		SessionID: "s-2",
		Payload:   events.LoginSettledPayload{Status: "failed", ErrorCode: 503, Error: "api 503"},
	})
	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:        "ev-3",
		Type:      events.EventSessionClosed,
		SessionID: "s-2",
		Payload:   events.SessionClosedPayload{Reason: "idle", LastStatus: "failed"},
	})

	rows, _ := repo.ListBySession(context.Background(), "s-2")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ErrorCode == nil || *rows[0].ErrorCode != 503 || rows[0].Error == nil || *rows[0].Error != "api 503" {
		t.Fatalf("failure row = %+v", rows[0])
	}
	if rows[1].EventType != string(events.EventSessionClosed) || rows[1].Detail == nil || *rows[1].Detail != "idle" {
		t.Fatalf("closed row = %+v", rows[1])
	}
}

func TestAuditService_ForcedCountsAndStores(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	repo := &fakeOutcomeRepo{}
	metrics := observability.NewMetrics()
	NewAuditService(dispatcher, repo, metrics, nil).RegisterHandlers()

	_ = dispatcher.Publish(context.Background(), events.Event{
		ID:      "ev-4",
		Type:    events.EventLoginForced,
		Payload: events.LoginForcedPayload{Elapsed: time.Second},
	})

	if metrics.Snapshot().Forced != 1 {
		t.Fatal("forced counter not incremented")
	}
	if len(repo.rows) != 1 || repo.rows[0].Status != "forced" {
		t.Fatalf("rows = %+v, want one forced row", repo.rows)
	}
}

func TestAuditService_WrongPayloadAndStoreErrors(t *testing.T) {
	repo := &fakeOutcomeRepo{failing: errors.New("db down")}
	svc := NewAuditService(nil, repo, nil, nil)

	if err := svc.handleLoginForced(context.Background(), events.Event{Payload: "nope"}); err == nil {
		t.Fatal("expected payload type error")
	}
	err := svc.handleLoginRedirected(context.Background(), events.Event{Payload: events.LoginRedirectedPayload{Path: "/login"}})
	if err == nil {
		t.Fatal("expected store error")
	}
}

func TestAuditService_WithoutRepository(t *testing.T) {
	svc := NewAuditService(nil, nil, nil, nil)
	svc.RegisterHandlers()

	rows, err := svc.Recent(context.Background(), 10)
	if err != nil || len(rows) != 0 {
		t.Fatalf("Recent = %v, %v; want empty", rows, err)
	}
	if err := svc.handleLoginSettled(context.Background(), events.Event{Payload: events.LoginSettledPayload{Status: "not_found"}}); err != nil {
		t.Fatalf("handleLoginSettled: %v", err)
	}
}
