package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/testnet-portal/internal/domain"
	"github.com/spec-kit/testnet-portal/internal/events"
	"github.com/spec-kit/testnet-portal/internal/observability"
	"github.com/spec-kit/testnet-portal/internal/repository"
)

// AuditService records login lifecycle events in the store and the
// in-process counters.
type AuditService struct {
	dispatcher events.Dispatcher
	repo       repository.LoginOutcomeRepository
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuditService creates the service. repo may be nil when no database is
// configured; events are then only logged and counted.
func NewAuditService(dispatcher events.Dispatcher, repo repository.LoginOutcomeRepository, metrics *observability.Metrics, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher: dispatcher,
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSettled, a.handleLoginSettled)
	a.dispatcher.Subscribe(events.EventLoginForced, a.handleLoginForced)
	a.dispatcher.Subscribe(events.EventLoginRedirected, a.handleLoginRedirected)
	a.dispatcher.Subscribe(events.EventSessionClosed, a.handleSessionClosed)
}

// Recent returns the newest audit rows.
func (a *AuditService) Recent(ctx context.Context, limit int) ([]domain.LoginOutcome, error) {
	if a.repo == nil {
		return []domain.LoginOutcome{}, nil
	}
	return a.repo.ListRecent(ctx, limit)
}

// BySession returns the audit trail of one session.
func (a *AuditService) BySession(ctx context.Context, sessionID string) ([]domain.LoginOutcome, error) {
	if a.repo == nil {
		return []domain.LoginOutcome{}, nil
	}
	return a.repo.ListBySession(ctx, sessionID)
}

func (a *AuditService) handleLoginSettled(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LoginSettledPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.logger.Info("LoginSettled",
		zap.String("session_id", event.SessionID),
		zap.String("status", payload.Status),
		zap.Duration("elapsed", payload.Elapsed))
	a.metrics.RecordLoginOutcome(payload.Status, payload.Elapsed)

	outcome := a.outcome(event, payload.Status, payload.Elapsed)
	outcome.UserID = payload.UserID
	if payload.ErrorCode != 0 {
		code := payload.ErrorCode
		outcome.ErrorCode = &code
	}
	if payload.Error != "" {
		msg := payload.Error
		outcome.Error = &msg
	}
	return a.store(ctx, outcome)
}

func (a *AuditService) handleLoginForced(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LoginForcedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.logger.Info("LoginForced",
		zap.String("session_id", event.SessionID),
		zap.Duration("elapsed", payload.Elapsed))
	a.metrics.RecordLoginForced()
	return a.store(ctx, a.outcome(event, "forced", payload.Elapsed))
}

func (a *AuditService) handleLoginRedirected(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.LoginRedirectedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.logger.Debug("LoginRedirected",
		zap.String("session_id", event.SessionID),
		zap.String("path", payload.Path))

	outcome := a.outcome(event, "loading", 0)
	path := payload.Path
	outcome.Detail = &path
	return a.store(ctx, outcome)
}

func (a *AuditService) handleSessionClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionClosedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	a.logger.Debug("SessionClosed",
		zap.String("session_id", event.SessionID),
		zap.String("reason", payload.Reason))

	outcome := a.outcome(event, payload.LastStatus, 0)
	reason := payload.Reason
	outcome.Detail = &reason
	return a.store(ctx, outcome)
}

func (a *AuditService) outcome(event events.Event, status string, elapsed time.Duration) *domain.LoginOutcome {
	return &domain.LoginOutcome{
		ID:         event.ID,
		SessionID:  event.SessionID,
		EventType:  string(event.Type),
		Status:     status,
		ElapsedMS:  elapsed.Milliseconds(),
		OccurredAt: event.Timestamp,
	}
}

func (a *AuditService) store(ctx context.Context, outcome *domain.LoginOutcome) error {
	if a.repo == nil {
		return nil
	}
	if err := a.repo.Insert(ctx, outcome); err != nil {
		return fmt.Errorf("insert login outcome: %w", err)
	}
	return nil
}
