package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/testnet-portal/internal/domain"
)

// LoginOutcomeRepository persists the login audit trail.
type LoginOutcomeRepository interface {
	Insert(ctx context.Context, outcome *domain.LoginOutcome) error
	ListBySession(ctx context.Context, sessionID string) ([]domain.LoginOutcome, error)
	ListRecent(ctx context.Context, limit int) ([]domain.LoginOutcome, error)
}

type loginOutcomeRepository struct {
	pool *pgxpool.Pool
}

// NewLoginOutcomeRepository returns a Postgres-backed implementation.
func NewLoginOutcomeRepository(pool *pgxpool.Pool) LoginOutcomeRepository {
	return &loginOutcomeRepository{pool: pool}
}

func (r *loginOutcomeRepository) Insert(ctx context.Context, o *domain.LoginOutcome) error {
	const query = `
        INSERT INTO login_outcomes (id, session_id, event_type, status, user_id, error_code, error, detail, elapsed_ms, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (id) DO NOTHING`

	_, err := r.pool.Exec(ctx, query,
		o.ID,
		o.SessionID,
		o.EventType,
		o.Status,
		o.UserID,
		o.ErrorCode,
		o.Error,
		o.Detail,
		o.ElapsedMS,
		o.OccurredAt,
	)
	return err
}

func (r *loginOutcomeRepository) ListBySession(ctx context.Context, sessionID string) ([]domain.LoginOutcome, error) {
	const query = `
        SELECT id, session_id, event_type, status, user_id, error_code, error, detail, elapsed_ms, occurred_at
        FROM login_outcomes WHERE session_id=$1 ORDER BY occurred_at ASC`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	return collectOutcomes(rows)
}

func (r *loginOutcomeRepository) ListRecent(ctx context.Context, limit int) ([]domain.LoginOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, session_id, event_type, status, user_id, error_code, error, detail, elapsed_ms, occurred_at
        FROM login_outcomes ORDER BY occurred_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return collectOutcomes(rows)
}

func collectOutcomes(rows pgx.Rows) ([]domain.LoginOutcome, error) {
	defer rows.Close()

	var out []domain.LoginOutcome
	for rows.Next() {
		var o domain.LoginOutcome
		if err := rows.Scan(
			&o.ID,
			&o.SessionID,
			&o.EventType,
			&o.Status,
			&o.UserID,
			&o.ErrorCode,
			&o.Error,
			&o.Detail,
			&o.ElapsedMS,
			&o.OccurredAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
