package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/customer360-copilot/backend/internal/models"
)

// Store is the operational run ledger. It records that workflows ran and how
// they went (status, latency, LLM call counters), never their content.
type Store struct {
	Pool *pgxpool.Pool
}

type Run struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	SubjectID  string     `json:"subject_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	LatencyMS  *int64     `json:"latency_ms,omitempty"`
	LLMCalls   int64      `json:"llm_calls"`
	LLMRetries int64      `json:"llm_retries"`
}

const (
	RunKindCaseAnalysis    = "case_analysis"
	RunKindAccountInsights = "account_insights"
	RunKindCaseQuery       = "case_query"

	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// EnsureSchema creates the ledger table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id          UUID PRIMARY KEY,
			kind        TEXT NOT NULL,
			subject_id  TEXT NOT NULL,
			status      TEXT NOT NULL,
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ,
			latency_ms  BIGINT,
			llm_calls   BIGINT NOT NULL DEFAULT 0,
			llm_retries BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS runs_started_at_idx ON runs (started_at DESC);
	`)
	return err
}

// WithTx runs fn inside a transaction, rolling back on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) CreateRun(ctx context.Context, kind, subjectID string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO runs (id, kind, subject_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		id, kind, subjectID, RunStatusRunning, time.Now().UTC())
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

func (s *Store) FinishRun(ctx context.Context, id uuid.UUID, status string, latency time.Duration, llmCalls, llmRetries int64) error {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE runs
		SET status = $2, finished_at = $3, latency_ms = $4, llm_calls = $5, llm_retries = $6
		WHERE id = $1`,
		id, status, time.Now().UTC(), latency.Milliseconds(), llmCalls, llmRetries)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Resource: "run", ID: id.String()}
	}
	return nil
}

func (s *Store) GetLatestRun(ctx context.Context) (*Run, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, kind, subject_id, status, started_at, finished_at, latency_ms, llm_calls, llm_retries
		FROM runs
		ORDER BY started_at DESC
		LIMIT 1`)

	var r Run
	err := row.Scan(&r.ID, &r.Kind, &r.SubjectID, &r.Status, &r.StartedAt, &r.FinishedAt, &r.LatencyMS, &r.LLMCalls, &r.LLMRetries)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "run", ID: "latest"}
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return &r, nil
}
