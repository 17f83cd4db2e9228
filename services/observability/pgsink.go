package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/middleware"
)

// PostgresSink persists one row per call record so metrics infrastructure
// can query attempt chains after the fact. Only lengths and identifiers are
// stored; prompt and response text never reach the table.
type PostgresSink struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSink creates a sink over an already-open connection pool
func NewPostgresSink(db *sql.DB, logger *zap.Logger) *PostgresSink {
	return &PostgresSink{db: db, logger: logger}
}

// InitSchema creates the call-record table when it does not exist
func (s *PostgresSink) InitSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS llm_call_records (
			id UUID PRIMARY KEY,
			request_id VARCHAR(64),
			purpose VARCHAR(64) NOT NULL,
			provider VARCHAR(64),
			model VARCHAR(128),
			json_mode BOOLEAN NOT NULL,
			system_chars INT NOT NULL,
			user_chars INT NOT NULL,
			latency_ms BIGINT NOT NULL,
			attempts INT NOT NULL,
			used_fallback BOOLEAN NOT NULL,
			outcome VARCHAR(16) NOT NULL,
			attempted_providers TEXT[],
			failure_kind VARCHAR(32),
			failure_message TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create llm_call_records table: %w", err)
	}
	return nil
}

// Emit implements Sink
func (s *PostgresSink) Emit(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO llm_call_records (
			id, request_id, purpose, provider, model, json_mode,
			system_chars, user_chars, latency_ms, attempts, used_fallback,
			outcome, attempted_providers, failure_kind, failure_message, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	id := uuid.New()
	requestID := rec.RequestID
	if requestID == "" {
		requestID = middleware.RequestIDFromContext(ctx)
	}

	_, err := s.db.ExecContext(ctx, query,
		id,
		requestID,
		rec.Purpose,
		rec.Provider,
		rec.Model,
		rec.JSONMode,
		rec.SystemChars,
		rec.UserChars,
		rec.LatencyMs,
		rec.Attempts,
		rec.UsedFallback,
		string(rec.Outcome),
		pq.Array(rec.AttemptedProviders),
		rec.FailureKind,
		rec.FailureMessage,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert call record: %w", err)
	}

	s.logger.Debug("call record inserted", zap.String("id", id.String()), zap.String("purpose", rec.Purpose))
	return nil
}
