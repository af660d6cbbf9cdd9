package postgres

import (
	"context"
	"fmt"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

type DispatchAttemptStore struct {
	db *DB
}

func NewDispatchAttemptStore(db *DB) *DispatchAttemptStore {
	return &DispatchAttemptStore{db: db}
}

func (s *DispatchAttemptStore) Create(ctx context.Context, requestID string, attempt *domain.DispatchAttempt) error {
	query := `
		INSERT INTO dispatch_attempts (request_id, clinic_id, channel, outcome, message_id, simulated, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Pool.Exec(ctx, query,
		requestID,
		attempt.ClinicID,
		attempt.Channel,
		attempt.Outcome,
		attempt.MessageID,
		attempt.Simulated,
		attempt.Error,
		attempt.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch attempt: %w", err)
	}

	return nil
}
