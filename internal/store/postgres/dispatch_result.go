package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/store"
)

type DispatchResultStore struct {
	db *DB
}

func NewDispatchResultStore(db *DB) *DispatchResultStore {
	return &DispatchResultStore{db: db}
}

func (s *DispatchResultStore) Get(ctx context.Context, requestID string) (*domain.DispatchResult, error) {
	query := `
		SELECT request_id, overall_status, matched_clinic_count, no_candidates, attempts, dispatched_at
		FROM dispatch_results
		WHERE request_id = $1
	`

	var (
		result       domain.DispatchResult
		attemptsJSON []byte
	)
	err := s.db.Pool.QueryRow(ctx, query, requestID).Scan(
		&result.RequestID,
		&result.OverallStatus,
		&result.MatchedClinicCount,
		&result.NoCandidates,
		&attemptsJSON,
		&result.DispatchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dispatch result: %w", err)
	}

	if err := json.Unmarshal(attemptsJSON, &result.Attempts); err != nil {
		return nil, fmt.Errorf("unmarshal attempts: %w", err)
	}

	return &result, nil
}

// PutIfAbsent inserts the result unless one already exists for the request
// ID; the stored result is returned either way, so concurrent dispatches of
// the same request converge on the first writer's outcome.
func (s *DispatchResultStore) PutIfAbsent(ctx context.Context, result *domain.DispatchResult) (*domain.DispatchResult, error) {
	attemptsJSON, err := json.Marshal(result.Attempts)
	if err != nil {
		return nil, fmt.Errorf("marshal attempts: %w", err)
	}

	query := `
		INSERT INTO dispatch_results (request_id, overall_status, matched_clinic_count, no_candidates, attempts, dispatched_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (request_id) DO NOTHING
	`

	tag, err := s.db.Pool.Exec(ctx, query,
		result.RequestID,
		result.OverallStatus,
		result.MatchedClinicCount,
		result.NoCandidates,
		attemptsJSON,
		result.DispatchedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert dispatch result: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Lost the race: another dispatch for this request landed first.
		return s.Get(ctx, result.RequestID)
	}

	return result, nil
}

func (s *DispatchResultStore) ListByStatus(ctx context.Context, status domain.OverallStatus, limit int) ([]*domain.DispatchResult, error) {
	query := `
		SELECT request_id, overall_status, matched_clinic_count, no_candidates, attempts, dispatched_at
		FROM dispatch_results
		WHERE ($1 = '' OR overall_status = $1)
		ORDER BY dispatched_at DESC
		LIMIT $2
	`

	rows, err := s.db.Pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query dispatch results: %w", err)
	}
	defer rows.Close()

	var results []*domain.DispatchResult
	for rows.Next() {
		var (
			r            domain.DispatchResult
			attemptsJSON []byte
		)
		err := rows.Scan(
			&r.RequestID,
			&r.OverallStatus,
			&r.MatchedClinicCount,
			&r.NoCandidates,
			&attemptsJSON,
			&r.DispatchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch result: %w", err)
		}
		if err := json.Unmarshal(attemptsJSON, &r.Attempts); err != nil {
			return nil, fmt.Errorf("unmarshal attempts: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch results: %w", err)
	}
	return results, nil
}
