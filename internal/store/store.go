package store

import (
	"context"
	"errors"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

// ErrNotFound is returned by lookups for records that do not exist.
var ErrNotFound = errors.New("not found")

type ClinicStore interface {
	Upsert(ctx context.Context, c *domain.Clinic) error
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Clinic, error)
	List(ctx context.Context) ([]*domain.Clinic, error)
}

// DispatchResultStore is the deduplication cache for completed dispatches.
// PutIfAbsent must be first-writer-wins: when two dispatches race on the same
// request ID, every caller gets back the one result that won the insert.
type DispatchResultStore interface {
	Get(ctx context.Context, requestID string) (*domain.DispatchResult, error)
	PutIfAbsent(ctx context.Context, result *domain.DispatchResult) (*domain.DispatchResult, error)
	ListByStatus(ctx context.Context, status domain.OverallStatus, limit int) ([]*domain.DispatchResult, error)
}

type DispatchAttemptStore interface {
	Create(ctx context.Context, requestID string, attempt *domain.DispatchAttempt) error
}
