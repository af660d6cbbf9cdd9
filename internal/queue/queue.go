// Package queue implements the client-side offline submission queue: every
// reported emergency is persisted locally first and replayed against the
// dispatch server when connectivity allows.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/gateway"
	"github.com/okanlawon/pawdispatch/internal/retry"
)

// Gateway submits one request to the dispatch server and returns its
// acknowledgement.
type Gateway interface {
	Submit(ctx context.Context, req *domain.EmergencyRequest) (*domain.DispatchResult, error)
}

// ProcessReport summarizes one drain pass.
type ProcessReport struct {
	Processed int `json:"processed"`
	Remaining int `json:"remaining"`
}

// OfflineQueue accepts emergency submissions without ever blocking on the
// network and drains them oldest-first once the server is reachable. At most
// one drain pass runs at a time; timer, reconnect and manual triggers
// coalesce.
type OfflineQueue struct {
	store    Store
	gw       Gateway
	policy   retry.Policy
	monitor  *Monitor
	draining atomic.Bool
}

func NewOfflineQueue(store Store, gw Gateway, policy retry.Policy, monitor *Monitor) *OfflineQueue {
	q := &OfflineQueue{
		store:   store,
		gw:      gw,
		policy:  policy,
		monitor: monitor,
	}
	return q
}

// Enqueue persists the request immediately, whatever the connectivity, and
// returns without network I/O. The caller gets the stored entry back.
func (q *OfflineQueue) Enqueue(req *domain.EmergencyRequest) (*domain.QueueEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid emergency request: %w", err)
	}

	req.SubmissionState = domain.SubmissionStatePending
	entry := &domain.QueueEntry{Request: *req}

	if err := q.store.Save(entry); err != nil {
		return nil, fmt.Errorf("persist queue entry: %w", err)
	}

	slog.Info("emergency queued",
		slog.String("request_id", req.RequestID),
		slog.String("species", req.Payload.Species),
	)
	return entry, nil
}

// ProcessQueue drains due entries oldest-first, submitting strictly
// sequentially and awaiting each acknowledgement before the next, so a
// reconnect burst cannot amplify load. Concurrent invocations coalesce into
// the already-running pass.
func (q *OfflineQueue) ProcessQueue(ctx context.Context) (ProcessReport, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return q.report(0), nil
	}
	defer q.draining.Store(false)

	entries, err := q.store.List()
	if err != nil {
		return ProcessReport{}, fmt.Errorf("list queue: %w", err)
	}

	now := time.Now()
	processed := 0

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.Retryable(now) {
			continue
		}

		if q.submitOne(ctx, entry) {
			processed++
		}
	}

	return q.report(processed), nil
}

// submitOne attempts one entry and records the outcome. Returns true when
// the entry was acknowledged and removed.
func (q *OfflineQueue) submitOne(ctx context.Context, entry *domain.QueueEntry) bool {
	requestID := entry.Request.RequestID
	l := slog.With(slog.String("request_id", requestID))

	entry.Request.SubmissionState = domain.SubmissionStateSent
	if saveErr := q.store.Save(entry); saveErr != nil {
		l.Error("failed to persist in-flight state", slog.Any("error", saveErr))
	}

	result, err := q.gw.Submit(ctx, &entry.Request)
	if err == nil {
		entry.Request.SubmissionState = domain.SubmissionStateAcknowledged
		if delErr := q.store.Delete(requestID); delErr != nil {
			l.Error("failed to remove acknowledged entry", slog.Any("error", delErr))
			return false
		}
		l.Info("emergency acknowledged",
			slog.String("overall_status", string(result.OverallStatus)),
			slog.Int("matched_clinics", result.MatchedClinicCount),
		)
		return true
	}

	entry.AttemptCount++
	entry.LastError = err.Error()

	if errors.Is(err, gateway.ErrRejected) {
		// The server will never accept this payload; park it for the user.
		entry.Request.SubmissionState = domain.SubmissionStateFailed
		l.Error("submission rejected, manual action required", slog.Any("error", err))
	} else if !q.policy.ShouldRetry(entry.AttemptCount) {
		entry.Request.SubmissionState = domain.SubmissionStateFailed
		l.Error("submission failed permanently after max attempts",
			slog.Int("attempts", entry.AttemptCount),
			slog.Any("error", err),
		)
	} else {
		delay := q.policy.NextDelay(entry.AttemptCount - 1)
		entry.Request.SubmissionState = domain.SubmissionStatePending
		entry.NextRetryAt = time.Now().Add(delay)
		l.Warn("submission failed, will retry",
			slog.Int("attempt", entry.AttemptCount),
			slog.Duration("next_retry_in", delay),
			slog.Any("error", err),
		)
	}

	if saveErr := q.store.Save(entry); saveErr != nil {
		l.Error("failed to persist entry state", slog.Any("error", saveErr))
	}
	return false
}

// RetryFailed resets Failed entries to Pending (the explicit user retry
// affordance) and runs a drain pass.
func (q *OfflineQueue) RetryFailed(ctx context.Context) (ProcessReport, error) {
	entries, err := q.store.List()
	if err != nil {
		return ProcessReport{}, fmt.Errorf("list queue: %w", err)
	}

	for _, entry := range entries {
		if entry.Request.SubmissionState != domain.SubmissionStateFailed {
			continue
		}
		entry.Request.SubmissionState = domain.SubmissionStatePending
		entry.AttemptCount = 0
		entry.NextRetryAt = time.Time{}
		entry.LastError = ""
		if err := q.store.Save(entry); err != nil {
			return ProcessReport{}, fmt.Errorf("reset failed entry: %w", err)
		}
	}

	return q.ProcessQueue(ctx)
}

// QueuedCount reports entries awaiting delivery or stuck in Failed;
// acknowledged entries are removed and never counted.
func (q *OfflineQueue) QueuedCount() int {
	entries, err := q.store.List()
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range entries {
		switch e.Request.SubmissionState {
		case domain.SubmissionStatePending, domain.SubmissionStateSent, domain.SubmissionStateFailed:
			count++
		}
	}
	return count
}

// Entries exposes the queue contents for user-facing status output.
func (q *OfflineQueue) Entries() ([]*domain.QueueEntry, error) {
	return q.store.List()
}

func (q *OfflineQueue) Online() bool {
	if q.monitor == nil {
		return true
	}
	return q.monitor.Online()
}

func (q *OfflineQueue) report(processed int) ProcessReport {
	return ProcessReport{
		Processed: processed,
		Remaining: q.QueuedCount(),
	}
}

// Run wires the automatic triggers: a reconnect transition drains
// immediately and a timer drains while online with a non-empty queue. Blocks
// until ctx is cancelled.
func (q *OfflineQueue) Run(ctx context.Context, drainInterval time.Duration) {
	if q.monitor != nil {
		q.monitor.OnOnline(func() {
			if _, err := q.ProcessQueue(ctx); err != nil {
				slog.Error("drain after reconnect failed", slog.Any("error", err))
			}
		})
		go q.monitor.Start(ctx)
	}

	ticker := time.NewTicker(drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !q.Online() || q.QueuedCount() == 0 {
				continue
			}
			if _, err := q.ProcessQueue(ctx); err != nil {
				slog.Error("periodic drain failed", slog.Any("error", err))
			}
		}
	}
}
