package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/okanlawon/pawdispatch/internal/broker"
	"github.com/okanlawon/pawdispatch/internal/channel"
	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/events"
	"github.com/okanlawon/pawdispatch/internal/logging"
	"github.com/okanlawon/pawdispatch/internal/match"
	"github.com/okanlawon/pawdispatch/internal/store"
)

// ResultsSubject is the broker subject completed dispatch results are
// published to for external monitoring.
const ResultsSubject = "dispatch.results"

// CandidateFinder resolves recipient clinics for a location.
type CandidateFinder interface {
	FindCandidates(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]match.Candidate, error)
}

// Coordinator runs one emergency request through candidate resolution,
// multi-channel fan-out and outcome aggregation. It never retries a whole
// dispatch itself; client re-submissions with the same request ID are
// absorbed by the result cache.
type Coordinator struct {
	cfg      config.DispatchConfig
	matcher  CandidateFinder
	adapters []channel.Adapter
	results  store.DispatchResultStore
	attempts store.DispatchAttemptStore
	hub      *events.Hub
	events   broker.Publisher // optional, nil when no broker configured
}

func NewCoordinator(
	cfg config.DispatchConfig,
	matcher CandidateFinder,
	adapters []channel.Adapter,
	results store.DispatchResultStore,
	attempts store.DispatchAttemptStore,
	hub *events.Hub,
	eventsPublisher broker.Publisher,
) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		matcher:  matcher,
		adapters: adapters,
		results:  results,
		attempts: attempts,
		hub:      hub,
		events:   eventsPublisher,
	}
}

// Dispatch resolves candidates, fans the alert out across every reachable
// (clinic, channel) pair concurrently, and returns one consolidated result.
// A request ID seen before returns the cached result unchanged.
func (c *Coordinator) Dispatch(ctx context.Context, req *domain.EmergencyRequest) (*domain.DispatchResult, error) {
	ctx = logging.WithRequestID(ctx, req.RequestID)
	l := logging.FromContext(ctx)

	cached, err := c.results.Get(ctx, req.RequestID)
	if err == nil {
		l.Info("duplicate submission, returning cached result",
			slog.String("overall_status", string(cached.OverallStatus)))
		return cached, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("result cache lookup: %w", err)
	}

	candidates, err := c.matcher.FindCandidates(ctx,
		req.Payload.Latitude, req.Payload.Longitude,
		c.cfg.SearchRadiusMeters, c.cfg.MaxClinics)
	if errors.Is(err, match.ErrNoCandidates) {
		l.Warn("no candidate clinics within radius")
		return c.finish(ctx, &domain.DispatchResult{
			RequestID:     req.RequestID,
			Attempts:      []domain.DispatchAttempt{},
			OverallStatus: domain.StatusNoneSent,
			NoCandidates:  true,
			DispatchedAt:  time.Now().UTC(),
		})
	}
	if err != nil {
		return nil, fmt.Errorf("resolve candidates: %w", err)
	}

	l.Info("dispatching", slog.Int("matched_clinics", len(candidates)))

	attempts := c.fanOut(ctx, req, candidates)

	for i := range attempts {
		if err := c.attempts.Create(ctx, req.RequestID, &attempts[i]); err != nil {
			l.Warn("failed to persist dispatch attempt", slog.Any("error", err))
		}
		c.publishAttempt(req.RequestID, &attempts[i])
	}

	return c.finish(ctx, &domain.DispatchResult{
		RequestID:          req.RequestID,
		Attempts:           attempts,
		OverallStatus:      domain.ComputeOverallStatus(attempts, len(candidates)),
		MatchedClinicCount: len(candidates),
		DispatchedAt:       time.Now().UTC(),
	})
}

// fanOut attempts every channel each candidate clinic is reachable on,
// concurrently across clinics and channels, bounded by the configured limit.
// Attempt positions are fixed up front (candidate order, then adapter order)
// so repeated dispatches produce identically ordered results. Channels a
// clinic cannot be reached on are recorded as SKIPPED without a send.
func (c *Coordinator) fanOut(ctx context.Context, req *domain.EmergencyRequest, candidates []match.Candidate) []domain.DispatchAttempt {
	attempts := make([]domain.DispatchAttempt, len(candidates)*len(c.adapters))

	var g errgroup.Group
	g.SetLimit(c.cfg.MaxConcurrentSends)

	for ci, cand := range candidates {
		for ai, adapter := range c.adapters {
			idx := ci*len(c.adapters) + ai
			clinic := cand.Clinic

			if !clinic.ReachableOn(adapter.Kind()) {
				attempts[idx] = domain.DispatchAttempt{
					ClinicID:    clinic.ID,
					Channel:     adapter.Kind(),
					Outcome:     domain.OutcomeSkipped,
					AttemptedAt: time.Now().UTC(),
				}
				continue
			}

			adapter := adapter
			g.Go(func() error {
				sendCtx := logging.WithClinic(ctx, clinic.ID)
				sendCtx = logging.WithChannel(sendCtx, string(adapter.Kind()))
				sendCtx, cancel := context.WithTimeout(sendCtx, c.cfg.SendTimeout)
				defer cancel()

				// Adapters return outcome values, never errors: one hung or
				// failing provider cannot cancel sibling sends.
				attempts[idx] = adapter.Send(sendCtx, clinic, req)
				return nil
			})
		}
	}

	g.Wait()
	return attempts
}

// finish persists the result first-writer-wins and emits the completion
// event. The canonical stored result is returned, which for a lost insert
// race is the first writer's.
func (c *Coordinator) finish(ctx context.Context, result *domain.DispatchResult) (*domain.DispatchResult, error) {
	canonical, err := c.results.PutIfAbsent(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("persist dispatch result: %w", err)
	}

	if c.hub != nil {
		c.hub.Publish(events.DispatchEvent{
			Type:          events.EventDispatchCompleted,
			RequestID:     canonical.RequestID,
			OverallStatus: canonical.OverallStatus,
			Timestamp:     time.Now().UTC(),
		})
	}

	if c.events != nil {
		data, err := json.Marshal(canonical)
		if err == nil {
			if err := c.events.Publish(ctx, ResultsSubject, data); err != nil {
				logging.FromContext(ctx).Warn("failed to publish dispatch result", slog.Any("error", err))
			}
		}
	}

	logging.FromContext(ctx).Info("dispatch completed",
		slog.String("overall_status", string(canonical.OverallStatus)),
		slog.Int("matched_clinics", canonical.MatchedClinicCount),
		slog.Int("attempts", len(canonical.Attempts)),
	)

	return canonical, nil
}

func (c *Coordinator) publishAttempt(requestID string, attempt *domain.DispatchAttempt) {
	if c.hub == nil {
		return
	}
	c.hub.Publish(events.DispatchEvent{
		Type:      events.EventAttemptRecorded,
		RequestID: requestID,
		ClinicID:  attempt.ClinicID,
		Channel:   attempt.Channel,
		Outcome:   attempt.Outcome,
		Simulated: attempt.Simulated,
		Timestamp: attempt.AttemptedAt,
	})
}
