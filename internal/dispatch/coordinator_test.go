package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okanlawon/pawdispatch/internal/channel"
	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/events"
	"github.com/okanlawon/pawdispatch/internal/httpclient"
	"github.com/okanlawon/pawdispatch/internal/match"
	"github.com/okanlawon/pawdispatch/internal/store/memory"
)

// fakeMatcher returns canned candidates or ErrNoCandidates.
type fakeMatcher struct {
	candidates []match.Candidate
}

func (f *fakeMatcher) FindCandidates(ctx context.Context, lat, lng, radiusMeters float64, limit int) ([]match.Candidate, error) {
	if len(f.candidates) == 0 {
		return nil, match.ErrNoCandidates
	}
	return f.candidates, nil
}

// fakeAdapter counts sends and returns a fixed outcome per clinic.
type fakeAdapter struct {
	kind      domain.Channel
	outcome   domain.AttemptOutcome
	sendCount atomic.Int32
	block     bool // when set, wait for ctx cancellation before returning
}

func (f *fakeAdapter) Kind() domain.Channel { return f.kind }
func (f *fakeAdapter) IsAvailable() bool    { return true }

func (f *fakeAdapter) Send(ctx context.Context, clinic *domain.Clinic, req *domain.EmergencyRequest) domain.DispatchAttempt {
	f.sendCount.Add(1)

	attempt := domain.DispatchAttempt{
		ClinicID:    clinic.ID,
		Channel:     f.kind,
		AttemptedAt: time.Now().UTC(),
	}

	if f.block {
		<-ctx.Done()
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = ctx.Err().Error()
		return attempt
	}

	attempt.Outcome = f.outcome
	if f.outcome == domain.OutcomeSent {
		attempt.MessageID = "fake-" + clinic.ID
	} else {
		attempt.Error = "provider rejected send"
	}
	return attempt
}

func testConfig() config.DispatchConfig {
	return config.DispatchConfig{
		SearchRadiusMeters: 25000,
		MaxClinics:         5,
		MaxConcurrentSends: 8,
		SendTimeout:        200 * time.Millisecond,
	}
}

func reachableClinic(id string) *domain.Clinic {
	return &domain.Clinic{
		ID:              id,
		Name:            id,
		PushToken:       "token-" + id,
		MessagingNumber: "+100" + id,
	}
}

func testEmergency(requestID string) *domain.EmergencyRequest {
	return &domain.EmergencyRequest{
		RequestID: requestID,
		CreatedAt: time.Now(),
		Payload: domain.EmergencyPayload{
			Species:      "cat",
			Description:  "collapsed",
			Latitude:     6.52,
			Longitude:    3.37,
			ContactName:  "Ngozi",
			ContactPhone: "+2348011111111",
		},
	}
}

func newTestCoordinator(m CandidateFinder, adapters []channel.Adapter) (*Coordinator, *memory.DispatchAttemptStore) {
	attempts := memory.NewDispatchAttemptStore()
	return NewCoordinator(
		testConfig(),
		m,
		adapters,
		memory.NewDispatchResultStore(),
		attempts,
		events.NewHub(),
		nil,
	), attempts
}

// TestDispatchIdempotent verifies a second submission with the same request
// ID returns the cached result without a second round of provider sends.
func TestDispatchIdempotent(t *testing.T) {
	push := &fakeAdapter{kind: domain.ChannelPush, outcome: domain.OutcomeSent}
	msg := &fakeAdapter{kind: domain.ChannelMessaging, outcome: domain.OutcomeSent}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: reachableClinic("c1"), DistanceMeters: 1000},
		{Clinic: reachableClinic("c2"), DistanceMeters: 2000},
	}}

	coord, _ := newTestCoordinator(matcher, []channel.Adapter{push, msg})
	req := testEmergency("req-idem")

	first, err := coord.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}

	sendsAfterFirst := push.sendCount.Load() + msg.sendCount.Load()
	if sendsAfterFirst != 4 {
		t.Fatalf("expected 4 sends (2 clinics x 2 channels), got %d", sendsAfterFirst)
	}

	second, err := coord.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}

	if push.sendCount.Load()+msg.sendCount.Load() != sendsAfterFirst {
		t.Error("duplicate submission triggered additional provider sends")
	}
	if second != first {
		// Memory store returns the stored pointer; any divergence means the
		// cached result was not replayed unchanged.
		t.Error("expected the cached result to be returned unchanged")
	}
}

// TestPartialFailureIsolation verifies one channel's failure neither aborts
// the other channel nor affects sibling clinics, and that a clinic is still
// covered when any channel succeeded.
func TestPartialFailureIsolation(t *testing.T) {
	push := &fakeAdapter{kind: domain.ChannelPush, outcome: domain.OutcomeProviderError}
	msg := &fakeAdapter{kind: domain.ChannelMessaging, outcome: domain.OutcomeSent}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: reachableClinic("c1"), DistanceMeters: 1000},
		{Clinic: reachableClinic("c2"), DistanceMeters: 2000},
	}}

	coord, _ := newTestCoordinator(matcher, []channel.Adapter{push, msg})

	result, err := coord.Dispatch(context.Background(), testEmergency("req-partial"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	// Every clinic was reached via messaging, so coverage is full even
	// though every push attempt failed.
	if result.OverallStatus != domain.StatusFullySent {
		t.Errorf("expected FULLY_SENT, got %s", result.OverallStatus)
	}

	var pushErrors, msgSent int
	for _, a := range result.Attempts {
		switch {
		case a.Channel == domain.ChannelPush && a.Outcome == domain.OutcomeProviderError:
			pushErrors++
		case a.Channel == domain.ChannelMessaging && a.Outcome == domain.OutcomeSent:
			msgSent++
		}
	}
	if pushErrors != 2 {
		t.Errorf("expected 2 recorded push errors, got %d", pushErrors)
	}
	if msgSent != 2 {
		t.Errorf("expected 2 messaging successes, got %d", msgSent)
	}
}

// TestSimulationParity verifies that with both providers unconfigured a
// dispatch still completes FULLY_SENT with every attempt flagged simulated.
func TestSimulationParity(t *testing.T) {
	hc := httpclient.New(time.Second)
	adapters := []channel.Adapter{
		channel.NewPushAdapter(config.PushProviderConfig{}, hc),
		channel.NewMessagingAdapter(config.MessagingProviderConfig{}, hc),
	}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: reachableClinic("c1"), DistanceMeters: 1000},
	}}

	coord, _ := newTestCoordinator(matcher, adapters)

	result, err := coord.Dispatch(context.Background(), testEmergency("req-sim"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if result.OverallStatus != domain.StatusFullySent {
		t.Fatalf("expected FULLY_SENT in simulation, got %s", result.OverallStatus)
	}
	for _, a := range result.Attempts {
		if !a.Simulated {
			t.Errorf("attempt %s/%s not flagged simulated", a.ClinicID, a.Channel)
		}
	}
}

// TestNoCandidatesTerminal verifies an empty match result terminates the
// dispatch without invoking any adapter.
func TestNoCandidatesTerminal(t *testing.T) {
	push := &fakeAdapter{kind: domain.ChannelPush, outcome: domain.OutcomeSent}
	coord, _ := newTestCoordinator(&fakeMatcher{}, []channel.Adapter{push})

	result, err := coord.Dispatch(context.Background(), testEmergency("req-none"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if !result.NoCandidates {
		t.Error("expected NoCandidates flag")
	}
	if result.OverallStatus != domain.StatusNoneSent {
		t.Errorf("expected NONE_SENT, got %s", result.OverallStatus)
	}
	if result.MatchedClinicCount != 0 {
		t.Errorf("expected 0 matched clinics, got %d", result.MatchedClinicCount)
	}
	if push.sendCount.Load() != 0 {
		t.Error("adapter invoked despite no candidates")
	}
}

// TestUnreachableChannelSkipped verifies channels a clinic lacks are recorded
// as SKIPPED and excluded from coverage.
func TestUnreachableChannelSkipped(t *testing.T) {
	push := &fakeAdapter{kind: domain.ChannelPush, outcome: domain.OutcomeSent}
	msg := &fakeAdapter{kind: domain.ChannelMessaging, outcome: domain.OutcomeSent}

	pushOnly := &domain.Clinic{ID: "push-only", PushToken: "tok"}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: pushOnly, DistanceMeters: 500},
	}}

	coord, attempts := newTestCoordinator(matcher, []channel.Adapter{push, msg})

	result, err := coord.Dispatch(context.Background(), testEmergency("req-skip"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if msg.sendCount.Load() != 0 {
		t.Error("messaging adapter invoked for a clinic without a number")
	}
	if result.OverallStatus != domain.StatusFullySent {
		t.Errorf("expected FULLY_SENT via push, got %s", result.OverallStatus)
	}

	recorded := attempts.ByRequest("req-skip")
	var skipped int
	for _, a := range recorded {
		if a.Outcome == domain.OutcomeSkipped {
			skipped++
		}
	}
	if skipped != 1 {
		t.Errorf("expected 1 SKIPPED attempt recorded, got %d", skipped)
	}
}

// TestHungProviderBounded verifies a provider that never answers is cut off
// at the per-send timeout and recorded as a provider error, without stalling
// the sibling channel.
func TestHungProviderBounded(t *testing.T) {
	hung := &fakeAdapter{kind: domain.ChannelPush, block: true}
	msg := &fakeAdapter{kind: domain.ChannelMessaging, outcome: domain.OutcomeSent}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: reachableClinic("c1"), DistanceMeters: 1000},
	}}

	coord, _ := newTestCoordinator(matcher, []channel.Adapter{hung, msg})

	start := time.Now()
	result, err := coord.Dispatch(context.Background(), testEmergency("req-hang"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("dispatch stalled %v on a hung provider", elapsed)
	}

	var hungOutcome domain.AttemptOutcome
	for _, a := range result.Attempts {
		if a.Channel == domain.ChannelPush {
			hungOutcome = a.Outcome
		}
	}
	if hungOutcome != domain.OutcomeProviderError {
		t.Errorf("expected PROVIDER_ERROR for timed-out send, got %s", hungOutcome)
	}
	if result.OverallStatus != domain.StatusFullySent {
		t.Errorf("clinic reached via messaging, expected FULLY_SENT, got %s", result.OverallStatus)
	}
}

// TestAttemptOrderDeterministic verifies attempts are ordered by candidate
// then channel regardless of send completion order.
func TestAttemptOrderDeterministic(t *testing.T) {
	push := &fakeAdapter{kind: domain.ChannelPush, outcome: domain.OutcomeSent}
	msg := &fakeAdapter{kind: domain.ChannelMessaging, outcome: domain.OutcomeSent}
	matcher := &fakeMatcher{candidates: []match.Candidate{
		{Clinic: reachableClinic("c1"), DistanceMeters: 1000},
		{Clinic: reachableClinic("c2"), DistanceMeters: 2000},
	}}

	coord, _ := newTestCoordinator(matcher, []channel.Adapter{push, msg})

	result, err := coord.Dispatch(context.Background(), testEmergency("req-order"))
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	want := []struct {
		clinic  string
		channel domain.Channel
	}{
		{"c1", domain.ChannelPush},
		{"c1", domain.ChannelMessaging},
		{"c2", domain.ChannelPush},
		{"c2", domain.ChannelMessaging},
	}
	if len(result.Attempts) != len(want) {
		t.Fatalf("expected %d attempts, got %d", len(want), len(result.Attempts))
	}
	for i, w := range want {
		a := result.Attempts[i]
		if a.ClinicID != w.clinic || a.Channel != w.channel {
			t.Errorf("position %d: expected %s/%s, got %s/%s", i, w.clinic, w.channel, a.ClinicID, a.Channel)
		}
	}
}
