package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/gateway"
	"github.com/okanlawon/pawdispatch/internal/retry"
)

// fakeGateway records submission order and fails requests listed in failWith.
type fakeGateway struct {
	mu        sync.Mutex
	submitted []string
	failWith  map[string]error
	blockCh   chan struct{}                      // when set, Submit blocks until the channel closes
	onSubmit  func(req *domain.EmergencyRequest) // when set, invoked at the start of Submit
}

func (g *fakeGateway) Submit(ctx context.Context, req *domain.EmergencyRequest) (*domain.DispatchResult, error) {
	if g.onSubmit != nil {
		g.onSubmit(req)
	}
	if g.blockCh != nil {
		<-g.blockCh
	}

	g.mu.Lock()
	g.submitted = append(g.submitted, req.RequestID)
	err := g.failWith[req.RequestID]
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return &domain.DispatchResult{
		RequestID:          req.RequestID,
		OverallStatus:      domain.StatusFullySent,
		MatchedClinicCount: 1,
	}, nil
}

func (g *fakeGateway) order() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.submitted))
	copy(out, g.submitted)
	return out
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        10 * time.Millisecond,
		BackoffMultiplier: 2.0,
		JitterFactor:      0,
	}
}

func newTestQueue(t *testing.T, gw Gateway) *OfflineQueue {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "queue.json"))
	require.NoError(t, err)
	return NewOfflineQueue(store, gw, testPolicy(), nil)
}

func requestAt(requestID string, createdAt time.Time) *domain.EmergencyRequest {
	return &domain.EmergencyRequest{
		RequestID: requestID,
		CreatedAt: createdAt,
		Payload: domain.EmergencyPayload{
			Species:      "dog",
			Description:  "injured",
			Latitude:     6.5,
			Longitude:    3.4,
			ContactName:  "Tunde",
			ContactPhone: "+2348000000001",
		},
	}
}

// TestEnqueueIsNonBlocking verifies Enqueue persists and returns even while
// every submission would hang, proving no network I/O on the enqueue path.
func TestEnqueueIsNonBlocking(t *testing.T) {
	gw := &fakeGateway{blockCh: make(chan struct{})} // Submit would block forever
	q := newTestQueue(t, gw)

	done := make(chan struct{})
	go func() {
		_, err := q.Enqueue(requestAt("req-1", time.Now()))
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked; it must not touch the network")
	}

	assert.Equal(t, 1, q.QueuedCount())
	assert.Empty(t, gw.order(), "enqueue must not submit")
	close(gw.blockCh)
}

// TestProcessQueueOldestFirst verifies drain order follows creation time.
func TestProcessQueueOldestFirst(t *testing.T) {
	gw := &fakeGateway{}
	q := newTestQueue(t, gw)

	base := time.Now().Add(-time.Hour)
	// Enqueued out of creation order.
	_, err := q.Enqueue(requestAt("req-late", base.Add(2*time.Minute)))
	require.NoError(t, err)
	_, err = q.Enqueue(requestAt("req-early", base))
	require.NoError(t, err)
	_, err = q.Enqueue(requestAt("req-mid", base.Add(time.Minute)))
	require.NoError(t, err)

	report, err := q.ProcessQueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 0, report.Remaining)
	assert.Equal(t, []string{"req-early", "req-mid", "req-late"}, gw.order())
}

// TestAcknowledgedEntriesRemoved verifies entries disappear from the queue
// only on confirmed acknowledgement.
func TestAcknowledgedEntriesRemoved(t *testing.T) {
	gw := &fakeGateway{failWith: map[string]error{
		"req-bad": fmt.Errorf("server error 503"),
	}}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-ok", time.Now().Add(-2*time.Minute)))
	q.Enqueue(requestAt("req-bad", time.Now().Add(-time.Minute)))

	report, err := q.ProcessQueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Remaining, "failed entry must stay queued")

	entries, _ := q.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-bad", entries[0].Request.RequestID)
	assert.Equal(t, 1, entries[0].AttemptCount)
	assert.NotEmpty(t, entries[0].LastError)
}

// TestRetryCapMarksFailed verifies an entry failing MaxAttempts consecutive
// times becomes Failed, is excluded from automatic drains, and stays visible
// in the queued count.
func TestRetryCapMarksFailed(t *testing.T) {
	gw := &fakeGateway{failWith: map[string]error{
		"req-1": fmt.Errorf("server error 500"),
	}}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-1", time.Now().Add(-time.Hour)))

	policy := testPolicy()
	for i := 0; i < policy.MaxAttempts; i++ {
		// Clear the backoff gate so each pass actually attempts the entry.
		entries, _ := q.Entries()
		if len(entries) > 0 {
			entries[0].NextRetryAt = time.Time{}
			require.NoError(t, q.store.Save(entries[0]))
		}
		_, err := q.ProcessQueue(context.Background())
		require.NoError(t, err)
	}

	entries, _ := q.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SubmissionStateFailed, entries[0].Request.SubmissionState)
	assert.Equal(t, policy.MaxAttempts, entries[0].AttemptCount)
	assert.Equal(t, 1, q.QueuedCount(), "failed entry remains user-visible")

	// Further automatic drains must not touch it.
	before := len(gw.order())
	_, err := q.ProcessQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, len(gw.order()))
}

// TestRejectedSubmissionNotRetried verifies a 4xx outcome parks the entry
// immediately without burning retry attempts.
func TestRejectedSubmissionNotRetried(t *testing.T) {
	gw := &fakeGateway{failWith: map[string]error{
		"req-1": fmt.Errorf("%w (400): bad payload", gateway.ErrRejected),
	}}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-1", time.Now().Add(-time.Minute)))

	_, err := q.ProcessQueue(context.Background())
	require.NoError(t, err)

	entries, _ := q.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SubmissionStateFailed, entries[0].Request.SubmissionState)

	before := len(gw.order())
	q.ProcessQueue(context.Background())
	assert.Equal(t, before, len(gw.order()), "rejected entry must not be resubmitted")
}

// TestRetryFailedResetsEntries verifies the explicit user retry puts Failed
// entries back into rotation.
func TestRetryFailedResetsEntries(t *testing.T) {
	gw := &fakeGateway{failWith: map[string]error{
		"req-1": fmt.Errorf("%w (422): invalid", gateway.ErrRejected),
	}}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-1", time.Now().Add(-time.Minute)))
	q.ProcessQueue(context.Background())

	// The payload problem is fixed server-side; the user retries.
	gw.mu.Lock()
	delete(gw.failWith, "req-1")
	gw.mu.Unlock()

	report, err := q.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, q.QueuedCount())
}

// TestBackoffDelaysNextAttempt verifies a freshly failed entry is not due
// again within the same instant.
func TestBackoffDelaysNextAttempt(t *testing.T) {
	gw := &fakeGateway{failWith: map[string]error{
		"req-1": fmt.Errorf("server error 502"),
	}}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-1", time.Now().Add(-time.Minute)))
	q.ProcessQueue(context.Background())

	entries, _ := q.Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].NextRetryAt.After(time.Now().Add(-time.Millisecond)),
		"NextRetryAt should be in the future after a failure")

	// An immediate second pass skips the entry still in backoff.
	before := len(gw.order())
	q.ProcessQueue(context.Background())
	assert.Equal(t, before, len(gw.order()))
}

// TestConcurrentDrainsCoalesce verifies overlapping ProcessQueue invocations
// collapse into a single active pass.
func TestConcurrentDrainsCoalesce(t *testing.T) {
	gw := &fakeGateway{blockCh: make(chan struct{})}
	q := newTestQueue(t, gw)

	q.Enqueue(requestAt("req-1", time.Now().Add(-time.Minute)))

	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		close(started)
		q.ProcessQueue(context.Background())
		close(done)
	}()
	<-started
	time.Sleep(20 * time.Millisecond) // let the drain reach the blocked Submit

	// A second trigger while the first drain is mid-flight must return
	// immediately without submitting anything itself.
	report, err := q.ProcessQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Processed)

	close(gw.blockCh)
	// Wait for the first drain to finish before the test's TempDir is
	// cleaned up; it still writes the queue file on its way out.
	<-done
}

// TestInFlightStatePersistedBeforeSubmit verifies the SENT state is on disk
// while the submission is in flight, so a crash mid-submit leaves an entry
// QueuedCount still counts.
func TestInFlightStatePersistedBeforeSubmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)

	// Reopen the file from disk inside the submit callback: only state that
	// was actually written before the network call is visible there.
	var observed domain.SubmissionState
	gw := &fakeGateway{}
	gw.onSubmit = func(req *domain.EmergencyRequest) {
		reopened, openErr := NewFileStore(path)
		require.NoError(t, openErr)
		entries, listErr := reopened.List()
		require.NoError(t, listErr)
		for _, e := range entries {
			if e.Request.RequestID == req.RequestID {
				observed = e.Request.SubmissionState
			}
		}
	}

	q := NewOfflineQueue(store, gw, testPolicy(), nil)
	_, err = q.Enqueue(requestAt("req-1", time.Now().Add(-time.Minute)))
	require.NoError(t, err)

	_, err = q.ProcessQueue(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SubmissionStateSent, observed)
}
