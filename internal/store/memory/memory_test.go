package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/store"
)

func TestDispatchResultGetMissing(t *testing.T) {
	s := NewDispatchResultStore()
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutIfAbsentFirstWriterWins(t *testing.T) {
	s := NewDispatchResultStore()
	ctx := context.Background()

	first := &domain.DispatchResult{RequestID: "req-1", OverallStatus: domain.StatusFullySent, DispatchedAt: time.Now()}
	second := &domain.DispatchResult{RequestID: "req-1", OverallStatus: domain.StatusNoneSent, DispatchedAt: time.Now()}

	got, err := s.PutIfAbsent(ctx, first)
	assert.NoError(t, err)
	assert.Same(t, first, got)

	got, err = s.PutIfAbsent(ctx, second)
	assert.NoError(t, err)
	assert.Same(t, first, got, "second writer must receive the first-written result")
}

func TestPutIfAbsentConcurrent(t *testing.T) {
	s := NewDispatchResultStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*domain.DispatchResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &domain.DispatchResult{RequestID: "req-race", MatchedClinicCount: i}
			results[i], _ = s.PutIfAbsent(ctx, r)
		}(i)
	}
	wg.Wait()

	canonical, err := s.Get(ctx, "req-race")
	assert.NoError(t, err)
	for i, r := range results {
		assert.Same(t, canonical, r, "writer %d diverged from canonical result", i)
	}
}
