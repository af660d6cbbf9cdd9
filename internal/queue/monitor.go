package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"
)

// Monitor watches connectivity to the dispatch server by polling its health
// endpoint and fires a callback on each offline-to-online transition.
type Monitor struct {
	probe    func(ctx context.Context) bool
	interval time.Duration
	online   atomic.Bool

	mu       sync.Mutex
	onOnline func()
}

func NewMonitor(probe func(ctx context.Context) bool, interval time.Duration) *Monitor {
	return &Monitor{
		probe:    probe,
		interval: interval,
	}
}

// OnOnline registers the callback invoked when connectivity returns.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = fn
}

func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Refresh probes immediately and records the transition. Returns the new
// state.
func (m *Monitor) Refresh(ctx context.Context) bool {
	wasOnline := m.online.Load()
	nowOnline := m.probe(ctx)
	m.online.Store(nowOnline)

	if nowOnline && !wasOnline {
		slog.Info("connectivity restored")
		m.mu.Lock()
		fn := m.onOnline
		m.mu.Unlock()
		if fn != nil {
			fn()
		}
	} else if !nowOnline && wasOnline {
		slog.Warn("connectivity lost")
	}

	return nowOnline
}

// Start polls until ctx is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	m.Refresh(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}
