// Package connectivity tracks whether the server is reachable and whether the
// current network is metered.
package connectivity

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/boatlog/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Checker checks server liveness; nil means reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// Monitor holds the current network state. It starts offline.
type Monitor struct {
	checker  Checker
	timeout time.Duration
	logger  logging.Logger

	online  atomic.Bool
	metered atomic.Bool

	mu        sync.Mutex
	listeners []func(ctx context.Context, mode Mode)
}

func NewMonitor(checker Checker, metered bool, logger logging.Logger) *Monitor {
	m := &Monitor{
		checker:  checker,
		timeout: 3 * time.Second,
		logger:  logger.With("module", "connectivity"),
	}
	m.metered.Store(metered)
	return m
}

func (m *Monitor) Online() bool { return m.online.Load() }

// Metered reports a network where large uploads should wait.
func (m *Monitor) Metered() bool { return m.metered.Load() }

func (m *Monitor) SetMetered(v bool) { m.metered.Store(v) }

func (m *Monitor) Mode() Mode {
	if m.Online() {
		return ModeOnline
	}
	return ModeOffline
}

// OnChange registers fn to run after every mode switch.
func (m *Monitor) OnChange(fn func(ctx context.Context, mode Mode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetOnline switches the mode and notifies listeners when it changed.
func (m *Monitor) SetOnline(ctx context.Context, online bool) {
	if m.online.Swap(online) == online {
		return
	}

	mode := m.Mode()
	m.logger.Info(ctx, "switched mode", "mode", mode)

	m.mu.Lock()
	listeners := append([]func(context.Context, Mode){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(ctx, mode)
	}
}

// Check asks the server once and updates the mode.
func (m *Monitor) Check(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err := m.checker.Check(checkCtx)
	cancel()

	if err != nil {
		m.logger.Debug(ctx, "health check failed", "error", err)
	}
	m.SetOnline(ctx, err == nil)
	return err == nil
}

// Watch checks immediately and then every interval until ctx is done.
func (m *Monitor) Watch(ctx context.Context, interval time.Duration) {
	m.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
