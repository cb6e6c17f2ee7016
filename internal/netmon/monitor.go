package netmon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// subscriberBuffer bounds how many undelivered edges a slow subscriber can
// accumulate before further edges are dropped for it.
const subscriberBuffer = 16

// Monitor tracks the device's reachability state and notifies subscribers on
// every edge, exactly once per state change. Reachability can be pushed by a
// collaborator through Report, polled from a Prober through Watch, or both.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []chan bool
	logger *slog.Logger
}

// New creates a monitor with the given initial state.
func New(initial bool, logger *slog.Logger) *Monitor {
	return &Monitor{online: initial, logger: logger}
}

// Online returns the current reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Report feeds a reachability observation into the monitor. Consecutive
// duplicate reports are suppressed; subscribers see one event per transition.
func (m *Monitor) Report(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan bool, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	m.logger.Info("connectivity changed", slog.Bool("online", online))
	for _, ch := range subs {
		select {
		case ch <- online:
		default:
			m.logger.Warn("dropping connectivity event for slow subscriber")
		}
	}
}

// Subscribe registers for transition events. The current state is delivered
// immediately, then one event per edge.
func (m *Monitor) Subscribe() <-chan bool {
	ch := make(chan bool, subscriberBuffer)

	m.mu.Lock()
	m.subs = append(m.subs, ch)
	ch <- m.online
	m.mu.Unlock()

	return ch
}

// Prober checks whether the backend is reachable right now.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber probes reachability with a HEAD request against a health URL.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

// Probe reports whether the health URL answered at all. Any HTTP status
// counts as reachable; only transport failures count as offline.
func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Watch polls the prober at the given interval and feeds observations into
// Report until the context is canceled.
func (m *Monitor) Watch(ctx context.Context, prober Prober, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Report(prober.Probe(ctx))
		}
	}
}
