// Package connectivity reports whether the remote store is reachable.
package connectivity

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is an online/offline transition.
type Event struct {
	Online bool
	At     time.Time
}

// Oracle answers isOnline and publishes transitions.
type Oracle interface {
	Online() bool
	// Subscribe returns a channel of transitions and a function that
	// unsubscribes and closes it.
	Subscribe() (<-chan Event, func())
}

// Manual is an Oracle whose state is set explicitly.
type Manual struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]chan Event
}

// NewManual returns a Manual starting in the given state.
func NewManual(online bool) *Manual {
	return &Manual{online: online, subs: map[int]chan Event{}}
}

// Online implements Oracle.
func (m *Manual) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe implements Oracle.
func (m *Manual) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	ch := make(chan Event, 1)
	m.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

// Set updates the state and notifies subscribers on a transition.
func (m *Manual) Set(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.online == online {
		return
	}
	m.online = online
	ev := Event{Online: online, At: time.Now()}
	for _, ch := range m.subs {
		// keep only the latest state for slow subscribers
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}

// Pinger checks reachability of the remote store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober polls a Pinger and turns the results into transitions.
type Prober struct {
	*Manual
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

// NewProber returns a Prober that starts offline until the first probe.
func NewProber(p Pinger, interval time.Duration, logger *slog.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		Manual:   NewManual(false),
		pinger:   p,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Probe runs one reachability check and returns the resulting state.
func (p *Prober) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	err := p.pinger.Ping(ctx)
	online := err == nil
	if online != p.Online() {
		p.logger.Info("connectivity changed", "online", online, "err", err)
	}
	p.Set(online)
	return online
}

// Run probes until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}
