// Package netwatch tracks whether the API is reachable and tells listeners
// when it becomes reachable again.
package netwatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Probe checks reachability; a nil error means online.
type Probe func(ctx context.Context) error

type state int

const (
	unknown state = iota
	online
	offline
)

type Monitor struct {
	mu        sync.Mutex
	state     state
	listeners map[int]func()
	nextID    int
	probe     Probe
	interval  time.Duration
	log       zerolog.Logger
}

func New(probe Probe, interval time.Duration, log zerolog.Logger) *Monitor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Monitor{
		listeners: make(map[int]func()),
		probe:     probe,
		interval:  interval,
		log:       log.With().Str("component", "netwatch").Logger(),
	}
}

// OnOnline registers fn to run every time connectivity is restored.
func (m *Monitor) OnOnline(fn func()) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Online reports the last observed state. Unknown counts as online.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state != offline
}

// MarkOnline records a successful round trip. Listeners fire only on an
// offline to online transition.
func (m *Monitor) MarkOnline() {
	m.set(online)
}

// MarkOffline records a failed round trip.
func (m *Monitor) MarkOffline() {
	m.set(offline)
}

// Observe marks the monitor from the outcome of a request.
func (m *Monitor) Observe(err error) {
	if err != nil {
		m.MarkOffline()
		return
	}
	m.MarkOnline()
}

// Run probes at the configured interval until ctx ends.
func (m *Monitor) Run(ctx context.Context) {
	if m.probe == nil {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *Monitor) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.interval)
	defer cancel()
	err := m.probe(ctx)
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	m.Observe(err)
}

func (m *Monitor) set(next state) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	var fire []func()
	if prev == offline && next == online {
		for _, fn := range m.listeners {
			fire = append(fire, fn)
		}
	}
	m.mu.Unlock()

	if prev != next && prev != unknown {
		if next == online {
			m.log.Info().Int("listeners", len(fire)).Msg("Connectivity restored")
		} else {
			m.log.Warn().Msg("Connectivity lost")
		}
	}
	for _, fn := range fire {
		fn()
	}
}
