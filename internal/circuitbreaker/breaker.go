package circuitbreaker

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/metrics"
)

// ErrOpen is returned without invoking the guarded call while the breaker
// is rejecting traffic.
var ErrOpen = errors.New("circuit open")

type State uint8

const (
	// Closed: calls pass through normally.
	Closed State = iota
	// Open: calls are rejected until the cooldown elapses.
	Open
	// HalfOpen: a limited number of probe calls test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Config struct {
	// FailureThreshold is how many consecutive failures trip the breaker.
	FailureThreshold int
	// Cooldown is how long a tripped breaker rejects before probing.
	Cooldown time.Duration
	// ProbeSuccesses is how many successful probes close it again.
	ProbeSuccesses int
}

// Breaker guards calls to one flaky dependency. Trips to Open after a run
// of consecutive failures so a dead dependency is not hammered on every
// request, then probes for recovery after a cooldown. Open transitions
// are counted per component in the gateway metrics.
type Breaker struct {
	name string
	cfg  Config

	mu          sync.Mutex
	state       State
	failures    int
	probeHits   int
	lastFailure time.Time
	changedAt   time.Time
}

// New returns a closed breaker. The name labels log lines and the trip
// counter metric.
func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeSuccesses <= 0 {
		cfg.ProbeSuccesses = 1
	}

	return &Breaker{
		name:      name,
		cfg:       cfg,
		changedAt: time.Now(),
	}
}

// Do runs fn under breaker protection, forwarding the caller's context so
// guarded calls inherit its deadline. Returns ErrOpen without calling fn
// while the breaker is rejecting. A context already expired before the
// call starts is the caller's failure, not the dependency's, and does not
// count against the breaker.
func (b *Breaker) Do(ctx context.Context, fn func(context.Context) error) error {
	if !b.admit() {
		return ErrOpen
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open && time.Since(b.lastFailure) >= b.cfg.Cooldown {
		b.transition(HalfOpen)
		b.probeHits = 0
	}

	return b.state != Open
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		b.lastFailure = time.Now()

		switch b.state {
		case HalfOpen:
			// A failed probe reopens immediately.
			b.transition(Open)
		case Closed:
			if b.failures >= b.cfg.FailureThreshold {
				b.transition(Open)
			}
		}
		return
	}

	switch b.state {
	case HalfOpen:
		b.probeHits++
		if b.probeHits >= b.cfg.ProbeSuccesses {
			b.transition(Closed)
			b.failures = 0
		}
	case Closed:
		b.failures = 0
	}
}

// transition is called with the mutex held.
func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}

	log.Printf("circuit breaker %s: %s -> %s", b.name, b.state, next)
	if next == Open {
		metrics.BreakerTrips.WithLabelValues(b.name).Inc()
	}

	b.state = next
	b.changedAt = time.Now()
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset force-closes the breaker and clears its counters. Exposed to
// operators through the admin API.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transition(Closed)
	b.failures = 0
	b.probeHits = 0
}

// Snapshot is a point-in-time view for the admin status endpoint.
type Snapshot struct {
	State       State     `json:"state"`
	Failures    int       `json:"failures"`
	ProbeHits   int       `json:"probe_hits"`
	LastFailure time.Time `json:"last_failure"`
	ChangedAt   time.Time `json:"changed_at"`
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Snapshot{
		State:       b.state,
		Failures:    b.failures,
		ProbeHits:   b.probeHits,
		LastFailure: b.lastFailure,
		ChangedAt:   b.changedAt,
	}
}
