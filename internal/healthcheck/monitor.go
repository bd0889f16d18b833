package healthcheck

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

// Status is the probe history for one backend target.
type Status struct {
	Target      string    `json:"target"`
	Healthy     bool      `json:"healthy"`
	CheckedAt   time.Time `json:"checked_at"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	Failures    int       `json:"failures"`
}

// Config tunes the probe loop.
type Config struct {
	Targets []string
	// Path probed on each target, "/health" by default.
	Path        string
	Interval    time.Duration
	Timeout     time.Duration
	MaxFailures int
}

// Monitor probes backend targets on an interval and maintains the set of
// targets the proxy may route to. A target needs MaxFailures consecutive
// failed probes to leave the set and a single success to rejoin it.
type Monitor struct {
	mu      sync.RWMutex
	status  map[string]*Status
	healthy []string

	targets []string
	path    string
	client  *http.Client

	interval    time.Duration
	maxFailures int

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) *Monitor {
	if cfg.Path == "" {
		cfg.Path = "/health"
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}

	m := &Monitor{
		status:      make(map[string]*Status, len(cfg.Targets)),
		healthy:     append([]string(nil), cfg.Targets...),
		targets:     cfg.Targets,
		path:        cfg.Path,
		client:      &http.Client{Timeout: cfg.Timeout},
		interval:    cfg.Interval,
		maxFailures: cfg.MaxFailures,
		stop:        make(chan struct{}),
	}

	// Targets start healthy; a backend should not need to survive a probe
	// round before receiving traffic.
	now := time.Now()
	for _, t := range cfg.Targets {
		m.status[t] = &Status{Target: t, Healthy: true, CheckedAt: now}
	}

	return m
}

// Start launches the probe loop. The first round runs immediately.
func (m *Monitor) Start() {
	go func() {
		m.probeAll()

		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.probeAll()
			case <-m.stop:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) probeAll() {
	var wg sync.WaitGroup
	for _, target := range m.targets {
		wg.Add(1)
		go func(t string) {
			defer wg.Done()
			m.record(t, m.probe(t))
		}(target)
	}
	wg.Wait()

	m.mu.Lock()
	healthy := m.healthy[:0]
	for _, t := range m.targets {
		if m.status[t].Healthy {
			healthy = append(healthy, t)
		}
	}
	m.healthy = healthy
	m.mu.Unlock()
}

func (m *Monitor) probe(target string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target+m.path, nil)
	if err != nil {
		return false
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func (m *Monitor) record(target string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.status[target]
	st.CheckedAt = time.Now()

	if ok {
		st.LastSuccess = st.CheckedAt
		st.Failures = 0
		if !st.Healthy {
			st.Healthy = true
			log.Printf("Backend %s recovered", target)
		}
		return
	}

	st.LastFailure = st.CheckedAt
	st.Failures++
	if st.Healthy && st.Failures >= m.maxFailures {
		st.Healthy = false
		log.Printf("Backend %s marked unhealthy after %d failed probes", target, st.Failures)
	}
}

// Healthy returns the targets currently eligible for traffic.
func (m *Monitor) Healthy() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.healthy...)
}

// Targets returns every configured target.
func (m *Monitor) Targets() []string {
	return append([]string(nil), m.targets...)
}

// Snapshot copies the probe state for every target.
func (m *Monitor) Snapshot() map[string]Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Status, len(m.status))
	for t, st := range m.status {
		out[t] = *st
	}
	return out
}

// HealthStatus summarizes a target set.
type HealthStatus int

const (
	Healthy HealthStatus = iota
	Degraded
	Unhealthy
)

func (h HealthStatus) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Overall reduces the target set to a single health level.
func (m *Monitor) Overall() HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch {
	case len(m.healthy) == 0:
		return Unhealthy
	case len(m.healthy) < len(m.targets):
		return Degraded
	default:
		return Healthy
	}
}
