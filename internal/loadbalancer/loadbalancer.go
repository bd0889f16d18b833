package loadbalancer

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Picker selects one backend target from the healthy set for each request.
type Picker interface {
	Pick(targets []string) string
	Name() string
}

// New builds a picker by strategy name. An empty name means round-robin.
func New(name string) (Picker, error) {
	switch name {
	case "round-robin", "round_robin", "":
		return &roundRobin{}, nil
	case "random":
		return &random{}, nil
	case "least-connections", "least_connections":
		return NewLeastConnections(), nil
	default:
		return nil, fmt.Errorf("unknown load balancing strategy %q", name)
	}
}

type roundRobin struct {
	next atomic.Uint64
}

func (r *roundRobin) Pick(targets []string) string {
	if len(targets) == 0 {
		return ""
	}
	n := r.next.Add(1) - 1
	return targets[n%uint64(len(targets))]
}

func (r *roundRobin) Name() string { return "round_robin" }

type random struct{}

func (random) Pick(targets []string) string {
	if len(targets) == 0 {
		return ""
	}
	return targets[rand.IntN(len(targets))]
}

func (random) Name() string { return "random" }

// LeastConnections picks the target with the fewest in-flight requests.
// Callers report request lifecycle through Acquire and Release.
type LeastConnections struct {
	mu       sync.Mutex
	inflight map[string]int
}

func NewLeastConnections() *LeastConnections {
	return &LeastConnections{inflight: make(map[string]int)}
}

func (l *LeastConnections) Pick(targets []string) string {
	if len(targets) == 0 {
		return ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	selected := targets[0]
	best := l.inflight[selected]
	for _, t := range targets[1:] {
		if n := l.inflight[t]; n < best {
			best = n
			selected = t
		}
	}

	return selected
}

func (l *LeastConnections) Acquire(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight[target]++
}

func (l *LeastConnections) Release(target string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight[target] > 0 {
		l.inflight[target]--
	}
}

func (l *LeastConnections) Name() string { return "least_connections" }
