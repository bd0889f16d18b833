package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/circuitbreaker"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultIdleTTL is how long an untouched cache entry stays resident
	// before the next request for its key is forced onto the slow path.
	DefaultIdleTTL = 5 * time.Minute

	defaultStoreTimeout = 2 * time.Second
)

type entry struct {
	mu      sync.Mutex
	win     Window
	touched time.Time
}

// MemoryStore is the in-process window cache backed by the persistent
// repository. Increments on a cached valid window are pure in-memory
// operations serialized by a per-entry lock; cache misses and expired
// windows go through a short repository transaction. In-memory counts are
// persisted asynchronously, best-effort.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry

	repo         WindowRepository
	breaker      *circuitbreaker.Breaker
	idleTTL      time.Duration
	storeTimeout time.Duration

	// Throttles persist-failure logging so a store outage does not flood
	// the log.
	persistAlert *rate.Limiter
}

func NewMemoryStore(repo WindowRepository, breaker *circuitbreaker.Breaker, idleTTL time.Duration) *MemoryStore {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	return &MemoryStore{
		entries:      make(map[string]*entry),
		repo:         repo,
		breaker:      breaker,
		idleTTL:      idleTTL,
		storeTimeout: defaultStoreTimeout,
		persistAlert: rate.NewLimiter(rate.Every(30*time.Second), 1),
	}
}

func (s *MemoryStore) entryFor(keyHash string) *entry {
	s.mu.RLock()
	e, ok := s.entries[keyHash]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[keyHash]; ok {
		return e
	}
	e = &entry{}
	s.entries[keyHash] = e
	return e
}

func (s *MemoryStore) Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, bool, error) {
	e := s.entryFor(keyHash)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	e.touched = now

	if e.win.Zero() || !now.Before(e.win.End) {
		return s.acquireSlow(ctx, e, keyHash, tier, now)
	}

	// Fast path: valid cached window, no I/O.
	if !tier.Unlimited && e.win.Count >= tier.MaxRequests {
		return e.win, false, nil
	}

	e.win.Count++
	win := e.win
	go s.persist(keyHash, win)

	return win, true, nil
}

// acquireSlow refreshes the entry from the authoritative row. Called with
// the entry lock held.
func (s *MemoryStore) acquireSlow(ctx context.Context, e *entry, keyHash string, tier models.RateLimitTier, now time.Time) (Window, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var row *models.RateWindow
	var allowed bool

	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		row, allowed, err = s.repo.Acquire(ctx, keyHash, tier, now)
		return err
	})
	if err != nil {
		// Leave whatever state we had; the limiter decides how to degrade.
		return e.win, false, err
	}

	e.win = Window{Start: row.WindowStart, End: row.WindowEnd, Count: row.RequestCount}
	return e.win, allowed, nil
}

func (s *MemoryStore) Status(ctx context.Context, keyHash string, tier models.RateLimitTier) (Window, error) {
	e := s.entryFor(keyHash)
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	if !e.win.Zero() && now.Before(e.win.End) {
		return e.win, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	var row *models.RateWindow
	err := s.guard(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.repo.FindActive(ctx, keyHash, now)
		return err
	})
	if err != nil {
		return e.win, err
	}
	if row == nil {
		return Window{}, nil
	}

	e.win = Window{Start: row.WindowStart, End: row.WindowEnd, Count: row.RequestCount}
	e.touched = now
	return e.win, nil
}

// persist writes the in-memory count back to the store. Failures are
// logged (throttled) and swallowed; availability wins over cross-process
// exactness here.
func (s *MemoryStore) persist(keyHash string, win Window) {
	ctx, cancel := context.WithTimeout(context.Background(), s.storeTimeout)
	defer cancel()

	err := s.guard(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, &models.RateWindow{
			KeyHash:      keyHash,
			WindowStart:  win.Start,
			WindowEnd:    win.End,
			RequestCount: win.Count,
			UpdatedAt:    time.Now(),
		})
	})
	if err != nil && s.persistAlert.Allow() {
		log.Printf("rate window persist failed for %s: %v", keyHash, err)
	}
}

// guard routes a store call through the circuit breaker when one is
// configured, so a dead database is not hammered on every request. The
// caller's bounded context is forwarded to the guarded call.
func (s *MemoryStore) guard(ctx context.Context, fn func(context.Context) error) error {
	if s.breaker == nil {
		return fn(ctx)
	}
	return s.breaker.Do(ctx, fn)
}

// SweepIdle evicts entries untouched for longer than the idle TTL. Entries
// busy in a request are skipped and picked up next sweep; the map lock is
// never held across I/O.
func (s *MemoryStore) SweepIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		idle := now.Sub(e.touched) > s.idleTTL
		e.mu.Unlock()

		if idle {
			delete(s.entries, key)
			evicted++
		}
	}

	return evicted
}

// Len reports the number of resident cache entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
