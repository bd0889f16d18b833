package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

// fakeWindowRepo implements WindowRepository in memory, mirroring the
// find-or-create-then-increment transaction of the real repository.
type fakeWindowRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.RateWindow
	failing bool

	acquireCalls int
	saveCalls    int
}

func newFakeWindowRepo() *fakeWindowRepo {
	return &fakeWindowRepo{rows: make(map[string]*models.RateWindow)}
}

var errRepoDown = errors.New("repository unavailable")

func (f *fakeWindowRepo) FindActive(ctx context.Context, keyHash string, now time.Time) (*models.RateWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, errRepoDown
	}
	row, ok := f.rows[keyHash]
	if !ok || !now.Before(row.WindowEnd) {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeWindowRepo) Save(ctx context.Context, window *models.RateWindow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failing {
		return errRepoDown
	}
	copied := *window
	f.rows[window.KeyHash] = &copied
	return nil
}

func (f *fakeWindowRepo) Acquire(ctx context.Context, keyHash string, tier models.RateLimitTier, now time.Time) (*models.RateWindow, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquireCalls++
	if f.failing {
		return nil, false, errRepoDown
	}

	row, ok := f.rows[keyHash]
	if !ok || !now.Before(row.WindowEnd) {
		row = &models.RateWindow{
			KeyHash:      keyHash,
			WindowStart:  now,
			WindowEnd:    now.Add(tier.Window()),
			RequestCount: 1,
		}
		f.rows[keyHash] = row
		copied := *row
		return &copied, true, nil
	}

	if !tier.Unlimited && row.RequestCount >= tier.MaxRequests {
		copied := *row
		return &copied, false, nil
	}

	row.RequestCount++
	copied := *row
	return &copied, true, nil
}

func (f *fakeWindowRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeWindowRepo) setFailing(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = v
}

func basicTier() models.RateLimitTier {
	return models.RateLimitTier{Name: "basic", WindowSeconds: 3600, MaxRequests: 100}
}

func TestMemoryStoreEnforcesLimit(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := basicTier()

	for i := int64(1); i <= tier.MaxRequests; i++ {
		win, allowed, err := store.Acquire(ctx, "key-a", tier)
		require.NoError(t, err)
		require.True(t, allowed, "request %d should be admitted", i)
		assert.Equal(t, i, win.Count)
	}

	win, allowed, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	assert.False(t, allowed, "request over the limit must be denied")
	assert.Equal(t, tier.MaxRequests, win.Count, "denied request must not increment the count")
}

func TestMemoryStoreWindowReset(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := models.RateLimitTier{Name: "tiny", WindowSeconds: 1, MaxRequests: 2}

	_, allowed, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	require.True(t, allowed)
	_, allowed, _ = store.Acquire(ctx, "key-a", tier)
	require.True(t, allowed)
	_, allowed, _ = store.Acquire(ctx, "key-a", tier)
	require.False(t, allowed)

	time.Sleep(1100 * time.Millisecond)

	win, allowed, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	assert.True(t, allowed, "new window must admit again")
	assert.Equal(t, int64(1), win.Count)
}

func TestMemoryStoreUnlimitedTier(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := models.RateLimitTier{Name: "enterprise", WindowSeconds: 3600, Unlimited: true}

	for i := 0; i < 500; i++ {
		_, allowed, err := store.Acquire(ctx, "key-a", tier)
		require.NoError(t, err)
		require.True(t, allowed)
	}
}

func TestMemoryStoreKeysIsolated(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := models.RateLimitTier{Name: "one", WindowSeconds: 3600, MaxRequests: 1}

	_, allowed, _ := store.Acquire(ctx, "key-a", tier)
	require.True(t, allowed)
	_, allowed, _ = store.Acquire(ctx, "key-a", tier)
	require.False(t, allowed)

	_, allowed, err := store.Acquire(ctx, "key-b", tier)
	require.NoError(t, err)
	assert.True(t, allowed, "key-b's window is independent of key-a's")
}

func TestMemoryStoreFastPathSkipsRepo(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := basicTier()

	for i := 0; i < 10; i++ {
		_, _, err := store.Acquire(ctx, "key-a", tier)
		require.NoError(t, err)
	}

	repo.mu.Lock()
	calls := repo.acquireCalls
	repo.mu.Unlock()
	assert.Equal(t, 1, calls, "only the first request should hit the repository transaction")
}

func TestMemoryStoreSweepIdle(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, 50*time.Millisecond)
	ctx := context.Background()
	tier := basicTier()

	_, _, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	_, _, err = store.Acquire(ctx, "key-b", tier)
	require.NoError(t, err)
	require.Equal(t, 2, store.Len())

	assert.Equal(t, 0, store.SweepIdle(time.Now()), "fresh entries survive the sweep")

	evicted := store.SweepIdle(time.Now().Add(time.Minute))
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreRepoDownSurfacesError(t *testing.T) {
	repo := newFakeWindowRepo()
	repo.setFailing(true)
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)

	win, allowed, err := store.Acquire(context.Background(), "key-a", basicTier())
	require.Error(t, err)
	assert.False(t, allowed)
	assert.True(t, win.Zero(), "no last-known state for a cold key")
}

func TestMemoryStoreRecoversAfterOutage(t *testing.T) {
	repo := newFakeWindowRepo()
	store := NewMemoryStore(repo, nil, DefaultIdleTTL)
	ctx := context.Background()
	tier := basicTier()

	_, allowed, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	require.True(t, allowed)

	// The cached window keeps serving even with the repository down.
	repo.setFailing(true)
	win, allowed, err := store.Acquire(ctx, "key-a", tier)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), win.Count)
}
