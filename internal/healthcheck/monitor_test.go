package healthcheck

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorMarksTargetUnhealthy(t *testing.T) {
	var healthy atomic.Bool
	healthy.Store(true)

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy.Load() {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer backend.Close()

	m := New(Config{
		Targets:     []string{backend.URL},
		Interval:    10 * time.Millisecond,
		Timeout:     time.Second,
		MaxFailures: 2,
	})
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		st := m.Snapshot()[backend.URL]
		return st.Healthy && !st.LastSuccess.IsZero()
	}, time.Second, 10*time.Millisecond)

	healthy.Store(false)
	require.Eventually(t, func() bool {
		return len(m.Healthy()) == 0
	}, time.Second, 10*time.Millisecond, "two failed probes must evict the target")
	assert.Equal(t, Unhealthy, m.Overall())

	// One good probe brings it back.
	healthy.Store(true)
	require.Eventually(t, func() bool {
		return len(m.Healthy()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, Healthy, m.Overall())
}

func TestMonitorDegradedWithMixedTargets(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	m := New(Config{
		Targets:     []string{up.URL, down.URL},
		Interval:    10 * time.Millisecond,
		Timeout:     time.Second,
		MaxFailures: 1,
	})
	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool {
		h := m.Healthy()
		return len(h) == 1 && h[0] == up.URL
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, Degraded, m.Overall())
	assert.Len(t, m.Targets(), 2)
}

func TestMonitorTargetsStartHealthy(t *testing.T) {
	m := New(Config{Targets: []string{"http://localhost:9"}})
	assert.Equal(t, []string{"http://localhost:9"}, m.Healthy())
	assert.Equal(t, Healthy, m.Overall())
}

func TestHealthStatusString(t *testing.T) {
	assert.Equal(t, "healthy", Healthy.String())
	assert.Equal(t, "degraded", Degraded.String())
	assert.Equal(t, "unhealthy", Unhealthy.String())
	assert.Equal(t, "unknown", HealthStatus(7).String())
}
