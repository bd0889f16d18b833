package loadbalancer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStrategy(t *testing.T) {
	for _, name := range []string{"", "round-robin", "round_robin", "random", "least-connections", "least_connections"} {
		p, err := New(name)
		require.NoError(t, err, name)
		require.NotNil(t, p)
	}

	_, err := New("weighted-magic")
	assert.Error(t, err)
}

func TestRoundRobinCycles(t *testing.T) {
	p, err := New("round-robin")
	require.NoError(t, err)

	targets := []string{"a", "b", "c"}
	var picks []string
	for i := 0; i < 6; i++ {
		picks = append(picks, p.Pick(targets))
	}

	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, picks)
	assert.Equal(t, "", p.Pick(nil))
}

func TestRandomPicksFromSet(t *testing.T) {
	p, err := New("random")
	require.NoError(t, err)

	targets := []string{"a", "b"}
	for i := 0; i < 20; i++ {
		assert.Contains(t, targets, p.Pick(targets))
	}
	assert.Equal(t, "", p.Pick(nil))
}

func TestLeastConnections(t *testing.T) {
	lc := NewLeastConnections()
	targets := []string{"a", "b"}

	first := lc.Pick(targets)
	require.Equal(t, "a", first, "ties go to the first target")
	lc.Acquire(first)

	second := lc.Pick(targets)
	assert.Equal(t, "b", second, "loaded target is skipped")
	lc.Acquire(second)

	lc.Release(first)
	assert.Equal(t, "a", lc.Pick(targets))

	// Release below zero is a no-op.
	lc.Release("a")
	lc.Release("a")
	assert.Equal(t, "a", lc.Pick(targets))
}
