package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyLifecycle(t *testing.T) {
	now := time.Now()

	t.Run("no expiry never expires", func(t *testing.T) {
		key := &APIKey{}
		assert.False(t, key.IsExpired(now))
	})

	t.Run("expiry boundary is inclusive", func(t *testing.T) {
		key := &APIKey{ExpiresAt: &now}
		assert.True(t, key.IsExpired(now))

		future := now.Add(time.Minute)
		key = &APIKey{ExpiresAt: &future}
		assert.False(t, key.IsExpired(now))

		past := now.Add(-24 * time.Hour)
		key = &APIKey{ExpiresAt: &past}
		assert.True(t, key.IsExpired(now))
	})

	t.Run("revoked", func(t *testing.T) {
		key := &APIKey{}
		assert.False(t, key.IsRevoked())
		key.RevokedAt = &now
		assert.True(t, key.IsRevoked())
	})

	t.Run("scopes", func(t *testing.T) {
		key := &APIKey{Scopes: StringList{"read", ScopeDomainlessAccess}}
		assert.True(t, key.HasScope("read"))
		assert.True(t, key.HasScope(ScopeDomainlessAccess))
		assert.False(t, key.HasScope("write"))
	})
}

func TestStringListRoundTrip(t *testing.T) {
	list := StringList{"a.example.com", "b.example.com"}

	v, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a.example.com","b.example.com"]`, v)

	var scanned StringList
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, list, scanned)
}

func TestStringListEdgeCases(t *testing.T) {
	var nilList StringList
	v, err := nilList.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var scanned StringList
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)

	require.NoError(t, scanned.Scan([]byte(`["x"]`)))
	assert.Equal(t, StringList{"x"}, scanned)

	assert.Error(t, scanned.Scan(42))
}

func TestRateLimitTierWindow(t *testing.T) {
	assert.Equal(t, time.Hour, RateLimitTier{}.Window(), "zero window falls back to an hour")
	assert.Equal(t, 90*time.Second, RateLimitTier{WindowSeconds: 90}.Window())
}

func TestRateWindowExpired(t *testing.T) {
	now := time.Now()
	w := &RateWindow{WindowEnd: now.Add(time.Minute)}
	assert.False(t, w.Expired(now))
	assert.True(t, w.Expired(now.Add(time.Minute)), "end boundary is exclusive for the window")
	assert.True(t, w.Expired(now.Add(2*time.Minute)))
}

func TestMonthlyUsageNeedsReset(t *testing.T) {
	u := &MonthlyUsage{MonthYear: "2026-07"}
	july := time.Date(2026, time.July, 15, 0, 0, 0, 0, time.UTC)
	august := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)

	assert.False(t, u.NeedsReset(july))
	assert.True(t, u.NeedsReset(august))
}

func TestUserSerializationOmitsPasswordHash(t *testing.T) {
	u := User{
		ID:           uuid.New(),
		Email:        "ops@example.com",
		PasswordHash: "$2a$10$notarealdigest",
		Role:         "admin",
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "notarealdigest")
	assert.NotContains(t, string(data), "PasswordHash")
	assert.Contains(t, string(data), "ops@example.com")
}
