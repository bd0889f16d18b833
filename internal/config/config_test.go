package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "memory", cfg.Admission.WindowStoreBackend)
	assert.Equal(t, 300, cfg.Admission.CacheIdleSeconds)
	assert.NotEmpty(t, cfg.RateLimitTiers)
	assert.NotEmpty(t, cfg.Plans)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(writeConfig(t, `{"server": {"port": "8080"}}`))
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "production", cfg.Server.Environment)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
}

func TestLoadValidation(t *testing.T) {
	t.Run("grace below quota rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{
			"plans": [{"name": "bad", "monthly_quota": 1000, "grace_quota": 500, "rate_tier": "basic"}]
		}`))
		assert.Error(t, err)
	})

	t.Run("bounded tier without max rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{
			"rate_limit_tiers": [{"name": "bad", "window_seconds": 3600}]
		}`))
		assert.Error(t, err)
	})

	t.Run("zero window rejected", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{
			"rate_limit_tiers": [{"name": "bad", "max_requests": 10}]
		}`))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(writeConfig(t, `{not json`))
		assert.Error(t, err)
	})
}

func TestTierFor(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"rate_limit_tiers": [
			{"name": "basic", "window_seconds": 3600, "max_requests": 100},
			{"name": "enterprise", "window_seconds": 3600, "unlimited": true}
		]
	}`))
	require.NoError(t, err)

	tier := cfg.TierFor("enterprise")
	assert.True(t, tier.Unlimited)

	tier = cfg.TierFor("no-such-tier")
	assert.Equal(t, "basic", tier.Name, "unknown tiers fall back to the first configured tier")
}

func TestDefaultPlan(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"plans": [
			{"name": "starter", "monthly_quota": 500, "grace_quota": 600, "rate_tier": "basic"},
			{"name": "pro", "monthly_quota": 5000, "grace_quota": 6000, "rate_tier": "pro"}
		]
	}`))
	require.NoError(t, err)

	plan := cfg.DefaultPlan()
	assert.Equal(t, "starter", plan.Name)
	assert.Equal(t, int64(500), plan.MonthlyQuota)
}
