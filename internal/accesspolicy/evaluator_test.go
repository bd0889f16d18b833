package accesspolicy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

func newTestKey(mutate func(*models.APIKey)) *models.APIKey {
	key := &models.APIKey{
		ID:               uuid.New(),
		Name:             "web-key",
		AccessMode:       models.AccessModeDomainRestricted,
		Environment:      models.EnvProduction,
		RegisteredDomain: "example.com",
	}
	if mutate != nil {
		mutate(key)
	}
	return key
}

func prodEvaluator() *Evaluator {
	return NewEvaluator(Config{Environment: models.EnvProduction})
}

func TestEvaluateDomainPrecedence(t *testing.T) {
	e := prodEvaluator()

	t.Run("registered domain", func(t *testing.T) {
		key := newTestKey(nil)
		assert.True(t, e.Evaluate(key, "example.com", "1.2.3.4").Allowed)
		assert.True(t, e.Evaluate(key, "WWW.Example.com:443", "1.2.3.4").Allowed)
	})

	t.Run("allowed domains list", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.AllowedDomains = models.StringList{"partner.io", "other.net"}
		})
		assert.True(t, e.Evaluate(key, "partner.io", "1.2.3.4").Allowed)
		assert.True(t, e.Evaluate(key, "other.net", "1.2.3.4").Allowed)
	})

	t.Run("wildcard pattern", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.RegisteredDomain = ""
			k.SubdomainPattern = "*.example.com"
		})
		assert.True(t, e.Evaluate(key, "api.example.com", "1.2.3.4").Allowed)
		assert.True(t, e.Evaluate(key, "a.b.example.com", "1.2.3.4").Allowed)
		assert.False(t, e.Evaluate(key, "example.org", "1.2.3.4").Allowed)
	})

	t.Run("main domain fallback", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.RegisteredDomain = ""
			k.MainDomain = "corp.example.com"
		})
		assert.True(t, e.Evaluate(key, "corp.example.com", "1.2.3.4").Allowed)
	})

	t.Run("dev domains only for development keys", func(t *testing.T) {
		prodKey := newTestKey(nil)
		assert.False(t, e.Evaluate(prodKey, "localhost:3000", "127.0.0.1").Allowed)

		devKey := newTestKey(func(k *models.APIKey) {
			k.Environment = models.EnvDevelopment
		})
		assert.True(t, e.Evaluate(devKey, "localhost:3000", "127.0.0.1").Allowed)
		assert.True(t, e.Evaluate(devKey, "myapp.local", "127.0.0.1").Allowed)
	})

	t.Run("unauthorized domain carries reason and detail", func(t *testing.T) {
		key := newTestKey(nil)
		d := e.Evaluate(key, "evil.com", "1.2.3.4")
		require.False(t, d.Allowed)
		assert.Equal(t, ReasonDomainNotAuthorized, d.Reason)
		assert.Contains(t, d.Detail, "evil.com")
	})
}

func TestEvaluateAccessModes(t *testing.T) {
	e := prodEvaluator()

	t.Run("unrestricted ignores origin", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.AccessMode = models.AccessModeUnrestricted
		})
		assert.True(t, e.Evaluate(key, "", "").Allowed)
		assert.True(t, e.Evaluate(key, "anything.com", "8.8.8.8").Allowed)
	})

	t.Run("server to server ignores origin", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.AccessMode = models.AccessModeServerToServer
		})
		assert.True(t, e.Evaluate(key, "", "10.0.0.1").Allowed)
	})

	t.Run("ip restricted validates client ip", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.AccessMode = models.AccessModeIPRestricted
			k.AllowedIPs = models.StringList{"10.0.0.0/8"}
		})
		assert.True(t, e.Evaluate(key, "", "10.1.2.3").Allowed)

		d := e.Evaluate(key, "example.com", "203.0.113.5")
		require.False(t, d.Allowed)
		assert.Equal(t, ReasonIPNotAuthorized, d.Reason)
	})
}

func TestEvaluateMissingDomainFallback(t *testing.T) {
	t.Run("ip allow-list takes priority", func(t *testing.T) {
		e := prodEvaluator()
		key := newTestKey(func(k *models.APIKey) {
			k.AllowedIPs = models.StringList{"198.51.100.7"}
		})
		assert.True(t, e.Evaluate(key, "", "198.51.100.7").Allowed)

		d := e.Evaluate(key, "", "198.51.100.8")
		require.False(t, d.Allowed)
		assert.Equal(t, ReasonIPNotAuthorized, d.Reason)
	})

	t.Run("domainless scope allows", func(t *testing.T) {
		e := prodEvaluator()
		key := newTestKey(func(k *models.APIKey) {
			k.Scopes = models.StringList{models.ScopeDomainlessAccess}
		})
		assert.True(t, e.Evaluate(key, "", "1.2.3.4").Allowed)
	})

	t.Run("non-production fallback requires opt-in and both environments", func(t *testing.T) {
		key := newTestKey(func(k *models.APIKey) {
			k.Environment = models.EnvDevelopment
		})

		// Opted in, dev gateway, dev key: allowed with a warning.
		e := NewEvaluator(Config{Environment: models.EnvDevelopment, AllowMissingDomainNonProd: true})
		d := e.Evaluate(key, "", "1.2.3.4")
		require.True(t, d.Allowed)
		assert.NotEmpty(t, d.Warning)

		// Not opted in.
		e = NewEvaluator(Config{Environment: models.EnvDevelopment})
		assert.False(t, e.Evaluate(key, "", "1.2.3.4").Allowed)

		// Production gateway.
		e = NewEvaluator(Config{Environment: models.EnvProduction, AllowMissingDomainNonProd: true})
		assert.False(t, e.Evaluate(key, "", "1.2.3.4").Allowed)

		// Production key on a dev gateway.
		e = NewEvaluator(Config{Environment: models.EnvDevelopment, AllowMissingDomainNonProd: true})
		prodKey := newTestKey(nil)
		assert.False(t, e.Evaluate(prodKey, "", "1.2.3.4").Allowed)
	})

	t.Run("no fallback denies with reason", func(t *testing.T) {
		e := prodEvaluator()
		key := newTestKey(nil)
		d := e.Evaluate(key, "", "1.2.3.4")
		require.False(t, d.Allowed)
		assert.Equal(t, ReasonMissingDomain, d.Reason)
	})
}
