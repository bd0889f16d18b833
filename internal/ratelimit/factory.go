package ratelimit

import (
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/circuitbreaker"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
)

// NewStore selects the window backend by name. "redis" shares counters
// across gateway nodes; anything else gets the single-node in-process
// cache backed by the persistent repository.
func NewStore(backend string, repo WindowRepository, redis *storage.RedisClient, breaker *circuitbreaker.Breaker, idleTTL time.Duration) WindowStore {
	switch backend {
	case "redis":
		return NewRedisStore(redis)
	default:
		return NewMemoryStore(repo, breaker, idleTTL)
	}
}
