package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/proxy"
)

// SystemHandler exposes operational state: circuit breakers and backend
// health per proxied service route.
type SystemHandler struct {
	proxies map[string]*proxy.Proxy
}

func NewSystemHandler(proxies map[string]*proxy.Proxy) *SystemHandler {
	return &SystemHandler{proxies: proxies}
}

// CircuitBreakerStatus returns breaker metrics for every service route.
func (h *SystemHandler) CircuitBreakerStatus(c *gin.Context) {
	statuses := make(map[string]interface{}, len(h.proxies))

	for path, p := range h.proxies {
		snap := p.BreakerSnapshot()
		statuses[path] = gin.H{
			"state":        snap.State.String(),
			"failures":     snap.Failures,
			"probe_hits":   snap.ProbeHits,
			"last_failure": snap.LastFailure,
			"changed_at":   snap.ChangedAt,
		}
	}

	c.JSON(http.StatusOK, statuses)
}

// ResetCircuitBreaker force-closes the breaker for one service route.
func (h *SystemHandler) ResetCircuitBreaker(c *gin.Context) {
	// The wildcard param carries its leading slash ("/api/users").
	service := c.Param("service")

	p, ok := h.proxies[service]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}

	p.ResetBreaker()

	c.JSON(http.StatusOK, gin.H{
		"message": "circuit breaker reset",
		"service": service,
	})
}

// BackendHealth returns per-target probe state for every service route.
func (h *SystemHandler) BackendHealth(c *gin.Context) {
	services := make(map[string]interface{}, len(h.proxies))

	for path, p := range h.proxies {
		services[path] = gin.H{
			"overall": p.OverallHealth().String(),
			"healthy": p.HealthyTargets(),
			"targets": p.HealthSnapshot(),
		}
	}

	c.JSON(http.StatusOK, services)
}
