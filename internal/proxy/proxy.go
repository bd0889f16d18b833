package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/circuitbreaker"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/healthcheck"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/loadbalancer"
)

// Proxy is the data plane for one service route: it balances admitted
// requests across the route's healthy backends behind a shared circuit
// breaker.
type Proxy struct {
	targets  []string
	reverses map[string]*httputil.ReverseProxy
	breaker  *circuitbreaker.Breaker
	picker   loadbalancer.Picker
	monitor  *healthcheck.Monitor
}

type Config struct {
	// Route labels this proxy's breaker in logs and metrics; falls back
	// to the first target when empty.
	Route                string
	Targets              []string
	LoadBalancerStrategy string
	CircuitBreaker       circuitbreaker.Config
	HealthCheck          healthcheck.Config
}

func New(targetURL string) (*Proxy, error) {
	return NewWithConfig(Config{Targets: []string{targetURL}})
}

func NewWithConfig(cfg Config) (*Proxy, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("proxy needs at least one target")
	}

	picker, err := loadbalancer.New(cfg.LoadBalancerStrategy)
	if err != nil {
		return nil, err
	}

	reverses := make(map[string]*httputil.ReverseProxy, len(cfg.Targets))
	for _, raw := range cfg.Targets {
		target, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid target %q: %w", raw, err)
		}
		reverses[raw] = httputil.NewSingleHostReverseProxy(target)
	}

	if cfg.HealthCheck.Targets == nil {
		cfg.HealthCheck.Targets = cfg.Targets
	}
	monitor := healthcheck.New(cfg.HealthCheck)
	monitor.Start()

	route := cfg.Route
	if route == "" {
		route = cfg.Targets[0]
	}

	p := &Proxy{
		targets:  cfg.Targets,
		reverses: reverses,
		breaker:  circuitbreaker.New("proxy:"+route, cfg.CircuitBreaker),
		picker:   picker,
		monitor:  monitor,
	}

	log.Printf("Proxy ready: %d targets, strategy %s", len(cfg.Targets), picker.Name())
	return p, nil
}

// Handle forwards an already-admitted request to one healthy backend.
func (p *Proxy) Handle(c *gin.Context) {
	healthy := p.monitor.Healthy()
	if len(healthy) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no healthy backends available"})
		return
	}

	target := p.picker.Pick(healthy)
	if target == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend selection failed"})
		return
	}

	reverse, ok := p.reverses[target]
	if !ok {
		log.Printf("No reverse proxy for target %s", target)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "backend selection failed"})
		return
	}

	if lc, ok := p.picker.(*loadbalancer.LeastConnections); ok {
		lc.Acquire(target)
		defer lc.Release(target)
	}

	err := p.breaker.Do(c.Request.Context(), func(context.Context) error {
		return p.forward(c, target, reverse)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"})
	}
}

var errBackendFailure = errors.New("backend returned a server error")

func (p *Proxy) forward(c *gin.Context, target string, reverse *httputil.ReverseProxy) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return err
	}

	req := c.Request
	req.URL.Scheme = parsed.Scheme
	req.URL.Host = parsed.Host
	req.Header.Set("X-Forwarded-Host", req.Host)
	if clientIP := c.ClientIP(); clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	req.Host = parsed.Host

	c.Header("X-Backend-Server", target)

	// 5xx responses count as breaker failures; the recorder is how we see
	// the status the reverse proxy wrote.
	recorder := &statusRecorder{ResponseWriter: c.Writer, status: http.StatusOK}
	c.Writer = recorder
	reverse.ServeHTTP(c.Writer, req)

	if recorder.status >= http.StatusInternalServerError {
		return errBackendFailure
	}
	return nil
}

func (p *Proxy) BreakerState() circuitbreaker.State {
	return p.breaker.State()
}

func (p *Proxy) BreakerSnapshot() circuitbreaker.Snapshot {
	return p.breaker.Snapshot()
}

func (p *Proxy) ResetBreaker() {
	p.breaker.Reset()
}

// HealthSnapshot reports per-target probe state.
func (p *Proxy) HealthSnapshot() map[string]healthcheck.Status {
	return p.monitor.Snapshot()
}

func (p *Proxy) HealthyTargets() []string {
	return p.monitor.Healthy()
}

func (p *Proxy) AllTargets() []string {
	return p.monitor.Targets()
}

func (p *Proxy) OverallHealth() healthcheck.HealthStatus {
	return p.monitor.Overall()
}

// Stop shuts down the health probe loop.
func (p *Proxy) Stop() {
	p.monitor.Stop()
}

type statusRecorder struct {
	gin.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
