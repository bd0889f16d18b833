package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/accesspolicy"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/admission"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/circuitbreaker"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/config"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/handler"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/middleware"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/proxy"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/quota"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/ratelimit"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/repository"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/scheduler"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/service"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres

	proxies    map[string]*proxy.Proxy
	controller *admission.Controller
	scheduler  *scheduler.Scheduler

	apiKeyService *service.APIKeyService
	authService   *service.AuthService

	apiKeyHandler    *handler.APIKeyHandler
	authHandler      *handler.AuthHandler
	analyticsHandler *handler.AnalyticsHandler
	systemHandler    *handler.SystemHandler

	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Repositories
	apiKeyRepo := repository.NewAPIKeyRepository(postgres)
	windowRepo := repository.NewRateWindowRepository(postgres)
	usageRepo := repository.NewUsageRepository(postgres)
	planRepo := repository.NewPlanRepository(postgres)
	logRepo := repository.NewAdmissionLogRepository(postgres)
	authRepo := repository.NewUserRepository(postgres)

	seedPlans(planRepo, cfg)

	// Services
	apiKeyService := service.NewAPIKeyService(postgres, apiKeyRepo, redis)
	authService := service.NewAuthService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.ExpiryHours)
	analyticsService := service.NewAnalyticsService(postgres, logRepo, usageRepo)

	// Admission pipeline. One breaker guards the persistent store so a
	// dead database degrades decisions instead of stalling them.
	storeBreaker := circuitbreaker.New("rate-window-store", circuitbreaker.Config{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		ProbeSuccesses:   1,
	})

	windowStore := ratelimit.NewStore(cfg.Admission.WindowStoreBackend, windowRepo, redis, storeBreaker, cfg.CacheIdleTTL())
	limiter := ratelimit.NewLimiter(windowStore, cfg.Admission.RateLimitFailOpen)

	evaluator := accesspolicy.NewEvaluator(accesspolicy.Config{
		Environment:               models.Environment(cfg.Server.Environment),
		AllowMissingDomainNonProd: cfg.Admission.AllowMissingDomainNonProd,
	})

	tracker := quota.NewTracker(usageRepo, planRepo, cfg.DefaultPlan())

	controller := admission.NewController(apiKeyService, evaluator, limiter, tracker, cfg, admission.Config{
		QuotaFailOpen: cfg.Admission.QuotaFailOpen,
	})

	middleware.InitDecisionLogger(logRepo, cfg.Admission.DecisionLogBuffer)

	s := &Server{
		router:           router,
		config:           cfg,
		redis:            redis,
		postgres:         postgres,
		proxies:          make(map[string]*proxy.Proxy),
		controller:       controller,
		scheduler:        scheduler.New(windowStore, windowRepo, logRepo, tracker, apiKeyRepo, cfg.WindowRetention()),
		apiKeyService:    apiKeyService,
		authService:      authService,
		apiKeyHandler:    handler.NewAPIKeyHandler(apiKeyService),
		authHandler:      handler.NewAuthHandler(authService),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService),
	}

	s.initializeProxies()
	s.systemHandler = handler.NewSystemHandler(s.proxies)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func seedPlans(planRepo *repository.PlanRepository, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := planRepo.Seed(ctx, cfg.PlanModels()); err != nil {
		log.Printf("Failed to seed subscription plans: %v", err)
	}
}

func (s *Server) initializeProxies() {
	for _, svc := range s.config.Services {
		if len(svc.Targets) == 0 {
			log.Printf("Warning: Service %s has no targets configured", svc.Path)
			continue
		}

		p, err := proxy.NewWithConfig(proxy.Config{
			Route:                svc.Path,
			Targets:              svc.Targets,
			LoadBalancerStrategy: "round-robin",
			CircuitBreaker: circuitbreaker.Config{
				FailureThreshold: 5,
				Cooldown:         30 * time.Second,
				ProbeSuccesses:   1,
			},
		})
		if err != nil {
			log.Printf("Failed to create proxy for %s: %v", svc.Path, err)
			continue
		}

		s.proxies[svc.Path] = p
		log.Printf("Initialized proxy for %s -> %v", svc.Path, svc.Targets)
	}
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService))
	{
		admin.GET("/status", s.adminStatus)

		admin.POST("/keys", s.apiKeyHandler.Create)
		admin.GET("/keys", s.apiKeyHandler.List)
		admin.GET("/keys/:id", s.apiKeyHandler.Get)
		admin.PATCH("/keys/:id", s.apiKeyHandler.Update)
		admin.POST("/keys/:id/revoke", s.apiKeyHandler.Revoke)
		admin.DELETE("/keys/:id", s.apiKeyHandler.Delete)

		admin.GET("/analytics/summary", s.analyticsHandler.Summary)
		admin.GET("/analytics/keys/:id/activity", s.analyticsHandler.KeyActivity)
		admin.GET("/analytics/keys/:id/quota", s.analyticsHandler.KeyQuota)

		admin.GET("/circuit-breakers", s.systemHandler.CircuitBreakerStatus)
		admin.POST("/circuit-breakers/*service", s.systemHandler.ResetCircuitBreaker)
		admin.GET("/backends", s.systemHandler.BackendHealth)
	}

	s.setupProxyRoutes()
}

func (s *Server) setupProxyRoutes() {
	admit := middleware.Admission(s.controller)

	for path, proxyInstance := range s.proxies {
		proxyPath := path
		p := proxyInstance

		s.router.Any(proxyPath+"/*proxyPath", admit, func(c *gin.Context) {
			p.Handle(c)
		})

		s.router.Any(proxyPath, admit, func(c *gin.Context) {
			p.Handle(c)
		})

		log.Printf("Registered proxy route: %s", proxyPath)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true

	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "admission-gateway",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	ctx := c.Request.Context()
	keys, _ := s.apiKeyService.List(ctx)
	c.JSON(http.StatusOK, gin.H{
		"gateway":   "running",
		"services":  len(s.config.Services),
		"api_keys":  len(keys),
		"uptime":    time.Since(startTime).Seconds(),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting admission gateway on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	s.scheduler.Stop()

	for _, p := range s.proxies {
		p.Stop()
	}

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
