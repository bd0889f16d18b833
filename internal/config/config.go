package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
)

type Config struct {
	Server         ServerConfig    `json:"server"`
	Database       DatabaseConfig  `json:"database"`
	Redis          RedisConfig     `json:"redis"`
	Auth           AuthConfig      `json:"auth"`
	Admission      AdmissionConfig `json:"admission"`
	RateLimitTiers []TierConfig    `json:"rate_limit_tiers"`
	Plans          []PlanConfig    `json:"plans"`
	Services       []ServiceConfig `json:"services"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (r RedisConfig) GetRedisAddr() string {
	return r.Host + ":" + r.Port
}

type AuthConfig struct {
	JWTSecret   string `json:"-"`
	ExpiryHours int    `json:"jwt_expiry_hours"`
}

// AdmissionConfig holds the pipeline's tuning knobs and the explicit
// fail-open/fail-closed policy flags for each degradation branch.
type AdmissionConfig struct {
	// WindowStoreBackend selects "memory" (single node) or "redis"
	// (shared counters across nodes).
	WindowStoreBackend string `json:"window_store_backend"`
	CacheIdleSeconds   int    `json:"cache_idle_seconds"`
	RetentionHours     int    `json:"window_retention_hours"`

	RateLimitFailOpen         bool `json:"rate_limit_fail_open"`
	QuotaFailOpen             bool `json:"quota_fail_open"`
	AllowMissingDomainNonProd bool `json:"allow_missing_domain_non_prod"`

	DecisionLogBuffer int `json:"decision_log_buffer"`
}

type TierConfig struct {
	Name          string `json:"name"`
	WindowSeconds int    `json:"window_seconds"`
	MaxRequests   int64  `json:"max_requests"`
	Unlimited     bool   `json:"unlimited"`
}

type PlanConfig struct {
	Name         string `json:"name"`
	MonthlyQuota int64  `json:"monthly_quota"`
	GraceQuota   int64  `json:"grace_quota"`
	RateTier     string `json:"rate_tier"`
}

type ServiceConfig struct {
	Path    string   `json:"path"`
	Targets []string `json:"targets"`
}

func Load(path string) (*Config, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// applyEnv lets deployment environments override secrets and endpoints
// without touching the checked-in config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Server.Environment = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		c.Redis.Port = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Environment == "" {
		c.Server.Environment = "development"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == "" {
		c.Redis.Port = "6379"
	}
	if c.Auth.ExpiryHours <= 0 {
		c.Auth.ExpiryHours = 24
	}
	if c.Admission.WindowStoreBackend == "" {
		c.Admission.WindowStoreBackend = "memory"
	}
	if c.Admission.CacheIdleSeconds <= 0 {
		c.Admission.CacheIdleSeconds = 300
	}
	if c.Admission.RetentionHours <= 0 {
		c.Admission.RetentionHours = 24
	}
	if c.Admission.DecisionLogBuffer <= 0 {
		c.Admission.DecisionLogBuffer = 1000
	}
	if len(c.RateLimitTiers) == 0 {
		c.RateLimitTiers = []TierConfig{
			{Name: "basic", WindowSeconds: 3600, MaxRequests: 100},
			{Name: "pro", WindowSeconds: 3600, MaxRequests: 10000},
			{Name: "enterprise", Unlimited: true, WindowSeconds: 3600},
		}
	}
	if len(c.Plans) == 0 {
		c.Plans = []PlanConfig{
			{Name: "free", MonthlyQuota: 1000, GraceQuota: 1100, RateTier: "basic"},
			{Name: "pro", MonthlyQuota: 100000, GraceQuota: 110000, RateTier: "pro"},
			{Name: "enterprise", MonthlyQuota: 10000000, GraceQuota: 11000000, RateTier: "enterprise"},
		}
	}
}

func (c *Config) validate() error {
	for _, plan := range c.Plans {
		if plan.GraceQuota < plan.MonthlyQuota {
			return fmt.Errorf("plan %q: grace quota %d below monthly quota %d",
				plan.Name, plan.GraceQuota, plan.MonthlyQuota)
		}
	}
	for _, tier := range c.RateLimitTiers {
		if !tier.Unlimited && tier.MaxRequests <= 0 {
			return fmt.Errorf("tier %q: bounded tier needs a positive max_requests", tier.Name)
		}
		if tier.WindowSeconds <= 0 {
			return fmt.Errorf("tier %q: window_seconds must be positive", tier.Name)
		}
	}
	return nil
}

// TierFor resolves a tier name to its rate-limit profile, falling back to
// the first configured tier for unknown names.
func (c *Config) TierFor(name string) models.RateLimitTier {
	for _, t := range c.RateLimitTiers {
		if t.Name == name {
			return t.Model()
		}
	}

	if len(c.RateLimitTiers) > 0 {
		return c.RateLimitTiers[0].Model()
	}
	return models.RateLimitTier{Name: "basic", WindowSeconds: 3600, MaxRequests: 100}
}

func (t TierConfig) Model() models.RateLimitTier {
	return models.RateLimitTier{
		Name:          t.Name,
		WindowSeconds: t.WindowSeconds,
		MaxRequests:   t.MaxRequests,
		Unlimited:     t.Unlimited,
	}
}

// PlanModels returns the configured plans as storable rows.
func (c *Config) PlanModels() []models.SubscriptionPlan {
	plans := make([]models.SubscriptionPlan, 0, len(c.Plans))
	for _, p := range c.Plans {
		plans = append(plans, models.SubscriptionPlan{
			Name:         p.Name,
			MonthlyQuota: p.MonthlyQuota,
			GraceQuota:   p.GraceQuota,
			RateTier:     p.RateTier,
		})
	}
	return plans
}

// DefaultPlan is the fallback for keys whose plan has no stored row.
func (c *Config) DefaultPlan() models.SubscriptionPlan {
	if len(c.Plans) > 0 {
		p := c.Plans[0]
		return models.SubscriptionPlan{
			Name:         p.Name,
			MonthlyQuota: p.MonthlyQuota,
			GraceQuota:   p.GraceQuota,
			RateTier:     p.RateTier,
		}
	}
	return models.SubscriptionPlan{Name: "free", MonthlyQuota: 1000, GraceQuota: 1100, RateTier: "basic"}
}

func (c *Config) CacheIdleTTL() time.Duration {
	return time.Duration(c.Admission.CacheIdleSeconds) * time.Second
}

func (c *Config) WindowRetention() time.Duration {
	return time.Duration(c.Admission.RetentionHours) * time.Hour
}
