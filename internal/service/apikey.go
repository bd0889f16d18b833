package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/metrics"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/repository"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/storage"
)

// Authentication failures in lookup-precedence order. The resolver checks
// them in this fixed order so the reported reason is deterministic.
var (
	ErrKeyInvalidFormat = errors.New("api key is missing or malformed")
	ErrKeyNotFound      = errors.New("api key not found")
	ErrKeyInactive      = errors.New("api key is inactive")
	ErrKeyExpired       = errors.New("api key has expired")
	ErrKeyRevoked       = errors.New("api key has been revoked")
)

const (
	keyPrefix     = "mrtfy_"
	minRawKeyLen  = 16
	credCacheTTL  = 5 * time.Minute
	credCachePref = "apikey:cache:"
)

// credentialCache is the slice of the redis client the resolver uses to
// keep hot credentials off the database.
type credentialCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

var _ credentialCache = (*storage.RedisClient)(nil)

type APIKeyService struct {
	db         *storage.Postgres
	repository *repository.APIKeyRepository
	cache      credentialCache
}

func NewAPIKeyService(db *storage.Postgres, repo *repository.APIKeyRepository, cache credentialCache) *APIKeyService {
	return &APIKeyService{
		db:         db,
		repository: repo,
		cache:      cache,
	}
}

// HashKey computes the deterministic one-way hash stored for a secret.
func HashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(rawKey)))
	return hex.EncodeToString(hash[:])
}

// CreateKeyRequest carries everything set at issuance time, including the
// access mode that later drives origin validation.
type CreateKeyRequest struct {
	Name             string
	UserID           string
	Plan             string
	Tier             string
	ExpiresAt        *time.Time
	RegisteredDomain string
	AllowedDomains   []string
	SubdomainPattern string
	MainDomain       string
	AllowedIPs       []string
	Scopes           []string
	AccessMode       models.AccessMode
	Environment      models.Environment
}

// Create issues a new key and returns the plaintext secret - the only time
// it is visible.
func (s *APIKeyService) Create(ctx context.Context, req CreateKeyRequest) (string, *models.APIKey, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	key := keyPrefix + base64.URLEncoding.EncodeToString(keyBytes)

	if req.AccessMode == "" {
		req.AccessMode = models.AccessModeDomainRestricted
	}
	if req.Environment == "" {
		req.Environment = models.EnvProduction
	}

	apiKey := models.APIKey{
		KeyHash:          HashKey(key),
		Name:             req.Name,
		UserID:           req.UserID,
		Plan:             req.Plan,
		Tier:             req.Tier,
		IsActive:         true,
		ExpiresAt:        req.ExpiresAt,
		RegisteredDomain: req.RegisteredDomain,
		AllowedDomains:   req.AllowedDomains,
		SubdomainPattern: req.SubdomainPattern,
		MainDomain:       req.MainDomain,
		AllowedIPs:       req.AllowedIPs,
		Scopes:           req.Scopes,
		AccessMode:       req.AccessMode,
		Environment:      req.Environment,
	}

	if err := s.repository.Create(ctx, &apiKey); err != nil {
		return "", nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return key, &apiKey, nil
}

// Resolve authenticates a raw secret: format check first (no hash or
// lookup work for garbage input), then hash lookup, then lifecycle checks
// in fixed precedence.
func (s *APIKeyService) Resolve(ctx context.Context, rawKey string) (*models.APIKey, error) {
	raw := strings.TrimSpace(rawKey)
	if !validKeyFormat(raw) {
		return nil, ErrKeyInvalidFormat
	}

	keyHash := HashKey(raw)

	apiKey, err := s.lookup(ctx, keyHash)
	if err != nil {
		return nil, err
	}
	if apiKey == nil {
		return nil, ErrKeyNotFound
	}

	if !apiKey.IsActive {
		return nil, ErrKeyInactive
	}
	if apiKey.IsExpired(time.Now()) {
		return nil, ErrKeyExpired
	}
	if apiKey.IsRevoked() {
		return nil, ErrKeyRevoked
	}

	return apiKey, nil
}

func validKeyFormat(raw string) bool {
	if len(raw) < minRawKeyLen {
		return false
	}
	for _, r := range raw {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

// lookup reads the credential from the redis cache, falling back to the
// database on a miss.
func (s *APIKeyService) lookup(ctx context.Context, keyHash string) (*models.APIKey, error) {
	cacheKey := credCachePref + keyHash

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err == nil && cached != "" {
			var apiKey models.APIKey
			if err := json.Unmarshal([]byte(cached), &apiKey); err == nil {
				// The hash is json-excluded, so the cached form drops it.
				// Restore it from the cache key: the rate limiter windows
				// by it, and an empty hash would pool every cached key
				// into one window.
				apiKey.KeyHash = keyHash
				metrics.CredentialCacheHits.WithLabelValues("hit").Inc()
				return &apiKey, nil
			}
		}
		metrics.CredentialCacheHits.WithLabelValues("miss").Inc()
	}

	apiKey, err := s.repository.FindByHash(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}
	if apiKey == nil {
		return nil, nil
	}

	if s.cache != nil {
		if data, err := json.Marshal(apiKey); err == nil {
			s.cache.Set(ctx, cacheKey, data, credCacheTTL)
		}
	}

	return apiKey, nil
}

// TouchLastUsed stamps the key's last-used time in the background. The
// write never blocks or fails an admission decision; errors are logged
// and swallowed.
func (s *APIKeyService) TouchLastUsed(keyID uuid.UUID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.repository.UpdateLastUsed(ctx, keyID); err != nil {
			log.Printf("last-used update failed for key %s: %v", keyID, err)
		}
	}()
}

func (s *APIKeyService) Get(ctx context.Context, id string) (*models.APIKey, error) {
	return s.repository.FindByID(ctx, id)
}

func (s *APIKeyService) List(ctx context.Context) ([]models.APIKey, error) {
	return s.repository.List(ctx)
}

func (s *APIKeyService) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if err := s.repository.Update(ctx, id, updates); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

// Revoke permanently disables the key and drops it from the credential
// cache so the revocation takes effect immediately, not after cache TTL.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	if err := s.repository.Revoke(ctx, id); err != nil {
		return err
	}

	s.invalidateCache(ctx, id)
	return nil
}

func (s *APIKeyService) Delete(ctx context.Context, id string) error {
	s.invalidateCache(ctx, id)

	return s.repository.Delete(ctx, id)
}

func (s *APIKeyService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}

	apiKey, err := s.repository.FindByID(ctx, id)
	if err != nil || apiKey == nil {
		return
	}

	if err := s.cache.Del(ctx, credCachePref+apiKey.KeyHash); err != nil {
		log.Printf("credential cache invalidation failed for key %s: %v", id, err)
	}
}
