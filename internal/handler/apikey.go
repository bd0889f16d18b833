package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/models"
	"github.com/psrikar045/MRTFY-Backend-sub001/internal/service"
)

type APIKeyHandler struct {
	service *service.APIKeyService
}

func NewAPIKeyHandler(service *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{service: service}
}

func (h *APIKeyHandler) Create(c *gin.Context) {
	var req struct {
		Name             string             `json:"name" binding:"required"`
		UserID           string             `json:"user_id"`
		Plan             string             `json:"plan"`
		Tier             string             `json:"tier" binding:"required"`
		ExpiresAt        *time.Time         `json:"expires_at"`
		RegisteredDomain string             `json:"registered_domain"`
		AllowedDomains   []string           `json:"allowed_domains"`
		SubdomainPattern string             `json:"subdomain_pattern"`
		MainDomain       string             `json:"main_domain"`
		AllowedIPs       []string           `json:"allowed_ips"`
		Scopes           []string           `json:"scopes"`
		AccessMode       models.AccessMode  `json:"access_mode"`
		Environment      models.Environment `json:"environment"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	key, apiKey, err := h.service.Create(ctx, service.CreateKeyRequest{
		Name:             req.Name,
		UserID:           req.UserID,
		Plan:             req.Plan,
		Tier:             req.Tier,
		ExpiresAt:        req.ExpiresAt,
		RegisteredDomain: req.RegisteredDomain,
		AllowedDomains:   req.AllowedDomains,
		SubdomainPattern: req.SubdomainPattern,
		MainDomain:       req.MainDomain,
		AllowedIPs:       req.AllowedIPs,
		Scopes:           req.Scopes,
		AccessMode:       req.AccessMode,
		Environment:      req.Environment,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":      apiKey.ID,
		"key":     key,
		"message": "Save this key - it won't be shown again",
	})
}

func (h *APIKeyHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	keys, err := h.service.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, keys)
}

func (h *APIKeyHandler) Get(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	apiKey, err := h.service.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if apiKey == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
		return
	}

	c.JSON(http.StatusOK, apiKey)
}

func (h *APIKeyHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		Tier             *string            `json:"tier"`
		Plan             *string            `json:"plan"`
		IsActive         *bool              `json:"is_active"`
		RegisteredDomain *string            `json:"registered_domain"`
		AllowedDomains   []string           `json:"allowed_domains"`
		SubdomainPattern *string            `json:"subdomain_pattern"`
		AllowedIPs       []string           `json:"allowed_ips"`
		AccessMode       *models.AccessMode `json:"access_mode"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Tier != nil {
		updates["tier"] = *req.Tier
	}
	if req.Plan != nil {
		updates["plan"] = *req.Plan
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.RegisteredDomain != nil {
		updates["registered_domain"] = *req.RegisteredDomain
	}
	if req.AllowedDomains != nil {
		updates["allowed_domains"] = models.StringList(req.AllowedDomains)
	}
	if req.SubdomainPattern != nil {
		updates["subdomain_pattern"] = *req.SubdomainPattern
	}
	if req.AllowedIPs != nil {
		updates["allowed_ips"] = models.StringList(req.AllowedIPs)
	}
	if req.AccessMode != nil {
		updates["access_mode"] = *req.AccessMode
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updatable fields provided"})
		return
	}

	ctx := c.Request.Context()
	if err := h.service.Update(ctx, id, updates); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key updated"})
}

// Revoke permanently disables a key. Unlike deactivation it cannot be
// undone.
func (h *APIKeyHandler) Revoke(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	if err := h.service.Revoke(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key revoked"})
}

func (h *APIKeyHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	ctx := c.Request.Context()
	if err := h.service.Delete(ctx, id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key deleted"})
}
