package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"go.uber.org/zap"
)

type CacheInspector interface {
	Status(ctx context.Context) (models.CacheStatus, error)
}

// HealthCheck reports "healthy", "not configured" or a reason for failure.
type HealthCheck func(ctx context.Context) string

// CheckError turns an error-returning probe into a HealthCheck.
func CheckError(probe func(ctx context.Context) error) HealthCheck {
	return func(ctx context.Context) string {
		if err := probe(ctx); err != nil {
			return "unhealthy: " + err.Error()
		}
		return "healthy"
	}
}

func NotConfigured(ctx context.Context) string {
	return "not configured"
}

type SystemHandler struct {
	cache  CacheInspector
	checks map[string]HealthCheck
	logger *zap.Logger
}

func NewSystemHandler(cache CacheInspector, checks map[string]HealthCheck, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{cache: cache, checks: checks, logger: logger}
}

func (h *SystemHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		services[name] = check(ctx)
	}
	overall := calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *SystemHandler) CacheStatus(c *gin.Context) {
	status, err := h.cache.Status(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read cache status", zap.Error(err))
		respondError(c, http.StatusInternalServerError, "Failed to read cache status")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    status,
	})
}
