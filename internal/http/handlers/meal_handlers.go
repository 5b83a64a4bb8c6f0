package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/meal-analyzer/internal/config"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/internal/services/ledger"
	"github.com/phambaophuc/meal-analyzer/internal/services/upload"
	"go.uber.org/zap"
)

const (
	imageParamKey      = "image"
	defaultRecentLimit = 10

	// statusClientClosedRequest is logged when the caller went away mid-analysis.
	statusClientClosedRequest = 499
)

type MealAnalyzer interface {
	Analyze(ctx context.Context, asset models.ImageAsset) (models.AnalysisResult, error)
}

type MealHandler struct {
	analyzer MealAnalyzer
	ledger   ledger.Ledger
	history  ledger.History
	logger   *zap.Logger
	config   *config.Config
}

func NewMealHandler(
	analyzer MealAnalyzer,
	ledger ledger.Ledger,
	history ledger.History,
	logger *zap.Logger,
	config *config.Config,
) *MealHandler {
	return &MealHandler{
		analyzer: analyzer,
		ledger:   ledger,
		history:  history,
		logger:   logger,
		config:   config,
	}
}

// AnalyzeMeal accepts one photo and answers with the normalized nutrition
// breakdown. Upstream timeouts map to 504, every other upload failure to 502.
func (h *MealHandler) AnalyzeMeal(c *gin.Context) {
	asset, status, err := h.readUpload(c)
	if err != nil {
		h.respondError(c, status, err.Error())
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), asset)
	if err != nil {
		h.respondAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    result,
	})
}

func (h *MealHandler) respondAnalysisError(c *gin.Context, err error) {
	if c.Request.Context().Err() != nil {
		h.logger.Info("Client went away during analysis", zap.Error(err))
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}

	var uerr *upload.UploadError
	if errors.As(err, &uerr) {
		status := http.StatusBadGateway
		if uerr.Kind == upload.KindTimeout {
			status = http.StatusGatewayTimeout
		}
		h.logger.Warn("Meal analysis failed",
			zap.String("kind", string(uerr.Kind)),
			zap.Error(err))
		h.respondError(c, status, uerr.UserMessage())
		return
	}

	h.logger.Error("Meal analysis failed", zap.Error(err))
	h.respondError(c, http.StatusInternalServerError, "Failed to analyze meal")
}

func (h *MealHandler) RecentMeals(c *gin.Context) {
	limit := h.parseLimit(c.Query("limit"))

	events, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to read meal history", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to read meal history")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    events,
	})
}

func (h *MealHandler) TodayStats(c *gin.Context) {
	stats, err := h.ledger.Today(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read daily totals", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to read daily totals")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    stats,
	})
}

func (h *MealHandler) ResetTodayStats(c *gin.Context) {
	if err := h.ledger.Reset(c.Request.Context()); err != nil {
		h.logger.Error("Failed to reset daily totals", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to reset daily totals")
		return
	}
	h.TodayStats(c)
}
