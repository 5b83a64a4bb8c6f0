package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"github.com/phambaophuc/meal-analyzer/pkg/utils"
)

// === REQUEST PARSING ===

// readUpload pulls the photo out of the multipart form. The status is the one
// to answer with when err is not nil.
func (h *MealHandler) readUpload(c *gin.Context) (models.ImageAsset, int, error) {
	file, header, err := c.Request.FormFile(imageParamKey)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.ImageAsset{}, http.StatusRequestEntityTooLarge, fmt.Errorf("image exceeds %d bytes", tooLarge.Limit)
		}
		return models.ImageAsset{}, http.StatusBadRequest, fmt.Errorf("no image file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return models.ImageAsset{}, http.StatusBadRequest, fmt.Errorf("failed to read image")
	}
	if len(data) == 0 {
		return models.ImageAsset{}, http.StatusBadRequest, fmt.Errorf("image file is empty")
	}

	mediaType := utils.MediaType(data, header.Header.Get("Content-Type"), header.Filename)
	if !utils.IsValidImageType(mediaType) {
		return models.ImageAsset{}, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported file type %s", mediaType)
	}

	return models.NewImageAsset(data, mediaType, header.Filename), http.StatusOK, nil
}

func (h *MealHandler) parseLimit(value string) int64 {
	upper := h.config.Storage.HistoryLimit
	if value == "" {
		return min(defaultRecentLimit, upper)
	}

	limit, err := strconv.ParseInt(value, 10, 64)
	if err != nil || limit < 1 || limit > upper {
		return upper
	}
	return limit
}

// === RESPONSE HANDLING ===

func respondError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

func (h *MealHandler) respondError(c *gin.Context, statusCode int, message string) {
	respondError(c, statusCode, message)
}

// === UTILITY METHODS ===

func calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != "healthy" && status != "not configured" {
			return "unhealthy"
		}
	}
	return "healthy"
}
