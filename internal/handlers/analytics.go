package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/analytics"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/middleware"
)

type AnalyticsHandler struct {
	analytics *analytics.Service
	logger    *zap.Logger
}

func NewAnalyticsHandler(svc *analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: svc, logger: logger}
}

// GetAnalytics godoc
// @Summary     Get collection analytics
// @Tags        analytics
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     200 {object} models.AnalyticsSummary
// @Failure     401 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /analytics/{userId} [get]
func (h *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		respondError(c, h.logger, apperr.ErrUnauthorized)
		return
	}
	userID, ok := pathUUID(c, h.logger, "userId")
	if !ok {
		return
	}

	summary, err := h.analytics.Summary(c.Request.Context(), caller, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}
