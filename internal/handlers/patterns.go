package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/middleware"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/patterns"
	"knit-tracker-backend/internal/query"
)

type PatternsHandler struct {
	patterns *patterns.Service
	query    *query.Service
	logger   *zap.Logger
}

func NewPatternsHandler(patternSvc *patterns.Service, querySvc *query.Service, logger *zap.Logger) *PatternsHandler {
	return &PatternsHandler{
		patterns: patternSvc,
		query:    querySvc,
		logger:   logger,
	}
}

// CreatePattern godoc
// @Summary     Create a pattern
// @Tags        patterns
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     201 {object} models.PatternResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /patterns/{userId} [post]
func (h *PatternsHandler) CreatePattern(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}

	var req models.CreatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	pattern, err := h.patterns.Create(c.Request.Context(), userID, patterns.CreateInput{
		Name:   req.Name,
		Text:   req.Text,
		Link:   req.Link,
		Tags:   req.Tags,
		Notes:  req.Notes,
		Images: req.Images,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toPatternResponse(pattern))
}

// ListPatterns godoc
// @Summary     List patterns
// @Tags        patterns
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     200 {object} models.PatternListResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /patterns/{userId} [get]
func (h *PatternsHandler) ListPatterns(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}

	list, err := h.query.ListPatterns(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toPatternList(list))
}

// SearchPatterns godoc
// @Summary     Search patterns
// @Description Matches q against the caller's pattern names, case-insensitively
// @Tags        patterns
// @Produce     json
// @Security    Bearer
// @Param       q query string false "Name filter"
// @Success     200 {object} models.PatternListResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /patterns/search [get]
func (h *PatternsHandler) SearchPatterns(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		respondError(c, h.logger, apperr.ErrUnauthorized)
		return
	}

	list, err := h.query.SearchPatterns(c.Request.Context(), caller, c.Query("q"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toPatternList(list))
}

// GetPattern godoc
// @Summary     Get a pattern
// @Tags        patterns
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       patternId path string true "Pattern ID"
// @Success     200 {object} models.PatternResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /patterns/{userId}/{patternId} [get]
func (h *PatternsHandler) GetPattern(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, h.logger, "patternId")
	if !ok {
		return
	}

	pattern, err := h.query.GetPattern(c.Request.Context(), userID, patternID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toPatternResponse(pattern))
}

// DeletePattern godoc
// @Summary     Delete a pattern
// @Description Projects that used the pattern are detached, not deleted
// @Tags        patterns
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       patternId path string true "Pattern ID"
// @Success     204
// @Success     200 {object} object "Warnings for image assets that could not be removed"
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /patterns/{userId}/{patternId} [delete]
func (h *PatternsHandler) DeletePattern(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	patternID, ok := pathUUID(c, h.logger, "patternId")
	if !ok {
		return
	}

	warnings, err := h.patterns.Delete(c.Request.Context(), userID, patternID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondDeleted(c, warnings)
}
