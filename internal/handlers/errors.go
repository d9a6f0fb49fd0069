package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/middleware"
	"knit-tracker-backend/internal/models"
)

// respondError is the single place where domain errors become HTTP statuses.
// Unexpected errors are logged and answered with a generic message.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *apperr.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: "forbidden"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "not found"})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: "project was modified by another request"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: verr.Error()})
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		fe := fieldErrs[0]
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: fmt.Sprintf("%s: failed %q validation", lowerFirst(fe.Field()), fe.Tag()),
		})
	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal server error"})
	}
}

// respondBindError handles a failed ShouldBindJSON. Anything that is not a
// field validation failure is a malformed body.
func respondBindError(c *gin.Context, logger *zap.Logger, err error) {
	var verr *apperr.ValidationError
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &verr) || errors.As(err, &fieldErrs) {
		respondError(c, logger, err)
		return
	}
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request body"})
}

// requireOwner resolves the caller and the :userId path parameter. Only the
// owner may address their own resources.
func requireOwner(c *gin.Context, logger *zap.Logger) (uuid.UUID, bool) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		respondError(c, logger, apperr.ErrUnauthorized)
		return uuid.Nil, false
	}
	owner, ok := pathUUID(c, logger, "userId")
	if !ok {
		return uuid.Nil, false
	}
	if owner != caller {
		respondError(c, logger, apperr.ErrForbidden)
		return uuid.Nil, false
	}
	return owner, true
}

func pathUUID(c *gin.Context, logger *zap.Logger, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		respondError(c, logger, apperr.Validation(param, "must be a valid id"))
		return uuid.Nil, false
	}
	return id, true
}

func pathIndex(c *gin.Context, logger *zap.Logger) (int, bool) {
	n, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, logger, apperr.Validation("index", "must be an integer"))
		return 0, false
	}
	return n, true
}

func queryVersion(c *gin.Context, logger *zap.Logger) (int, bool) {
	raw := strings.TrimSpace(c.Query("version"))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(c, logger, apperr.Validation("version", "must be a non-negative integer"))
		return 0, false
	}
	return n, true
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
