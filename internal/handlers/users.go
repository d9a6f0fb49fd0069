package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/models"
)

// UserReader loads the per-user bookkeeping row.
type UserReader interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type UsersHandler struct {
	users  UserReader
	logger *zap.Logger
}

func NewUsersHandler(users UserReader, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: logger}
}

// GetProfile godoc
// @Summary     Get a user's storage profile
// @Description Returns upload usage and how many patterns and projects the user owns
// @Tags        users
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     200 {object} models.UserProfileResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /users/{userId} [get]
func (h *UsersHandler) GetProfile(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.UserProfileResponse{
		UserID:       user.ID.String(),
		Username:     user.Username,
		UploadBytes:  user.UploadBytes,
		PatternCount: len(user.PatternIDs),
		ProjectCount: len(user.ProjectIDs),
	})
}
