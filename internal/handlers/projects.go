package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"knit-tracker-backend/internal/apperr"
	"knit-tracker-backend/internal/lifecycle"
	"knit-tracker-backend/internal/middleware"
	"knit-tracker-backend/internal/models"
	"knit-tracker-backend/internal/query"
	"knit-tracker-backend/internal/rowtracker"
)

type ProjectsHandler struct {
	lifecycle *lifecycle.Manager
	query     *query.Service
	logger    *zap.Logger
}

func NewProjectsHandler(manager *lifecycle.Manager, querySvc *query.Service, logger *zap.Logger) *ProjectsHandler {
	return &ProjectsHandler{
		lifecycle: manager,
		query:     querySvc,
		logger:    logger,
	}
}

// CreateProject godoc
// @Summary     Start a project
// @Description Creates an in-progress project; blank tracker sections are normalized
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     201 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{userId} [post]
func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}

	var req models.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	in := lifecycle.StartInput{
		Name:        req.Name,
		PatternID:   req.Pattern.ID,
		Notes:       req.Notes,
		Tags:        req.Tags,
		RowTrackers: req.RowTrackers,
		Images:      req.Images,
	}
	if req.StartedAt != nil {
		in.StartedAt = *req.StartedAt
	}

	project, err := h.lifecycle.Start(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toProjectResponse(project, nil))
}

// ListProjects godoc
// @Summary     List projects
// @Description Returns every project the user owns
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Success     200 {object} models.ProjectListResponse
// @Failure     403 {object} models.ErrorResponse
// @Router      /projects/{userId} [get]
func (h *ProjectsHandler) ListProjects(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}

	projects, err := h.query.ListProjects(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectList(projects))
}

// SearchProjects godoc
// @Summary     Search projects
// @Description Filters the caller's projects by name (q) and started/finished date bounds
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       q query string false "Name filter"
// @Success     200 {object} models.ProjectListResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     401 {object} models.ErrorResponse
// @Router      /projects [get]
func (h *ProjectsHandler) SearchProjects(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		respondError(c, h.logger, apperr.ErrUnauthorized)
		return
	}

	filter, err := query.ParseProjectFilter(c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	projects, err := h.query.SearchProjects(c.Request.Context(), caller, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectList(projects))
}

// GetProject godoc
// @Summary     Get a project
// @Tags        projects
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       projectId path string true "Project ID"
// @Success     200 {object} models.ProjectResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId} [get]
func (h *ProjectsHandler) GetProject(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, h.logger, "projectId")
	if !ok {
		return
	}

	project, err := h.query.GetProject(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectResponse(project, nil))
}

// UpdateProject godoc
// @Summary     Edit or finish a project
// @Description A body carrying finishedAt finishes the project; anything else is an edit. Image deletion failures come back as warnings
// @Tags        projects
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       projectId path string true "Project ID"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId} [put]
func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, h.logger, "projectId")
	if !ok {
		return
	}

	var req models.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	var (
		project  *models.Project
		warnings []models.Warning
		err      error
	)
	if req.FinishedAt != nil {
		project, warnings, err = h.lifecycle.Finish(c.Request.Context(), userID, projectID, lifecycle.FinishInput{
			Name:                 req.Name,
			FinishedAt:           *req.FinishedAt,
			Notes:                req.Notes,
			Images:               req.Images,
			DeleteExistingImages: req.DeleteExistingImages,
			Version:              req.Version,
		})
	} else {
		project, warnings, err = h.lifecycle.Edit(c.Request.Context(), userID, projectID, lifecycle.EditInput{
			Name:           req.Name,
			Notes:          req.Notes,
			Tags:           req.Tags,
			Pattern:        req.Pattern,
			RowTrackers:    req.RowTrackers,
			Images:         req.Images,
			RemoveImageIDs: req.RemoveImageIDs,
			Version:        req.Version,
		})
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectResponse(project, warnings))
}

// DeleteProject godoc
// @Summary     Delete a project
// @Description Answers 204, or 200 with warnings when some image assets could not be removed
// @Tags        projects
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       projectId path string true "Project ID"
// @Success     204
// @Success     200 {object} object "Warnings for image assets that could not be removed"
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId} [delete]
func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, h.logger, "projectId")
	if !ok {
		return
	}

	warnings, err := h.lifecycle.Delete(c.Request.Context(), userID, projectID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	respondDeleted(c, warnings)
}

// AddTracker godoc
// @Summary     Add a row tracker
// @Description Appends an empty tracker section
// @Tags        trackers
// @Produce     json
// @Security    Bearer
// @Param       userId    path  string true  "User ID"
// @Param       projectId path  string true  "Project ID"
// @Param       version   query int    false "Expected project version"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId}/trackers [post]
func (h *ProjectsHandler) AddTracker(c *gin.Context) {
	userID, projectID, version, ok := h.trackerTarget(c)
	if !ok {
		return
	}

	project, err := h.lifecycle.AddTracker(c.Request.Context(), userID, projectID, version)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectResponse(project, nil))
}

// UpdateTracker godoc
// @Summary     Update a row tracker
// @Tags        trackers
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       projectId path string true "Project ID"
// @Param       index     path int    true "Tracker index"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId}/trackers/{index} [patch]
func (h *ProjectsHandler) UpdateTracker(c *gin.Context) {
	userID, ok := requireOwner(c, h.logger)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, h.logger, "projectId")
	if !ok {
		return
	}
	index, ok := pathIndex(c, h.logger)
	if !ok {
		return
	}

	var req models.TrackerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.logger, err)
		return
	}

	project, err := h.lifecycle.UpdateTracker(c.Request.Context(), userID, projectID, index, rowtracker.UpdatesFrom(req), req.Version)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectResponse(project, nil))
}

// RemoveTracker godoc
// @Summary     Remove a row tracker
// @Description Rejected once the project is finished
// @Tags        trackers
// @Produce     json
// @Security    Bearer
// @Param       userId    path string true "User ID"
// @Param       projectId path string true "Project ID"
// @Param       index     path int    true "Tracker index"
// @Param       version   query int   false "Expected project version"
// @Success     200 {object} models.ProjectResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     403 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /projects/{userId}/{projectId}/trackers/{index} [delete]
func (h *ProjectsHandler) RemoveTracker(c *gin.Context) {
	userID, projectID, version, ok := h.trackerTarget(c)
	if !ok {
		return
	}
	index, ok := pathIndex(c, h.logger)
	if !ok {
		return
	}

	project, err := h.lifecycle.RemoveTracker(c.Request.Context(), userID, projectID, index, version)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toProjectResponse(project, nil))
}

func (h *ProjectsHandler) trackerTarget(c *gin.Context) (userID, projectID uuid.UUID, version int, ok bool) {
	if userID, ok = requireOwner(c, h.logger); !ok {
		return
	}
	if projectID, ok = pathUUID(c, h.logger, "projectId"); !ok {
		return
	}
	version, ok = queryVersion(c, h.logger)
	return
}

func respondDeleted(c *gin.Context, warnings []models.Warning) {
	if len(warnings) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warnings": warnings})
}
