package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opsready/training-service/internal/services"
	"github.com/opsready/training-service/internal/utils"
	"github.com/opsready/training-service/internal/validator"
)

type ProgressHandler struct {
	BaseHandler
	progressService  services.ProgressService
	reconcileService services.ReconcileService
	reportService    services.ReportService
	validator        *validator.Validator
}

type VideoProgressRequest struct {
	Percentage float64 `json:"percentage" validate:"min=0"`
}

func NewProgressHandler(
	progressService services.ProgressService,
	reconcileService services.ReconcileService,
	reportService services.ReportService,
	v *validator.Validator,
	logger utils.Logger,
) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:      NewBaseHandler(logger),
		progressService:  progressService,
		reconcileService: reconcileService,
		reportService:    reportService,
		validator:        v,
	}
}

// UpdateVideoProgress records a playback heartbeat for a module.
func (h *ProgressHandler) UpdateVideoProgress(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	moduleID := ParseStringIDParam(c, "id")
	if moduleID == "" {
		return
	}

	var req VideoProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	progress, err := h.progressService.UpdateVideoProgress(c.Request.Context(), actor, moduleID, req.Percentage)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

// GetCourseProgress returns per-module progress for a course.
func (h *ProgressHandler) GetCourseProgress(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	courseID := ParseStringIDParam(c, "id")
	if courseID == "" {
		return
	}

	userID := actor.ID
	if requested := c.Query("user_id"); requested != "" && requested != actor.ID {
		if !actor.Role.CanOverrideScores() {
			c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
			return
		}
		userID = requested
	}

	records, err := h.progressService.GetCourseProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"progress": records})
}

// ReconcileCourse heals missing completion state from attempt history. The
// operation is idempotent; clients may retry it freely.
func (h *ProgressHandler) ReconcileCourse(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	courseID := ParseStringIDParam(c, "id")
	if courseID == "" {
		return
	}

	h.LogRequest(c, "Reconciling course progress", "course_id", courseID)

	result, err := h.reconcileService.Reconcile(c.Request.Context(), actor, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportCourseReport streams a learner's course progress as an Excel file.
func (h *ProgressHandler) ExportCourseReport(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	courseID := ParseStringIDParam(c, "id")
	if courseID == "" {
		return
	}

	userID := actor.ID
	if requested := c.Query("user_id"); requested != "" && requested != actor.ID {
		if !actor.Role.CanOverrideScores() {
			c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
			return
		}
		userID = requested
	}

	data, err := h.reportService.ExportUserCourseReport(c.Request.Context(), userID, courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="course-progress.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
