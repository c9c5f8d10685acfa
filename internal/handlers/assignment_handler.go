package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/services"
	"github.com/opsready/training-service/internal/utils"
	"github.com/opsready/training-service/internal/validator"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
	validator         *validator.Validator
}

type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

type CertificateStatusRequest struct {
	Status models.CertificateStatus `json:"status" validate:"required,oneof=not_required uploaded verified rejected"`
}

type CompleteAssignmentRequest struct {
	CompletionScore int `json:"completion_score" validate:"min=0,max=100"`
}

func NewAssignmentHandler(
	assignmentService services.AssignmentService,
	v *validator.Validator,
	logger utils.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
		validator:         v,
	}
}

func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Creating assignment",
		"assignment_type", req.Type, "assigned_to", req.AssignedTo)

	assignment, err := h.assignmentService.Create(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// ListAssignments returns the caller's assignments; admins may pass user_id
// to read another learner's list.
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
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

	filters := parseAssignmentFilters(c)
	assignments, total, err := h.assignmentService.ListByUser(c.Request.Context(), userID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"total":       total,
	})
}

func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	assignment, err := h.assignmentService.GetByID(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

func (h *AssignmentHandler) StartAssignment(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Starting assignment", "assignment_id", id)

	assignment, err := h.assignmentService.Start(c.Request.Context(), id, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// CompleteAssignment finishes an assignment at a given score. Completion
// normally happens through quiz passes and reconciliation; this endpoint is
// the administrative override for everything else.
func (h *AssignmentHandler) CompleteAssignment(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	if !actor.Role.CanOverrideScores() {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Access denied"})
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req CompleteAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid request body", Details: err.Error()})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Completing assignment", "assignment_id", id, "score", req.CompletionScore)

	assignment, err := h.assignmentService.Complete(c.Request.Context(), id, req.CompletionScore)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

func (h *AssignmentHandler) BulkDeleteAssignments(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}

	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Bulk deleting assignments", "count", len(req.IDs))

	result, err := h.assignmentService.BulkDelete(c.Request.Context(), req.IDs, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

func (h *AssignmentHandler) SetCertificateStatus(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var req CertificateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.Validate(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Updating certificate status",
		"assignment_id", id, "certificate_status", req.Status)

	if err := h.assignmentService.SetCertificateStatus(c.Request.Context(), id, req.Status, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Certificate status updated"})
}

func (h *AssignmentHandler) GetAssignmentStats(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
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

	stats, err := h.assignmentService.Stats(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseAssignmentFilters(c *gin.Context) repositories.AssignmentFilters {
	filters := repositories.AssignmentFilters{
		SortBy:    c.DefaultQuery("sort_by", "assigned_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if raw := c.Query("assignment_type"); raw != "" {
		value := models.AssignmentType(raw)
		filters.Type = &value
	}
	if raw := c.Query("status"); raw != "" {
		value := models.AssignmentStatus(raw)
		filters.Status = &value
	}
	if raw := c.Query("date_from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if raw := c.Query("date_to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.DateTo = &parsed
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filters.Limit = parsed
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filters.Offset = parsed
		}
	}

	return filters
}
