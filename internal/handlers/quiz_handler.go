package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/services"
	"github.com/opsready/training-service/internal/utils"
)

// QuizHandler serves attempt submission, attempt review and score overrides.
type QuizHandler struct {
	BaseHandler
	attemptService  services.AttemptService
	overrideService services.OverrideService
	progressService services.ProgressService
	reportService   services.ReportService
}

func NewQuizHandler(
	attemptService services.AttemptService,
	overrideService services.OverrideService,
	progressService services.ProgressService,
	reportService services.ReportService,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:     NewBaseHandler(logger),
		attemptService:  attemptService,
		overrideService: overrideService,
		progressService: progressService,
		reportService:   reportService,
	}
}

// SubmitAttempt scores and records a quiz submission.
func (h *QuizHandler) SubmitAttempt(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	var req services.SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.QuizID = quizID

	h.LogRequest(c, "Submitting quiz attempt",
		"quiz_id", quizID, "answers_count", len(req.Answers))

	result, err := h.attemptService.Submit(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListAttempts returns the caller's attempts for a quiz.
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	filters := repositories.AttemptFilters{}
	if raw := c.Query("passed"); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			filters.Passed = &parsed
		}
	}
	if raw := c.Query("date_from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			filters.Limit = parsed
		}
	}

	attempts, err := h.attemptService.ListByQuiz(c.Request.Context(), quizID, actor, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// GetQuiz returns the quiz as presented to a learner about to take it.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	if _, ok := h.mustActor(c); !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	quiz, err := h.attemptService.GetQuiz(c.Request.Context(), quizID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, quiz)
}

// QuizAccess reports whether the caller may take the module's quiz; a locked
// quiz answers 409 so clients can distinguish the gate from missing content.
func (h *QuizHandler) QuizAccess(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	moduleID := ParseStringIDParam(c, "id")
	if moduleID == "" {
		return
	}

	allowed, err := h.progressService.CanStartQuiz(c.Request.Context(), actor.ID, moduleID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if !allowed {
		h.handleServiceError(c, services.ErrQuizLocked)
		return
	}

	c.JSON(http.StatusOK, gin.H{"can_start": true})
}

func (h *QuizHandler) GetAttempt(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	attempt, err := h.attemptService.GetByID(c.Request.Context(), attemptID, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

// GetEffectiveScore returns the attempt score with overrides applied.
func (h *QuizHandler) GetEffectiveScore(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	// Ownership is checked through the attempt read.
	if _, err := h.attemptService.GetByID(c.Request.Context(), attemptID, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	result, err := h.overrideService.EffectiveScore(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ApplyOverride records a manual score correction on one question.
func (h *QuizHandler) ApplyOverride(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	var req services.ApplyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.AttemptID = attemptID

	h.LogRequest(c, "Applying score override",
		"attempt_id", attemptID, "question_id", req.QuestionID, "new_score", req.NewScore)

	override, err := h.overrideService.Apply(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, override)
}

func (h *QuizHandler) ListOverrides(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	attemptID := ParseStringIDParam(c, "id")
	if attemptID == "" {
		return
	}

	if _, err := h.attemptService.GetByID(c.Request.Context(), attemptID, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	overrides, err := h.overrideService.ListByAttempt(c.Request.Context(), attemptID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"overrides": overrides})
}

func (h *QuizHandler) RemoveOverride(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	overrideID := ParseStringIDParam(c, "id")
	if overrideID == "" {
		return
	}

	h.LogRequest(c, "Removing score override", "override_id", overrideID)

	if err := h.overrideService.Remove(c.Request.Context(), overrideID, actor); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Override removed"})
}

// ExportAttempts streams the caller's attempt history for a quiz as CSV.
func (h *QuizHandler) ExportAttempts(c *gin.Context) {
	actor, ok := h.mustActor(c)
	if !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
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

	data, err := h.reportService.ExportAttemptsCSV(c.Request.Context(), quizID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="attempts.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}
