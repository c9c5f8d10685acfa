package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsready/training-service/internal/cache"
	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/validator"
)

// ===== SERVICE INTERFACES =====

// AttemptService owns quiz attempt scoring and persistence.
type AttemptService interface {
	Submit(ctx context.Context, req *SubmitAttemptRequest, actor models.Actor) (*SubmitResult, error)
	GetByID(ctx context.Context, id string, actor models.Actor) (*models.QuizAttempt, error)
	GetQuiz(ctx context.Context, quizID string) (*QuizView, error)
	ListByQuiz(ctx context.Context, quizID string, actor models.Actor, filters repositories.AttemptFilters) ([]*models.QuizAttempt, error)
}

// OverrideService owns manual score corrections and effective-score reads.
type OverrideService interface {
	Apply(ctx context.Context, req *ApplyOverrideRequest, actor models.Actor) (*models.ScoreOverride, error)
	Remove(ctx context.Context, overrideID string, actor models.Actor) error
	ListByAttempt(ctx context.Context, attemptID string) ([]*models.ScoreOverride, error)
	EffectiveScore(ctx context.Context, attemptID string) (*EffectiveScoreResult, error)
}

// ProgressService owns per-module completion state and the video gate.
type ProgressService interface {
	UpdateVideoProgress(ctx context.Context, actor models.Actor, moduleID string, percentage float64) (*models.ModuleProgress, error)
	CanStartQuiz(ctx context.Context, userID, moduleID string) (bool, error)
	MarkModuleCompleted(ctx context.Context, userID, organizationID, moduleID string) error
	GetCourseProgress(ctx context.Context, userID, courseID string) ([]*models.ModuleProgress, error)
}

// ReconcileService heals missing completion state from attempt history.
type ReconcileService interface {
	Reconcile(ctx context.Context, actor models.Actor, courseID string) (*ReconcileResult, error)
}

// AssignmentService owns the assignment lifecycle state machine.
type AssignmentService interface {
	Create(ctx context.Context, req *CreateAssignmentRequest, actor models.Actor) (*models.Assignment, error)
	GetByID(ctx context.Context, id string, actor models.Actor) (*models.Assignment, error)
	ListByUser(ctx context.Context, userID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error)
	Start(ctx context.Context, id string, actor models.Actor) (*models.Assignment, error)
	Complete(ctx context.Context, id string, score int) (*models.Assignment, error)
	BulkDelete(ctx context.Context, ids []string, actor models.Actor) (*BulkDeleteResult, error)
	SetCertificateStatus(ctx context.Context, id string, status models.CertificateStatus, actor models.Actor) error
	Stats(ctx context.Context, userID string) (*repositories.AssignmentStats, error)
}

// ReportService exports progress and attempt history for administrators.
type ReportService interface {
	ExportUserCourseReport(ctx context.Context, userID, courseID string) ([]byte, error)
	ExportAttemptsCSV(ctx context.Context, quizID, userID string) ([]byte, error)
}

// ===== SHARED REQUEST/RESULT TYPES =====

type SubmitAttemptRequest struct {
	QuizID           string                 `json:"quiz_id" validate:"required"`
	Answers          []models.AttemptAnswer `json:"answers"`
	TimeSpentSeconds int                    `json:"time_spent_seconds" validate:"min=0"`
}

// QuizView is the take-a-quiz representation. Correct answers and matching
// configuration never leave the service.
type QuizView struct {
	ID               string         `json:"id"`
	ModuleID         *string        `json:"module_id,omitempty"`
	Title            string         `json:"title"`
	PassingScore     int            `json:"passing_score"`
	MaxAttempts      int            `json:"max_attempts"`
	TimeLimitMinutes *int           `json:"time_limit_minutes,omitempty"`
	MaxScore         int            `json:"max_score"`
	Questions        []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      string              `json:"id"`
	Order   int                 `json:"question_order"`
	Type    models.QuestionType `json:"question_type"`
	Text    string              `json:"question_text"`
	Choices []string            `json:"choices,omitempty"`
	Points  int                 `json:"points"`
}

type SubmitResult struct {
	AttemptID        string  `json:"attempt_id"`
	AttemptNumber    int     `json:"attempt_number"`
	Score            int     `json:"score"`
	MaxScore         int     `json:"max_score"`
	Percentage       float64 `json:"percentage"`
	Passed           bool    `json:"passed"`
	TimeSpentSeconds int     `json:"time_spent_seconds"`
}

type ApplyOverrideRequest struct {
	AttemptID  string `json:"attempt_id" validate:"required"`
	QuestionID string `json:"question_id" validate:"required"`
	NewScore   int    `json:"new_score" validate:"min=0"`
	Reason     string `json:"reason" validate:"required,min=5"`
}

// QuestionScore is one question's contribution to an effective score.
type QuestionScore struct {
	QuestionID    string `json:"question_id"`
	AnswerText    string `json:"answer_text"`
	Points        int    `json:"points"`
	AutoScore     int    `json:"auto_score"`
	OverrideScore *int   `json:"override_score,omitempty"`
	FinalScore    int    `json:"final_score"`
}

// EffectiveScoreResult is always derived on read; it is never stored, so it
// cannot drift from the override records.
type EffectiveScoreResult struct {
	AttemptID       string          `json:"attempt_id"`
	AutoScore       int             `json:"auto_score"`
	EffectiveScore  int             `json:"effective_score"`
	MaxScore        int             `json:"max_score"`
	PassingScore    int             `json:"passing_score"`
	EffectivePassed bool            `json:"effective_passed"`
	OverrideCount   int             `json:"override_count"`
	Questions       []QuestionScore `json:"questions"`
}

// ReconcileResult reports what one healing pass changed. Failures are
// per-module; one failed write never aborts the rest of the course.
type ReconcileResult struct {
	CourseID            string   `json:"course_id"`
	HealedCount         int      `json:"healed_count"`
	FailedCount         int      `json:"failed_count"`
	FailedModuleIDs     []string `json:"failed_module_ids,omitempty"`
	CourseCompleted     bool     `json:"course_completed"`
	AssignmentCompleted bool     `json:"assignment_completed"`
}

type CreateAssignmentRequest struct {
	Type       models.AssignmentType `json:"assignment_type" validate:"required,assignment_type"`
	AssignedTo string                `json:"assigned_to" validate:"required"`
	ContentID  string                `json:"content_id" validate:"required"`
	DueDate    *time.Time            `json:"due_date"`
}

type BulkDeleteFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkDeleteResult aggregates per-item outcomes; partial failure is reported,
// never rolled back.
type BulkDeleteResult struct {
	Succeeded []string            `json:"succeeded"`
	Failed    []BulkDeleteFailure `json:"failed"`
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Assignment() AssignmentService
	Attempt() AttemptService
	Override() OverrideService
	Progress() ProgressService
	Reconcile() ReconcileService
	Report() ReportService
}

type serviceManager struct {
	assignment AssignmentService
	attempt    AttemptService
	override   OverrideService
	progress   ProgressService
	reconcile  ReconcileService
	report     ReportService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.Publisher,
	logger *slog.Logger,
	v *validator.Validator,
) ServiceManager {
	assignment := NewAssignmentService(repo, publisher, logger, v)
	progress := NewProgressService(repo, publisher, logger)
	attempt := NewAttemptService(repo, cacheService, publisher, assignment, progress, logger, v)
	override := NewOverrideService(repo, logger, v)
	reconcile := NewReconcileService(repo, publisher, assignment, logger)
	report := NewReportService(repo, override, logger)

	return &serviceManager{
		assignment: assignment,
		attempt:    attempt,
		override:   override,
		progress:   progress,
		reconcile:  reconcile,
		report:     report,
	}
}

func (m *serviceManager) Assignment() AssignmentService { return m.assignment }
func (m *serviceManager) Attempt() AttemptService       { return m.attempt }
func (m *serviceManager) Override() OverrideService     { return m.override }
func (m *serviceManager) Progress() ProgressService     { return m.progress }
func (m *serviceManager) Reconcile() ReconcileService   { return m.reconcile }
func (m *serviceManager) Report() ReportService         { return m.report }
