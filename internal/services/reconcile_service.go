package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
)

// HealingAction is one module-completion write the reconciler has decided to
// make, together with the passing attempt that justifies it.
type HealingAction struct {
	ModuleID  string
	AttemptID string
	// PassedAt is the completion time of the justifying attempt; the healed
	// row is backdated to it rather than to the healing run.
	PassedAt time.Time
}

type reconcileService struct {
	repo       repositories.Repository
	publisher  events.Publisher
	assignment AssignmentService
	logger     *slog.Logger
}

func NewReconcileService(
	repo repositories.Repository,
	publisher events.Publisher,
	assignment AssignmentService,
	logger *slog.Logger,
) ReconcileService {
	return &reconcileService{
		repo:       repo,
		publisher:  publisher,
		assignment: assignment,
		logger:     logger,
	}
}

// Reconcile repairs a learner's course progress from their attempt history.
// Any module whose quiz has a passing attempt but whose progress row is
// missing or not completed gets a completed row. Each write stands alone; a
// failed module is counted and skipped, never aborting the pass. Running
// reconcile on an already-consistent course changes nothing.
func (s *reconcileService) Reconcile(ctx context.Context, actor models.Actor, courseID string) (*ReconcileResult, error) {
	start := time.Now()

	course, err := s.repo.Course().GetByIDWithModules(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	moduleIDs := make([]string, 0, len(course.Modules))
	for _, module := range course.Modules {
		moduleIDs = append(moduleIDs, module.ID)
	}

	quizzes, err := s.repo.Quiz().GetByModuleIDs(ctx, moduleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get course quizzes: %w", err)
	}

	quizIDs := make([]string, 0, len(quizzes))
	for _, quiz := range quizzes {
		quizIDs = append(quizIDs, quiz.ID)
	}

	attempts, err := s.repo.Attempt().GetByUserAndQuizIDs(ctx, actor.ID, quizIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	progressRows, err := s.repo.Progress().GetByUserAndCourse(ctx, actor.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	plan := BuildHealingPlan(course.Modules, quizzes, attempts, progressRows)

	result := &ReconcileResult{CourseID: courseID}
	byModule := progressByModule(progressRows)
	healedModuleIDs := make([]string, 0, len(plan))

	for _, action := range plan {
		if err := s.healModule(ctx, actor, courseID, byModule[action.ModuleID], action); err != nil {
			s.logger.Error("Failed to heal module progress",
				"course_id", courseID,
				"module_id", action.ModuleID,
				"user_id", actor.ID,
				"error", err)
			result.FailedCount++
			result.FailedModuleIDs = append(result.FailedModuleIDs, action.ModuleID)
			continue
		}
		result.HealedCount++
		healedModuleIDs = append(healedModuleIDs, action.ModuleID)
	}

	result.CourseCompleted = s.courseCompleted(ctx, actor.ID, courseID, course.Modules)
	if result.CourseCompleted {
		result.AssignmentCompleted = s.completeCourseAssignment(ctx, actor.ID, courseID)
	}

	if result.HealedCount > 0 {
		event := events.NewTrainingEvent(events.EventProgressHealed, events.ProgressHealedEvent{
			UserID:      actor.ID,
			CourseID:    courseID,
			HealedCount: result.HealedCount,
			FailedCount: result.FailedCount,
			ModuleIDs:   healedModuleIDs,
		})
		if err := s.publisher.PublishTrainingEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish progress healed event",
				"course_id", courseID, "user_id", actor.ID, "error", err)
		}
	}

	s.logger.Info("Reconcile finished",
		"course_id", courseID,
		"user_id", actor.ID,
		"healed", result.HealedCount,
		"failed", result.FailedCount,
		"course_completed", result.CourseCompleted,
		"duration", time.Since(start).String())

	return result, nil
}

// BuildHealingPlan decides, without touching storage, which modules need a
// completed progress row. A module qualifies when its quiz has at least one
// passing attempt and its progress row is absent or not completed. Modules
// without a quiz are never healed; their completion has no attempt evidence.
func BuildHealingPlan(
	modules []models.Module,
	quizzes []*models.Quiz,
	attempts []*models.QuizAttempt,
	progressRows []*models.ModuleProgress,
) []HealingAction {
	quizByModule := make(map[string]*models.Quiz, len(quizzes))
	for _, quiz := range quizzes {
		if quiz.ModuleID != nil {
			quizByModule[*quiz.ModuleID] = quiz
		}
	}

	// Latest passing attempt per quiz wins; earlier passes carry no extra
	// information.
	passedByQuiz := make(map[string]*models.QuizAttempt, len(attempts))
	for _, attempt := range attempts {
		if !attempt.Passed {
			continue
		}
		current, ok := passedByQuiz[attempt.QuizID]
		if !ok || attempt.AttemptNumber > current.AttemptNumber {
			passedByQuiz[attempt.QuizID] = attempt
		}
	}

	completed := make(map[string]bool, len(progressRows))
	for _, row := range progressRows {
		completed[row.ModuleID] = row.Status == models.ProgressCompleted
	}

	var plan []HealingAction
	for _, module := range modules {
		quiz, ok := quizByModule[module.ID]
		if !ok {
			continue
		}
		attempt, ok := passedByQuiz[quiz.ID]
		if !ok {
			continue
		}
		if completed[module.ID] {
			continue
		}

		passedAt := attempt.CreatedAt
		if attempt.CompletedAt != nil {
			passedAt = *attempt.CompletedAt
		}
		plan = append(plan, HealingAction{
			ModuleID:  module.ID,
			AttemptID: attempt.ID,
			PassedAt:  passedAt,
		})
	}
	return plan
}

func (s *reconcileService) healModule(ctx context.Context, actor models.Actor, courseID string, existing *models.ModuleProgress, action HealingAction) error {
	progress := existing
	if progress == nil {
		progress = &models.ModuleProgress{
			UserID:         actor.ID,
			CourseID:       courseID,
			ModuleID:       action.ModuleID,
			OrganizationID: actor.OrganizationID,
			StartedAt:      &action.PassedAt,
		}
	}

	progress.Status = models.ProgressCompleted
	progress.ProgressPercentage = 100
	progress.CompletedAt = &action.PassedAt
	progress.LastAccessedAt = time.Now()

	return s.repo.Progress().Upsert(ctx, progress)
}

// courseCompleted re-reads progress after healing and reports whether every
// module of the course now has a completed row.
func (s *reconcileService) courseCompleted(ctx context.Context, userID, courseID string, modules []models.Module) bool {
	if len(modules) == 0 {
		return false
	}

	rows, err := s.repo.Progress().GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		s.logger.Error("Failed to re-read progress after healing",
			"course_id", courseID, "user_id", userID, "error", err)
		return false
	}

	completed := make(map[string]bool, len(rows))
	for _, row := range rows {
		completed[row.ModuleID] = row.Status == models.ProgressCompleted
	}
	for _, module := range modules {
		if !completed[module.ID] {
			return false
		}
	}
	return true
}

// completeCourseAssignment finishes the learner's active course assignment at
// score 100. The underlying guarded update keeps an already-completed
// assignment untouched.
func (s *reconcileService) completeCourseAssignment(ctx context.Context, userID, courseID string) bool {
	assignment, err := s.repo.Assignment().FindActive(ctx, userID, models.AssignmentCourse, courseID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			s.logger.Error("Failed to look up course assignment",
				"course_id", courseID, "user_id", userID, "error", err)
		}
		return false
	}

	if _, err := s.assignment.Complete(ctx, assignment.ID, 100); err != nil {
		s.logger.Error("Failed to complete course assignment",
			"assignment_id", assignment.ID, "error", err)
		return false
	}
	return true
}

func progressByModule(rows []*models.ModuleProgress) map[string]*models.ModuleProgress {
	byModule := make(map[string]*models.ModuleProgress, len(rows))
	for _, row := range rows {
		byModule[row.ModuleID] = row
	}
	return byModule
}
