package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	publisher events.Publisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssignmentService(
	repo repositories.Repository,
	publisher events.Publisher,
	logger *slog.Logger,
	v *validator.Validator,
) AssignmentService {
	return &assignmentService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

func (s *assignmentService) Create(ctx context.Context, req *CreateAssignmentRequest, actor models.Actor) (*models.Assignment, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if err := s.contentExists(ctx, req.Type, req.ContentID); err != nil {
		return nil, err
	}

	assignment := &models.Assignment{
		Type:           req.Type,
		AssignedTo:     req.AssignedTo,
		AssignedBy:     actor.ID,
		OrganizationID: actor.OrganizationID,
		ContentID:      req.ContentID,
		Status:         models.AssignmentPending,
		DueDate:        req.DueDate,
	}
	if req.Type == models.AssignmentComplianceTraining {
		assignment.CertStatus = models.CertificateUploaded
	}

	if err := s.repo.Assignment().Create(ctx, assignment); err != nil {
		return nil, NewPersistenceError("create assignment", err)
	}

	s.logger.Info("Assignment created",
		"assignment_id", assignment.ID,
		"assignment_type", assignment.Type,
		"assigned_to", assignment.AssignedTo,
		"assigned_by", actor.ID)

	return assignment, nil
}

func (s *assignmentService) GetByID(ctx context.Context, id string, actor models.Actor) (*models.Assignment, error) {
	assignment, err := s.repo.Assignment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.AssignedTo != actor.ID && !actor.Role.CanOverrideScores() {
		return nil, NewPermissionError(actor.ID, id, "assignment", "read", "not assignee or insufficient permissions")
	}

	return assignment, nil
}

func (s *assignmentService) ListByUser(ctx context.Context, userID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	assignments, total, err := s.repo.Assignment().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, total, nil
}

// Start moves a pending assignment to in_progress. Already-started and
// completed assignments are returned unchanged, so clients may call this on
// every content open.
func (s *assignmentService) Start(ctx context.Context, id string, actor models.Actor) (*models.Assignment, error) {
	assignment, err := s.GetByID(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if assignment.Status != models.AssignmentPending {
		return assignment, nil
	}

	now := time.Now()
	assignment.Status = models.AssignmentInProgress
	assignment.StartedAt = &now

	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return nil, NewPersistenceError("start assignment", err)
	}

	s.logger.Info("Assignment started", "assignment_id", id, "user_id", actor.ID)
	return assignment, nil
}

// Complete finalizes an assignment with a 0-100 completion score. The write
// is guarded on status so a repeated trigger can never move completed_at or
// re-publish the completion event.
func (s *assignmentService) Complete(ctx context.Context, id string, score int) (*models.Assignment, error) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":           models.AssignmentCompleted,
		"completed_at":     &now,
		"completion_score": &score,
	}

	changed, err := s.repo.Assignment().UpdateStatusGuarded(ctx, id, updates)
	if err != nil {
		return nil, NewPersistenceError("complete assignment", err)
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to reload assignment: %w", err)
	}

	if !changed {
		return assignment, nil
	}

	event := events.NewTrainingEvent(events.EventAssignmentCompleted, events.AssignmentCompletedEvent{
		AssignmentID:    assignment.ID,
		AssignedTo:      assignment.AssignedTo,
		ContentID:       assignment.ContentID,
		AssignmentType:  string(assignment.Type),
		CompletionScore: score,
	})
	if err := s.publisher.PublishTrainingEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish assignment completed event",
			"assignment_id", id, "error", err)
	}

	s.logger.Info("Assignment completed", "assignment_id", id, "completion_score", score)
	return assignment, nil
}

// BulkDelete removes each assignment independently and reports per-item
// outcomes. A failure on one id never prevents the rest from being deleted.
func (s *assignmentService) BulkDelete(ctx context.Context, ids []string, actor models.Actor) (*BulkDeleteResult, error) {
	if !actor.Role.CanOverrideScores() {
		return nil, NewPermissionError(actor.ID, "", "assignment", "delete", "insufficient permissions")
	}

	result := &BulkDeleteResult{
		Succeeded: make([]string, 0, len(ids)),
	}

	for _, id := range ids {
		if _, err := s.repo.Assignment().GetByID(ctx, id); err != nil {
			if repositories.IsNotFoundError(err) {
				result.Failed = append(result.Failed, BulkDeleteFailure{ID: id, Error: "assignment not found"})
			} else {
				result.Failed = append(result.Failed, BulkDeleteFailure{ID: id, Error: err.Error()})
			}
			continue
		}
		if err := s.repo.Assignment().Delete(ctx, id); err != nil {
			result.Failed = append(result.Failed, BulkDeleteFailure{ID: id, Error: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	s.logger.Info("Bulk delete finished",
		"requested", len(ids),
		"deleted", len(result.Succeeded),
		"failed", len(result.Failed),
		"actor_id", actor.ID)

	return result, nil
}

func (s *assignmentService) SetCertificateStatus(ctx context.Context, id string, status models.CertificateStatus, actor models.Actor) error {
	if !actor.Role.CanOverrideScores() {
		return NewPermissionError(actor.ID, id, "assignment", "verify_certificate", "insufficient permissions")
	}

	assignment, err := s.repo.Assignment().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to get assignment: %w", err)
	}

	if assignment.Type != models.AssignmentComplianceTraining {
		return fmt.Errorf("assignment %s does not track certificates: %w", id, ErrValidationFailed)
	}

	assignment.CertStatus = status
	if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
		return NewPersistenceError("update certificate status", err)
	}

	// A verified certificate completes the compliance assignment.
	if status == models.CertificateVerified && assignment.Status != models.AssignmentCompleted {
		if _, err := s.Complete(ctx, id, 100); err != nil {
			return err
		}
	}

	s.logger.Info("Certificate status updated",
		"assignment_id", id, "certificate_status", status, "actor_id", actor.ID)
	return nil
}

func (s *assignmentService) Stats(ctx context.Context, userID string) (*repositories.AssignmentStats, error) {
	stats, err := s.repo.Assignment().GetUserStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment stats: %w", err)
	}
	return stats, nil
}

// contentExists rejects assignments pointing at content this service cannot
// resolve. Compliance training references external material and is not
// checked.
func (s *assignmentService) contentExists(ctx context.Context, assignmentType models.AssignmentType, contentID string) error {
	switch assignmentType {
	case models.AssignmentCourse:
		if _, err := s.repo.Course().GetByID(ctx, contentID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to check course: %w", err)
		}
	case models.AssignmentQuiz:
		if _, err := s.repo.Quiz().GetByID(ctx, contentID); err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrQuizNotFound
			}
			return fmt.Errorf("failed to check quiz: %w", err)
		}
	}
	return nil
}
