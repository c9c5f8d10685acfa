package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
)

// videoCompletionThreshold is the watched percentage at which a module's
// video counts as completed and stops gating the quiz.
const videoCompletionThreshold = 90

type progressService struct {
	repo      repositories.Repository
	publisher events.Publisher
	logger    *slog.Logger
}

func NewProgressService(repo repositories.Repository, publisher events.Publisher, logger *slog.Logger) ProgressService {
	return &progressService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// UpdateVideoProgress records a playback heartbeat. Video progress never
// decreases, and once video_completed_at is set it is never cleared, so
// seeking backwards or replaying cannot re-lock a quiz.
func (s *progressService) UpdateVideoProgress(ctx context.Context, actor models.Actor, moduleID string, percentage float64) (*models.ModuleProgress, error) {
	module, err := s.repo.Course().GetModule(ctx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrModuleNotFound
		}
		return nil, fmt.Errorf("failed to get module: %w", err)
	}

	clamped := int(math.Round(math.Max(0, math.Min(100, percentage))))
	now := time.Now()

	progress, err := s.loadOrInitProgress(ctx, actor, module)
	if err != nil {
		return nil, err
	}

	if clamped > progress.VideoProgressPercentage {
		progress.VideoProgressPercentage = clamped
	}
	if progress.VideoProgressPercentage >= videoCompletionThreshold && progress.VideoCompletedAt == nil {
		progress.VideoCompletedAt = &now
		s.logger.Info("Video completed",
			"module_id", moduleID,
			"user_id", actor.ID,
			"video_progress", progress.VideoProgressPercentage)
	}

	if progress.Status != models.ProgressCompleted {
		switch {
		case progress.VideoProgressPercentage >= videoCompletionThreshold:
			// First crossing of the threshold completes the module; later
			// heartbeats land in the terminal branch and only refresh
			// last_accessed_at.
			if progress.StartedAt == nil {
				progress.StartedAt = &now
			}
			progress.Status = models.ProgressCompleted
			progress.ProgressPercentage = 100
			progress.CompletedAt = &now
		case progress.VideoProgressPercentage > 0:
			if progress.Status == models.ProgressNotStarted {
				progress.Status = models.ProgressInProgress
				progress.StartedAt = &now
			}
			if progress.VideoProgressPercentage > progress.ProgressPercentage {
				progress.ProgressPercentage = progress.VideoProgressPercentage
			}
		}
	}
	progress.LastAccessedAt = now

	if err := s.repo.Progress().Upsert(ctx, progress); err != nil {
		return nil, NewPersistenceError("upsert video progress", err)
	}

	return progress, nil
}

// CanStartQuiz reports whether the module's video gate is satisfied. Modules
// without video content are never gated.
func (s *progressService) CanStartQuiz(ctx context.Context, userID, moduleID string) (bool, error) {
	module, err := s.repo.Course().GetModule(ctx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, ErrModuleNotFound
		}
		return false, fmt.Errorf("failed to get module: %w", err)
	}

	if !module.RequiresVideo() {
		return true, nil
	}

	progress, err := s.repo.Progress().GetByUserAndModule(ctx, userID, module.CourseID, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get progress: %w", err)
	}

	return progress.VideoCompletedAt != nil || progress.VideoProgressPercentage >= videoCompletionThreshold, nil
}

// MarkModuleCompleted upserts the module's progress row to completed. It does
// not consult the video gate: a passed quiz outranks unfinished playback.
// Completed rows are terminal, so repeated calls keep the first completed_at.
func (s *progressService) MarkModuleCompleted(ctx context.Context, userID, organizationID, moduleID string) error {
	module, err := s.repo.Course().GetModule(ctx, moduleID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrModuleNotFound
		}
		return fmt.Errorf("failed to get module: %w", err)
	}

	now := time.Now()
	progress, err := s.repo.Progress().GetByUserAndModule(ctx, userID, module.CourseID, moduleID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get progress: %w", err)
		}
		progress = &models.ModuleProgress{
			UserID:         userID,
			CourseID:       module.CourseID,
			ModuleID:       moduleID,
			OrganizationID: organizationID,
			StartedAt:      &now,
		}
	}

	if progress.Status == models.ProgressCompleted {
		return nil
	}

	progress.Status = models.ProgressCompleted
	progress.ProgressPercentage = 100
	progress.CompletedAt = &now
	progress.LastAccessedAt = now

	if err := s.repo.Progress().Upsert(ctx, progress); err != nil {
		return NewPersistenceError("mark module completed", err)
	}

	event := events.NewTrainingEvent(events.EventModuleCompleted, events.ModuleCompletedEvent{
		UserID:   userID,
		CourseID: module.CourseID,
		ModuleID: moduleID,
		Trigger:  "quiz_pass",
	})
	if err := s.publisher.PublishTrainingEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish module completed event",
			"module_id", moduleID, "user_id", userID, "error", err)
	}

	s.logger.Info("Module completed", "module_id", moduleID, "user_id", userID)
	return nil
}

func (s *progressService) GetCourseProgress(ctx context.Context, userID, courseID string) ([]*models.ModuleProgress, error) {
	if _, err := s.repo.Course().GetByID(ctx, courseID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	records, err := s.repo.Progress().GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	return records, nil
}

func (s *progressService) loadOrInitProgress(ctx context.Context, actor models.Actor, module *models.Module) (*models.ModuleProgress, error) {
	progress, err := s.repo.Progress().GetByUserAndModule(ctx, actor.ID, module.CourseID, module.ID)
	if err == nil {
		return progress, nil
	}
	if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &models.ModuleProgress{
		UserID:         actor.ID,
		CourseID:       module.CourseID,
		ModuleID:       module.ID,
		OrganizationID: actor.OrganizationID,
		Status:         models.ProgressNotStarted,
	}, nil
}
