package repositories

import (
	"context"

	"github.com/opsready/training-service/internal/models"
)

// AssignmentRepository persists assignment lifecycle state.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) error

	ListByUser(ctx context.Context, userID string, filters AssignmentFilters) ([]*models.Assignment, int64, error)

	// FindActive returns the user's pending or in_progress assignment for the
	// given content, or a not-found error when none exists.
	FindActive(ctx context.Context, userID string, assignmentType models.AssignmentType, contentID string) (*models.Assignment, error)

	// UpdateStatusGuarded applies updates only while the row's status is not
	// "completed"; it reports whether a row was changed. This is the guard
	// that keeps repeated completion triggers from producing a second
	// completion timestamp.
	UpdateStatusGuarded(ctx context.Context, id string, updates map[string]interface{}) (bool, error)

	GetUserStats(ctx context.Context, userID string) (*AssignmentStats, error)
}
