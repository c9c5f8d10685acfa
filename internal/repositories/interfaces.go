package repositories

import (
	"errors"
	"time"

	"github.com/opsready/training-service/internal/models"
	"gorm.io/gorm"
)

// Repository aggregates every entity repository backed by the same store.
type Repository interface {
	Assignment() AssignmentRepository
	Course() CourseRepository
	Quiz() QuizRepository
	Attempt() AttemptRepository
	Progress() ProgressRepository
	Override() OverrideRepository
}

// ===== SHARED FILTER STRUCTS =====

type AssignmentFilters struct {
	Type      *models.AssignmentType   `json:"assignment_type"`
	Status    *models.AssignmentStatus `json:"status"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "assigned_at", "due_date", "status"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type AttemptFilters struct {
	Passed   *bool      `json:"passed"`
	DateFrom *time.Time `json:"date_from"`
	DateTo   *time.Time `json:"date_to"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type AssignmentStats struct {
	TotalAssignments     int     `json:"total_assignments"`
	PendingAssignments   int     `json:"pending_assignments"`
	CompletedAssignments int     `json:"completed_assignments"`
	OverdueAssignments   int     `json:"overdue_assignments"`
	CompletionRate       float64 `json:"completion_rate"`
}

// ===== ERROR CLASSIFICATION =====

// IsNotFoundError reports whether err is the store's missing-row condition.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKeyError reports whether err is a uniqueness-constraint conflict,
// the backstop that serializes attempt numbering under concurrent submission.
func IsDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
