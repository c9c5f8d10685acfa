package postgres

import (
	"context"
	"time"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"gorm.io/gorm"
)

type AssignmentPostgreSQL struct {
	db *gorm.DB
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{db: db}
}

func (a AssignmentPostgreSQL) Create(ctx context.Context, assignment *models.Assignment) error {
	return a.db.WithContext(ctx).Create(assignment).Error
}

func (a AssignmentPostgreSQL) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := a.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a AssignmentPostgreSQL) Update(ctx context.Context, assignment *models.Assignment) error {
	return a.db.WithContext(ctx).Save(assignment).Error
}

func (a AssignmentPostgreSQL) Delete(ctx context.Context, id string) error {
	result := a.db.WithContext(ctx).Delete(&models.Assignment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (a AssignmentPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	var assignments []*models.Assignment
	var total int64

	query := a.db.WithContext(ctx).Model(&models.Assignment{}).Where("assigned_to = ?", userID)
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = a.applyPaginationAndSort(query, filters)
	if err := query.Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}

func (a AssignmentPostgreSQL) FindActive(ctx context.Context, userID string, assignmentType models.AssignmentType, contentID string) (*models.Assignment, error) {
	var assignment models.Assignment
	err := a.db.WithContext(ctx).
		Where("assigned_to = ? AND assignment_type = ? AND content_id = ?", userID, assignmentType, contentID).
		Where("status IN ?", []models.AssignmentStatus{models.AssignmentPending, models.AssignmentInProgress}).
		Order("assigned_at DESC").
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (a AssignmentPostgreSQL) UpdateStatusGuarded(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND status <> ?", id, models.AssignmentCompleted).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a AssignmentPostgreSQL) GetUserStats(ctx context.Context, userID string) (*repositories.AssignmentStats, error) {
	stats := &repositories.AssignmentStats{}

	type statusCount struct {
		Status models.AssignmentStatus
		Count  int
	}
	var counts []statusCount
	if err := a.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Select("status, count(*) as count").
		Where("assigned_to = ?", userID).
		Group("status").
		Scan(&counts).Error; err != nil {
		return nil, err
	}

	for _, c := range counts {
		stats.TotalAssignments += c.Count
		switch c.Status {
		case models.AssignmentPending:
			stats.PendingAssignments += c.Count
		case models.AssignmentCompleted:
			stats.CompletedAssignments += c.Count
		}
	}

	var overdue int64
	if err := a.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("assigned_to = ? AND status <> ? AND due_date IS NOT NULL AND due_date < ?",
			userID, models.AssignmentCompleted, time.Now()).
		Count(&overdue).Error; err != nil {
		return nil, err
	}
	stats.OverdueAssignments = int(overdue)

	if stats.TotalAssignments > 0 {
		stats.CompletionRate = float64(stats.CompletedAssignments) / float64(stats.TotalAssignments) * 100
	}

	return stats, nil
}

func (a AssignmentPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AssignmentFilters) *gorm.DB {
	if filters.Type != nil {
		query = query.Where("assignment_type = ?", *filters.Type)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("assigned_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("assigned_at <= ?", *filters.DateTo)
	}
	return query
}

func (a AssignmentPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AssignmentFilters) *gorm.DB {
	sortBy := filters.SortBy
	switch sortBy {
	case "assigned_at", "due_date", "status":
	default:
		sortBy = "assigned_at"
	}
	sortOrder := "DESC"
	if filters.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	query = query.Order(sortBy + " " + sortOrder)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
