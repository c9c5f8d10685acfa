package postgres

import (
	"context"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

// Upsert writes progress keyed by (user_id, course_id, module_id) so retried
// or duplicate calls converge on the same row.
func (p ProgressPostgreSQL) Upsert(ctx context.Context, progress *models.ModuleProgress) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "course_id"},
				{Name: "module_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"status",
				"progress_percentage",
				"video_progress_percentage",
				"video_completed_at",
				"started_at",
				"completed_at",
				"last_accessed_at",
				"updated_at",
			}),
		}).
		Create(progress).Error
}

func (p ProgressPostgreSQL) GetByUserAndModule(ctx context.Context, userID, courseID, moduleID string) (*models.ModuleProgress, error) {
	var progress models.ModuleProgress
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ? AND module_id = ?", userID, courseID, moduleID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (p ProgressPostgreSQL) GetByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.ModuleProgress, error) {
	var records []*models.ModuleProgress
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
