package postgres

import (
	"context"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"gorm.io/gorm"
)

type OverridePostgreSQL struct {
	db *gorm.DB
}

func NewOverridePostgreSQL(db *gorm.DB) repositories.OverrideRepository {
	return &OverridePostgreSQL{db: db}
}

func (o OverridePostgreSQL) Create(ctx context.Context, override *models.ScoreOverride) error {
	return o.db.WithContext(ctx).Create(override).Error
}

func (o OverridePostgreSQL) Update(ctx context.Context, override *models.ScoreOverride) error {
	return o.db.WithContext(ctx).Save(override).Error
}

func (o OverridePostgreSQL) Delete(ctx context.Context, id string) error {
	result := o.db.WithContext(ctx).Delete(&models.ScoreOverride{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (o OverridePostgreSQL) GetByID(ctx context.Context, id string) (*models.ScoreOverride, error) {
	var override models.ScoreOverride
	if err := o.db.WithContext(ctx).First(&override, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &override, nil
}

func (o OverridePostgreSQL) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID string) (*models.ScoreOverride, error) {
	var override models.ScoreOverride
	err := o.db.WithContext(ctx).
		Where("quiz_attempt_id = ? AND question_id = ?", attemptID, questionID).
		First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (o OverridePostgreSQL) GetByAttempt(ctx context.Context, attemptID string) ([]*models.ScoreOverride, error) {
	var overrides []*models.ScoreOverride
	err := o.db.WithContext(ctx).
		Where("quiz_attempt_id = ?", attemptID).
		Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}
