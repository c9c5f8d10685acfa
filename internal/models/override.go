package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ScoreOverride is an administrator-authored replacement for one question's
// automatically computed score within one attempt. At most one row exists per
// (attempt, question); re-applying updates the row in place and keeps the
// original score captured at first creation.
type ScoreOverride struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	QuizAttemptID  string `json:"quiz_attempt_id" gorm:"not null;size:36;uniqueIndex:idx_override_key"`
	QuestionID     string `json:"question_id" gorm:"not null;size:36;uniqueIndex:idx_override_key"`
	OrganizationID string `json:"organization_id" gorm:"not null;size:36;index"`

	OriginalScore int    `json:"original_score" gorm:"not null"`
	OverrideScore int    `json:"override_score" gorm:"not null" validate:"min=0"`
	Reason        string `json:"reason" gorm:"type:text;not null" validate:"required,min=5"`
	CreatedBy     string `json:"created_by" gorm:"not null;size:36"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ScoreOverride) TableName() string {
	return "quiz_answer_overrides"
}

func (o *ScoreOverride) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
