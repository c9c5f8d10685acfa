package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// ModuleProgress tracks one learner's state for one module. Rows are created
// on the first progress event, upserted on the (user, course, module) key
// afterwards and never deleted.
type ModuleProgress struct {
	ID             string `json:"id" gorm:"primaryKey;size:36"`
	UserID         string `json:"user_id" gorm:"not null;size:36;uniqueIndex:idx_progress_key"`
	CourseID       string `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_progress_key"`
	ModuleID       string `json:"module_id" gorm:"not null;size:36;uniqueIndex:idx_progress_key"`
	OrganizationID string `json:"organization_id" gorm:"not null;size:36;index"`

	Status                  ProgressStatus `json:"status" gorm:"default:not_started" validate:"omitempty,oneof=not_started in_progress completed"`
	ProgressPercentage      int            `json:"progress_percentage" gorm:"default:0" validate:"min=0,max=100"`
	VideoProgressPercentage int            `json:"video_progress_percentage" gorm:"default:0" validate:"min=0,max=100"`

	VideoCompletedAt *time.Time `json:"video_completed_at"`
	StartedAt        *time.Time `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	LastAccessedAt   time.Time  `json:"last_accessed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ModuleProgress) TableName() string {
	return "user_training_progress"
}

func (p *ModuleProgress) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.LastAccessedAt.IsZero() {
		p.LastAccessedAt = time.Now()
	}
	return nil
}
