package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AssignmentType string

const (
	AssignmentCourse             AssignmentType = "course"
	AssignmentQuiz               AssignmentType = "quiz"
	AssignmentComplianceTraining AssignmentType = "compliance_training"
)

type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "pending"
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

type CertificateStatus string

const (
	CertificateNotRequired CertificateStatus = "not_required"
	CertificateUploaded    CertificateStatus = "uploaded"
	CertificateVerified    CertificateStatus = "verified"
	CertificateRejected    CertificateStatus = "rejected"
)

// Assignment links a learner to a unit of training content. Status only ever
// moves forward: pending -> in_progress -> completed.
type Assignment struct {
	ID             string           `json:"id" gorm:"primaryKey;size:36"`
	Type           AssignmentType   `json:"assignment_type" gorm:"column:assignment_type;not null;index" validate:"required,assignment_type"`
	AssignedTo     string           `json:"assigned_to" gorm:"not null;size:36;index:idx_assignments_user_content"`
	AssignedBy     string           `json:"assigned_by" gorm:"not null;size:36"`
	OrganizationID string           `json:"organization_id" gorm:"not null;size:36;index"`
	ContentID      string           `json:"content_id" gorm:"not null;size:36;index:idx_assignments_user_content"`
	Status         AssignmentStatus `json:"status" gorm:"default:pending;index" validate:"omitempty,oneof=pending in_progress completed"`

	AssignedAt      time.Time         `json:"assigned_at"`
	DueDate         *time.Time        `json:"due_date"`
	StartedAt       *time.Time        `json:"started_at"`
	CompletedAt     *time.Time        `json:"completed_at"`
	CompletionScore *int              `json:"completion_score" validate:"omitempty,min=0,max=100"`
	CertStatus      CertificateStatus `json:"certificate_status" gorm:"column:certificate_status;default:not_required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Assignment) TableName() string {
	return "training_assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssignedAt.IsZero() {
		a.AssignedAt = time.Now()
	}
	return nil
}
