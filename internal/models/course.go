package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ModuleContentType string

const (
	ContentText  ModuleContentType = "text"
	ContentVideo ModuleContentType = "video"
	ContentMixed ModuleContentType = "mixed"
)

type Course struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`
	CreatedBy   string  `json:"created_by" gorm:"not null;size:36;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Modules []Module `json:"modules" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "training_courses"
}

func (c *Course) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Module is immutable reference data authored outside this service.
type Module struct {
	ID              string            `json:"id" gorm:"primaryKey;size:36"`
	CourseID        string            `json:"course_id" gorm:"not null;size:36;uniqueIndex:idx_module_order"`
	Order           int               `json:"module_order" gorm:"column:module_order;not null;uniqueIndex:idx_module_order" validate:"min=1"`
	Title           string            `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	ContentType     ModuleContentType `json:"content_type" gorm:"not null" validate:"required,oneof=text video mixed"`
	DurationMinutes *int              `json:"duration_minutes" validate:"omitempty,min=1"`
	VideoRef        *string           `json:"video_ref" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Module) TableName() string {
	return "training_modules"
}

func (m *Module) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// RequiresVideo reports whether the module carries video content that gates
// quiz access.
func (m *Module) RequiresVideo() bool {
	return m.ContentType == ContentVideo || m.ContentType == ContentMixed
}
