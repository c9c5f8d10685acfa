package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAttemptSubmitted    EventType = "training.attempt_submitted"
	EventQuizPassed          EventType = "training.quiz_passed"
	EventModuleCompleted     EventType = "training.module_completed"
	EventProgressHealed      EventType = "training.progress_healed"
	EventAssignmentCompleted EventType = "training.assignment_completed"
)

// TrainingEvent is the envelope for every event this service publishes.
type TrainingEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewTrainingEvent(eventType EventType, data interface{}) *TrainingEvent {
	return &TrainingEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "training-service",
		Version:   "1.0",
		Timestamp: time.Now(),
		Data:      data,
	}
}

// ===== EVENT PAYLOADS =====

type AttemptSubmittedEvent struct {
	AttemptID     string  `json:"attempt_id"`
	QuizID        string  `json:"quiz_id"`
	UserID        string  `json:"user_id"`
	AttemptNumber int     `json:"attempt_number"`
	Score         int     `json:"score"`
	MaxScore      int     `json:"max_score"`
	Percentage    float64 `json:"percentage"`
	Passed        bool    `json:"passed"`
}

type ModuleCompletedEvent struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id"`
	ModuleID string `json:"module_id"`
	// Trigger distinguishes a video completion, a quiz pass and a healed row.
	Trigger string `json:"trigger"`
}

type ProgressHealedEvent struct {
	UserID      string   `json:"user_id"`
	CourseID    string   `json:"course_id"`
	HealedCount int      `json:"healed_count"`
	FailedCount int      `json:"failed_count"`
	ModuleIDs   []string `json:"module_ids"`
}

type AssignmentCompletedEvent struct {
	AssignmentID    string `json:"assignment_id"`
	AssignedTo      string `json:"assigned_to"`
	ContentID       string `json:"content_id"`
	AssignmentType  string `json:"assignment_type"`
	CompletionScore int    `json:"completion_score"`
}
