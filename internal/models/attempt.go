package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttemptAnswer is one answer record inside an attempt. Every question of the
// quiz gets a record even when the learner left it blank.
type AttemptAnswer struct {
	QuestionID string `json:"question_id"`
	AnswerText string `json:"answer_text"`
}

// QuizAttempt is one scored submission. The (quiz_id, user_id, attempt_number)
// uniqueness constraint turns concurrent submissions into retryable conflicts
// instead of silent duplicates.
type QuizAttempt struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	QuizID         string         `json:"quiz_id" gorm:"not null;size:36;uniqueIndex:idx_attempt_seq"`
	UserID         string         `json:"user_id" gorm:"not null;size:36;uniqueIndex:idx_attempt_seq;index"`
	OrganizationID string         `json:"organization_id" gorm:"not null;size:36;index"`
	AttemptNumber  int            `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_seq" validate:"min=1"`
	Answers        datatypes.JSON `json:"answers" gorm:"type:jsonb;not null"`
	Score          int            `json:"score" gorm:"not null"`
	MaxScore       int            `json:"max_score" gorm:"not null"`
	Passed         bool           `json:"passed" gorm:"not null;index"`

	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at"`
	TimeSpentSeconds int        `json:"time_spent_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

func (a *QuizAttempt) DecodeAnswers() ([]AttemptAnswer, error) {
	var answers []AttemptAnswer
	if len(a.Answers) == 0 {
		return answers, nil
	}
	if err := json.Unmarshal(a.Answers, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (a *QuizAttempt) EncodeAnswers(answers []AttemptAnswer) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	a.Answers = datatypes.JSON(raw)
	return nil
}

// Percentage is the attempt score as a 0-100 value; zero when the quiz has no
// scorable questions.
func (a *QuizAttempt) Percentage() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return float64(a.Score) / float64(a.MaxScore) * 100
}
