package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type ShortAnswerMatchType string

const (
	MatchExact    ShortAnswerMatchType = "exact"
	MatchContains ShortAnswerMatchType = "contains"
)

type Quiz struct {
	ID               string  `json:"id" gorm:"primaryKey;size:36"`
	ModuleID         *string `json:"module_id" gorm:"size:36;index"` // nil for standalone quizzes
	Title            string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	PassingScore     int     `json:"passing_score" gorm:"not null" validate:"min=0,max=100"`
	MaxAttempts      int     `json:"max_attempts" gorm:"default:1" validate:"min=1"`
	TimeLimitMinutes *int    `json:"time_limit_minutes" validate:"omitempty,min=1"`
	CreatedBy        string  `json:"created_by" gorm:"not null;size:36;index"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []QuizQuestion `json:"questions" gorm:"foreignKey:QuizID"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// MaxScore is the sum of all question points.
func (q *Quiz) MaxScore() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// QuestionOptions carries the per-type answer configuration. For choice
// questions only Choices is set; the short-answer fields configure the
// evaluator's matching behavior.
type QuestionOptions struct {
	Choices []string `json:"choices,omitempty"`

	AcceptedAnswers []string             `json:"accepted_answers,omitempty"`
	CaseSensitive   bool                 `json:"case_sensitive,omitempty"`
	MatchType       ShortAnswerMatchType `json:"match_type,omitempty"`
	AllowCloseMatch bool                 `json:"allow_close_match,omitempty"`
}

type QuizQuestion struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	QuizID        string         `json:"quiz_id" gorm:"not null;size:36;uniqueIndex:idx_question_order"`
	Order         int            `json:"question_order" gorm:"column:question_order;not null;uniqueIndex:idx_question_order"`
	Type          QuestionType   `json:"question_type" gorm:"column:question_type;not null" validate:"required,question_type"`
	Text          string         `json:"question_text" gorm:"column:question_text;type:text;not null" validate:"required"`
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer string         `json:"correct_answer" gorm:"not null" validate:"required"`
	Points        int            `json:"points" gorm:"not null" validate:"min=1"`
	Explanation   *string        `json:"explanation" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

func (q *QuizQuestion) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// DecodeOptions parses the options payload. An empty column yields the zero
// value, which gives every option its documented default.
func (q *QuizQuestion) DecodeOptions() (QuestionOptions, error) {
	var opts QuestionOptions
	if len(q.Options) == 0 {
		return opts, nil
	}
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return QuestionOptions{}, err
	}
	return opts, nil
}

// EncodeOptions serializes opts into the JSON column.
func (q *QuizQuestion) EncodeOptions(opts QuestionOptions) error {
	raw, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	q.Options = datatypes.JSON(raw)
	return nil
}
