package services

import (
	"testing"

	"github.com/opsready/training-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateAnswer_MultipleChoice(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct string
		want    bool
	}{
		{"exact match", "Option B", "Option B", true},
		{"wrong option", "Option A", "Option B", false},
		{"case differs", "option b", "Option B", false},
		{"leading whitespace", " Option B", "Option B", false},
		{"empty answer", "", "Option B", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAnswer(models.MultipleChoice, tt.answer, tt.correct, models.QuestionOptions{})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateAnswer_TrueFalse(t *testing.T) {
	assert.True(t, EvaluateAnswer(models.TrueFalse, "true", "true", models.QuestionOptions{}))
	assert.False(t, EvaluateAnswer(models.TrueFalse, "false", "true", models.QuestionOptions{}))
	assert.False(t, EvaluateAnswer(models.TrueFalse, "True", "true", models.QuestionOptions{}))
}

func TestEvaluateAnswer_ShortAnswer(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		correct string
		options models.QuestionOptions
		want    bool
	}{
		{
			name:    "exact match",
			answer:  "Paris",
			correct: "Paris",
			want:    true,
		},
		{
			name:    "surrounding whitespace trimmed",
			answer:  "  Paris ",
			correct: "Paris",
			want:    true,
		},
		{
			name:    "case insensitive by default",
			answer:  "paris",
			correct: "Paris",
			want:    true,
		},
		{
			name:    "internal whitespace collapsed",
			answer:  "New   York",
			correct: "New York",
			want:    true,
		},
		{
			name:    "wrong answer",
			answer:  "London",
			correct: "Paris",
			want:    false,
		},
		{
			name:    "empty answer never matches",
			answer:  "   ",
			correct: "Paris",
			want:    false,
		},
		{
			name:    "case sensitive rejects wrong case",
			answer:  "paris",
			correct: "Paris",
			options: models.QuestionOptions{CaseSensitive: true},
			want:    false,
		},
		{
			name:    "accepted alternative matches",
			answer:  "NYC",
			correct: "New York",
			options: models.QuestionOptions{AcceptedAnswers: []string{"NYC", "New York City"}},
			want:    true,
		},
		{
			name:    "accepted alternative is normalized too",
			answer:  "new york city",
			correct: "New York",
			options: models.QuestionOptions{AcceptedAnswers: []string{"New York City"}},
			want:    true,
		},
		{
			name:    "contains match",
			answer:  "the city of Paris",
			correct: "Paris",
			options: models.QuestionOptions{MatchType: models.MatchContains},
			want:    true,
		},
		{
			name:    "close match tolerates one typo",
			answer:  "Pariss",
			correct: "Paris",
			options: models.QuestionOptions{AllowCloseMatch: true},
			want:    true,
		},
		{
			name:    "close match disabled rejects typo",
			answer:  "Pariss",
			correct: "Paris",
			want:    false,
		},
		{
			name:    "close match still rejects different word",
			answer:  "London",
			correct: "Paris",
			options: models.QuestionOptions{AllowCloseMatch: true},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAnswer(models.ShortAnswer, tt.answer, tt.correct, tt.options)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateQuestion(t *testing.T) {
	t.Run("correct answer earns full points", func(t *testing.T) {
		question := &models.QuizQuestion{
			Type:          models.ShortAnswer,
			CorrectAnswer: "fire extinguisher",
			Points:        5,
		}
		require.NoError(t, question.EncodeOptions(models.QuestionOptions{
			AcceptedAnswers: []string{"extinguisher"},
		}))

		assert.Equal(t, 5, EvaluateQuestion(question, "Fire Extinguisher"))
		assert.Equal(t, 5, EvaluateQuestion(question, "extinguisher"))
	})

	t.Run("wrong answer earns zero", func(t *testing.T) {
		question := &models.QuizQuestion{
			Type:          models.MultipleChoice,
			CorrectAnswer: "Option C",
			Points:        3,
		}
		assert.Equal(t, 0, EvaluateQuestion(question, "Option A"))
	})

	t.Run("undecodable options score zero instead of failing", func(t *testing.T) {
		question := &models.QuizQuestion{
			Type:          models.ShortAnswer,
			CorrectAnswer: "Paris",
			Points:        2,
			Options:       []byte("{not json"),
		}
		assert.Equal(t, 0, EvaluateQuestion(question, "Paris"))
	})
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("paris", "paris"))
	assert.Equal(t, 1, levenshteinDistance("paris", "pariss"))
	assert.Equal(t, 6, levenshteinDistance("paris", "london"))

	assert.InDelta(t, 1.0, similarity("paris", "paris"), 0.001)
	assert.GreaterOrEqual(t, similarity("pariss", "paris"), 0.8)
	assert.Less(t, similarity("london", "paris"), 0.8)
}
