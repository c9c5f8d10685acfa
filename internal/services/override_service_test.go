package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/validator"
)

func newOverrideService(repo *mockRepository) OverrideService {
	return NewOverrideService(repo, testLogger(), validator.New())
}

func makeScoredAttempt(t *testing.T, answers []models.AttemptAnswer) *models.QuizAttempt {
	t.Helper()
	attempt := &models.QuizAttempt{
		ID:             "attempt-1",
		QuizID:         "quiz-1",
		UserID:         "user-1",
		OrganizationID: "org-1",
		AttemptNumber:  1,
		Score:          2,
		MaxScore:       5,
	}
	require.NoError(t, attempt.EncodeAnswers(answers))
	return attempt
}

func TestOverrideService_Apply(t *testing.T) {
	admin := models.Actor{ID: "admin-1", OrganizationID: "org-1", Role: models.RoleAdmin}

	shortAnswer := func(t *testing.T) *models.QuizQuestion {
		q := makeQuestion(t, "q3", models.ShortAnswer, "fire extinguisher", 2, models.QuestionOptions{})
		q.QuizID = "quiz-1"
		return &q
	}

	t.Run("creates an override capturing the automatic score", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, []models.AttemptAnswer{
			{QuestionID: "q3", AnswerText: "the red extinguisher thing"},
		})

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetQuestion", mock.Anything, "q3").Return(shortAnswer(t), nil)
		repo.override.On("GetByAttemptAndQuestion", mock.Anything, "attempt-1", "q3").
			Return(nil, gorm.ErrRecordNotFound)
		repo.override.On("Create", mock.Anything, mock.AnythingOfType("*models.ScoreOverride")).Return(nil)

		override, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q3",
			NewScore:   2,
			Reason:     "answer describes the correct equipment",
		}, admin)

		require.NoError(t, err)
		assert.Equal(t, 0, override.OriginalScore)
		assert.Equal(t, 2, override.OverrideScore)
		assert.Equal(t, "admin-1", override.CreatedBy)
		assert.Equal(t, "org-1", override.OrganizationID)
		repo.assertExpectations(t)
	})

	t.Run("re-applying replaces the score but keeps the original", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, []models.AttemptAnswer{
			{QuestionID: "q3", AnswerText: "fire extinguisher"},
		})
		existing := &models.ScoreOverride{
			ID:            "override-1",
			QuizAttemptID: "attempt-1",
			QuestionID:    "q3",
			OriginalScore: 2,
			OverrideScore: 0,
			Reason:        "answer was copied",
			CreatedBy:     "admin-2",
		}

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetQuestion", mock.Anything, "q3").Return(shortAnswer(t), nil)
		repo.override.On("GetByAttemptAndQuestion", mock.Anything, "attempt-1", "q3").
			Return(existing, nil)
		repo.override.On("Update", mock.Anything, existing).Return(nil)

		override, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q3",
			NewScore:   1,
			Reason:     "partial credit on appeal",
		}, admin)

		require.NoError(t, err)
		assert.Equal(t, "override-1", override.ID)
		assert.Equal(t, 2, override.OriginalScore)
		assert.Equal(t, 1, override.OverrideScore)
		assert.Equal(t, "partial credit on appeal", override.Reason)
		assert.Equal(t, "admin-1", override.CreatedBy)
	})

	t.Run("employee is denied", func(t *testing.T) {
		repo := newMockRepository()

		_, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q3",
			NewScore:   2,
			Reason:     "please fix my score",
		}, models.Actor{ID: "user-1", Role: models.RoleEmployee})

		assert.True(t, IsUnauthorized(err))
	})

	t.Run("score above question worth is rejected", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, nil)

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetQuestion", mock.Anything, "q3").Return(shortAnswer(t), nil)

		_, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q3",
			NewScore:   5,
			Reason:     "deserves more than full credit",
		}, admin)

		assert.ErrorIs(t, err, ErrValidationFailed)
	})

	t.Run("question from another quiz is rejected", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, nil)
		foreign := makeQuestion(t, "q9", models.TrueFalse, "true", 1, models.QuestionOptions{})
		foreign.QuizID = "quiz-other"

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetQuestion", mock.Anything, "q9").Return(&foreign, nil)

		_, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q9",
			NewScore:   1,
			Reason:     "wrong quiz entirely",
		}, admin)

		assert.ErrorIs(t, err, ErrQuestionNotFound)
	})

	t.Run("short reason fails validation", func(t *testing.T) {
		repo := newMockRepository()

		_, err := newOverrideService(repo).Apply(context.Background(), &ApplyOverrideRequest{
			AttemptID:  "attempt-1",
			QuestionID: "q3",
			NewScore:   1,
			Reason:     "ok",
		}, admin)

		assert.True(t, IsValidation(err))
	})
}

func TestOverrideService_Remove(t *testing.T) {
	admin := models.Actor{ID: "admin-1", Role: models.RoleAdmin}

	t.Run("removes an existing override", func(t *testing.T) {
		repo := newMockRepository()
		repo.override.On("GetByID", mock.Anything, "override-1").
			Return(&models.ScoreOverride{ID: "override-1"}, nil)
		repo.override.On("Delete", mock.Anything, "override-1").Return(nil)

		err := newOverrideService(repo).Remove(context.Background(), "override-1", admin)
		assert.NoError(t, err)
		repo.assertExpectations(t)
	})

	t.Run("missing override", func(t *testing.T) {
		repo := newMockRepository()
		repo.override.On("GetByID", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		err := newOverrideService(repo).Remove(context.Background(), "missing", admin)
		assert.ErrorIs(t, err, ErrOverrideNotFound)
	})

	t.Run("employee is denied", func(t *testing.T) {
		repo := newMockRepository()

		err := newOverrideService(repo).Remove(context.Background(), "override-1",
			models.Actor{ID: "user-1", Role: models.RoleEmployee})
		assert.True(t, IsUnauthorized(err))
	})
}

func TestOverrideService_EffectiveScore(t *testing.T) {
	quiz := func(t *testing.T) *models.Quiz {
		return &models.Quiz{
			ID:           "quiz-1",
			PassingScore: 70,
			Questions: []models.QuizQuestion{
				makeQuestion(t, "q1", models.MultipleChoice, "Option A", 2, models.QuestionOptions{}),
				makeQuestion(t, "q2", models.TrueFalse, "true", 1, models.QuestionOptions{}),
				makeQuestion(t, "q3", models.ShortAnswer, "fire extinguisher", 2, models.QuestionOptions{}),
			},
		}
	}

	t.Run("overrides lift a failing attempt over the passing line", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, []models.AttemptAnswer{
			{QuestionID: "q1", AnswerText: "Option A"},
			{QuestionID: "q2", AnswerText: "false"},
			{QuestionID: "q3", AnswerText: "the big red cylinder"},
		})

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, "quiz-1").Return(quiz(t), nil)
		repo.override.On("GetByAttempt", mock.Anything, "attempt-1").Return([]*models.ScoreOverride{
			{QuizAttemptID: "attempt-1", QuestionID: "q3", OriginalScore: 0, OverrideScore: 2},
		}, nil)

		result, err := newOverrideService(repo).EffectiveScore(context.Background(), "attempt-1")

		require.NoError(t, err)
		assert.Equal(t, 2, result.AutoScore)
		assert.Equal(t, 4, result.EffectiveScore)
		assert.Equal(t, 5, result.MaxScore)
		assert.Equal(t, 1, result.OverrideCount)
		assert.True(t, result.EffectivePassed)

		require.Len(t, result.Questions, 3)
		assert.Equal(t, 2, result.Questions[0].FinalScore)
		assert.Equal(t, 0, result.Questions[1].FinalScore)
		assert.Equal(t, 2, result.Questions[2].FinalScore)
		require.NotNil(t, result.Questions[2].OverrideScore)
		assert.Equal(t, 0, result.Questions[2].AutoScore)
	})

	t.Run("no overrides reproduces the automatic score", func(t *testing.T) {
		repo := newMockRepository()
		attempt := makeScoredAttempt(t, []models.AttemptAnswer{
			{QuestionID: "q1", AnswerText: "Option A"},
			{QuestionID: "q2", AnswerText: "false"},
			{QuestionID: "q3", AnswerText: "wet towel"},
		})

		repo.attempt.On("GetByID", mock.Anything, "attempt-1").Return(attempt, nil)
		repo.quiz.On("GetByIDWithQuestions", mock.Anything, "quiz-1").Return(quiz(t), nil)
		repo.override.On("GetByAttempt", mock.Anything, "attempt-1").Return([]*models.ScoreOverride{}, nil)

		result, err := newOverrideService(repo).EffectiveScore(context.Background(), "attempt-1")

		require.NoError(t, err)
		assert.Equal(t, result.AutoScore, result.EffectiveScore)
		assert.Equal(t, 0, result.OverrideCount)
		assert.False(t, result.EffectivePassed)
	})
}
