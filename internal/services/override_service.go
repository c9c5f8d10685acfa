package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/validator"
)

type overrideService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewOverrideService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) OverrideService {
	return &overrideService{
		repo:      repo,
		logger:    logger,
		validator: v,
	}
}

// Apply records a manual score for one question of one attempt. The attempt's
// stored score is never touched; reads derive the effective score from the
// override records. Re-applying replaces the override score and reason but
// keeps the original automatic score captured on first creation.
func (s *overrideService) Apply(ctx context.Context, req *ApplyOverrideRequest, actor models.Actor) (*models.ScoreOverride, error) {
	if !actor.Role.CanOverrideScores() {
		return nil, NewPermissionError(actor.ID, req.AttemptID, "override", "apply", "insufficient permissions")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	attempt, err := s.repo.Attempt().GetByID(ctx, req.AttemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	question, err := s.repo.Quiz().GetQuestion(ctx, req.QuestionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	if question.QuizID != attempt.QuizID {
		return nil, ErrQuestionNotFound
	}

	if req.NewScore > question.Points {
		return nil, fmt.Errorf("override score %d exceeds question worth %d: %w",
			req.NewScore, question.Points, ErrValidationFailed)
	}

	autoScore, err := s.autoScoreFor(attempt, question)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.Override().GetByAttemptAndQuestion(ctx, req.AttemptID, req.QuestionID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing override: %w", err)
	}

	if existing != nil {
		existing.OverrideScore = req.NewScore
		existing.Reason = req.Reason
		existing.CreatedBy = actor.ID
		if err := s.repo.Override().Update(ctx, existing); err != nil {
			return nil, NewPersistenceError("update override", err)
		}
		s.logger.Info("Score override replaced",
			"override_id", existing.ID,
			"attempt_id", req.AttemptID,
			"question_id", req.QuestionID,
			"override_score", req.NewScore,
			"actor_id", actor.ID)
		return existing, nil
	}

	override := &models.ScoreOverride{
		QuizAttemptID:  req.AttemptID,
		QuestionID:     req.QuestionID,
		OrganizationID: attempt.OrganizationID,
		OriginalScore:  autoScore,
		OverrideScore:  req.NewScore,
		Reason:         req.Reason,
		CreatedBy:      actor.ID,
	}
	if err := s.repo.Override().Create(ctx, override); err != nil {
		return nil, NewPersistenceError("create override", err)
	}

	s.logger.Info("Score override applied",
		"override_id", override.ID,
		"attempt_id", req.AttemptID,
		"question_id", req.QuestionID,
		"original_score", autoScore,
		"override_score", req.NewScore,
		"actor_id", actor.ID)

	return override, nil
}

// Remove deletes an override; subsequent reads fall back to the automatic
// score for that question.
func (s *overrideService) Remove(ctx context.Context, overrideID string, actor models.Actor) error {
	if !actor.Role.CanOverrideScores() {
		return NewPermissionError(actor.ID, overrideID, "override", "remove", "insufficient permissions")
	}

	if _, err := s.repo.Override().GetByID(ctx, overrideID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrOverrideNotFound
		}
		return fmt.Errorf("failed to get override: %w", err)
	}

	if err := s.repo.Override().Delete(ctx, overrideID); err != nil {
		return NewPersistenceError("delete override", err)
	}

	s.logger.Info("Score override removed", "override_id", overrideID, "actor_id", actor.ID)
	return nil
}

func (s *overrideService) ListByAttempt(ctx context.Context, attemptID string) ([]*models.ScoreOverride, error) {
	overrides, err := s.repo.Override().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return overrides, nil
}

// EffectiveScore recomputes the attempt's score with overrides applied. The
// result is derived on every read and never persisted, so it cannot drift
// from the override records.
func (s *overrideService) EffectiveScore(ctx context.Context, attemptID string) (*EffectiveScoreResult, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	overrides, err := s.repo.Override().GetByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	overrideByQuestion := make(map[string]*models.ScoreOverride, len(overrides))
	for _, override := range overrides {
		overrideByQuestion[override.QuestionID] = override
	}

	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return nil, fmt.Errorf("failed to decode attempt answers: %w", err)
	}
	answerByQuestion := make(map[string]string, len(answers))
	for _, answer := range answers {
		answerByQuestion[answer.QuestionID] = answer.AnswerText
	}

	result := &EffectiveScoreResult{
		AttemptID:    attemptID,
		MaxScore:     quiz.MaxScore(),
		PassingScore: quiz.PassingScore,
		Questions:    make([]QuestionScore, 0, len(quiz.Questions)),
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		answerText := answerByQuestion[question.ID]
		autoScore := EvaluateQuestion(question, answerText)

		entry := QuestionScore{
			QuestionID: question.ID,
			AnswerText: answerText,
			Points:     question.Points,
			AutoScore:  autoScore,
			FinalScore: autoScore,
		}
		if override, ok := overrideByQuestion[question.ID]; ok {
			score := override.OverrideScore
			entry.OverrideScore = &score
			entry.FinalScore = score
			result.OverrideCount++
		}

		result.AutoScore += autoScore
		result.EffectiveScore += entry.FinalScore
		result.Questions = append(result.Questions, entry)
	}

	if result.MaxScore > 0 {
		result.EffectivePassed = float64(result.EffectiveScore)/float64(result.MaxScore)*100 >= float64(quiz.PassingScore)
	}

	return result, nil
}

// autoScoreFor re-evaluates one question against the attempt's recorded
// answer, yielding the score the engine originally assigned.
func (s *overrideService) autoScoreFor(attempt *models.QuizAttempt, question *models.QuizQuestion) (int, error) {
	answers, err := attempt.DecodeAnswers()
	if err != nil {
		return 0, fmt.Errorf("failed to decode attempt answers: %w", err)
	}
	for _, answer := range answers {
		if answer.QuestionID == question.ID {
			return EvaluateQuestion(question, answer.AnswerText), nil
		}
	}
	return 0, nil
}
