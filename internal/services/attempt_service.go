package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opsready/training-service/internal/cache"
	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/opsready/training-service/internal/validator"
)

const (
	quizCacheTTL = 5 * time.Minute

	// attemptInsertRetries bounds how often a conflicting attempt number is
	// re-read and re-inserted before giving up. The uniqueness constraint on
	// (quiz_id, user_id, attempt_number) turns a concurrent submission into
	// one of these conflicts instead of a duplicate row.
	attemptInsertRetries = 3
)

type attemptService struct {
	repo       repositories.Repository
	cache      cache.CacheService
	publisher  events.Publisher
	assignment AssignmentService
	progress   ProgressService
	logger     *slog.Logger
	validator  *validator.Validator
}

func NewAttemptService(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.Publisher,
	assignment AssignmentService,
	progress ProgressService,
	logger *slog.Logger,
	v *validator.Validator,
) AttemptService {
	return &attemptService{
		repo:       repo,
		cache:      cacheService,
		publisher:  publisher,
		assignment: assignment,
		progress:   progress,
		logger:     logger,
		validator:  v,
	}
}

// Submit scores and persists one quiz attempt. Every question of the quiz is
// evaluated, answered or not, and recorded in the attempt's answer set so
// downstream review always sees a complete picture.
func (s *attemptService) Submit(ctx context.Context, req *SubmitAttemptRequest, actor models.Actor) (*SubmitResult, error) {
	start := time.Now()
	s.logger.Info("Submitting quiz attempt",
		"quiz_id", req.QuizID,
		"user_id", actor.ID,
		"answers_count", len(req.Answers))

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getQuizWithQuestions(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, ErrQuizNotAvailable
	}

	count, err := s.repo.Attempt().CountByQuizAndUser(ctx, quiz.ID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if count >= int64(quiz.MaxAttempts) {
		return nil, ErrAttemptLimitExceeded
	}

	score, maxScore, answers := s.scoreAnswers(quiz, req.Answers)
	passed := maxScore > 0 && float64(score)/float64(maxScore)*100 >= float64(quiz.PassingScore)

	attempt, err := s.persistAttempt(ctx, quiz, actor, score, maxScore, passed, answers, req.TimeSpentSeconds)
	if err != nil {
		return nil, err
	}

	s.publishSubmitted(ctx, attempt)
	s.applyPassSideEffects(ctx, quiz, attempt, actor)

	s.logger.Info("Quiz attempt submitted",
		"attempt_id", attempt.ID,
		"attempt_number", attempt.AttemptNumber,
		"score", score,
		"max_score", maxScore,
		"passed", passed,
		"duration", time.Since(start).String())

	return &SubmitResult{
		AttemptID:        attempt.ID,
		AttemptNumber:    attempt.AttemptNumber,
		Score:            score,
		MaxScore:         maxScore,
		Percentage:       attempt.Percentage(),
		Passed:           passed,
		TimeSpentSeconds: req.TimeSpentSeconds,
	}, nil
}

func (s *attemptService) GetByID(ctx context.Context, id string, actor models.Actor) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	if attempt.UserID != actor.ID && !actor.Role.CanOverrideScores() {
		return nil, NewPermissionError(actor.ID, id, "attempt", "read", "not owner or insufficient permissions")
	}

	return attempt, nil
}

// GetQuiz returns the take-a-quiz view. Correct answers, accepted answers and
// matching configuration are stripped before the quiz leaves the service.
func (s *attemptService) GetQuiz(ctx context.Context, quizID string) (*QuizView, error) {
	quiz, err := s.getQuizWithQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	view := &QuizView{
		ID:               quiz.ID,
		ModuleID:         quiz.ModuleID,
		Title:            quiz.Title,
		PassingScore:     quiz.PassingScore,
		MaxAttempts:      quiz.MaxAttempts,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		MaxScore:         quiz.MaxScore(),
		Questions:        make([]QuestionView, 0, len(quiz.Questions)),
	}
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		options, err := question.DecodeOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to decode options for question %s: %w", question.ID, err)
		}
		view.Questions = append(view.Questions, QuestionView{
			ID:      question.ID,
			Order:   question.Order,
			Type:    question.Type,
			Text:    question.Text,
			Choices: options.Choices,
			Points:  question.Points,
		})
	}
	return view, nil
}

func (s *attemptService) ListByQuiz(ctx context.Context, quizID string, actor models.Actor, filters repositories.AttemptFilters) ([]*models.QuizAttempt, error) {
	attempts, err := s.repo.Attempt().GetByQuizAndUser(ctx, quizID, actor.ID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// scoreAnswers evaluates every question of the quiz against the submitted
// answers. Unanswered questions score zero and are recorded with an empty
// answer text, never omitted.
func (s *attemptService) scoreAnswers(quiz *models.Quiz, submitted []models.AttemptAnswer) (score, maxScore int, answers []models.AttemptAnswer) {
	byQuestion := make(map[string]string, len(submitted))
	for _, answer := range submitted {
		byQuestion[answer.QuestionID] = answer.AnswerText
	}

	answers = make([]models.AttemptAnswer, 0, len(quiz.Questions))
	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		answerText := byQuestion[question.ID]

		score += EvaluateQuestion(question, answerText)
		maxScore += question.Points

		answers = append(answers, models.AttemptAnswer{
			QuestionID: question.ID,
			AnswerText: answerText,
		})
	}
	return score, maxScore, answers
}

// persistAttempt inserts the attempt with number = prior max + 1, retrying
// on a uniqueness conflict from a concurrent submission.
func (s *attemptService) persistAttempt(
	ctx context.Context,
	quiz *models.Quiz,
	actor models.Actor,
	score, maxScore int,
	passed bool,
	answers []models.AttemptAnswer,
	timeSpentSeconds int,
) (*models.QuizAttempt, error) {
	now := time.Now()

	for i := 0; i < attemptInsertRetries; i++ {
		maxNumber, err := s.repo.Attempt().GetMaxAttemptNumber(ctx, quiz.ID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to read attempt sequence: %w", err)
		}

		attempt := &models.QuizAttempt{
			QuizID:           quiz.ID,
			UserID:           actor.ID,
			OrganizationID:   actor.OrganizationID,
			AttemptNumber:    maxNumber + 1,
			Score:            score,
			MaxScore:         maxScore,
			Passed:           passed,
			StartedAt:        now.Add(-time.Duration(timeSpentSeconds) * time.Second),
			CompletedAt:      &now,
			TimeSpentSeconds: timeSpentSeconds,
		}
		if err := attempt.EncodeAnswers(answers); err != nil {
			return nil, fmt.Errorf("failed to encode answers: %w", err)
		}

		err = s.repo.Attempt().Create(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if !repositories.IsDuplicateKeyError(err) {
			return nil, NewPersistenceError("create attempt", err)
		}

		s.logger.Warn("Attempt number conflict, retrying",
			"quiz_id", quiz.ID,
			"user_id", actor.ID,
			"attempt_number", attempt.AttemptNumber)
	}

	return nil, fmt.Errorf("attempt numbering for quiz %s: %w", quiz.ID, ErrConflict)
}

func (s *attemptService) publishSubmitted(ctx context.Context, attempt *models.QuizAttempt) {
	payload := events.AttemptSubmittedEvent{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		UserID:        attempt.UserID,
		AttemptNumber: attempt.AttemptNumber,
		Score:         attempt.Score,
		MaxScore:      attempt.MaxScore,
		Percentage:    attempt.Percentage(),
		Passed:        attempt.Passed,
	}

	if err := s.publisher.PublishTrainingEvent(ctx, events.NewTrainingEvent(events.EventAttemptSubmitted, payload)); err != nil {
		s.logger.Error("Failed to publish attempt event", "attempt_id", attempt.ID, "error", err)
	}
	if attempt.Passed {
		if err := s.publisher.PublishTrainingEvent(ctx, events.NewTrainingEvent(events.EventQuizPassed, payload)); err != nil {
			s.logger.Error("Failed to publish quiz passed event", "attempt_id", attempt.ID, "error", err)
		}
	}
}

// applyPassSideEffects propagates a scored attempt into assignment and
// module-progress state. These writes are secondary to the committed
// attempt: failures are logged and left for reconciliation to repair.
func (s *attemptService) applyPassSideEffects(ctx context.Context, quiz *models.Quiz, attempt *models.QuizAttempt, actor models.Actor) {
	// Standalone quiz assignments track the latest score and complete on a
	// passing attempt.
	if assignment, err := s.repo.Assignment().FindActive(ctx, actor.ID, models.AssignmentQuiz, quiz.ID); err == nil {
		percentage := int(math.Round(attempt.Percentage()))
		if attempt.Passed {
			if _, err := s.assignment.Complete(ctx, assignment.ID, percentage); err != nil {
				s.logger.Error("Failed to complete quiz assignment",
					"assignment_id", assignment.ID, "error", err)
			}
		} else {
			assignment.CompletionScore = &percentage
			if assignment.Status == models.AssignmentPending {
				assignment.Status = models.AssignmentInProgress
				started := time.Now()
				assignment.StartedAt = &started
			}
			if err := s.repo.Assignment().Update(ctx, assignment); err != nil {
				s.logger.Error("Failed to record assignment score",
					"assignment_id", assignment.ID, "error", err)
			}
		}
	} else if !repositories.IsNotFoundError(err) {
		s.logger.Error("Failed to look up quiz assignment", "quiz_id", quiz.ID, "error", err)
	}

	// A passed module quiz marks the module completed.
	if attempt.Passed && quiz.ModuleID != nil {
		if err := s.progress.MarkModuleCompleted(ctx, actor.ID, actor.OrganizationID, *quiz.ModuleID); err != nil {
			s.logger.Error("Failed to mark module completed after quiz pass",
				"module_id", *quiz.ModuleID, "user_id", actor.ID, "error", err)
		}
	}
}

func (s *attemptService) getQuizWithQuestions(ctx context.Context, quizID string) (*models.Quiz, error) {
	cacheKey := "quiz:" + quizID

	var cached models.Quiz
	if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, quiz, quizCacheTTL); err != nil {
		s.logger.Warn("Failed to cache quiz", "quiz_id", quizID, "error", err)
	}

	return quiz, nil
}
