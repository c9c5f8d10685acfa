package repositories

import (
	"context"

	"github.com/opsready/training-service/internal/models"
)

// CourseRepository reads course and module reference data. Content authoring
// happens outside this service, so the surface is read-only.
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*models.Course, error)
	GetByIDWithModules(ctx context.Context, id string) (*models.Course, error)
	GetModule(ctx context.Context, id string) (*models.Module, error)
}

// QuizRepository reads quiz definitions and their question sets.
type QuizRepository interface {
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error)
	GetQuestion(ctx context.Context, id string) (*models.QuizQuestion, error)
	GetByModuleIDs(ctx context.Context, moduleIDs []string) ([]*models.Quiz, error)
}

// AttemptRepository persists scored quiz submissions. Attempt rows are
// append-only; nothing in this service mutates a committed attempt.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.QuizAttempt) error
	GetByID(ctx context.Context, id string) (*models.QuizAttempt, error)

	GetByQuizAndUser(ctx context.Context, quizID, userID string, filters AttemptFilters) ([]*models.QuizAttempt, error)
	GetByUserAndQuizIDs(ctx context.Context, userID string, quizIDs []string) ([]*models.QuizAttempt, error)

	CountByQuizAndUser(ctx context.Context, quizID, userID string) (int64, error)
	GetMaxAttemptNumber(ctx context.Context, quizID, userID string) (int, error)
}

// ProgressRepository persists per-module learner progress keyed by the
// natural (user, course, module) key so retried writes converge.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress *models.ModuleProgress) error
	GetByUserAndModule(ctx context.Context, userID, courseID, moduleID string) (*models.ModuleProgress, error)
	GetByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.ModuleProgress, error)
}

// OverrideRepository persists manual score corrections.
type OverrideRepository interface {
	Create(ctx context.Context, override *models.ScoreOverride) error
	Update(ctx context.Context, override *models.ScoreOverride) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.ScoreOverride, error)
	GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID string) (*models.ScoreOverride, error)
	GetByAttempt(ctx context.Context, attemptID string) ([]*models.ScoreOverride, error)
}
