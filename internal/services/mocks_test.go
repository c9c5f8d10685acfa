package services

import (
	"context"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
	"github.com/stretchr/testify/mock"
)

// MockAssignmentRepository is a mock implementation of AssignmentRepository
type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAssignmentRepository) ListByUser(ctx context.Context, userID string, filters repositories.AssignmentFilters) ([]*models.Assignment, int64, error) {
	args := m.Called(ctx, userID, filters)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*models.Assignment), args.Get(1).(int64), args.Error(2)
}

func (m *MockAssignmentRepository) FindActive(ctx context.Context, userID string, assignmentType models.AssignmentType, contentID string) (*models.Assignment, error) {
	args := m.Called(ctx, userID, assignmentType, contentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) UpdateStatusGuarded(ctx context.Context, id string, updates map[string]interface{}) (bool, error) {
	args := m.Called(ctx, id, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockAssignmentRepository) GetUserStats(ctx context.Context, userID string) (*repositories.AssignmentStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.AssignmentStats), args.Error(1)
}

// MockCourseRepository is a mock implementation of CourseRepository
type MockCourseRepository struct {
	mock.Mock
}

func (m *MockCourseRepository) GetByID(ctx context.Context, id string) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseRepository) GetByIDWithModules(ctx context.Context, id string) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseRepository) GetModule(ctx context.Context, id string) (*models.Module, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Module), args.Error(1)
}

// MockQuizRepository is a mock implementation of QuizRepository
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetByIDWithQuestions(ctx context.Context, id string) (*models.Quiz, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quiz), args.Error(1)
}

func (m *MockQuizRepository) GetQuestion(ctx context.Context, id string) (*models.QuizQuestion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizQuestion), args.Error(1)
}

func (m *MockQuizRepository) GetByModuleIDs(ctx context.Context, moduleIDs []string) ([]*models.Quiz, error) {
	args := m.Called(ctx, moduleIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Quiz), args.Error(1)
}

// MockAttemptRepository is a mock implementation of AttemptRepository
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	args := m.Called(ctx, attempt)
	return args.Error(0)
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, id string) (*models.QuizAttempt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByQuizAndUser(ctx context.Context, quizID, userID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, error) {
	args := m.Called(ctx, quizID, userID, filters)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByUserAndQuizIDs(ctx context.Context, userID string, quizIDs []string) ([]*models.QuizAttempt, error) {
	args := m.Called(ctx, userID, quizIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuizAttempt), args.Error(1)
}

func (m *MockAttemptRepository) CountByQuizAndUser(ctx context.Context, quizID, userID string) (int64, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAttemptRepository) GetMaxAttemptNumber(ctx context.Context, quizID, userID string) (int, error) {
	args := m.Called(ctx, quizID, userID)
	return args.Int(0), args.Error(1)
}

// MockProgressRepository is a mock implementation of ProgressRepository
type MockProgressRepository struct {
	mock.Mock
}

func (m *MockProgressRepository) Upsert(ctx context.Context, progress *models.ModuleProgress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *MockProgressRepository) GetByUserAndModule(ctx context.Context, userID, courseID, moduleID string) (*models.ModuleProgress, error) {
	args := m.Called(ctx, userID, courseID, moduleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ModuleProgress), args.Error(1)
}

func (m *MockProgressRepository) GetByUserAndCourse(ctx context.Context, userID, courseID string) ([]*models.ModuleProgress, error) {
	args := m.Called(ctx, userID, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ModuleProgress), args.Error(1)
}

// MockOverrideRepository is a mock implementation of OverrideRepository
type MockOverrideRepository struct {
	mock.Mock
}

func (m *MockOverrideRepository) Create(ctx context.Context, override *models.ScoreOverride) error {
	args := m.Called(ctx, override)
	return args.Error(0)
}

func (m *MockOverrideRepository) Update(ctx context.Context, override *models.ScoreOverride) error {
	args := m.Called(ctx, override)
	return args.Error(0)
}

func (m *MockOverrideRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOverrideRepository) GetByID(ctx context.Context, id string) (*models.ScoreOverride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScoreOverride), args.Error(1)
}

func (m *MockOverrideRepository) GetByAttemptAndQuestion(ctx context.Context, attemptID, questionID string) (*models.ScoreOverride, error) {
	args := m.Called(ctx, attemptID, questionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ScoreOverride), args.Error(1)
}

func (m *MockOverrideRepository) GetByAttempt(ctx context.Context, attemptID string) ([]*models.ScoreOverride, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ScoreOverride), args.Error(1)
}

// mockRepository bundles all entity mocks behind the Repository interface so
// services can be constructed the same way production code constructs them.
type mockRepository struct {
	assignment *MockAssignmentRepository
	course     *MockCourseRepository
	quiz       *MockQuizRepository
	attempt    *MockAttemptRepository
	progress   *MockProgressRepository
	override   *MockOverrideRepository
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		assignment: new(MockAssignmentRepository),
		course:     new(MockCourseRepository),
		quiz:       new(MockQuizRepository),
		attempt:    new(MockAttemptRepository),
		progress:   new(MockProgressRepository),
		override:   new(MockOverrideRepository),
	}
}

func (r *mockRepository) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *mockRepository) Course() repositories.CourseRepository         { return r.course }
func (r *mockRepository) Quiz() repositories.QuizRepository             { return r.quiz }
func (r *mockRepository) Attempt() repositories.AttemptRepository       { return r.attempt }
func (r *mockRepository) Progress() repositories.ProgressRepository     { return r.progress }
func (r *mockRepository) Override() repositories.OverrideRepository     { return r.override }

func (r *mockRepository) assertExpectations(t mock.TestingT) {
	r.assignment.AssertExpectations(t)
	r.course.AssertExpectations(t)
	r.quiz.AssertExpectations(t)
	r.attempt.AssertExpectations(t)
	r.progress.AssertExpectations(t)
	r.override.AssertExpectations(t)
}
