package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opsready/training-service/internal/events"
	"github.com/opsready/training-service/internal/models"
)

type progressServiceFixture struct {
	repo      *mockRepository
	publisher *events.MockPublisher
	service   ProgressService
}

func newProgressServiceFixture() *progressServiceFixture {
	repo := newMockRepository()
	publisher := events.NewMockPublisher(nil)
	return &progressServiceFixture{
		repo:      repo,
		publisher: publisher,
		service:   NewProgressService(repo, publisher, testLogger()),
	}
}

func videoModule() *models.Module {
	return &models.Module{
		ID:          "module-1",
		CourseID:    "course-1",
		Order:       1,
		Title:       "Fire Safety Video",
		ContentType: models.ContentVideo,
	}
}

func TestProgressService_UpdateVideoProgress(t *testing.T) {
	actor := models.Actor{ID: "user-1", OrganizationID: "org-1", Role: models.RoleEmployee}

	t.Run("first heartbeat creates an in_progress row", func(t *testing.T) {
		f := newProgressServiceFixture()

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(nil, gorm.ErrRecordNotFound)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		progress, err := f.service.UpdateVideoProgress(context.Background(), actor, "module-1", 42.4)

		require.NoError(t, err)
		assert.Equal(t, models.ProgressInProgress, progress.Status)
		assert.Equal(t, 42, progress.VideoProgressPercentage)
		assert.Nil(t, progress.VideoCompletedAt)
		assert.NotNil(t, progress.StartedAt)
	})

	t.Run("crossing the threshold sets video_completed_at once", func(t *testing.T) {
		f := newProgressServiceFixture()
		completedAt := time.Now().Add(-time.Hour)
		existing := &models.ModuleProgress{
			UserID:                  "user-1",
			CourseID:                "course-1",
			ModuleID:                "module-1",
			Status:                  models.ProgressInProgress,
			VideoProgressPercentage: 95,
			VideoCompletedAt:        &completedAt,
		}

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(existing, nil)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		progress, err := f.service.UpdateVideoProgress(context.Background(), actor, "module-1", 100)

		require.NoError(t, err)
		assert.Equal(t, 100, progress.VideoProgressPercentage)
		assert.Equal(t, completedAt, *progress.VideoCompletedAt)
		assert.Equal(t, models.ProgressCompleted, progress.Status)
		assert.Equal(t, 100, progress.ProgressPercentage)
		assert.NotNil(t, progress.CompletedAt)
	})

	t.Run("video progress never decreases", func(t *testing.T) {
		f := newProgressServiceFixture()
		existing := &models.ModuleProgress{
			UserID:                  "user-1",
			CourseID:                "course-1",
			ModuleID:                "module-1",
			Status:                  models.ProgressInProgress,
			ProgressPercentage:      80,
			VideoProgressPercentage: 80,
		}

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(existing, nil)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		progress, err := f.service.UpdateVideoProgress(context.Background(), actor, "module-1", 30)

		require.NoError(t, err)
		assert.Equal(t, 80, progress.VideoProgressPercentage)
	})

	t.Run("out of range input is clamped", func(t *testing.T) {
		f := newProgressServiceFixture()

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(nil, gorm.ErrRecordNotFound)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		progress, err := f.service.UpdateVideoProgress(context.Background(), actor, "module-1", 250)

		require.NoError(t, err)
		assert.Equal(t, 100, progress.VideoProgressPercentage)
		assert.NotNil(t, progress.VideoCompletedAt)
		assert.Equal(t, models.ProgressCompleted, progress.Status)
		assert.NotNil(t, progress.CompletedAt)
	})

	t.Run("completed module keeps its progress percentage", func(t *testing.T) {
		f := newProgressServiceFixture()
		existing := &models.ModuleProgress{
			UserID:                  "user-1",
			CourseID:                "course-1",
			ModuleID:                "module-1",
			Status:                  models.ProgressCompleted,
			ProgressPercentage:      100,
			VideoProgressPercentage: 50,
		}

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(existing, nil)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		progress, err := f.service.UpdateVideoProgress(context.Background(), actor, "module-1", 60)

		require.NoError(t, err)
		assert.Equal(t, models.ProgressCompleted, progress.Status)
		assert.Equal(t, 100, progress.ProgressPercentage)
		assert.Equal(t, 60, progress.VideoProgressPercentage)
	})

	t.Run("unknown module", func(t *testing.T) {
		f := newProgressServiceFixture()
		f.repo.course.On("GetModule", mock.Anything, "missing").Return(nil, gorm.ErrRecordNotFound)

		_, err := f.service.UpdateVideoProgress(context.Background(), actor, "missing", 10)
		assert.ErrorIs(t, err, ErrModuleNotFound)
	})
}

func TestProgressService_CanStartQuiz(t *testing.T) {
	t.Run("text module is never gated", func(t *testing.T) {
		f := newProgressServiceFixture()
		module := videoModule()
		module.ContentType = models.ContentText

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(module, nil)

		ok, err := f.service.CanStartQuiz(context.Background(), "user-1", "module-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("no progress row locks the quiz", func(t *testing.T) {
		f := newProgressServiceFixture()
		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(nil, gorm.ErrRecordNotFound)

		ok, err := f.service.CanStartQuiz(context.Background(), "user-1", "module-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("threshold reached unlocks the quiz", func(t *testing.T) {
		f := newProgressServiceFixture()
		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(&models.ModuleProgress{VideoProgressPercentage: 90}, nil)

		ok, err := f.service.CanStartQuiz(context.Background(), "user-1", "module-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("below threshold stays locked", func(t *testing.T) {
		f := newProgressServiceFixture()
		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(&models.ModuleProgress{VideoProgressPercentage: 89}, nil)

		ok, err := f.service.CanStartQuiz(context.Background(), "user-1", "module-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestProgressService_MarkModuleCompleted(t *testing.T) {
	t.Run("completes even when the video gate is unmet", func(t *testing.T) {
		f := newProgressServiceFixture()
		existing := &models.ModuleProgress{
			UserID:                  "user-1",
			CourseID:                "course-1",
			ModuleID:                "module-1",
			Status:                  models.ProgressInProgress,
			VideoProgressPercentage: 30,
		}

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(existing, nil)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).Return(nil)

		err := f.service.MarkModuleCompleted(context.Background(), "user-1", "org-1", "module-1")

		require.NoError(t, err)
		assert.Equal(t, models.ProgressCompleted, existing.Status)
		assert.Equal(t, 100, existing.ProgressPercentage)
		assert.NotNil(t, existing.CompletedAt)
		assert.Equal(t, 30, existing.VideoProgressPercentage)

		published := f.publisher.PublishedEvents()
		require.Len(t, published, 1)
		assert.Equal(t, events.EventModuleCompleted, published[0].Type)
	})

	t.Run("already completed module is untouched", func(t *testing.T) {
		f := newProgressServiceFixture()
		completedAt := time.Now().Add(-24 * time.Hour)
		existing := &models.ModuleProgress{
			UserID:      "user-1",
			CourseID:    "course-1",
			ModuleID:    "module-1",
			Status:      models.ProgressCompleted,
			CompletedAt: &completedAt,
		}

		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(existing, nil)

		err := f.service.MarkModuleCompleted(context.Background(), "user-1", "org-1", "module-1")

		require.NoError(t, err)
		assert.Equal(t, completedAt, *existing.CompletedAt)
		f.repo.progress.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		assert.Empty(t, f.publisher.PublishedEvents())
	})

	t.Run("missing row is created completed", func(t *testing.T) {
		f := newProgressServiceFixture()

		var upserted *models.ModuleProgress
		f.repo.course.On("GetModule", mock.Anything, "module-1").Return(videoModule(), nil)
		f.repo.progress.On("GetByUserAndModule", mock.Anything, "user-1", "course-1", "module-1").
			Return(nil, gorm.ErrRecordNotFound)
		f.repo.progress.On("Upsert", mock.Anything, mock.AnythingOfType("*models.ModuleProgress")).
			Run(func(args mock.Arguments) {
				upserted = args.Get(1).(*models.ModuleProgress)
			}).Return(nil)

		err := f.service.MarkModuleCompleted(context.Background(), "user-1", "org-1", "module-1")

		require.NoError(t, err)
		require.NotNil(t, upserted)
		assert.Equal(t, models.ProgressCompleted, upserted.Status)
		assert.Equal(t, "org-1", upserted.OrganizationID)
		assert.Equal(t, "course-1", upserted.CourseID)
	})
}
