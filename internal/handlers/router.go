package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/opsready/training-service/internal/auth"
	"github.com/opsready/training-service/internal/services"
	"github.com/opsready/training-service/internal/utils"
	"github.com/opsready/training-service/internal/validator"
)

type HandlerManager struct {
	assignmentHandler *AssignmentHandler
	quizHandler       *QuizHandler
	progressHandler   *ProgressHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	v *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), v, logger),
		quizHandler: NewQuizHandler(
			serviceManager.Attempt(),
			serviceManager.Override(),
			serviceManager.Progress(),
			serviceManager.Report(),
			logger,
		),
		progressHandler: NewProgressHandler(
			serviceManager.Progress(),
			serviceManager.Reconcile(),
			serviceManager.Report(),
			v,
			logger,
		),
	}
}

// SetupRoutes sets up all API routes behind the authenticator.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, authenticator *auth.Authenticator) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(authenticator.Middleware())
	{
		assignments := v1.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.CreateAssignment)
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/stats", hm.assignmentHandler.GetAssignmentStats)
			assignments.DELETE("/bulk", hm.assignmentHandler.BulkDeleteAssignments)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.POST("/:id/start", hm.assignmentHandler.StartAssignment)
			assignments.POST("/:id/complete", hm.assignmentHandler.CompleteAssignment)
			assignments.PUT("/:id/certificate", hm.assignmentHandler.SetCertificateStatus)
		}

		quizzes := v1.Group("/quizzes")
		{
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.POST("/:id/attempts", hm.quizHandler.SubmitAttempt)
			quizzes.GET("/:id/attempts", hm.quizHandler.ListAttempts)
			quizzes.GET("/:id/attempts/export", hm.quizHandler.ExportAttempts)
		}

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.quizHandler.GetAttempt)
			attempts.GET("/:id/effective-score", hm.quizHandler.GetEffectiveScore)
			attempts.GET("/:id/overrides", hm.quizHandler.ListOverrides)
			attempts.POST("/:id/overrides", hm.quizHandler.ApplyOverride)
		}

		overrides := v1.Group("/overrides")
		{
			overrides.DELETE("/:id", hm.quizHandler.RemoveOverride)
		}

		modules := v1.Group("/modules")
		{
			modules.PUT("/:id/video-progress", hm.progressHandler.UpdateVideoProgress)
			modules.GET("/:id/quiz-access", hm.quizHandler.QuizAccess)
		}

		courses := v1.Group("/courses")
		{
			courses.GET("/:id/progress", hm.progressHandler.GetCourseProgress)
			courses.POST("/:id/reconcile", hm.progressHandler.ReconcileCourse)
			courses.GET("/:id/progress/export", hm.progressHandler.ExportCourseReport)
		}
	}
}
