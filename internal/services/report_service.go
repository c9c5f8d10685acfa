package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/opsready/training-service/internal/models"
	"github.com/opsready/training-service/internal/repositories"
)

const timestampLayout = "2006-01-02 15:04:05"

type reportService struct {
	repo     repositories.Repository
	override OverrideService
	logger   *slog.Logger
}

func NewReportService(repo repositories.Repository, override OverrideService, logger *slog.Logger) ReportService {
	return &reportService{
		repo:     repo,
		override: override,
		logger:   logger,
	}
}

// ExportUserCourseReport renders one learner's per-module course progress as
// an Excel workbook.
func (s *reportService) ExportUserCourseReport(ctx context.Context, userID, courseID string) ([]byte, error) {
	course, err := s.repo.Course().GetByIDWithModules(ctx, courseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	rows, err := s.repo.Progress().GetByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get course progress: %w", err)
	}
	byModule := make(map[string]*models.ModuleProgress, len(rows))
	for _, row := range rows {
		byModule[row.ModuleID] = row
	}

	f := excelize.NewFile()
	sheetName := "Progress"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headers := []string{
		"Module", "Content Type", "Status", "Progress %", "Video %",
		"Video Completed At", "Started At", "Completed At", "Last Accessed",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, module := range course.Modules {
		row := []interface{}{
			module.Title,
			string(module.ContentType),
		}

		progress := byModule[module.ID]
		if progress == nil {
			row = append(row, string(models.ProgressNotStarted), 0, 0, "", "", "", "")
		} else {
			row = append(row,
				string(progress.Status),
				progress.ProgressPercentage,
				progress.VideoProgressPercentage,
				formatTime(progress.VideoCompletedAt),
				formatTime(progress.StartedAt),
				formatTime(progress.CompletedAt),
				progress.LastAccessedAt.Format(timestampLayout),
			)
		}

		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Course report exported",
		"course_id", courseID, "user_id", userID, "modules", len(course.Modules))

	return buf.Bytes(), nil
}

// ExportAttemptsCSV renders one learner's attempt history for a quiz,
// including the override-adjusted effective score per attempt.
func (s *reportService) ExportAttemptsCSV(ctx context.Context, quizID, userID string) ([]byte, error) {
	if _, err := s.repo.Quiz().GetByID(ctx, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	attempts, err := s.repo.Attempt().GetByQuizAndUser(ctx, quizID, userID, repositories.AttemptFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to get attempts: %w", err)
	}

	var buf strings.Builder
	writer := csv.NewWriter(&buf)

	headers := []string{
		"Attempt", "Score", "Max Score", "Percentage", "Effective Score",
		"Effective Passed", "Overrides", "Passed", "Completed At", "Time Spent (s)",
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, attempt := range attempts {
		effective, err := s.override.EffectiveScore(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to derive effective score for attempt %s: %w", attempt.ID, err)
		}

		row := []string{
			strconv.Itoa(attempt.AttemptNumber),
			strconv.Itoa(attempt.Score),
			strconv.Itoa(attempt.MaxScore),
			fmt.Sprintf("%.1f", attempt.Percentage()),
			strconv.Itoa(effective.EffectiveScore),
			strconv.FormatBool(effective.EffectivePassed),
			strconv.Itoa(effective.OverrideCount),
			strconv.FormatBool(attempt.Passed),
			formatTime(attempt.CompletedAt),
			strconv.Itoa(attempt.TimeSpentSeconds),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return []byte(buf.String()), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timestampLayout)
}
