package postgres

import (
	"github.com/opsready/training-service/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	assignment repositories.AssignmentRepository
	course     repositories.CourseRepository
	quiz       repositories.QuizRepository
	attempt    repositories.AttemptRepository
	progress   repositories.ProgressRepository
	override   repositories.OverrideRepository
}

// NewRepository wires every entity repository onto one gorm connection.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		assignment: NewAssignmentPostgreSQL(db),
		course:     NewCoursePostgreSQL(db),
		quiz:       NewQuizPostgreSQL(db),
		attempt:    NewAttemptPostgreSQL(db),
		progress:   NewProgressPostgreSQL(db),
		override:   NewOverridePostgreSQL(db),
	}
}

func (r *repository) Assignment() repositories.AssignmentRepository { return r.assignment }
func (r *repository) Course() repositories.CourseRepository         { return r.course }
func (r *repository) Quiz() repositories.QuizRepository             { return r.quiz }
func (r *repository) Attempt() repositories.AttemptRepository       { return r.attempt }
func (r *repository) Progress() repositories.ProgressRepository     { return r.progress }
func (r *repository) Override() repositories.OverrideRepository     { return r.override }
