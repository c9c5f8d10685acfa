package validator

import (
	"reflect"
	"strings"

	apperrors "github.com/opsready/training-service/internal/errors"
	"github.com/opsready/training-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps struct-tag validation with the service's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()
	registerCustomValidators(v)
	return &Validator{validate: v}
}

// Validate runs struct-tag validation and converts failures to the shared
// ValidationErrors type so callers can classify them with errors.As.
func (v *Validator) Validate(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

func registerCustomValidators(v *validator.Validate) {
	v.RegisterValidation("question_type", validateQuestionType)
	v.RegisterValidation("assignment_type", validateAssignmentType)

	// Report JSON field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	switch models.QuestionType(fl.Field().String()) {
	case models.MultipleChoice, models.TrueFalse, models.ShortAnswer:
		return true
	}
	return false
}

func validateAssignmentType(fl validator.FieldLevel) bool {
	switch models.AssignmentType(fl.Field().String()) {
	case models.AssignmentCourse, models.AssignmentQuiz, models.AssignmentComplianceTraining:
		return true
	}
	return false
}
