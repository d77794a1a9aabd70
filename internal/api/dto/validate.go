package dto

import (
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

var validate = validator.New()

// Validate runs struct tag validation and converts failures into a
// field-keyed validation error.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(invalid))
	for _, fieldErr := range invalid {
		details[strings.ToLower(fieldErr.Field())] = fieldErr.Tag()
	}
	return apperrors.NewValidationError("validation failed", details)
}
