package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"wordsmith/internal/types"
)

// Validator wraps go-playground/validator with the engine's custom tags and
// maps failures onto AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator. Field names in errors use json tags.
//
// Custom tags:
//   - notblank: string must contain a non-space character.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		logger.Error("failed to register notblank validation", "error", err)
	}
	return &Validator{validate: v, logger: logger}
}

// Struct validates s. A blank or missing "text" field is reported as
// validation_missing_text; every other failure is
// validation_invalid_parameter with the offending fields in details.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request validation failed", err)
	}

	fields := make([]map[string]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Field() == "text" && (fe.Tag() == "required" || fe.Tag() == "notblank") {
			return types.NewAppErrorWithDetails(
				types.ErrCodeValidationMissingText,
				"text is required",
				nil,
				map[string]any{"field": "text"},
			)
		}
		fields = append(fields, map[string]string{
			"field": fe.Field(),
			"rule":  fe.Tag(),
			"param": fe.Param(),
		})
	}

	first := verrs[0]
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationInvalidParameter,
		describe(first),
		nil,
		map[string]any{"fields": fields},
	)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
