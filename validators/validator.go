// Package validators holds the field rules checked before any post, draft or
// comment is written.
package validators

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/quill/internal/models"
	"github.com/go-playground/validator/v10"
	nonstandard "github.com/go-playground/validator/v10/non-standard/validators"
)

// ValidationError carries every rule a payload violated.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

var messages = map[string]string{
	"PostInput.Title.notblank":           "Title is required",
	"PostInput.Title.max":                "Title must be less than 100 characters",
	"PostInput.Content.notblank":         "Content is required",
	"PostInput.Content.max":              "Content must be less than 5000 characters",
	"PostInput.Images.max":               "Maximum 4 images allowed",
	"CreateCommentRequest.Text.notblank": "Comment cannot be empty",
	"CreateCommentRequest.Text.max":      "Comment must be less than 500 characters",
	"StatsPatch.Likes.min":               "Likes cannot be negative",
	"StatsPatch.Views.min":               "Views cannot be negative",
}

// CustomValidator adapts go-playground/validator to echo.Validator.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds a validator with the non-standard notblank rule registered.
func NewValidator() *CustomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("notblank", nonstandard.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	return &CustomValidator{validator: v}
}

// Validate returns a *ValidationError when i breaks any rule.
func (cv *CustomValidator) Validate(i interface{}) error {
	if violations := cv.Messages(i); len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Messages lists the violated rules of i in field order. An empty result
// means i is valid.
func (cv *CustomValidator) Messages(i interface{}) []string {
	err := cv.validator.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{err.Error()}
	}

	out := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		key := fe.StructNamespace() + "." + fe.Tag()
		if msg, ok := messages[key]; ok {
			out = append(out, msg)
			continue
		}
		out = append(out, fmt.Sprintf("%s failed the %q rule", fe.Field(), fe.Tag()))
	}
	return out
}

var defaultValidator = NewValidator()

// ValidatePost checks a post or draft payload.
func ValidatePost(in models.PostInput) []string {
	return defaultValidator.Messages(in)
}

// ValidateComment checks the text of a new comment.
func ValidateComment(text string) []string {
	return defaultValidator.Messages(models.CreateCommentRequest{Text: text})
}
