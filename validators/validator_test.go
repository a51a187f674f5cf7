package validators

import (
	"errors"
	"strings"
	"testing"

	"github.com/anonto42/quill/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePost(t *testing.T) {
	testCases := []struct {
		name string
		in   models.PostInput
		want []string
	}{
		{
			name: "valid",
			in:   models.PostInput{Title: "Hello", Content: "World"},
		},
		{
			name: "missing title and content",
			in:   models.PostInput{},
			want: []string{"Title is required", "Content is required"},
		},
		{
			name: "whitespace only",
			in:   models.PostInput{Title: "   ", Content: "\n\t"},
			want: []string{"Title is required", "Content is required"},
		},
		{
			name: "title of 101 characters",
			in:   models.PostInput{Title: strings.Repeat("a", 101), Content: "x"},
			want: []string{"Title must be less than 100 characters"},
		},
		{
			name: "title of exactly 100 multibyte characters",
			in:   models.PostInput{Title: strings.Repeat("é", 100), Content: "x"},
		},
		{
			name: "content too long",
			in:   models.PostInput{Title: "t", Content: strings.Repeat("c", 5001)},
			want: []string{"Content must be less than 5000 characters"},
		},
		{
			name: "five images",
			in:   models.PostInput{Title: "t", Content: "c", Images: []string{"1", "2", "3", "4", "5"}},
			want: []string{"Maximum 4 images allowed"},
		},
		{
			name: "four images",
			in:   models.PostInput{Title: "t", Content: "c", Images: []string{"1", "2", "3", "4"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValidatePost(tc.in)
			if len(tc.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestValidateComment(t *testing.T) {
	assert.Empty(t, ValidateComment("nice post"))
	assert.Equal(t, []string{"Comment cannot be empty"}, ValidateComment("  "))
	assert.Equal(t, []string{"Comment must be less than 500 characters"}, ValidateComment(strings.Repeat("x", 501)))
}

func TestCustomValidatorReturnsValidationError(t *testing.T) {
	v := NewValidator()

	require.NoError(t, v.Validate(models.PostInput{Title: "a", Content: "b"}))

	err := v.Validate(models.PostInput{Title: "a"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Content is required"}, verr.Violations)
	assert.Contains(t, err.Error(), "Content is required")

	negative := -1
	err = v.Validate(models.StatsPatch{Views: &negative})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"Views cannot be negative"}, verr.Violations)
}
