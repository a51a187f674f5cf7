package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTTPError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", &validators.ValidationError{Violations: []string{"Title is required"}}, http.StatusBadRequest},
		{"not found", fmt.Errorf("post 1: %w", repositories.ErrNotFound), http.StatusNotFound},
		{"duplicate id", fmt.Errorf("post 1: %w", repositories.ErrDuplicateID), http.StatusConflict},
		{"invalid snapshot", fmt.Errorf("%w: duplicate id", services.ErrInvalidSnapshot), http.StatusBadRequest},
		{"storage", fmt.Errorf("save posts: %w: %w", repositories.ErrStorageUnavailable, errors.New("disk")), http.StatusServiceUnavailable},
		{"quota", kv.ErrQuotaExceeded, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var he *echo.HTTPError
			require.ErrorAs(t, toHTTPError(tc.err, "Post not found"), &he)
			assert.Equal(t, tc.code, he.Code)
		})
	}
}

func TestToHTTPErrorMessages(t *testing.T) {
	var he *echo.HTTPError

	require.ErrorAs(t, toHTTPError(repositories.ErrNotFound, "Draft not found"), &he)
	assert.Equal(t, "Draft not found", he.Message)

	require.ErrorAs(t, toHTTPError(&validators.ValidationError{Violations: []string{"a", "b"}}, ""), &he)
	assert.Equal(t, echo.Map{"errors": []string{"a", "b"}}, he.Message)

	require.ErrorAs(t, toHTTPError(fmt.Errorf("x: %w", repositories.ErrStorageUnavailable), ""), &he)
	assert.Equal(t, storageUnavailableMessage, he.Message)
	assert.ErrorIs(t, he.Internal, repositories.ErrStorageUnavailable)
}
