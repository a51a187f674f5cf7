package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/models"
	"github.com/anonto42/quill/internal/repositories"
	"github.com/anonto42/quill/internal/services"
	"github.com/anonto42/quill/pkg/kv"
	"github.com/anonto42/quill/validators"
	"github.com/labstack/echo/v4"
)

const storageUnavailableMessage = "Storage is unavailable, please try again"

// toHTTPError maps domain errors to responses. notFound is the message used
// for ErrNotFound.
func toHTTPError(err error, notFound string) error {
	var verr *validators.ValidationError
	switch {
	case errors.As(err, &verr):
		return validationFailed(verr.Violations)
	case errors.Is(err, repositories.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound)
	case errors.Is(err, repositories.ErrDuplicateID):
		return echo.NewHTTPError(http.StatusConflict, "A record with this id already exists")
	case errors.Is(err, services.ErrInvalidSnapshot):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, repositories.ErrStorageUnavailable), errors.Is(err, kv.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, storageUnavailableMessage).SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
	}
}

func validationFailed(violations []string) error {
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{"errors": violations})
}

// validate runs the validator installed on the Echo instance.
func validate(c echo.Context, v any) error {
	if err := c.Validate(v); err != nil {
		return toHTTPError(err, "")
	}
	return nil
}

func currentIdentity(c echo.Context) models.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}
