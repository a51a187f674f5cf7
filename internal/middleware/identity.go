package middleware

import (
	"net/http"
	"strings"

	"github.com/anonto42/quill/internal/models"
	"github.com/labstack/echo/v4"
)

const identityKey = "identity"

// SetIdentity stores the current actor on the request context.
func SetIdentity(c echo.Context, id models.Identity) {
	c.Set(identityKey, id)
}

// IdentityFrom returns the actor stored by one of the auth middlewares.
func IdentityFrom(c echo.Context) (models.Identity, bool) {
	id, ok := c.Get(identityKey).(models.Identity)
	return id, ok
}

// StaticIdentity authenticates every request as id. Used by quillctl and tests.
func StaticIdentity(id models.Identity) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			SetIdentity(c, id)
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header must be in Bearer format")
	}
	return parts[1], nil
}
