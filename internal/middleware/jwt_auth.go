package middleware

import (
	"errors"
	"net/http"

	"github.com/anonto42/quill/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// JWTAuthMiddleware checks for a valid HMAC-signed JWT and stores the actor
// described by its claims.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			claims := &models.JwtCustomClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrSignatureInvalid) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token signature")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			if !token.Valid || claims.UID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			SetIdentity(c, claims.Identity())
			return next(c)
		}
	}
}

// SignToken issues a token for id, signed with secret.
func SignToken(id models.Identity, secret string, claims jwt.RegisteredClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &models.JwtCustomClaims{
		UID:              id.UID,
		Name:             id.DisplayName,
		Email:            id.Email,
		RegisteredClaims: claims,
	})
	return token.SignedString([]byte(secret))
}
