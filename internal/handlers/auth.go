package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/quill/internal/middleware"
	"github.com/anonto42/quill/internal/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// tokenTTL is the lifetime of locally issued tokens.
const tokenTTL = 72 * time.Hour

// AuthHandler exchanges Firebase ID tokens for local JWTs
type AuthHandler struct {
	verifier  middleware.TokenVerifier
	jwtSecret string
	now       func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(verifier middleware.TokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{verifier: verifier, jwtSecret: jwtSecret, now: time.Now}
}

// RegisterAuthRoutes registers authentication routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local JWT carrying
// the same identity
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil || req.IDToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "idToken is required")
	}

	token, err := h.verifier.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	id := models.Identity{UID: token.UID}
	if name, ok := token.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}

	now := h.now()
	localJWT, err := middleware.SignToken(id, h.jwtSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		Subject:   id.UID,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT")
	}

	return c.JSON(http.StatusOK, echo.Map{"token": localJWT, "user": id})
}
