package models

import "github.com/golang-jwt/jwt/v4"

// Identity is the current actor as reported by the identity provider.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// JwtCustomClaims are the claims carried by locally issued tokens
type JwtCustomClaims struct {
	UID   string `json:"uid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Identity converts the claims into the actor they describe.
func (c *JwtCustomClaims) Identity() Identity {
	return Identity{UID: c.UID, DisplayName: c.Name, Email: c.Email}
}
