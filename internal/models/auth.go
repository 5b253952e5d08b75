package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the access-token claims issued by the external identity
// provider. This service only validates them.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
