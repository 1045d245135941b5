package models

import "github.com/golang-jwt/jwt/v5"

// OperatorClaims is the JWT payload identifying the operator or system calling
// the API. The service validates tokens only; accounts live in the identity
// provider.
type OperatorClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}
