package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the registered claims carried by the identity provider's
// access tokens. Subject is the user id, Email a custom claim.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
