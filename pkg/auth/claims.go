package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims is the subset of the identity provider's access token the
// service relies on. The subject is the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *AccessTokenClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}
