package models

import "github.com/golang-jwt/jwt/v5"

// RoleAuthenticated is the Supabase role of a signed-in user
const RoleAuthenticated = "authenticated"

// SupabaseClaims holds the access token claims the API trusts: the subject
// as user id and the role of the session.
type SupabaseClaims struct {
	jwt.RegisteredClaims
	Role        string `json:"role"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *SupabaseClaims) GetUserID() string {
	return c.Subject
}

// SignedIn reports whether the token belongs to a real, non-anonymous user
func (c *SupabaseClaims) SignedIn() bool {
	return c.Subject != "" && c.Role == RoleAuthenticated && !c.IsAnonymous
}
