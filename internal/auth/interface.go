package auth

import "h1nted/internal/domain/models"

// JWTVerifier verifies Supabase access tokens.
type JWTVerifier interface {
	// VerifyToken validates a JWT and returns its claims. Any invalid,
	// expired or anonymous token yields domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*models.SupabaseClaims, error)

	// Close releases resources held by the verifier.
	Close() error
}
