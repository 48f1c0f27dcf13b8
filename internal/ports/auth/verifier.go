package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Directory resuelve usuarios sin token (modo dev y sesión persistida).
type Directory interface {
	ClaimsFor(ctx context.Context, userID string) (Claims, error)
	CurrentSession(ctx context.Context) (Claims, bool)
}
