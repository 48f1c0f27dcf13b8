package jwt

import (
	"context"
	"errors"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"dental-clinic-admin/internal/ports/auth"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrNotConfigured = errors.New("jwt secret not configured")
)

type tokenClaims struct {
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	PatientID string `json:"patient_id,omitempty"`
	gojwt.RegisteredClaims
}

// Tokens firma y verifica tokens HS256. Implementa auth.AuthVerifier.
// TTL <= 0 emite tokens sin expiración.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ auth.AuthVerifier = (*Tokens)(nil)

func New(secret string, ttl time.Duration) (*Tokens, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNotConfigured
	}
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *Tokens) Issue(c auth.Claims) (string, error) {
	now := t.now()
	rc := gojwt.RegisteredClaims{
		Subject:  c.UserID,
		IssuedAt: gojwt.NewNumericDate(now),
	}
	if t.ttl > 0 {
		rc.ExpiresAt = gojwt.NewNumericDate(now.Add(t.ttl))
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, tokenClaims{
		Email:            c.Email,
		Name:             c.Name,
		Role:             string(c.Role),
		PatientID:        c.PatientID,
		RegisteredClaims: rc,
	})
	return token.SignedString(t.secret)
}

func (t *Tokens) Verify(_ context.Context, token string) (auth.Claims, error) {
	parsed, err := gojwt.ParseWithClaims(token, &tokenClaims{}, func(tok *gojwt.Token) (any, error) {
		if _, ok := tok.Method.(*gojwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	}, gojwt.WithTimeFunc(t.now))
	if err != nil {
		return auth.Claims{}, err
	}

	tc, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(tc.Subject) == "" {
		return auth.Claims{}, ErrInvalidToken
	}

	return auth.Claims{
		UserID:    tc.Subject,
		Email:     tc.Email,
		Name:      tc.Name,
		Role:      auth.Role(tc.Role),
		PatientID: tc.PatientID,
	}, nil
}
