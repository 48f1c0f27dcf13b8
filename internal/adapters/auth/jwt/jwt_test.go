package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dental-clinic-admin/internal/ports/auth"
)

func TestIssueVerify(t *testing.T) {
	tokens, err := New("secret", time.Hour)
	require.NoError(t, err)

	in := auth.Claims{UserID: "2", Email: "patient@dental.com", Name: "John Doe", Role: auth.RolePatient, PatientID: "p1"}
	tok, err := tokens.Issue(in)
	require.NoError(t, err)

	got, err := tokens.Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestVerify_Rejects(t *testing.T) {
	tokens, err := New("secret", time.Minute)
	require.NoError(t, err)
	other, err := New("other", time.Minute)
	require.NoError(t, err)

	tok, err := other.Issue(auth.Claims{UserID: "1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	_, err = tokens.Verify(context.Background(), tok)
	assert.Error(t, err, "wrong secret")

	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	expired, err := tokens.Issue(auth.Claims{UserID: "1", Role: auth.RoleAdmin})
	require.NoError(t, err)
	tokens.now = time.Now
	_, err = tokens.Verify(context.Background(), expired)
	assert.Error(t, err, "expired")

	_, err = tokens.Verify(context.Background(), "garbage")
	assert.Error(t, err)
}

func TestNew_RequiresSecret(t *testing.T) {
	_, err := New(" ", 0)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
