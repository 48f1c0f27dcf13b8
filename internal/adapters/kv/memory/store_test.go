package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	assert.False(t, ok)

	in := []byte(`{"id":"1"}`)
	require.NoError(t, s.Set(ctx, "user", in))
	in[0] = 'X' // el store guarda su propia copia

	got, ok, err := s.Get(ctx, "user")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"id":"1"}`, string(got))

	require.NoError(t, s.Delete(ctx, "user"))
	_, ok, _ = s.Get(ctx, "user")
	assert.False(t, ok)
}
