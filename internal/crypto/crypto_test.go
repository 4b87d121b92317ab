package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	a, err := DeriveKey("secret")
	require.NoError(t, err)
	b, err := DeriveKey("secret")
	require.NoError(t, err)
	c, err := DeriveKey("other")
	require.NoError(t, err)

	assert.Equal(t, *a, *b)
	assert.NotEqual(t, *a, *c)
}

func TestSealOpen(t *testing.T) {
	key, err := DeriveKey("secret")
	require.NoError(t, err)

	sealed, err := Seal([]byte(`[{"Data":"x","Type":"text/plain"}]`), key)
	require.NoError(t, err)

	plain, err := Open(sealed, key)
	require.NoError(t, err)
	assert.Equal(t, `[{"Data":"x","Type":"text/plain"}]`, string(plain))
}

func TestOpen_WrongKey(t *testing.T) {
	key, _ := DeriveKey("secret")
	wrong, _ := DeriveKey("wrong")

	sealed, err := Seal([]byte("payload"), key)
	require.NoError(t, err)

	_, err = Open(sealed, wrong)
	assert.ErrorIs(t, err, ErrOpen)

	_, err = Open([]byte("short"), key)
	assert.ErrorIs(t, err, ErrOpen)
}
