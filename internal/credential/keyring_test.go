package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	kr := keyring.NewArrayKeyring(nil)
	ring = func() (keyring.Keyring, error) { return kr, nil }
	t.Cleanup(func() { ring = openKeyring })
}

func TestCredentials_RoundTrip(t *testing.T) {
	useArrayKeyring(t)
	key := SourcePasswordKey("work")

	require.NoError(t, Set(key, "hunter2"))
	got, err := Get(key)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)

	require.NoError(t, Delete(key))
	_, err = Get(key)
	require.Error(t, err)
	assert.ErrorIs(t, err, keyring.ErrKeyNotFound)
	assert.Contains(t, err.Error(), "imap-password-work")
}
