package cryptox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicAndSaltSensitive(t *testing.T) {
	pass := []byte("correct horse")

	k1 := DeriveKey(pass, []byte("salt-1"))
	k2 := DeriveKey(pass, []byte("salt-1"))
	k3 := DeriveKey(pass, []byte("salt-2"))

	require.Len(t, k1, 32)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestMakeVerifier_DiffersFromKey(t *testing.T) {
	key := DeriveKey([]byte("p"), []byte("s"))
	v := MakeVerifier(key)

	require.Len(t, v, 32)
	assert.NotEqual(t, key, v)
	assert.Equal(t, v, MakeVerifier(key))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveKey([]byte("passphrase"), []byte("salt"))
	token := []byte("eyJhbGciOiJIUzI1NiJ9.payload.sig")

	ct, nonce, err := Seal(token, key)
	require.NoError(t, err)
	assert.NotEqual(t, token, ct)

	got, err := Open(ct, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, token, got)
}

func TestOpen_WrongKeyFails(t *testing.T) {
	key := DeriveKey([]byte("right"), []byte("salt"))
	other := DeriveKey([]byte("wrong"), []byte("salt"))

	ct, nonce, err := Seal([]byte("bearer"), key)
	require.NoError(t, err)

	_, err = Open(ct, nonce, other)
	require.Error(t, err)
}

func TestOpen_TamperedCiphertextFails(t *testing.T) {
	key := DeriveKey([]byte("p"), []byte("s"))
	ct, nonce, err := Seal([]byte("bearer"), key)
	require.NoError(t, err)

	ct[0] ^= 0xFF
	_, err = Open(ct, nonce, key)
	require.Error(t, err)
}

func TestOpen_ShortCiphertext(t *testing.T) {
	key := DeriveKey([]byte("p"), []byte("s"))
	_, err := Open([]byte{1, 2}, make([]byte, 12), key)
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestSeal_BadKeyLength(t *testing.T) {
	_, _, err := Seal([]byte("x"), []byte("short"))
	require.Error(t, err)
}
