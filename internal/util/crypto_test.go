package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCryptoRandomBytes(t *testing.T) {
	b1, err := CryptoRandomBytes(20)
	require.NoError(t, err)
	assert.Len(t, b1, 20)

	b2, err := CryptoRandomBytes(20)
	require.NoError(t, err)
	assert.NotEqual(t, b1, b2, "Random bytes should not be identical")
}

func TestCryptoRandomString(t *testing.T) {
	str, err := CryptoRandomString(21)
	require.NoError(t, err)
	assert.Len(t, str, 21)
	for _, c := range str {
		assert.True(t, (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f'),
			"Character '%c' is not a valid hex digit", c)
	}
}

func TestRandomState(t *testing.T) {
	s1, err := RandomState()
	require.NoError(t, err)
	s2, err := RandomState()
	require.NoError(t, err)

	assert.NotEqual(t, s1, s2)

	raw, err := base64.RawURLEncoding.DecodeString(s1)
	require.NoError(t, err, "state must be URL-safe base64")
	assert.Len(t, raw, 32)
}

func TestSHA256Hex(t *testing.T) {
	// echo -n "hello" | sha256sum
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", SHA256Hex("hello"))
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", SHA256Hex(""))
}

func TestSecureCompare(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
		ok   bool
	}{
		{name: "equal", got: "s3cret-admin-token", want: "s3cret-admin-token", ok: true},
		{name: "different", got: "s3cret-admin-tokeN", want: "s3cret-admin-token", ok: false},
		{name: "prefix", got: "s3cret", want: "s3cret-admin-token", ok: false},
		{name: "empty got", got: "", want: "s3cret-admin-token", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, SecureCompare(tt.got, tt.want))
		})
	}
}
