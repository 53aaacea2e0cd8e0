package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeviceSecret(t *testing.T) {
	t.Parallel()

	s1, err := NewDeviceSecret()
	require.NoError(t, err)
	s2, err := NewDeviceSecret()
	require.NoError(t, err)

	assert.Len(t, s1, 64) // 32 bytes hex encoded
	assert.NotEqual(t, s1, s2, "every call must issue a distinct secret")
	assert.Regexp(t, "^[0-9a-f]{64}$", s1)
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	t.Parallel()

	secret := "3b9aca00aabbccdd3b9aca00aabbccdd3b9aca00aabbccdd3b9aca00aabbccdd"
	body := []byte(`{"deviceId":"dev-1","platform":"android","data":[{"date":"2024-01-01","steps":5000}]}`)

	sig := SignBody(secret, body)
	assert.True(t, VerifySignature(secret, body, sig))
	assert.True(t, VerifySignature(secret, body, "sha256="+sig), "sha256= prefix is accepted")
	assert.True(t, VerifySignature(secret, body, "  "+sig+"  "), "surrounding whitespace is tolerated")
}

func TestVerifySignature_SingleByteMutation(t *testing.T) {
	t.Parallel()

	secret := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	body := []byte(`[{"date":"2024-01-01","steps":5000}]`)
	sig := SignBody(secret, body)

	for i := range body {
		mutated := append([]byte(nil), body...)
		mutated[i] ^= 0x01
		assert.Falsef(t, VerifySignature(secret, mutated, sig),
			"mutation at byte %d must invalidate the signature", i)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	t.Parallel()

	body := []byte(`[{"date":"2024-01-01"}]`)
	sig := SignBody("aaaa", body)
	assert.False(t, VerifySignature("bbbb", body, sig))
}

func TestVerifySignature_Garbage(t *testing.T) {
	t.Parallel()

	body := []byte(`[]`)
	assert.False(t, VerifySignature("secret", body, ""))
	assert.False(t, VerifySignature("secret", body, "sha256="))
	assert.False(t, VerifySignature("secret", body, "not-hex-at-all"))
	assert.False(t, VerifySignature("secret", body, "sha256=zzzz"))
}

func TestVerifySignature_UppercaseDigest(t *testing.T) {
	t.Parallel()

	secret := "cafe"
	body := []byte(`[{"date":"2024-02-02"}]`)
	sig := SignBody(secret, body)

	upper := make([]byte, len(sig))
	for i := 0; i < len(sig); i++ {
		ch := sig[i]
		if ch >= 'a' && ch <= 'f' {
			ch -= 'a' - 'A'
		}
		upper[i] = ch
	}
	assert.True(t, VerifySignature(secret, body, string(upper)))
}
