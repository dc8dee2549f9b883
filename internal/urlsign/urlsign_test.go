package urlsign

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	signer := New("test-secret")
	now := time.Now()

	signed := signer.Sign("http://localhost:8080", "file_1_abc", now.Add(time.Hour))

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(u.Path, "/api/files/file_1_abc/preview"))

	q := u.Query()
	assert.True(t, signer.Verify("file_1_abc", q.Get("expires"), q.Get("signature"), now))
}

func TestSigner_RejectsTampering(t *testing.T) {
	signer := New("test-secret")
	now := time.Now()

	signed := signer.Sign("http://localhost:8080", "file_1_abc", now.Add(time.Hour))
	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()
	expires := q.Get("expires")
	signature := q.Get("signature")

	// flip one character of the signature
	mutated := []byte(signature)
	if mutated[0] == 'a' {
		mutated[0] = 'b'
	} else {
		mutated[0] = 'a'
	}
	assert.False(t, signer.Verify("file_1_abc", expires, string(mutated), now))

	// different file id under the same signature
	assert.False(t, signer.Verify("file_1_xyz", expires, signature, now))

	// extended expiry without re-signing
	assert.False(t, signer.Verify("file_1_abc", "9999999999", signature, now))
}

func TestSigner_RejectsExpired(t *testing.T) {
	signer := New("test-secret")
	now := time.Now()

	signed := signer.Sign("http://localhost:8080", "file_1_abc", now.Add(time.Hour))
	u, _ := url.Parse(signed)
	q := u.Query()

	assert.False(t, signer.Verify("file_1_abc", q.Get("expires"), q.Get("signature"), now.Add(2*time.Hour)))
}

func TestSigner_RejectsGarbageExpires(t *testing.T) {
	signer := New("test-secret")
	assert.False(t, signer.Verify("file_1_abc", "not-a-number", "sig", time.Now()))
}

func TestSigner_DifferentSecrets(t *testing.T) {
	now := time.Now()
	signed := New("secret-a").Sign("http://localhost:8080", "file_1_abc", now.Add(time.Hour))
	u, _ := url.Parse(signed)
	q := u.Query()

	assert.False(t, New("secret-b").Verify("file_1_abc", q.Get("expires"), q.Get("signature"), now))
}
