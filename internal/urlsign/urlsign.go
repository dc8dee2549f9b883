// Package urlsign mints and verifies time-limited signed preview URLs.
// A signed URL is bound to a file id and an expiration instant; altering
// any character or presenting it after expiry invalidates it. Verification
// deliberately reports a single boolean so callers cannot distinguish a
// tampered URL from an expired one.
package urlsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

type Signer struct {
	secret []byte
}

func New(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign builds the signed preview URL for a file id, valid until expiresAt
func (s *Signer) Sign(baseURL, fileID string, expiresAt time.Time) string {
	expires := expiresAt.Unix()
	return fmt.Sprintf("%s/api/files/%s/preview?expires=%d&signature=%s",
		baseURL, fileID, expires, s.signature(fileID, expires))
}

// Verify checks the signature and expiry for a presented preview request
func (s *Signer) Verify(fileID, expires, signature string, now time.Time) bool {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if now.Unix() > exp {
		return false
	}

	expected := s.signature(fileID, exp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Signer) signature(fileID string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%d", fileID, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
