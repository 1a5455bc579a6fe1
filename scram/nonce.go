package scram

import (
	"crypto/rand"
	"encoding/base64"
)

// randomNonce returns 24 cryptographically random bytes, base64-encoded,
// for use as a client nonce. 24 bytes matches the length PostgreSQL's own
// client libraries use.
func randomNonce() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawStdEncoding.EncodeToString(buf), nil
}
