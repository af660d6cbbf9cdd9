package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
)

// SignPayload returns the hex-encoded HMAC-SHA256 of body under secret.
// Messaging providers verify this signature to authenticate our sends.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("%x", mac.Sum(nil))
}

// VerifySignature reports whether signature matches body under secret,
// using a constant-time comparison.
func VerifySignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(SignPayload(secret, body)), []byte(signature))
}
