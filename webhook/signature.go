package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 over canonical (the marshalled envelope
// with signature omitted) using the tenant's webhook secret.
func Sign(secret string, canonical []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the HMAC and compares it against sig in
// constant time — exposed for callers/tests that want to assert delivered
// payloads are authentic.
func VerifySignature(secret string, canonical []byte, sig string) bool {
	expected := Sign(secret, canonical)
	return hmac.Equal([]byte(expected), []byte(sig))
}
