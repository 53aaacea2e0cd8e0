package utils

// signature.go implements the HMAC scheme used by the companion app to sign
// health-data batches.  The app computes HMAC-SHA256 over the exact raw
// request body using the per-device secret issued at registration, and sends
// the hex digest in the X-Signature header, optionally prefixed "sha256=".
// The server recomputes the digest over the same raw bytes and compares in
// constant time.  Any mutation of the body, however small, changes the
// digest and fails verification.

import (
    "crypto/hmac"
    "crypto/sha256"
    "encoding/hex"
    "strings"
)

// NewDeviceSecret issues a fresh 32-byte device signing secret encoded as
// 64 lowercase hex characters.  A new secret is generated on every
// registration call so re-registering a device always rotates its key.
func NewDeviceSecret() (string, error) {
    return randomHex(32)
}

// SignBody computes the hex-encoded HMAC-SHA256 of body under secret.  The
// secret is used as raw key bytes, exactly as the companion app does.
func SignBody(secret string, body []byte) string {
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write(body)
    return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a submitted signature header value against the
// HMAC-SHA256 of body under secret.  The "sha256=" prefix is optional and
// digest case is ignored.  Comparison happens on the decoded digest bytes
// via hmac.Equal so it does not leak timing information.
func VerifySignature(secret string, body []byte, header string) bool {
    submitted := strings.TrimSpace(header)
    submitted = strings.TrimPrefix(submitted, "sha256=")
    got, err := hex.DecodeString(strings.ToLower(submitted))
    if err != nil || len(got) == 0 {
        return false
    }
    mac := hmac.New(sha256.New, []byte(secret))
    mac.Write(body)
    return hmac.Equal(got, mac.Sum(nil))
}
