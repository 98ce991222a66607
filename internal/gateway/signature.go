package gateway

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Sign computes the gateway's webhook signature: the hex digest of
// rawData + ":" + secret. The gateway sends hex in either case, so
// comparison is case-insensitive.
func Sign(rawData, secret string) string {
	sum := md5.Sum([]byte(rawData + ":" + secret))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the digest and compares in constant time. This
// is the sole authenticity gate for pushed payloads: nothing inside rawData
// may be trusted until this returns true.
func VerifySignature(rawData, signature, secret string) bool {
	expected := Sign(rawData, secret)
	got := strings.ToLower(signature)
	if len(got) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
