// Package signature authenticates inbound webhook payloads against a
// per-project shared secret using the sha256= HMAC header convention.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Prefix is the scheme marker carried in the signature header.
const Prefix = "sha256="

// ErrBadSignature indicates the payload signature did not match the shared secret.
var ErrBadSignature = errors.New("payload signature mismatch")

// Verify checks the HMAC-SHA256 signature of a raw payload body.
//
// When secret is empty, verification is skipped and the payload is accepted
// unauthenticated. This is a documented trade-off for projects that have not
// configured a webhook secret, not a failure.
//
// When a secret is configured, header must equal
// "sha256=" + hex(HMAC-SHA256(secret, body)). Any mismatch, including a
// missing or malformed header, returns ErrBadSignature.
func Verify(body []byte, header, secret string) error {
	if secret == "" {
		return nil
	}

	expected := Compute(body, secret)

	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrBadSignature
	}

	return nil
}

// Compute returns the signature header value for a body and secret.
func Compute(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return Prefix + hex.EncodeToString(mac.Sum(nil))
}
