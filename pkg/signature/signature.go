// Package signature signs and verifies callback payloads with HMAC-SHA256.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	// Header carries the payload signature on callback requests.
	Header = "X-Taxsync-Signature"
	// Prefix names the digest algorithm in the header value.
	Prefix = "sha256="
)

// Signature verification errors.
var (
	ErrNoSignature       = errors.New("no signature found")
	ErrMalformed         = errors.New("malformed signature")
	ErrSignatureMismatch = errors.New("signature mismatch")
	ErrNoSecret          = errors.New("signing secret is empty")
)

// CalculateHash computes the hex HMAC-SHA256 of body under secret.
func CalculateHash(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)

	return hex.EncodeToString(mac.Sum(nil))
}

// Sign returns the header value for body.
func Sign(secret string, body []byte) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	return Prefix + CalculateHash(secret, body), nil
}

// Verify checks a header value produced by Sign.
func Verify(secret string, body []byte, value string) error {
	if secret == "" {
		return ErrNoSecret
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return ErrNoSignature
	}

	digest, ok := strings.CutPrefix(value, Prefix)
	if !ok {
		return fmt.Errorf("%w: missing %q prefix", ErrMalformed, Prefix)
	}

	got, err := hex.DecodeString(digest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	want, _ := hex.DecodeString(CalculateHash(secret, body))
	if !hmac.Equal(got, want) {
		return ErrSignatureMismatch
	}

	return nil
}
