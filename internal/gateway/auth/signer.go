// Package auth implements the shared-secret HMAC scheme requests are signed
// with. The signed payload is the decimal unix timestamp concatenated with
// the RFC 8785 canonical form of the JSON body, so clients are free to order
// keys and whitespace however they like as long as the value is the same.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/gowebpki/jcs"
)

const (
	// sigPrefix is optional and purely cosmetic on inbound signatures.
	sigPrefix = "sha256="

	// digestHexLen is the width of a hex-encoded SHA-256 tag.
	digestHexLen = 64
)

// SignedPayload derives the exact byte sequence covered by the signature.
func SignedPayload(timestamp int64, rawBody []byte) ([]byte, error) {
	canonical, err := jcs.Transform(rawBody)
	if err != nil {
		return nil, fmt.Errorf("canonicalize body: %w", err)
	}

	ts := strconv.FormatInt(timestamp, 10)
	payload := make([]byte, 0, len(ts)+len(canonical))
	payload = append(payload, ts...)
	payload = append(payload, canonical...)
	return payload, nil
}

// Sign computes the signature a client attaches to (timestamp, body),
// prefixed with "sha256=".
func Sign(secret string, timestamp int64, rawBody []byte) (string, error) {
	payload, err := SignedPayload(timestamp, rawBody)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return sigPrefix + hex.EncodeToString(mac.Sum(nil)), nil
}
