package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strings"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

// SkewWindow is the maximum accepted distance between the request timestamp
// and server time. The window is symmetric and inclusive: a skew of exactly
// 300 seconds passes, 301 is rejected.
const SkewWindow = 300 * time.Second

// Verifier checks inbound request signatures against the shared secret.
// Verification is a pure function over the envelope and the current time; it
// keeps no per-request state, so replaying an identical envelope verifies
// identically.
type Verifier struct {
	secret string
	algo   func() hash.Hash
	now    func() time.Time
}

// NewVerifier creates a verifier for the shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: secret,
		algo:   sha256.New,
		now:    time.Now,
	}
}

// Verify authenticates env and returns the resulting stage. Rejections carry
// the specific reason code, never a generic failure. Neither the secret nor
// any computed signature appears in the returned error.
func (v *Verifier) Verify(env domain.RequestEnvelope) (domain.Stage, error) {
	if env.Timestamp == nil {
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeMissingTimestamp, "timestamp is required")
	}

	skew := v.now().Unix() - *env.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(SkewWindow/time.Second) {
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeTimestampSkew,
				"timestamp outside the allowed window")
	}

	payload, err := SignedPayload(*env.Timestamp, env.RawBody)
	if err != nil {
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeAuthFailed, "request body cannot be canonicalized")
	}

	mac := hmac.New(v.algo, []byte(v.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// A digest of any other width means the configured algorithm is not
	// SHA-256. That is a deployment defect, not a signature mismatch.
	if len(expected) != digestHexLen {
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeAuthFailed, "signature algorithm misconfigured")
	}

	provided := strings.TrimPrefix(env.ProvidedSignature, sigPrefix)
	if len(provided) != len(expected) {
		// Length is public; rejecting early leaks nothing.
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeInvalidSignature, "signature mismatch")
	}
	if !equalConstantTime(expected, provided) {
		return domain.StageAuthError,
			domain.NewCodedError(domain.CodeInvalidSignature, "signature mismatch")
	}

	return domain.StageAuthOK, nil
}

// equalConstantTime compares two equal-length hex tags by XOR accumulation,
// never short-circuiting on the first differing character. Hex case is
// normalized before comparing.
func equalConstantTime(expected, provided string) bool {
	return subtle.ConstantTimeCompare(
		[]byte(expected),
		[]byte(strings.ToLower(provided)),
	) == 1
}
