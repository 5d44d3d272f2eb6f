package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// Class determines how a failed dependency call is handled.
type Class int

const (
	// ClassTransient covers flaky sockets and retryable 5xx answers.
	ClassTransient Class = iota
	// ClassRateLimited is provider throttling: retryable with a longer cool-off.
	ClassRateLimited
	// ClassPermanent is never retried: client errors, auth failures, exhausted quotas.
	ClassPermanent
)

var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

var permanentHints = []string{
	"quota exceeded",
	"daily limit",
	"count exceeded",
	"plan limit",
	"invalid api key",
	"unauthorized",
	"forbidden",
}

var transientHints = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"timeout",
	"timed out",
	"no such host",
	"temporary failure",
	"eof",
}

// Classify maps an error from a dependency call to a handling class.
// Typed errors are inspected first; message matching is the fallback for
// providers that only hand back text.
func Classify(err error) Class {
	if err == nil {
		return ClassTransient // should not happen
	}

	var coded *domain.CodedError
	if errors.As(err, &coded) {
		return ClassPermanent
	}

	s := strings.ToLower(err.Error())
	for _, hint := range permanentHints {
		if strings.Contains(s, hint) {
			return ClassPermanent
		}
	}

	var call *upstream.CallError
	if errors.As(err, &call) && call.Status != 0 {
		switch {
		case call.Status == 429:
			return ClassRateLimited
		case retryableStatuses[call.Status]:
			return ClassTransient
		default:
			return ClassPermanent
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransient
	}

	if strings.Contains(s, "429") || strings.Contains(s, "too many requests") ||
		strings.Contains(s, "rate limit") {
		return ClassRateLimited
	}
	for _, hint := range transientHints {
		if strings.Contains(s, hint) {
			return ClassTransient
		}
	}

	// Default to retry (network, 5xx, unknown)
	return ClassTransient
}

// Retryable reports whether another attempt may help.
func Retryable(err error) bool {
	return Classify(err) != ClassPermanent
}
