package ingress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// codeFor normalizes any pipeline error to a stable envelope code. Provider
// rate limiting keeps its meaning across the boundary; everything uncoded
// and unknown collapses to INTERNAL_ERROR.
func codeFor(err error) string {
	var coded *domain.CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	var call *upstream.CallError
	if errors.As(err, &call) {
		if call.Status == http.StatusTooManyRequests {
			return domain.CodeRateLimited
		}
		return domain.CodeUpstreamError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.CodeDispatchTimeout
	}
	return domain.CodeInternal
}

// statusFor maps an envelope code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.CodeValidationError, domain.CodeMissingTimestamp:
		return http.StatusBadRequest
	case domain.CodeTimestampSkew, domain.CodeInvalidSignature, domain.CodeAuthFailed:
		return http.StatusUnauthorized
	case domain.CodeWorkflowNotFound:
		return http.StatusNotFound
	case domain.CodeRateLimited:
		return http.StatusTooManyRequests
	case domain.CodeCircuitOpen:
		return http.StatusServiceUnavailable
	case domain.CodeDispatchTimeout:
		return http.StatusGatewayTimeout
	case domain.CodeUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor picks the client-facing message. Uncoded internal errors stay
// opaque; their detail belongs in the log, not the response.
func messageFor(err error, code string) string {
	if code == domain.CodeInternal {
		return "internal error"
	}
	return err.Error()
}

func writeSuccess(w http.ResponseWriter, requestID, brick string, data map[string]any) {
	writeEnvelope(w, http.StatusOK, domain.ResponseEnvelope{
		OK:        true,
		Brick:     brick,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
		Data:      data,
	})
}

func writeError(w http.ResponseWriter, requestID, brick string, err error) string {
	code := codeFor(err)
	writeEnvelope(w, statusFor(code), domain.ResponseEnvelope{
		OK:        false,
		Brick:     brick,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
		Error:     messageFor(err, code),
		Code:      code,
	})
	return code
}

func writeEnvelope(w http.ResponseWriter, status int, env domain.ResponseEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding a flat envelope cannot fail; the write itself can, and at
	// that point the client is gone.
	_ = json.NewEncoder(w).Encode(env)
}
