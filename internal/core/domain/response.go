package domain

import (
	"errors"
	"fmt"
)

// ResponseEnvelope is the canonical reply shape. Exactly one of Data or
// (Error, Code) is set, determined by OK.
type ResponseEnvelope struct {
	OK        bool           `json:"ok"`
	Brick     string         `json:"brick"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"requestId"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
}

// Stable error codes emitted by the gateway.
const (
	CodeMissingTimestamp = "MISSING_TIMESTAMP"
	CodeTimestampSkew    = "TIMESTAMP_SKEW"
	CodeInvalidSignature = "INVALID_SIGNATURE"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeWorkflowNotFound = "WORKFLOW_NOT_FOUND"
	CodeDispatchTimeout  = "DISPATCH_TIMEOUT"
	CodeCircuitOpen      = "CIRCUIT_OPEN"
	CodeRateLimited      = "RATE_LIMITED"
	CodeUpstreamError    = "UPSTREAM_ERROR"
	CodeInternal         = "INTERNAL_ERROR"
)

// CodedError is a request failure carrying one of the stable codes above.
type CodedError struct {
	Code    string
	Message string
}

func (e *CodedError) Error() string { return e.Message }

// NewCodedError builds a CodedError with a formatted message.
func NewCodedError(code, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from err, unwrapping as needed.
// Errors without a code report CodeInternal.
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
