package upstream

import (
	"errors"
	"fmt"
)

// CallError is a failed dependency answer. Status is the HTTP status when the
// dependency replied at all (0 for transport-level failures); Code carries the
// provider's own error code when one was present in the body.
type CallError struct {
	Endpoint string
	Status   int
	Code     string
	Message  string
}

func (e *CallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: http %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, e.Message)
}

// StatusOf returns the HTTP status attached to err, or 0 when none is.
func StatusOf(err error) int {
	var call *CallError
	if errors.As(err, &call) {
		return call.Status
	}
	return 0
}
