// Package bricks contains the business-logic units the gateway dispatches
// to. Each brick validates its flattened input, builds the provider payload
// and runs the call through the resilience executor under its dependency
// class, so retry, circuit and budget policy stay out of brick code.
package bricks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/resilience"
)

// Caller runs one upstream operation under retry, circuit and budget
// control. Satisfied by resilience.Executor.
type Caller interface {
	Do(ctx context.Context, class string, op resilience.Operation) (map[string]any, error)
}

// TokenRecorder charges consumed provider tokens against a class budget.
// Satisfied by budget trackers.
type TokenRecorder interface {
	RecordTokens(ctx context.Context, class string, tokens int64)
}

func stringField(input map[string]any, field string) (string, error) {
	v, ok := input[field]
	if !ok {
		return "", domain.NewCodedError(domain.CodeValidationError, "field %q is required", field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", domain.NewCodedError(domain.CodeValidationError, "field %q must be a non-empty string", field)
	}
	return s, nil
}

func optionalString(input map[string]any, field string) string {
	s, _ := input[field].(string)
	return s
}

// int64Field reads an optional numeric field. Bodies parsed with UseNumber
// carry json.Number; provider responses carry float64.
func int64Field(input map[string]any, field string, def int64) (int64, error) {
	v, ok := input[field]
	if !ok || v == nil {
		return def, nil
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, domain.NewCodedError(domain.CodeValidationError, "field %q must be an integer", field)
	}
	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return n.Int64()
	case float64:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}

func stringListField(input map[string]any, field string) ([]string, error) {
	v, ok := input[field]
	if !ok || v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, domain.NewCodedError(domain.CodeValidationError, "field %q must be a list of strings", field)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, domain.NewCodedError(domain.CodeValidationError, "field %q must be a list of strings", field)
		}
		out = append(out, s)
	}
	return out, nil
}
