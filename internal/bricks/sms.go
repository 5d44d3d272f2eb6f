package bricks

import (
	"context"
	"strings"
	"unicode"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// Carriers reject concatenated messages past 1600 characters.
const maxSmsLength = 1600

// Sms sends text messages through the configured SMS provider.
type Sms struct {
	caller   Caller
	endpoint *upstream.Endpoint
	class    string
}

func NewSms(caller Caller, endpoint *upstream.Endpoint, class string) *Sms {
	return &Sms{caller: caller, endpoint: endpoint, class: class}
}

func (b *Sms) Name() string { return "send-sms" }

func (b *Sms) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	input = dispatch.NormalizeInput(input)

	to, err := stringField(input, "to")
	if err != nil {
		return nil, err
	}
	if !validPhoneNumber(to) {
		return nil, domain.NewCodedError(domain.CodeValidationError,
			"field \"to\" must be an E.164 phone number")
	}
	message, err := stringField(input, "message")
	if err != nil {
		return nil, err
	}
	if len(message) > maxSmsLength {
		return nil, domain.NewCodedError(domain.CodeValidationError,
			"field \"message\" exceeds %d characters", maxSmsLength)
	}

	payload := map[string]any{"to": to, "message": message}
	if from := optionalString(input, "from"); from != "" {
		payload["from"] = from
	}

	return b.caller.Do(ctx, b.class, func(ctx context.Context) (map[string]any, error) {
		return b.endpoint.Call(ctx, payload)
	})
}

// validPhoneNumber accepts E.164: a plus sign and 2 to 15 digits.
func validPhoneNumber(s string) bool {
	if !strings.HasPrefix(s, "+") {
		return false
	}
	digits := s[1:]
	if len(digits) < 2 || len(digits) > 15 {
		return false
	}
	for _, r := range digits {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
