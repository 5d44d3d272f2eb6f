package bricks

import (
	"context"
	"net/mail"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// Mail sends transactional email through the configured mail provider.
type Mail struct {
	caller   Caller
	endpoint *upstream.Endpoint
	class    string
}

func NewMail(caller Caller, endpoint *upstream.Endpoint, class string) *Mail {
	return &Mail{caller: caller, endpoint: endpoint, class: class}
}

func (b *Mail) Name() string { return "send-email" }

func (b *Mail) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	input = dispatch.NormalizeInput(input)

	to, err := stringField(input, "to")
	if err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return nil, domain.NewCodedError(domain.CodeValidationError, "field \"to\" is not a valid email address")
	}
	subject, err := stringField(input, "subject")
	if err != nil {
		return nil, err
	}
	body, err := stringField(input, "body")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	}
	if cc := optionalString(input, "cc"); cc != "" {
		if _, err := mail.ParseAddress(cc); err != nil {
			return nil, domain.NewCodedError(domain.CodeValidationError, "field \"cc\" is not a valid email address")
		}
		payload["cc"] = cc
	}

	return b.caller.Do(ctx, b.class, func(ctx context.Context) (map[string]any, error) {
		return b.endpoint.Call(ctx, payload)
	})
}
