package bricks

import (
	"context"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

const maxPromptTokensCap = 8192

// Text generates text through the configured model provider. Token usage
// reported by the provider is charged against the class's daily budget.
type Text struct {
	caller   Caller
	endpoint *upstream.Endpoint
	class    string
	tokens   TokenRecorder // optional
}

func NewText(caller Caller, endpoint *upstream.Endpoint, class string, tokens TokenRecorder) *Text {
	return &Text{caller: caller, endpoint: endpoint, class: class, tokens: tokens}
}

func (b *Text) Name() string { return "generate-text" }

func (b *Text) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	input = dispatch.NormalizeInput(input)

	prompt, err := stringField(input, "prompt")
	if err != nil {
		return nil, err
	}
	maxTokens, err := int64Field(input, "maxTokens", 0)
	if err != nil {
		return nil, err
	}
	if maxTokens < 0 || maxTokens > maxPromptTokensCap {
		return nil, domain.NewCodedError(domain.CodeValidationError,
			"field \"maxTokens\" must be between 0 and %d", maxPromptTokensCap)
	}

	payload := map[string]any{"prompt": prompt}
	if maxTokens > 0 {
		payload["maxTokens"] = maxTokens
	}
	if model := optionalString(input, "model"); model != "" {
		payload["model"] = model
	}

	out, err := b.caller.Do(ctx, b.class, func(ctx context.Context) (map[string]any, error) {
		return b.endpoint.Call(ctx, payload)
	})
	if err != nil {
		return nil, err
	}

	if b.tokens != nil {
		if used, err := int64Field(out, "tokensUsed", 0); err == nil && used > 0 {
			b.tokens.RecordTokens(ctx, b.class, used)
		}
	}
	return out, nil
}
