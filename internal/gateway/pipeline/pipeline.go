// Package pipeline drives a request through its stages: validation first,
// then signature authentication, then dispatch. Each phase routes on the
// stage produced by the previous one with an exhaustive switch over the
// closed stage set, so a request can never skip authentication or fall
// through a transition silently.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/auth"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
)

type Pipeline struct {
	verifier   *auth.Verifier
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

func New(verifier *auth.Verifier, dispatcher *dispatch.Dispatcher, log *slog.Logger) *Pipeline {
	return &Pipeline{
		verifier:   verifier,
		dispatcher: dispatcher,
		log:        log.With("component", "pipeline"),
	}
}

// Process takes an envelope from ingress to a brick result. Every error it
// returns carries a stable code; the caller maps that to the response shape.
func (p *Pipeline) Process(ctx context.Context, env domain.RequestEnvelope) (map[string]any, error) {
	stage, cause := Validate(env)
	if err := routeValidation(stage, cause); err != nil {
		p.log.Warn("request rejected",
			"requestId", env.RequestID,
			"brick", env.Brick,
			"stage", stage,
			"code", domain.CodeOf(err))
		return nil, err
	}

	stage, cause = p.verifier.Verify(env)
	if err := routeAuth(stage, cause); err != nil {
		p.log.Warn("request rejected",
			"requestId", env.RequestID,
			"brick", env.Brick,
			"stage", stage,
			"code", domain.CodeOf(err))
		return nil, err
	}

	return p.dispatcher.Dispatch(ctx, env.RequestID, env.Brick, env.Params)
}

// Validate is the first stage: the request must name a brick and carry a
// JSON object body. Ingress leaves Params nil when the body did not parse
// as an object, so the check here is on the envelope alone.
func Validate(env domain.RequestEnvelope) (domain.Stage, error) {
	if env.Brick == "" {
		return domain.StageValidationError,
			domain.NewCodedError(domain.CodeValidationError, "brick name is required")
	}
	if env.Params == nil {
		return domain.StageValidationError,
			domain.NewCodedError(domain.CodeValidationError, "request body must be a JSON object")
	}
	return domain.StageValidated, nil
}

// routeValidation is phase one of the stage machine. Every stage value has
// exactly one outgoing edge; a value outside the phase's domain is an
// internal defect and fails the request loudly.
func routeValidation(stage domain.Stage, cause error) error {
	switch stage {
	case domain.StageValidated:
		return nil
	case domain.StageValidationError:
		if cause == nil {
			return domain.NewCodedError(domain.CodeValidationError, "invalid request")
		}
		return cause
	default:
		return domain.NewCodedError(domain.CodeInternal, "unrecognized validation stage %q", stage)
	}
}

// routeAuth is phase two, reachable only after a validated stage.
func routeAuth(stage domain.Stage, cause error) error {
	switch stage {
	case domain.StageAuthOK:
		return nil
	case domain.StageAuthError:
		if cause == nil {
			return domain.NewCodedError(domain.CodeAuthFailed, "authentication failed")
		}
		return cause
	default:
		return domain.NewCodedError(domain.CodeInternal, "unrecognized auth stage %q", stage)
	}
}
