package bricks

import (
	"context"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/upstream"
)

// Calendar creates events on the configured calendar provider.
type Calendar struct {
	caller   Caller
	endpoint *upstream.Endpoint
	class    string
}

func NewCalendar(caller Caller, endpoint *upstream.Endpoint, class string) *Calendar {
	return &Calendar{caller: caller, endpoint: endpoint, class: class}
}

func (b *Calendar) Name() string { return "create-event" }

func (b *Calendar) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	input = dispatch.NormalizeInput(input)

	title, err := stringField(input, "title")
	if err != nil {
		return nil, err
	}
	startsAt, err := timeField(input, "startsAt")
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"title":    title,
		"startsAt": startsAt.Format(time.RFC3339),
	}

	if _, ok := input["endsAt"]; ok {
		endsAt, err := timeField(input, "endsAt")
		if err != nil {
			return nil, err
		}
		if !endsAt.After(startsAt) {
			return nil, domain.NewCodedError(domain.CodeValidationError, "field \"endsAt\" must be after \"startsAt\"")
		}
		payload["endsAt"] = endsAt.Format(time.RFC3339)
	}

	attendees, err := stringListField(input, "attendees")
	if err != nil {
		return nil, err
	}
	if len(attendees) > 0 {
		payload["attendees"] = attendees
	}
	if desc := optionalString(input, "description"); desc != "" {
		payload["description"] = desc
	}

	return b.caller.Do(ctx, b.class, func(ctx context.Context) (map[string]any, error) {
		return b.endpoint.Call(ctx, payload)
	})
}

func timeField(input map[string]any, field string) (time.Time, error) {
	s, err := stringField(input, field)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, domain.NewCodedError(domain.CodeValidationError,
			"field %q must be an RFC 3339 timestamp", field)
	}
	return ts, nil
}
