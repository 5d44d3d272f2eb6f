package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/auth"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/dispatch"
)

const testSecret = "pipeline-test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type echoUnit struct{ calls int }

func (u *echoUnit) Name() string { return "echo" }
func (u *echoUnit) Handle(_ context.Context, input map[string]any) (map[string]any, error) {
	u.calls++
	return map[string]any{"echoed": input}, nil
}

func newPipeline(t *testing.T) (*Pipeline, *echoUnit) {
	t.Helper()
	unit := &echoUnit{}
	d := dispatch.NewDispatcher(testLogger())
	d.Register(unit, time.Second)
	return New(auth.NewVerifier(testSecret), d, testLogger()), unit
}

// signedEnvelope builds an envelope whose signature is valid for body.
func signedEnvelope(t *testing.T, brick string, body []byte) domain.RequestEnvelope {
	t.Helper()
	ts := time.Now().Unix()
	sig, err := auth.Sign(testSecret, ts, body)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	var params map[string]any
	if err := json.Unmarshal(body, &params); err != nil {
		t.Fatalf("test body is not a JSON object: %v", err)
	}
	return domain.RequestEnvelope{
		RequestID:         "req-test",
		Brick:             brick,
		Timestamp:         &ts,
		RawBody:           body,
		ProvidedSignature: sig,
		Params:            params,
	}
}

func TestProcessHappyPath(t *testing.T) {
	p, unit := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{"to":"a@b.c"}`))

	out, err := p.Process(context.Background(), env)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out == nil {
		t.Fatal("Process() returned nil result")
	}
	if unit.calls != 1 {
		t.Errorf("unit called %d times, want 1", unit.calls)
	}
}

func TestProcessMissingBrick(t *testing.T) {
	p, unit := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{}`))
	env.Brick = ""

	_, err := p.Process(context.Background(), env)
	if code := domain.CodeOf(err); code != domain.CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeValidationError)
	}
	if unit.calls != 0 {
		t.Error("unit invoked for a request that failed validation")
	}
}

func TestProcessUnparseableBody(t *testing.T) {
	p, unit := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{}`))
	env.Params = nil

	_, err := p.Process(context.Background(), env)
	if code := domain.CodeOf(err); code != domain.CodeValidationError {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeValidationError)
	}
	if unit.calls != 0 {
		t.Error("unit invoked for a request that failed validation")
	}
}

func TestProcessBadSignature(t *testing.T) {
	p, unit := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{"to":"a@b.c"}`))
	env.ProvidedSignature = "sha256=" + strings.Repeat("0", 64)

	_, err := p.Process(context.Background(), env)
	if code := domain.CodeOf(err); code != domain.CodeInvalidSignature {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeInvalidSignature)
	}
	if unit.calls != 0 {
		t.Error("unit invoked for a request that failed authentication")
	}
}

func TestProcessMissingTimestamp(t *testing.T) {
	p, unit := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{}`))
	env.Timestamp = nil

	_, err := p.Process(context.Background(), env)
	if code := domain.CodeOf(err); code != domain.CodeMissingTimestamp {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeMissingTimestamp)
	}
	if unit.calls != 0 {
		t.Error("unit invoked for a request that failed authentication")
	}
}

func TestProcessUnknownBrick(t *testing.T) {
	p, _ := newPipeline(t)
	env := signedEnvelope(t, "no-such-brick", []byte(`{}`))

	_, err := p.Process(context.Background(), env)
	if code := domain.CodeOf(err); code != domain.CodeWorkflowNotFound {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeWorkflowNotFound)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		env       domain.RequestEnvelope
		wantStage domain.Stage
	}{
		{domain.RequestEnvelope{Brick: "mail", Params: map[string]any{}}, domain.StageValidated},
		{domain.RequestEnvelope{Brick: "", Params: map[string]any{}}, domain.StageValidationError},
		{domain.RequestEnvelope{Brick: "mail", Params: nil}, domain.StageValidationError},
	}

	for _, tt := range tests {
		stage, err := Validate(tt.env)
		if stage != tt.wantStage {
			t.Errorf("Validate(brick=%q, params=%v) stage = %q, want %q",
				tt.env.Brick, tt.env.Params, stage, tt.wantStage)
		}
		if stage == domain.StageValidationError && err == nil {
			t.Error("validation_error stage returned without a cause")
		}
		if stage == domain.StageValidated && err != nil {
			t.Errorf("validated stage returned with error %v", err)
		}
	}
}

func TestRouteValidationRejectsForeignStage(t *testing.T) {
	// Stages outside the phase's domain must fail loudly, not fall through.
	for _, stage := range []domain.Stage{domain.StageReceived, domain.StageAuthOK, domain.Stage("garbage")} {
		err := routeValidation(stage, nil)
		if code := domain.CodeOf(err); code != domain.CodeInternal {
			t.Errorf("routeValidation(%q) code = %q, want %q", stage, code, domain.CodeInternal)
		}
	}
	if err := routeValidation(domain.StageValidated, nil); err != nil {
		t.Errorf("routeValidation(validated) = %v, want nil", err)
	}
}

func TestRouteAuthRejectsForeignStage(t *testing.T) {
	for _, stage := range []domain.Stage{domain.StageReceived, domain.StageValidated, domain.Stage("garbage")} {
		err := routeAuth(stage, nil)
		if code := domain.CodeOf(err); code != domain.CodeInternal {
			t.Errorf("routeAuth(%q) code = %q, want %q", stage, code, domain.CodeInternal)
		}
	}
	if err := routeAuth(domain.StageAuthOK, nil); err != nil {
		t.Errorf("routeAuth(auth_ok) = %v, want nil", err)
	}
}

func TestProcessIsIdempotentForRejections(t *testing.T) {
	p, _ := newPipeline(t)
	env := signedEnvelope(t, "echo", []byte(`{"n":1}`))
	env.ProvidedSignature = "not-even-hex"

	_, err1 := p.Process(context.Background(), env)
	_, err2 := p.Process(context.Background(), env)
	if domain.CodeOf(err1) != domain.CodeOf(err2) {
		t.Errorf("repeated Process() codes differ: %q vs %q", domain.CodeOf(err1), domain.CodeOf(err2))
	}
}
