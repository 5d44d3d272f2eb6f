package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type funcUnit struct {
	name string
	fn   func(ctx context.Context, input map[string]any) (map[string]any, error)
}

func (u funcUnit) Name() string { return u.name }
func (u funcUnit) Handle(ctx context.Context, input map[string]any) (map[string]any, error) {
	return u.fn(ctx, input)
}

func TestDispatchUnknownBrick(t *testing.T) {
	d := NewDispatcher(testLogger())

	_, err := d.Dispatch(context.Background(), "req-1", "no-such-brick", map[string]any{})
	if err == nil {
		t.Fatal("Dispatch() with unknown brick returned nil error")
	}
	if code := domain.CodeOf(err); code != domain.CodeWorkflowNotFound {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeWorkflowNotFound)
	}
}

func TestDispatchPassesFlattenedInput(t *testing.T) {
	var seen map[string]any
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "echo", fn: func(_ context.Context, input map[string]any) (map[string]any, error) {
		seen = input
		return map[string]any{"ok": true}, nil
	}}, 0)

	input := map[string]any{
		"timestamp":         int64(1700000000),
		"providedSignature": "sha256=abc",
		"params":            map[string]any{"to": "a@b.c", "subject": "hi"},
	}
	if _, err := d.Dispatch(context.Background(), "req-1", "echo", input); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("unit saw %d fields, want 2: %v", len(seen), seen)
	}
	if seen["to"] != "a@b.c" || seen["subject"] != "hi" {
		t.Errorf("unit saw %v, want flattened params", seen)
	}
}

func TestDispatchReturnsUnitError(t *testing.T) {
	want := domain.NewCodedError(domain.CodeUpstreamError, "mail provider down")
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "mail", fn: func(context.Context, map[string]any) (map[string]any, error) {
		return nil, want
	}}, 0)

	_, err := d.Dispatch(context.Background(), "req-1", "mail", map[string]any{})
	if !errors.Is(err, want) {
		t.Errorf("Dispatch() error = %v, want %v", err, want)
	}
}

func TestDispatchTimeout(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "slow", fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return map[string]any{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}, 20*time.Millisecond)

	start := time.Now()
	_, err := d.Dispatch(context.Background(), "req-1", "slow", map[string]any{})
	elapsed := time.Since(start)

	if code := domain.CodeOf(err); code != domain.CodeDispatchTimeout {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeDispatchTimeout)
	}
	if elapsed > 200*time.Millisecond {
		t.Errorf("Dispatch() returned after %v, want prompt timeout", elapsed)
	}
}

func TestDispatchTimeoutDoesNotWaitForStuckUnit(t *testing.T) {
	// A unit that ignores its context entirely must not hold up the caller.
	release := make(chan struct{})
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "stuck", fn: func(context.Context, map[string]any) (map[string]any, error) {
		<-release
		return map[string]any{}, nil
	}}, 20*time.Millisecond)

	_, err := d.Dispatch(context.Background(), "req-1", "stuck", map[string]any{})
	close(release)

	if code := domain.CodeOf(err); code != domain.CodeDispatchTimeout {
		t.Errorf("CodeOf(err) = %q, want %q", code, domain.CodeDispatchTimeout)
	}
}

func TestDispatchParentCancelIsNotTimeout(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "slow", fn: func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := d.Dispatch(ctx, "req-1", "slow", map[string]any{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Dispatch() error = %v, want context.Canceled", err)
	}
	if code := domain.CodeOf(err); code == domain.CodeDispatchTimeout {
		t.Error("parent cancellation reported as DISPATCH_TIMEOUT")
	}
}

func TestRegisterZeroTimeoutUsesDefault(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "mail", fn: nil}, 0)

	d.mu.RLock()
	got := d.entries["mail"].timeout
	d.mu.RUnlock()
	if got != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", got, DefaultTimeout)
	}
}

func TestBricks(t *testing.T) {
	d := NewDispatcher(testLogger())
	d.Register(funcUnit{name: "mail", fn: nil}, 0)
	d.Register(funcUnit{name: "sms", fn: nil}, 0)

	names := d.Bricks()
	if len(names) != 2 {
		t.Fatalf("Bricks() returned %d names, want 2", len(names))
	}
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["mail"] || !found["sms"] {
		t.Errorf("Bricks() = %v, want mail and sms", names)
	}
}
