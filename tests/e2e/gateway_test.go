package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SammyTourani/Pulse-sub001/internal/control"
	"github.com/SammyTourani/Pulse-sub001/internal/core/config"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/auth"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/ingress"
	"github.com/SammyTourani/Pulse-sub001/internal/infra/resilience"
)

const testSecret = "e2e-shared-secret"

type envelope struct {
	OK        bool           `json:"ok"`
	Brick     string         `json:"brick"`
	Timestamp string         `json:"timestamp"`
	RequestID string         `json:"requestId"`
	Data      map[string]any `json:"data"`
	Error     string         `json:"error"`
	Code      string         `json:"code"`
}

// provider is a stub dependency that records every payload it receives.
type provider struct {
	srv *httptest.Server

	mu       sync.Mutex
	payloads []map[string]any
	status   int
	response string
}

func newProvider(t *testing.T, status int, response string) *provider {
	t.Helper()
	p := &provider{status: status, response: response}
	p.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Provider received unparseable payload: %v", err)
		}
		p.mu.Lock()
		p.payloads = append(p.payloads, payload)
		p.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(p.status)
		_, _ = w.Write([]byte(p.response))
	}))
	t.Cleanup(p.srv.Close)
	return p
}

func (p *provider) hits() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

func (p *provider) lastPayload() map[string]any {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.payloads) == 0 {
		return nil
	}
	return p.payloads[len(p.payloads)-1]
}

// startGateway boots a full gateway on an ephemeral port with in-memory
// storage and returns its base URL.
func startGateway(t *testing.T, cfg control.Config) string {
	t.Helper()

	gw, err := control.NewGateway(cfg)
	if err != nil {
		t.Fatalf("Failed to create gateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := gw.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Failed to start gateway: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		if err := gw.Stop(stopCtx); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
		cancel()
	})

	return "http://" + gw.Addr()
}

func sigFor(t *testing.T, timestamp int64, body []byte) string {
	t.Helper()
	sig, err := auth.Sign(testSecret, timestamp, body)
	if err != nil {
		t.Fatalf("Failed to sign request: %v", err)
	}
	return sig
}

func postBrick(t *testing.T, base, brick string, body []byte, signature string) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, base+"/bricks/"+brick, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(ingress.SignatureHeader, signature)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response envelope: %v", err)
	}
	return resp.StatusCode, env
}

func marshalBody(t *testing.T, body map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}
	return raw
}

func TestSignedRequestRoutesToBrick(t *testing.T) {
	mail := newProvider(t, http.StatusOK, `{"messageId": "msg-42"}`)

	base := startGateway(t, control.Config{
		Port:   0,
		Secret: testSecret,
		Bricks: []config.BrickConfig{
			{Name: "send-email", Dependency: "mail-api", URL: mail.srv.URL, Timeout: 5 * time.Second},
		},
		Resilience: resilience.DefaultConfig,
	})

	now := time.Now().Unix()
	body := marshalBody(t, map[string]any{
		"timestamp": now,
		"to":        "ops@example.com",
		"subject":   "deploy finished",
		"body":      "all green",
	})
	sig := sigFor(t, now, body)

	status, env := postBrick(t, base, "send-email", body, sig)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d (code %s: %s)", status, env.Code, env.Error)
	}
	if !env.OK {
		t.Errorf("Expected ok=true, got false (code %s)", env.Code)
	}
	if env.Brick != "send-email" {
		t.Errorf("Expected brick send-email, got %q", env.Brick)
	}
	if env.RequestID == "" {
		t.Error("Expected an ingress-assigned requestId")
	}
	if env.Data["messageId"] != "msg-42" {
		t.Errorf("Expected provider result in data, got %v", env.Data)
	}

	payload := mail.lastPayload()
	if payload == nil {
		t.Fatal("Provider was never called")
	}
	if payload["to"] != "ops@example.com" {
		t.Errorf("Expected provider payload to carry the recipient, got %v", payload)
	}
	if _, ok := payload["timestamp"]; ok {
		t.Errorf("Transport fields must not reach the provider, got %v", payload)
	}

	// Verification is pure: the same signed request is accepted again.
	status, env = postBrick(t, base, "send-email", body, sig)
	if status != http.StatusOK || !env.OK {
		t.Errorf("Expected replayed request to succeed, got %d (code %s)", status, env.Code)
	}
}

func TestGatewayRejections(t *testing.T) {
	mail := newProvider(t, http.StatusOK, `{"messageId": "msg-1"}`)

	base := startGateway(t, control.Config{
		Port:   0,
		Secret: testSecret,
		Bricks: []config.BrickConfig{
			{Name: "send-email", Dependency: "mail-api", URL: mail.srv.URL, Timeout: 5 * time.Second},
		},
		Resilience: resilience.DefaultConfig,
	})

	now := time.Now().Unix()
	fields := func(ts any) map[string]any {
		m := map[string]any{
			"to":      "ops@example.com",
			"subject": "s",
			"body":    "b",
		}
		if ts != nil {
			m["timestamp"] = ts
		}
		return m
	}

	tests := []struct {
		name       string
		brick      string
		body       map[string]any
		signature  func(body []byte) string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing timestamp",
			brick:      "send-email",
			body:       fields(nil),
			signature:  func(body []byte) string { return sigFor(t, now, body) },
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_TIMESTAMP",
		},
		{
			name:       "stale timestamp",
			brick:      "send-email",
			body:       fields(now - 400),
			signature:  func(body []byte) string { return sigFor(t, now-400, body) },
			wantStatus: http.StatusUnauthorized,
			wantCode:   "TIMESTAMP_SKEW",
		},
		{
			name:       "wrong signature",
			brick:      "send-email",
			body:       fields(now),
			signature:  func([]byte) string { return sigFor(t, now, []byte(`{"other":"payload"}`)) },
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_SIGNATURE",
		},
		{
			name:       "truncated signature",
			brick:      "send-email",
			body:       fields(now),
			signature:  func([]byte) string { return "d1e8a70b5ccab1dc2f56bbf7e99f064a" },
			wantStatus: http.StatusUnauthorized,
			wantCode:   "INVALID_SIGNATURE",
		},
		{
			name:       "unknown brick",
			brick:      "mint-nft",
			body:       fields(now),
			signature:  func(body []byte) string { return sigFor(t, now, body) },
			wantStatus: http.StatusNotFound,
			wantCode:   "WORKFLOW_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := marshalBody(t, tt.body)
			status, env := postBrick(t, base, tt.brick, body, tt.signature(body))
			if status != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, status)
			}
			if env.OK {
				t.Error("Expected ok=false")
			}
			if env.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s (%s)", tt.wantCode, env.Code, env.Error)
			}
		})
	}

	if mail.hits() != 0 {
		t.Errorf("Rejected requests must never reach the provider, got %d calls", mail.hits())
	}
}

func TestCircuitOpensAfterRepeatedFailures(t *testing.T) {
	flaky := newProvider(t, http.StatusInternalServerError, `{"error": "boom"}`)

	base := startGateway(t, control.Config{
		Port:   0,
		Secret: testSecret,
		Bricks: []config.BrickConfig{
			{Name: "send-sms", Dependency: "sms-api", URL: flaky.srv.URL, Timeout: 5 * time.Second},
		},
		Resilience: resilience.Config{
			MaxRetries:       0,
			BreakerThreshold: 2,
			BreakerCooldown:  time.Hour,
		},
	})

	send := func() (int, envelope) {
		now := time.Now().Unix()
		body := marshalBody(t, map[string]any{
			"timestamp": now,
			"to":        "+15550100",
			"message":   "hello",
		})
		return postBrick(t, base, "send-sms", body, sigFor(t, now, body))
	}

	for i := 0; i < 2; i++ {
		status, env := send()
		if status != http.StatusBadGateway || env.Code != "UPSTREAM_ERROR" {
			t.Fatalf("Call %d: expected 502 UPSTREAM_ERROR, got %d %s", i+1, status, env.Code)
		}
	}

	status, env := send()
	if status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503 once the circuit opened, got %d", status)
	}
	if env.Code != "CIRCUIT_OPEN" {
		t.Errorf("Expected code CIRCUIT_OPEN, got %s (%s)", env.Code, env.Error)
	}
	if flaky.hits() != 2 {
		t.Errorf("Open circuit must not call the provider, got %d calls", flaky.hits())
	}
}

func TestDailyQuotaExhausts(t *testing.T) {
	mail := newProvider(t, http.StatusOK, `{"messageId": "msg-1"}`)

	base := startGateway(t, control.Config{
		Port:   0,
		Secret: testSecret,
		Bricks: []config.BrickConfig{
			{Name: "send-email", Dependency: "mail-api", URL: mail.srv.URL, Timeout: 5 * time.Second, DailyQuota: 1},
		},
		Resilience: resilience.DefaultConfig,
	})

	send := func() (int, envelope) {
		now := time.Now().Unix()
		body := marshalBody(t, map[string]any{
			"timestamp": now,
			"to":        "ops@example.com",
			"subject":   "s",
			"body":      "b",
		})
		return postBrick(t, base, "send-email", body, sigFor(t, now, body))
	}

	if status, env := send(); status != http.StatusOK || !env.OK {
		t.Fatalf("Expected first call to succeed, got %d %s", status, env.Code)
	}

	status, env := send()
	if status != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 once the quota is spent, got %d", status)
	}
	if env.Code != "RATE_LIMITED" {
		t.Errorf("Expected code RATE_LIMITED, got %s (%s)", env.Code, env.Error)
	}
	if mail.hits() != 1 {
		t.Errorf("Expected exactly one provider call, got %d", mail.hits())
	}
}

func TestHealthReportsRegisteredCircuits(t *testing.T) {
	mail := newProvider(t, http.StatusOK, `{"messageId": "msg-1"}`)

	base := startGateway(t, control.Config{
		Port:   0,
		Secret: testSecret,
		Bricks: []config.BrickConfig{
			{Name: "send-email", Dependency: "mail-api", URL: mail.srv.URL, Timeout: 5 * time.Second},
		},
		Resilience: resilience.DefaultConfig,
	})

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("Health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200 from /health, got %d", resp.StatusCode)
	}
	var status map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if status["status"] != "healthy" {
		t.Errorf("Expected healthy gateway, got %q", status["status"])
	}
}
