// Package upstream talks to the external HTTP dependencies behind the bricks
// (mail, calendar, generative AI, SMS). It knows nothing about retries or
// circuits; it returns typed errors the resilience layer classifies.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Endpoint is one external dependency endpoint: JSON object in, JSON object
// out.
type Endpoint struct {
	name       string
	url        string
	httpClient *http.Client

	mu           sync.RWMutex
	successCount int
	failureCount int
	lastSuccess  time.Time
	lastFailure  time.Time
}

// Stats describes an endpoint's observed behavior.
type Stats struct {
	Successes   int
	Failures    int
	ErrorRate   float64
	LastSuccess time.Time
	LastFailure time.Time
}

// NewEndpoint creates an endpoint client. timeout bounds each single attempt;
// retries across attempts belong to the resilience layer.
func NewEndpoint(name, url string, timeout time.Duration) *Endpoint {
	return &Endpoint{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the endpoint's dependency-class name.
func (e *Endpoint) Name() string {
	return e.name
}

// Call POSTs payload as JSON and decodes the object reply. Non-2xx answers
// become a *CallError carrying the status and any provider code; transport
// failures keep their original error in the chain.
func (e *Endpoint) Call(ctx context.Context, payload map[string]any) (map[string]any, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.recordFailure()
		return nil, fmt.Errorf("call %s: %w", e.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		e.recordFailure()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		e.recordFailure()
		return nil, e.callError(resp.StatusCode, body)
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			e.recordFailure()
			return nil, fmt.Errorf("parse response: %w", err)
		}
	}

	e.recordSuccess()
	return out, nil
}

// Stats returns the endpoint's success/failure counters.
func (e *Endpoint) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Stats{
		Successes:   e.successCount,
		Failures:    e.failureCount,
		LastSuccess: e.lastSuccess,
		LastFailure: e.lastFailure,
	}
	if total := e.successCount + e.failureCount; total > 0 {
		s.ErrorRate = float64(e.failureCount) / float64(total)
	}
	return s
}

// Close releases idle connections.
func (e *Endpoint) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// callError extracts the provider's error message and code from an error
// body. Providers answer either {"error": "...", "code": "..."} or
// {"message": "..."}; anything else falls back to the raw body.
func (e *Endpoint) callError(status int, body []byte) *CallError {
	call := &CallError{
		Endpoint: e.name,
		Status:   status,
		Message:  http.StatusText(status),
	}

	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		call.Code = parsed.Code
		if parsed.Error != "" {
			call.Message = parsed.Error
		} else if parsed.Message != "" {
			call.Message = parsed.Message
		}
	} else if msg := strings.TrimSpace(string(body)); msg != "" {
		call.Message = msg
	}

	return call
}

func (e *Endpoint) recordSuccess() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.successCount++
	e.lastSuccess = time.Now()
}

func (e *Endpoint) recordFailure() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCount++
	e.lastFailure = time.Now()
}
