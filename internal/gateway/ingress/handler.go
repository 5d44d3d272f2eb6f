// Package ingress owns the HTTP surface: it reads raw requests into
// envelopes, hands them to the pipeline and writes the uniform response
// shape back out.
package ingress

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/SammyTourani/Pulse-sub001/internal/core/domain"
	"github.com/SammyTourani/Pulse-sub001/internal/gateway/pipeline"
)

// SignatureHeader carries the request's HMAC signature. A providedSignature
// body field is accepted as a fallback for older clients.
const SignatureHeader = "X-Pulse-Signature"

const maxBodyBytes = 1 << 20

// ExecutionRecorder persists the outcome of one request. Implementations
// must not block the request path.
type ExecutionRecorder interface {
	Record(ctx context.Context, ex domain.Execution)
}

type Handler struct {
	pipeline *pipeline.Pipeline
	recorder ExecutionRecorder // optional
	log      *slog.Logger
}

func NewHandler(p *pipeline.Pipeline, recorder ExecutionRecorder, log *slog.Logger) *Handler {
	return &Handler{
		pipeline: p,
		recorder: recorder,
		log:      log.With("component", "ingress"),
	}
}

// Brick handles POST /bricks/{brick}.
func (h *Handler) Brick(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	inflightRequests.Inc()
	defer inflightRequests.Dec()

	brick := r.PathValue("brick")
	requestID := uuid.NewString()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		h.finish(r.Context(), w, requestID, brick, nil,
			domain.NewCodedError(domain.CodeValidationError, "request body unreadable"), start)
		return
	}
	if len(body) > maxBodyBytes {
		h.finish(r.Context(), w, requestID, brick, nil,
			domain.NewCodedError(domain.CodeValidationError, "request body exceeds %d bytes", maxBodyBytes), start)
		return
	}

	env := buildEnvelope(requestID, brick, body, r.Header.Get(SignatureHeader))
	out, err := h.pipeline.Process(r.Context(), env)
	h.finish(r.Context(), w, requestID, brick, out, err, start)
}

// finish writes the response, bumps metrics and records the execution.
func (h *Handler) finish(ctx context.Context, w http.ResponseWriter, requestID, brick string, out map[string]any, err error, start time.Time) {
	elapsed := time.Since(start)

	code := ""
	stage := domain.StageAuthOK
	if err != nil {
		code = writeError(w, requestID, brick, err)
		stage = domain.StageForCode(code)
	} else {
		writeSuccess(w, requestID, brick, out)
	}

	requestsTotal.WithLabelValues(brick, string(stage), code).Inc()
	requestDuration.WithLabelValues(brick).Observe(elapsed.Seconds())

	if err != nil {
		h.log.Warn("request failed",
			"requestId", requestID,
			"brick", brick,
			"code", code,
			"durationMs", elapsed.Milliseconds())
	} else {
		h.log.Info("request served",
			"requestId", requestID,
			"brick", brick,
			"durationMs", elapsed.Milliseconds())
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, domain.Execution{
			RequestID:  requestID,
			Brick:      brick,
			Stage:      stage,
			OK:         err == nil,
			Code:       code,
			DurationMS: elapsed.Milliseconds(),
			CreatedAt:  start,
		})
	}
}

// buildEnvelope parses the raw body into the immutable request envelope.
// Parsing never rejects here; a body that is not a JSON object leaves Params
// nil and the validation stage turns that into VALIDATION_ERROR.
func buildEnvelope(requestID, brick string, body []byte, headerSig string) domain.RequestEnvelope {
	env := domain.RequestEnvelope{
		RequestID:         requestID,
		Brick:             brick,
		RawBody:           body,
		ProvidedSignature: headerSig,
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil || params == nil {
		return env
	}
	env.Params = params
	env.Timestamp = timestampFrom(params)

	if env.ProvidedSignature == "" {
		for _, field := range []string{"providedSignature", "signature"} {
			if sig, ok := params[field].(string); ok {
				env.ProvidedSignature = sig
				env.RawBody = bodyWithout(params, field)
				break
			}
		}
	}
	return env
}

// bodyWithout rebuilds the body minus the signature field. A signature
// carried in the body cannot cover its own bytes, so such clients sign the
// body without it; canonicalization makes the re-marshal equivalent to the
// bytes they signed.
func bodyWithout(params map[string]any, field string) []byte {
	stripped := make(map[string]any, len(params))
	for k, v := range params {
		if k == field {
			continue
		}
		stripped[k] = v
	}
	body, err := json.Marshal(stripped)
	if err != nil {
		return nil
	}
	return body
}

// timestampFrom extracts unix seconds from the body. Numbers are canonical;
// a numeric string is tolerated. Anything else reads as absent.
func timestampFrom(params map[string]any) *int64 {
	switch v := params["timestamp"].(type) {
	case json.Number:
		ts, err := v.Int64()
		if err != nil {
			return nil
		}
		return &ts
	case string:
		ts, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return &ts
	default:
		return nil
	}
}
