package domain

// RequestEnvelope captures an inbound request exactly as it arrived at
// ingress. It never mutates after creation; derived values (signed payload,
// normalized input) are computed alongside, not written back.
type RequestEnvelope struct {
	RequestID string
	Brick     string
	Timestamp *int64 // unix seconds; nil when absent or non-numeric

	// RawBody holds the signed bytes: the body as received, except when the
	// signature traveled inside the body, in which case that field is
	// removed (a signature cannot cover its own bytes).
	RawBody []byte

	ProvidedSignature string
	Params            map[string]any
}
