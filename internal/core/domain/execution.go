package domain

import "time"

// Execution is one processed request as recorded in the execution log.
type Execution struct {
	RequestID  string
	Brick      string
	Stage      Stage
	OK         bool
	Code       string
	DurationMS int64
	CreatedAt  time.Time
}

// ExecutionSummary aggregates the execution log per brick for the status CLI
// and the detailed health view.
type ExecutionSummary struct {
	Brick    string
	Total    int64
	Failed   int64
	LastSeen time.Time
}
