package model

import "time"

// Job status constants.
const (
	JobPending  = "pending"
	JobStarted  = "started"
	JobFinished = "finished"
	JobFailed   = "failed"
)

// Job error kind constants. ErrorKindSyntax marks jobs the backend rejected
// as malformed, so callers can tell "my query is wrong" from "something broke".
const (
	ErrorKindNone     = ""
	ErrorKindSyntax   = "syntax"
	ErrorKindInternal = "internal"
)

// validJobTransitions maps each job status to the set of statuses it may
// transition to.
var validJobTransitions = map[string]map[string]bool{
	JobPending: {
		JobStarted: true,
		JobFailed:  true,
	},
	JobStarted: {
		JobFinished: true,
		JobFailed:   true,
	},
}

// ValidJobTransition reports whether transitioning from one job status to
// another is allowed.
func ValidJobTransition(from, to string) bool {
	targets, ok := validJobTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Job is an asynchronously executed unit of query work. It is created by the
// submission endpoint, mutated only by the execution engine, and observed
// (never mutated) by the polling client. ResultID is an opaque reference to a
// persisted QueryResult, set only when the job finishes successfully.
type Job struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Query        string     `json:"query"`
	DataSourceID string     `json:"data_source_id"`
	ResultID     *string    `json:"result_id,omitempty"`
	Error        string     `json:"error,omitempty"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}
