package types

import "time"

// Event names streamed to subscribers.
const (
	EventProgress  = "progress"
	EventTrade     = "trade"
	EventResult    = "result"
	EventError     = "error"
	EventHeartbeat = "heartbeat"
	EventDone      = "done"
)

// Event is one message on a job's stream.
type Event struct {
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emittedAt"`
}

// JobKind distinguishes the work a job performs.
type JobKind string

const (
	JobKindBacktest JobKind = "backtest"
	JobKindTrain    JobKind = "train"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job describes a submitted run.
type Job struct {
	ID         string     `json:"id"`
	Kind       JobKind    `json:"kind"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}
