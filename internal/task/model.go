package task

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusFailed     Status = "Failed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task tracks one deferred creation. ResultID is set only when Completed,
// Error only when Failed.
type Task struct {
	ID        string    `json:"task_id"`
	Kind      string    `json:"kind"`
	Status    Status    `json:"status"`
	ResultID  *int      `json:"result_id,omitempty"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Complete returns the terminal Completed copy of t.
func (t Task) Complete(resultID int, at time.Time) Task {
	t.Status = StatusCompleted
	t.ResultID = &resultID
	t.Error = nil
	t.UpdatedAt = at
	return t
}

// Fail returns the terminal Failed copy of t.
func (t Task) Fail(reason string, at time.Time) Task {
	t.Status = StatusFailed
	t.ResultID = nil
	t.Error = &reason
	t.UpdatedAt = at
	return t
}

// Job is the unit handed to a Dispatcher: the task it reports to, the
// creation kind and the JSON encoded creation payload.
type Job struct {
	TaskID  string          `json:"task_id"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}
