package emulator

import (
	"encoding/json"
	"time"

	"github.com/viant/durable/progress"
)

// ExecutionState of a workflow instance.
type ExecutionState string

const (
	ExecutionRunning   ExecutionState = "running"
	ExecutionSucceeded ExecutionState = "succeeded"
	ExecutionFailed    ExecutionState = "failed"
)

// StepRecord is one checkpointed step.
type StepRecord struct {
	Name      string          `json:"name"`
	Attempts  int             `json:"attempts"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	StartedAt time.Time       `json:"startedAt"`
	EndedAt   time.Time       `json:"endedAt"`
}

// Execution is a started workflow instance.
type Execution struct {
	ID        string            `json:"id"`
	Function  string            `json:"function"`
	Version   string            `json:"version"`
	State     ExecutionState    `json:"state"`
	Input     json.RawMessage   `json:"input,omitempty"`
	Output    json.RawMessage   `json:"output,omitempty"`
	Error     string            `json:"error,omitempty"`
	Steps     []StepRecord      `json:"steps,omitempty"`
	Progress  progress.Counters `json:"progress"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   *time.Time        `json:"endedAt,omitempty"`
}

// IsDone reports whether the handler returned.
func (e *Execution) IsDone() bool {
	return e.State == ExecutionSucceeded || e.State == ExecutionFailed
}
