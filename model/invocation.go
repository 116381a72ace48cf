package model

import (
	"encoding/json"
	"fmt"
)

// InvocationMode selects how the engine runs a start request.
type InvocationMode string

const (
	// InvocationModeEvent queues the execution and returns without waiting.
	InvocationModeEvent InvocationMode = "Event"
	// InvocationModeRequestResponse waits for the execution to finish.
	InvocationModeRequestResponse InvocationMode = "RequestResponse"
)

// IsAsync reports whether the mode is fire-and-forget.
func (m InvocationMode) IsAsync() bool {
	return m == "" || m == InvocationModeEvent
}

// Validate checks the mode is known.
func (m InvocationMode) Validate() error {
	switch m {
	case "", InvocationModeEvent, InvocationModeRequestResponse:
		return nil
	}
	return NewError(ErrInvalidInput, "invocation", fmt.Sprintf("unsupported invocation mode %q", m))
}

// InvocationRequest is a workflow start request.
type InvocationRequest struct {
	Function FunctionIdentifier `json:"function"`
	Mode     InvocationMode     `json:"mode"`
	Payload  json.RawMessage    `json:"payload,omitempty"`
}

// Clone returns a deep copy so that a submitted request cannot be mutated.
func (r *InvocationRequest) Clone() *InvocationRequest {
	ret := *r
	if r.Payload != nil {
		ret.Payload = append(json.RawMessage(nil), r.Payload...)
	}
	if ret.Mode == "" {
		ret.Mode = InvocationModeEvent
	}
	return &ret
}

// InvocationAck acknowledges an accepted start request.
type InvocationAck struct {
	ExecutionID     string          `json:"executionId"`
	Function        string          `json:"function"`
	ExecutedVersion string          `json:"executedVersion,omitempty"`
	StatusCode      int             `json:"statusCode"`
	Output          json.RawMessage `json:"output,omitempty"`
}
