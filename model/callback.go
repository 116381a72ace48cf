package model

import (
	"encoding/json"
	"fmt"
	"time"
	"unicode"
)

// MaxCallbackTokenLength bounds the size of a callback token.
const MaxCallbackTokenLength = 2048

// CallbackToken identifies one suspended checkpoint of one workflow instance.
// Its content is opaque; only syntax is checked locally.
type CallbackToken string

// Validate performs syntactic checks only: the engine alone knows whether a
// token is live.
func (t CallbackToken) Validate() error {
	if t == "" {
		return NewError(ErrInvalidInput, "callback", "callback token is required")
	}
	if len(t) > MaxCallbackTokenLength {
		return NewError(ErrInvalidInput, "callback", fmt.Sprintf("callback token exceeds %d bytes", MaxCallbackTokenLength))
	}
	for _, r := range string(t) {
		if unicode.IsSpace(r) || unicode.IsControl(r) || r == unicode.ReplacementChar {
			return NewError(ErrInvalidInput, "callback", "callback token contains whitespace or control characters")
		}
	}
	return nil
}

// Outcome of a callback submission.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Validate checks the outcome is known.
func (o Outcome) Validate() error {
	switch o {
	case OutcomeSuccess, OutcomeFailure:
		return nil
	}
	return NewError(ErrInvalidInput, "callback", fmt.Sprintf("unsupported outcome %q", o))
}

// CallbackFailure describes why a checkpoint is resumed with failure. It also
// implements error so that a waiting workflow step can return it as is.
type CallbackFailure struct {
	Type    string `json:"errorType,omitempty"`
	Message string `json:"errorMessage,omitempty"`
	Data    string `json:"errorData,omitempty"`
}

func (f *CallbackFailure) Error() string {
	switch {
	case f.Type != "" && f.Message != "":
		return f.Type + ": " + f.Message
	case f.Message != "":
		return f.Message
	case f.Type != "":
		return f.Type
	}
	return "callback failed"
}

// CallbackResult is a decision keyed by a callback token.
type CallbackResult struct {
	Token   CallbackToken    `json:"token"`
	Outcome Outcome          `json:"outcome"`
	Payload json.RawMessage  `json:"payload,omitempty"`
	Failure *CallbackFailure `json:"failure,omitempty"`
}

// Validate checks the token syntax and the outcome/result shape.
func (r *CallbackResult) Validate() error {
	if r == nil {
		return NewError(ErrInvalidInput, "callback", "callback result is required")
	}
	if err := r.Token.Validate(); err != nil {
		return err
	}
	if err := r.Outcome.Validate(); err != nil {
		return err
	}
	switch r.Outcome {
	case OutcomeSuccess:
		if r.Failure != nil {
			return NewError(ErrInvalidInput, "callback", "success outcome cannot carry a failure")
		}
	case OutcomeFailure:
		if r.Failure == nil {
			return NewError(ErrInvalidInput, "callback", "failure outcome requires an error description")
		}
		if len(r.Payload) > 0 {
			return NewError(ErrInvalidInput, "callback", "failure outcome cannot carry a result payload")
		}
	}
	return nil
}

// CallbackAck acknowledges a consumed callback token. It does not carry the
// downstream workflow outcome.
type CallbackAck struct {
	Token          CallbackToken `json:"token"`
	Outcome        Outcome       `json:"outcome"`
	AcknowledgedAt time.Time     `json:"acknowledgedAt"`
}
