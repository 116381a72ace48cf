package rest

import (
	"net/http"
	"time"

	"github.com/viant/durable/model"
)

// Header and path constants of the engine HTTP protocol.
const (
	HeaderInvocationType = "X-Invocation-Type"
	HeaderRegion         = "X-Region"
	HeaderExecutedVer    = "X-Executed-Version"

	QualifierParam = "qualifier"
)

// Error types carried in ErrorResponse.Type.
const (
	ErrorTypeFunctionNotFound = "FunctionNotFound"
	ErrorTypeCallbackInvalid  = "CallbackConsumedOrInvalid"
	ErrorTypePayloadRejected  = "PayloadRejected"
	ErrorTypePayloadTooLarge  = "PayloadTooLarge"
	ErrorTypeThrottled        = "Throttled"
	ErrorTypeInvalidRequest   = "InvalidRequest"
	ErrorTypeEncoding         = "EncodingError"
	ErrorTypeService          = "ServiceError"
)

// InvokeRequest is the body of POST /functions/{name}/invocations.
type InvokeRequest struct {
	Payload string `json:"payload,omitempty"`
}

// InvokeResponse is returned by an accepted invocation.
type InvokeResponse struct {
	ExecutionID     string `json:"executionId"`
	ExecutedVersion string `json:"executedVersion,omitempty"`
	StatusCode      int    `json:"statusCode"`
	Output          string `json:"output,omitempty"`
}

// SucceedRequest is the body of POST /callbacks/{id}/succeed.
type SucceedRequest struct {
	Result string `json:"result,omitempty"`
}

// FailRequest is the body of POST /callbacks/{id}/fail.
type FailRequest struct {
	Error *model.CallbackFailure `json:"error"`
}

// CallbackResponse acknowledges a consumed callback.
type CallbackResponse struct {
	AcknowledgedAt time.Time `json:"acknowledgedAt"`
}

// ErrorResponse is returned with any non 2xx status.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrorType returns the wire error type and status code for err.
func ErrorType(err error) (string, int) {
	switch model.KindOf(err) {
	case model.ErrFunctionNotFound:
		return ErrorTypeFunctionNotFound, http.StatusNotFound
	case model.ErrConsumedOrInvalidToken:
		return ErrorTypeCallbackInvalid, http.StatusGone
	case model.ErrPayloadRejected:
		return ErrorTypePayloadRejected, http.StatusBadRequest
	case model.ErrPayloadTooLarge:
		return ErrorTypePayloadTooLarge, http.StatusRequestEntityTooLarge
	case model.ErrThrottled:
		return ErrorTypeThrottled, http.StatusTooManyRequests
	case model.ErrInvalidInput:
		return ErrorTypeInvalidRequest, http.StatusBadRequest
	case model.ErrEncoding:
		return ErrorTypeEncoding, http.StatusBadRequest
	}
	return ErrorTypeService, http.StatusInternalServerError
}

type operation int

const (
	opStart operation = iota
	opCallback
)

// kindOf maps a failed response onto an error kind. The wire error type takes
// precedence over the status code.
func kindOf(op operation, statusCode int, errorType string) error {
	switch errorType {
	case ErrorTypeFunctionNotFound:
		return model.ErrFunctionNotFound
	case ErrorTypeCallbackInvalid:
		return model.ErrConsumedOrInvalidToken
	case ErrorTypePayloadRejected:
		return model.ErrPayloadRejected
	case ErrorTypePayloadTooLarge:
		return model.ErrPayloadTooLarge
	case ErrorTypeThrottled:
		return model.ErrThrottled
	case ErrorTypeEncoding:
		return model.ErrEncoding
	case ErrorTypeInvalidRequest:
		if op == opCallback {
			return model.ErrPayloadRejected
		}
		return model.ErrInvalidInput
	}
	switch statusCode {
	case http.StatusNotFound:
		if op == opStart {
			return model.ErrFunctionNotFound
		}
		return model.ErrConsumedOrInvalidToken
	case http.StatusConflict, http.StatusGone:
		if op == opCallback {
			return model.ErrConsumedOrInvalidToken
		}
		return model.ErrInvalidInput
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return model.ErrPayloadRejected
	case http.StatusRequestEntityTooLarge:
		return model.ErrPayloadTooLarge
	case http.StatusTooManyRequests:
		return model.ErrThrottled
	}
	return model.ErrTransport
}
