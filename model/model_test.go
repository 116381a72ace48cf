package model_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/durable/model"
)

func TestParseFunctionIdentifier(t *testing.T) {
	var testCases = []struct {
		description string
		input       string
		expect      model.FunctionIdentifier
		expectErr   bool
	}{
		{description: "name only", input: "sales-approval", expect: model.FunctionIdentifier{Name: "sales-approval"}},
		{description: "version suffix", input: "fn:20", expect: model.FunctionIdentifier{Name: "fn", Qualifier: "20"}},
		{description: "latest", input: "fn:$LATEST", expect: model.FunctionIdentifier{Name: "fn", Qualifier: "$LATEST"}},
		{description: "arn with version", input: "arn:aws:lambda:ap-northeast-1:123456789012:function:fn:7", expect: model.FunctionIdentifier{Name: "fn", Qualifier: "7"}},
		{description: "arn without version", input: "arn:aws:lambda:us-east-1:123456789012:function:fn", expect: model.FunctionIdentifier{Name: "fn"}},
		{description: "empty", input: "", expectErr: true},
		{description: "empty qualifier", input: "fn:", expectErr: true},
		{description: "bad name", input: "fn name", expectErr: true},
		{description: "bad arn", input: "arn:aws:s3:::bucket", expectErr: true},
	}

	for _, testCase := range testCases {
		actual, err := model.ParseFunctionIdentifier(testCase.input)
		if testCase.expectErr {
			assert.Error(t, err, testCase.description)
			assert.ErrorIs(t, err, model.ErrInvalidInput, testCase.description)
			continue
		}
		if !assert.NoError(t, err, testCase.description) {
			continue
		}
		assert.EqualValues(t, testCase.expect, actual, testCase.description)
	}
}

func TestFunctionIdentifier_String(t *testing.T) {
	assert.Equal(t, "fn:20", model.FunctionIdentifier{Name: "fn", Qualifier: "20"}.String())
	assert.Equal(t, "fn", model.FunctionIdentifier{Name: "fn"}.String())
}

func TestCallbackToken_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		token       model.CallbackToken
		valid       bool
	}{
		{description: "opaque token", token: "tok-A", valid: true},
		{description: "base64 like", token: "Ab+/9z==", valid: true},
		{description: "empty", token: ""},
		{description: "whitespace", token: "tok A"},
		{description: "newline", token: "tok\n"},
		{description: "too long", token: model.CallbackToken(strings.Repeat("a", model.MaxCallbackTokenLength+1))},
	}
	for _, testCase := range testCases {
		err := testCase.token.Validate()
		if testCase.valid {
			assert.NoError(t, err, testCase.description)
			continue
		}
		assert.ErrorIs(t, err, model.ErrInvalidInput, testCase.description)
	}
}

func TestCallbackResult_Validate(t *testing.T) {
	var testCases = []struct {
		description string
		result      *model.CallbackResult
		valid       bool
	}{
		{description: "success", result: &model.CallbackResult{Token: "tok", Outcome: model.OutcomeSuccess, Payload: json.RawMessage(`{}`)}, valid: true},
		{description: "failure", result: &model.CallbackResult{Token: "tok", Outcome: model.OutcomeFailure, Failure: &model.CallbackFailure{Type: "Rejected"}}, valid: true},
		{description: "nil", result: nil},
		{description: "failure without error", result: &model.CallbackResult{Token: "tok", Outcome: model.OutcomeFailure}},
		{description: "success with error", result: &model.CallbackResult{Token: "tok", Outcome: model.OutcomeSuccess, Failure: &model.CallbackFailure{}}},
		{description: "unknown outcome", result: &model.CallbackResult{Token: "tok", Outcome: "maybe"}},
	}
	for _, testCase := range testCases {
		err := testCase.result.Validate()
		if testCase.valid {
			assert.NoError(t, err, testCase.description)
			continue
		}
		assert.ErrorIs(t, err, model.ErrInvalidInput, testCase.description)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("submit: %w", model.WrapError(model.ErrTransport, "callback", cause))
	assert.ErrorIs(t, err, model.ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.True(t, model.IsRetryable(err))
	assert.Equal(t, model.ErrTransport, model.KindOf(err))

	rejected := &model.Error{Kind: model.ErrPayloadRejected, Op: "callback", StatusCode: 400, Detail: "bad schema"}
	assert.False(t, model.IsRetryable(rejected))
	assert.Equal(t, "callback: payload rejected (status 400): bad schema", rejected.Error())
	assert.False(t, errors.Is(rejected, model.ErrConsumedOrInvalidToken))
	assert.True(t, model.IsRetryable(model.NewError(model.ErrThrottled, "start", "")))
	assert.False(t, model.IsRetryable(nil))
}

func TestInvocationRequest_Clone(t *testing.T) {
	request := &model.InvocationRequest{Function: model.FunctionIdentifier{Name: "fn"}, Payload: json.RawMessage(`{"date":"2025-01-15"}`)}
	cloned := request.Clone()
	request.Payload[2] = 'X'
	assert.Equal(t, `{"date":"2025-01-15"}`, string(cloned.Payload))
	assert.Equal(t, model.InvocationModeEvent, cloned.Mode)
	assert.True(t, cloned.Mode.IsAsync())
}
