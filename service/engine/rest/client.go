// Package rest implements the engine HTTP protocol: a client used by the
// invoker and callback coordinator, and the shared wire types served by the
// local emulator.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/viant/durable/model"
	"github.com/viant/durable/service/codec"
	"github.com/viant/durable/service/engine"
	"github.com/viant/durable/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 30 * time.Second

// Version is sent in the User-Agent header.
var Version = "dev"

// Client talks to a remote engine over HTTP.
type Client struct {
	endpoint   string
	region     string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

var _ engine.Engine = (*Client)(nil)

// New creates a client for endpoint, e.g. https://engine.example.com/v1.
func New(endpoint string, options ...Option) (*Client, error) {
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, model.NewError(model.ErrInvalidInput, "rest", "endpoint is required")
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, model.WrapError(model.ErrInvalidInput, "rest", err)
	}
	ret := &Client{endpoint: endpoint, timeout: DefaultTimeout}
	for _, option := range options {
		if err := option(ret); err != nil {
			return nil, err
		}
	}
	if ret.httpClient == nil {
		ret.httpClient = &http.Client{Timeout: ret.timeout}
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("rest")
	}
	return ret, nil
}

// Start submits a workflow start request.
func (c *Client) Start(ctx context.Context, request *model.InvocationRequest) (*model.InvocationAck, error) {
	if request == nil {
		return nil, model.NewError(model.ErrInvalidInput, "start", "request is required")
	}
	payload, err := codec.Encode(request.Payload)
	if err != nil {
		return nil, err
	}
	mode := request.Mode
	if mode == "" {
		mode = model.InvocationModeEvent
	}
	target := c.endpoint + "/functions/" + url.PathEscape(request.Function.Name) + "/invocations"
	if request.Function.Qualifier != "" {
		target += "?" + QualifierParam + "=" + url.QueryEscape(request.Function.Qualifier)
	}
	headers := map[string]string{HeaderInvocationType: string(mode)}

	response := &InvokeResponse{}
	ctx, span := tracing.StartSpan(ctx, "engine.start", tracing.KindClient,
		attribute.String("function", request.Function.String()),
		attribute.String("invocation.mode", string(mode)))
	err = c.post(ctx, span, opStart, target, headers, &InvokeRequest{Payload: payload}, response)
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	output, err := codec.Decode(response.Output)
	if err != nil {
		return nil, err
	}
	return &model.InvocationAck{
		ExecutionID:     response.ExecutionID,
		Function:        request.Function.String(),
		ExecutedVersion: response.ExecutedVersion,
		StatusCode:      response.StatusCode,
		Output:          output,
	}, nil
}

// SubmitCallback resumes the checkpoint addressed by result.Token.
func (c *Client) SubmitCallback(ctx context.Context, result *model.CallbackResult) (*model.CallbackAck, error) {
	if err := result.Validate(); err != nil {
		return nil, err
	}
	var body interface{}
	var action string
	switch result.Outcome {
	case model.OutcomeSuccess:
		encoded, err := codec.Encode(result.Payload)
		if err != nil {
			return nil, err
		}
		action, body = "succeed", &SucceedRequest{Result: encoded}
	default:
		action, body = "fail", &FailRequest{Error: result.Failure}
	}
	target := c.endpoint + "/callbacks/" + url.PathEscape(string(result.Token)) + "/" + action

	response := &CallbackResponse{}
	ctx, span := tracing.StartSpan(ctx, "engine.callback."+action, tracing.KindClient,
		attribute.String("callback.outcome", string(result.Outcome)))
	err := c.post(ctx, span, opCallback, target, nil, body, response)
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	acknowledgedAt := response.AcknowledgedAt
	if acknowledgedAt.IsZero() {
		acknowledgedAt = time.Now()
	}
	return &model.CallbackAck{Token: result.Token, Outcome: result.Outcome, AcknowledgedAt: acknowledgedAt}, nil
}

func (c *Client) post(ctx context.Context, span *tracing.Span, op operation, target string, headers map[string]string, body, response interface{}) error {
	opName := opNames[op]
	data, err := json.Marshal(body)
	if err != nil {
		return model.WrapError(model.ErrEncoding, opName, err)
	}
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(data))
	if err != nil {
		return model.WrapError(model.ErrInvalidInput, opName, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Accept", "application/json")
	httpRequest.Header.Set("User-Agent", "durable/"+Version)
	if c.region != "" {
		httpRequest.Header.Set(HeaderRegion, c.region)
	}
	if c.token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		httpRequest.Header.Set(k, v)
	}

	started := time.Now()
	httpResponse, err := c.httpClient.Do(httpRequest)
	elapsed := time.Since(started)
	if err != nil {
		c.logger.Debug("request failed", zap.String("op", opName), zap.Duration("elapsed", elapsed), zap.Error(err))
		return model.WrapError(model.ErrTransport, opName, err)
	}
	defer func() { _ = httpResponse.Body.Close() }()
	span.SetHTTPStatus(httpResponse.StatusCode)

	payload, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return model.WrapError(model.ErrTransport, opName, err)
	}
	c.logger.Debug("request completed",
		zap.String("op", opName),
		zap.Int("status", httpResponse.StatusCode),
		zap.Duration("elapsed", elapsed))

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		errorResponse := &ErrorResponse{}
		if len(payload) > 0 {
			_ = json.Unmarshal(payload, errorResponse)
		}
		detail := errorResponse.Message
		if detail == "" {
			detail = strings.TrimSpace(string(payload))
		}
		return &model.Error{
			Kind:       kindOf(op, httpResponse.StatusCode, errorResponse.Type),
			Op:         opName,
			Detail:     detail,
			StatusCode: httpResponse.StatusCode,
		}
	}
	if len(payload) == 0 || response == nil {
		return nil
	}
	if err = json.Unmarshal(payload, response); err != nil {
		return model.WrapError(model.ErrTransport, opName, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

var opNames = map[operation]string{
	opStart:    "start",
	opCallback: "callback",
}
