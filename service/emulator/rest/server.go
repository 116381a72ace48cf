// Package rest serves the emulator over the engine HTTP protocol.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/codec"
	"github.com/viant/durable/service/emulator"
	wire "github.com/viant/durable/service/engine/rest"
	"github.com/viant/durable/service/ledger"
	"github.com/viant/durable/tracing"
	"go.uber.org/zap"
)

// maxBodySize bounds request bodies; base64 inflates payloads by a third.
const maxBodySize = 2 << 20

// Server exposes an emulator.
type Server struct {
	http.Server
	emulator *emulator.Service
	token    string
	logger   *zap.Logger
}

// Option configures a Server.
type Option func(s *Server)

// WithToken requires a matching bearer token on every request.
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server listening on addr, e.g. ":9070".
func NewServer(addr string, service *emulator.Service, options ...Option) *Server {
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 10 * time.Second,
		},
		emulator: service,
	}
	for _, option := range options {
		option(s)
	}
	if s.logger == nil {
		s.logger = zap.L().Named("emulator.rest")
	}

	router := mux.NewRouter().UseEncodedPath()
	router.HandleFunc("/functions/{name}/invocations", s.HandleInvoke).Methods(http.MethodPost)
	router.HandleFunc("/callbacks/{id}/succeed", s.HandleSucceed).Methods(http.MethodPost)
	router.HandleFunc("/callbacks/{id}/fail", s.HandleFail).Methods(http.MethodPost)
	router.HandleFunc("/callbacks", s.HandleListCallbacks).Methods(http.MethodGet)
	router.HandleFunc("/executions/{id}", s.HandleGetExecution).Methods(http.MethodGet)
	router.Use(s.loggingMiddleware, s.authMiddleware)
	s.Handler = router
	return s
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting emulator http server", zap.String("addr", s.Addr))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	s.logger.Info("stopping emulator http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// HandleInvoke starts a workflow.
func (s *Server) HandleInvoke(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.StartSpan(r.Context(), "emulator.invoke", tracing.KindServer)
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	name, err := pathVar(r, "name")
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	request := &wire.InvokeRequest{}
	if err = decodeBody(r, request); err != nil {
		s.respondWithError(w, err)
		return
	}
	payload, err := codec.Decode(request.Payload)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	invocation := &model.InvocationRequest{
		Function: model.FunctionIdentifier{Name: name, Qualifier: r.URL.Query().Get(wire.QualifierParam)},
		Mode:     model.InvocationMode(r.Header.Get(wire.HeaderInvocationType)),
		Payload:  payload,
	}
	if err = invocation.Function.Validate(); err != nil {
		s.respondWithError(w, err)
		return
	}
	ack, err := s.emulator.Start(ctx, invocation)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	output, err := codec.Encode(ack.Output)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	w.Header().Set(wire.HeaderExecutedVer, ack.ExecutedVersion)
	respondWithJSON(w, ack.StatusCode, &wire.InvokeResponse{
		ExecutionID:     ack.ExecutionID,
		ExecutedVersion: ack.ExecutedVersion,
		StatusCode:      ack.StatusCode,
		Output:          output,
	})
}

// HandleSucceed resumes a callback with a result.
func (s *Server) HandleSucceed(w http.ResponseWriter, r *http.Request) {
	request := &wire.SucceedRequest{}
	s.handleCallback(w, r, request, func(token model.CallbackToken) (*model.CallbackResult, error) {
		payload, err := codec.Decode(request.Result)
		if err != nil {
			return nil, err
		}
		return &model.CallbackResult{Token: token, Outcome: model.OutcomeSuccess, Payload: payload}, nil
	})
}

// HandleFail resumes a callback with an error.
func (s *Server) HandleFail(w http.ResponseWriter, r *http.Request) {
	request := &wire.FailRequest{}
	s.handleCallback(w, r, request, func(token model.CallbackToken) (*model.CallbackResult, error) {
		return &model.CallbackResult{Token: token, Outcome: model.OutcomeFailure, Failure: request.Error}, nil
	})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request, body interface{}, build func(token model.CallbackToken) (*model.CallbackResult, error)) {
	ctx, span := tracing.StartSpan(r.Context(), "emulator.callback", tracing.KindServer)
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	id, err := pathVar(r, "id")
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	if err = decodeBody(r, body); err != nil {
		s.respondWithError(w, err)
		return
	}
	result, err := build(model.CallbackToken(id))
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	ack, err := s.emulator.SubmitCallback(ctx, result)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, &wire.CallbackResponse{AcknowledgedAt: ack.AcknowledgedAt})
}

// HandleListCallbacks lists callbacks, optionally filtered by ?state=.
func (s *Server) HandleListCallbacks(w http.ResponseWriter, r *http.Request) {
	var states []ledger.State
	for _, value := range r.URL.Query()["state"] {
		for _, state := range strings.Split(value, ",") {
			if state = strings.TrimSpace(state); state != "" {
				states = append(states, ledger.State(state))
			}
		}
	}
	callbacks, err := s.emulator.Callbacks(r.Context(), states...)
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	if callbacks == nil {
		callbacks = []*ledger.Callback{}
	}
	respondWithJSON(w, http.StatusOK, callbacks)
}

// HandleGetExecution returns an execution view.
func (s *Server) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := pathVar(r, "id")
	if err != nil {
		s.respondWithError(w, err)
		return
	}
	anExecution, err := s.emulator.Execution(r.Context(), id)
	if err != nil {
		respondWithJSON(w, http.StatusNotFound, &wire.ErrorResponse{Type: "ExecutionNotFound", Message: err.Error()})
		return
	}
	respondWithJSON(w, http.StatusOK, anExecution)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("elapsed", time.Since(started)))
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			respondWithJSON(w, http.StatusUnauthorized, &wire.ErrorResponse{Type: wire.ErrorTypeService, Message: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func pathVar(r *http.Request, name string) (string, error) {
	value, err := url.PathUnescape(mux.Vars(r)[name])
	if err != nil || value == "" {
		return "", model.NewError(model.ErrInvalidInput, "http", "invalid "+name)
	}
	return value, nil
}

func decodeBody(r *http.Request, target interface{}) error {
	defer func() { _ = r.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return model.WrapError(model.ErrInvalidInput, "http", err)
	}
	if len(data) > maxBodySize {
		return model.NewError(model.ErrPayloadTooLarge, "http", "request body is too large")
	}
	if len(data) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, target); err != nil {
		return model.WrapError(model.ErrInvalidInput, "http", err)
	}
	return nil
}

func (s *Server) respondWithError(w http.ResponseWriter, err error) {
	errorType, status := wire.ErrorType(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	respondWithJSON(w, status, &wire.ErrorResponse{Type: errorType, Message: err.Error()})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
