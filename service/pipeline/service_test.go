package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/durable/model"
	"github.com/viant/durable/policy"
	"github.com/viant/durable/service/emulator"
	"github.com/viant/durable/service/ledger"
	"github.com/viant/durable/service/pipeline"
	"github.com/viant/durable/service/retry"
	"github.com/viant/durable/service/sales"
	"go.uber.org/zap"
)

const date = "2025-01-15"

type recordingNotifier struct {
	mux      sync.Mutex
	requests []*pipeline.ApprovalRequest
}

func (n *recordingNotifier) Notify(_ context.Context, request *pipeline.ApprovalRequest) error {
	n.mux.Lock()
	defer n.mux.Unlock()
	n.requests = append(n.requests, request)
	return nil
}

type flakySyncer struct {
	mux      sync.Mutex
	failures int
	calls    int
	synced   int
}

func (s *flakySyncer) Sync(_ context.Context, records []*sales.ProcessedRecord) (*pipeline.SyncResult, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("accounting api unavailable")
	}
	s.synced += len(records)
	return &pipeline.SyncResult{Synced: len(records)}, nil
}

type fixture struct {
	emulator *emulator.Service
	store    *sales.Store
	notifier *recordingNotifier
	syncer   *flakySyncer
	records  []*sales.Record
}

func newFixture(t *testing.T, records, highValue int, options ...emulator.Option) *fixture {
	ctx := context.Background()
	store := sales.NewStore("mem://localhost/pipeline/"+t.Name(), afs.New())
	generated, err := sales.Generate(sales.Options{Records: records, HighValue: highValue, Date: date, Seed: 42})
	require.NoError(t, err)
	_, err = store.PutSales(ctx, date, generated)
	require.NoError(t, err)

	f := &fixture{store: store, notifier: &recordingNotifier{}, syncer: &flakySyncer{}, records: generated}
	handler := pipeline.New(store,
		pipeline.WithNotifier(f.notifier),
		pipeline.WithSyncer(f.syncer),
		pipeline.WithSyncPolicy(retry.Policy{MaxAttempts: 3}),
		pipeline.WithRateLimitWait(time.Millisecond),
		pipeline.WithLogger(zap.NewNop()))

	options = append([]emulator.Option{emulator.WithLogger(zap.NewNop())}, options...)
	f.emulator = emulator.New(options...)
	t.Cleanup(func() { _ = f.emulator.Close() })
	require.NoError(t, f.emulator.Register(pipeline.FunctionName, "1", handler.Handle))
	return f
}

func (f *fixture) start(t *testing.T, payload string) string {
	ack, err := f.emulator.Start(context.Background(), &model.InvocationRequest{
		Function: model.FunctionIdentifier{Name: pipeline.FunctionName},
		Payload:  json.RawMessage(payload),
	})
	require.NoError(t, err)
	return ack.ExecutionID
}

func (f *fixture) finish(t *testing.T, id string) (*emulator.Execution, *pipeline.Output) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	anExecution, err := f.emulator.WaitExecution(ctx, id)
	require.NoError(t, err)
	output := &pipeline.Output{}
	if anExecution.State == emulator.ExecutionSucceeded {
		require.NoError(t, json.Unmarshal(anExecution.Output, output))
	}
	return anExecution, output
}

func (f *fixture) pending(t *testing.T) *ledger.Callback {
	var pending []*ledger.Callback
	require.Eventually(t, func() bool {
		pending, _ = f.emulator.Callbacks(context.Background(), ledger.StatePending)
		return len(pending) == 1
	}, 5*time.Second, 10*time.Millisecond)
	return pending[0]
}

func highValueIDs(records []*sales.Record) []string {
	var ret []string
	for _, record := range records {
		if record.Amount >= sales.HighValueThreshold {
			ret = append(ret, record.ID)
		}
	}
	return ret
}

func TestHandle_NoHighValue(t *testing.T) {
	f := newFixture(t, 250, 0)
	anExecution, output := f.finish(t, f.start(t, `{"date":"2025-01-15"}`))
	require.Equal(t, emulator.ExecutionSucceeded, anExecution.State, anExecution.Error)
	assert.Equal(t, &pipeline.Output{
		Status:          pipeline.StatusCompleted,
		Date:            date,
		TotalRecords:    250,
		ApprovedRecords: 250,
		ReportURL:       f.store.SummaryURL(date),
	}, output)
	assert.Empty(t, f.notifier.requests)
	assert.Equal(t, 250, f.syncer.synced)

	_, err := f.store.LoadRejected(context.Background(), date)
	assert.Error(t, err)

	var stepNames []string
	for _, step := range anExecution.Steps {
		stepNames = append(stepNames, step.Name)
	}
	assert.Contains(t, stepNames, "fetch-sales-data")
	assert.Contains(t, stepNames, "process-records-2")
	assert.Contains(t, stepNames, "extract-high-value-ids")
	assert.Contains(t, stepNames, "generate-report")
	assert.NotContains(t, stepNames, "send-approval-request")
}

func TestHandle_Approval(t *testing.T) {
	f := newFixture(t, 300, 3)
	ctx := context.Background()
	id := f.start(t, `{"date":"2025-01-15"}`)
	expected := highValueIDs(f.records)
	require.Len(t, expected, 3)

	callback := f.pending(t)
	assert.Equal(t, pipeline.ApprovalCallback, callback.Name)
	require.Eventually(t, func() bool {
		f.notifier.mux.Lock()
		defer f.notifier.mux.Unlock()
		return len(f.notifier.requests) == 1
	}, 5*time.Second, 10*time.Millisecond)
	request := f.notifier.requests[0]
	assert.Equal(t, callback.ID, request.CallbackID)
	assert.Equal(t, expected, request.HighValueIDs)
	assert.Contains(t, request.Command(), "--callback-id "+callback.ID)

	_, err := f.emulator.SubmitCallback(ctx, &model.CallbackResult{
		Token:   model.CallbackToken(callback.ID),
		Outcome: model.OutcomeSuccess,
		Payload: json.RawMessage(`{"approved_ids":"all"}`),
	})
	assert.ErrorIs(t, err, model.ErrPayloadRejected)

	approvedIDs, _ := json.Marshal(map[string][]string{"approved_ids": expected[:2]})
	_, err = f.emulator.SubmitCallback(ctx, &model.CallbackResult{
		Token:   model.CallbackToken(callback.ID),
		Outcome: model.OutcomeSuccess,
		Payload: approvedIDs,
	})
	require.NoError(t, err)

	anExecution, output := f.finish(t, id)
	require.Equal(t, emulator.ExecutionSucceeded, anExecution.State, anExecution.Error)
	assert.Equal(t, 300, output.TotalRecords)
	assert.Equal(t, 299, output.ApprovedRecords)
	assert.Equal(t, 1, output.RejectedRecords)

	rejected, err := f.store.LoadRejected(ctx, date)
	require.NoError(t, err)
	require.Len(t, rejected.Records, 1)
	assert.Equal(t, expected[2], rejected.Records[0].ID)
	summary, err := f.store.LoadSummary(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 299, summary.Summary.TotalApproved)
	assert.Equal(t, rejected.TotalAmount, summary.Summary.RejectedSales)
}

func TestHandle_ApprovalFailure(t *testing.T) {
	f := newFixture(t, 100, 1)
	id := f.start(t, `{"date":"2025-01-15"}`)
	callback := f.pending(t)
	_, err := f.emulator.SubmitCallback(context.Background(), &model.CallbackResult{
		Token:   model.CallbackToken(callback.ID),
		Outcome: model.OutcomeFailure,
		Failure: &model.CallbackFailure{Type: "Rejected", Message: "audit pending"},
	})
	require.NoError(t, err)
	anExecution, _ := f.finish(t, id)
	assert.Equal(t, emulator.ExecutionFailed, anExecution.State)
	assert.Contains(t, anExecution.Error, "audit pending")
	assert.Zero(t, f.syncer.synced)
}

func TestHandle_Policy(t *testing.T) {
	var testCases = []struct {
		description    string
		mode           string
		expectApproved int
		expectRejected int
	}{
		{description: "auto approves every high value record", mode: policy.ModeAuto, expectApproved: 200},
		{description: "deny rejects every high value record", mode: policy.ModeDeny, expectApproved: 196, expectRejected: 4},
	}
	for _, testCase := range testCases {
		t.Run(testCase.mode, func(t *testing.T) {
			f := newFixture(t, 200, 4, emulator.WithPolicy(&policy.Policy{Mode: testCase.mode}))
			anExecution, output := f.finish(t, f.start(t, `{"date":"2025-01-15"}`))
			require.Equal(t, emulator.ExecutionSucceeded, anExecution.State, anExecution.Error)
			assert.Equal(t, testCase.expectApproved, output.ApprovedRecords, testCase.description)
			assert.Equal(t, testCase.expectRejected, output.RejectedRecords, testCase.description)
		})
	}
}

func TestHandle_SyncBatches(t *testing.T) {
	f := newFixture(t, 2100, 0)
	f.syncer.failures = 2
	anExecution, output := f.finish(t, f.start(t, `{"date":"2025-01-15"}`))
	require.Equal(t, emulator.ExecutionSucceeded, anExecution.State, anExecution.Error)
	assert.Equal(t, 2100, output.ApprovedRecords)
	assert.Equal(t, 2100, f.syncer.synced)
	assert.Equal(t, 5, f.syncer.calls)

	for _, step := range anExecution.Steps {
		if step.Name == "sync-to-external-api-0" {
			assert.Equal(t, 3, step.Attempts)
		}
	}
}

func TestHandle_SyncExhausted(t *testing.T) {
	f := newFixture(t, 10, 0)
	f.syncer.failures = 3
	anExecution, _ := f.finish(t, f.start(t, `{"date":"2025-01-15"}`))
	assert.Equal(t, emulator.ExecutionFailed, anExecution.State)
	assert.Contains(t, anExecution.Error, "accounting api unavailable")
}

func TestHandle_InvalidInput(t *testing.T) {
	f := newFixture(t, 10, 0)
	for _, payload := range []string{`{}`, `{"date":"15-01-2025"}`, `{"date":"2025-01-16"}`} {
		anExecution, _ := f.finish(t, f.start(t, payload))
		assert.Equal(t, emulator.ExecutionFailed, anExecution.State, payload)
	}
}

func TestValidateApproval(t *testing.T) {
	var testCases = []struct {
		payload   string
		expectErr bool
	}{
		{payload: ``},
		{payload: `{}`},
		{payload: `{"approved_ids":[]}`},
		{payload: `{"approved_ids":["00003","00005"]}`},
		{payload: `{"approved_ids":"00003"}`, expectErr: true},
		{payload: `{"approved_ids":[3]}`, expectErr: true},
		{payload: `[]`, expectErr: true},
		{payload: `{"approved_ids":`, expectErr: true},
	}
	for _, testCase := range testCases {
		err := pipeline.ValidateApproval(json.RawMessage(testCase.payload))
		assert.Equal(t, testCase.expectErr, err != nil, testCase.payload)
	}
}

func TestApprovedIDs(t *testing.T) {
	assert.Equal(t, []string{"00003", "00005"}, pipeline.ApprovedIDs(json.RawMessage(`{"approved_ids":["00003","00005"]}`)))
	assert.Empty(t, pipeline.ApprovedIDs(nil))
	assert.Empty(t, pipeline.ApprovedIDs(json.RawMessage(`{}`)))
}
