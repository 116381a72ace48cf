// Package pipeline implements the daily sales approval workflow: fetch the
// sales of a date, process them in parallel batches, hold high value records
// for human approval through a callback, sync approved records and store the
// reports.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/viant/durable/model"
	"github.com/viant/durable/service/retry"
	"github.com/viant/durable/service/sales"
	"github.com/viant/durable/service/workflow"
	"go.uber.org/zap"
)

const (
	// FunctionName is the name the pipeline is registered under.
	FunctionName = "sales-approval"
	// ApprovalCallback names the approval checkpoint.
	ApprovalCallback = "high-value-transaction-approval"

	BatchSize       = 100
	MaxConcurrency  = 10
	APIBatchSize    = 1000
	RateLimitWait   = 10 * time.Second
	ApprovalTimeout = 3 * 24 * time.Hour

	StatusCompleted = "completed"
)

// SyncPolicy retries a sync batch up to 5 times, backing off 5s, 10s, 20s,
// 40s and at most 60s.
func SyncPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 5, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, Multiplier: 2}
}

// Input is the workflow payload.
type Input struct {
	Date string `json:"date"`
}

// Output is the workflow result.
type Output struct {
	Status          string `json:"status"`
	Date            string `json:"date"`
	TotalRecords    int    `json:"total_records"`
	ApprovedRecords int    `json:"approved_records"`
	RejectedRecords int    `json:"rejected_records"`
	ReportURL       string `json:"report_url"`
}

// Report locates the stored reports.
type Report struct {
	SummaryURL  string `json:"summary_url"`
	RejectedURL string `json:"rejected_url,omitempty"`
}

// Service runs the pipeline.
type Service struct {
	store           *sales.Store
	notifier        Notifier
	syncer          Syncer
	threshold       int
	syncPolicy      retry.Policy
	rateLimitWait   time.Duration
	approvalTimeout time.Duration
	logger          *zap.Logger
}

// New creates a pipeline reading and writing through store.
func New(store *sales.Store, options ...Option) *Service {
	ret := &Service{
		store:           store,
		threshold:       sales.HighValueThreshold,
		syncPolicy:      SyncPolicy(),
		rateLimitWait:   RateLimitWait,
		approvalTimeout: ApprovalTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	if ret.logger == nil {
		ret.logger = zap.L().Named("pipeline")
	}
	if ret.notifier == nil {
		ret.notifier = &LogNotifier{Logger: ret.logger}
	}
	if ret.syncer == nil {
		ret.syncer = &LogSyncer{Logger: ret.logger}
	}
	return ret
}

// Handle is the workflow handler.
func (s *Service) Handle(ctx workflow.Context, payload json.RawMessage) (interface{}, error) {
	input := &Input{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, input); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}
	if err := sales.ValidateDate(input.Date); err != nil {
		return nil, err
	}
	date := input.Date
	logger := ctx.Logger().With(zap.String("date", date))

	records, err := workflow.Step(ctx, "fetch-sales-data", func(stepCtx context.Context) ([]*sales.Record, error) {
		return s.store.Fetch(stepCtx, date)
	})
	if err != nil {
		return nil, err
	}
	logger.Info("sales fetched", zap.String("url", s.store.SalesURL(date)), zap.Int("recordCount", len(records)))

	batches := sales.Batches(records, BatchSize)
	results, err := workflow.Map(ctx, "process-records", batches, func(_ context.Context, batch []*sales.Record, index int) ([]*sales.ProcessedRecord, error) {
		logger.Debug("processing batch", zap.Int("batchIndex", index), zap.Int("batchTotal", len(batches)), zap.Int("recordCount", len(batch)))
		return sales.ProcessAll(batch), nil
	}, workflow.WithMaxConcurrency(MaxConcurrency))
	if err != nil {
		return nil, err
	}
	processed := make([]*sales.ProcessedRecord, 0, len(records))
	for _, result := range results {
		processed = append(processed, result...)
	}

	highValueIDs, err := workflow.Step(ctx, "extract-high-value-ids", func(context.Context) ([]string, error) {
		ids := sales.HighValueIDs(processed, s.threshold)
		logger.Info("high value records extracted", zap.Int("totalRecords", len(processed)), zap.Int("highValueCount", len(ids)), zap.Int("threshold", s.threshold))
		return ids, nil
	})
	if err != nil {
		return nil, err
	}

	var approvedIDs []string
	if len(highValueIDs) > 0 {
		if approvedIDs, err = s.approve(ctx, date, highValueIDs); err != nil {
			return nil, err
		}
	}
	approved, rejected := sales.Partition(processed, highValueIDs, approvedIDs)

	if err = s.sync(ctx, approved); err != nil {
		return nil, err
	}

	report, err := workflow.Step(ctx, "generate-report", func(stepCtx context.Context) (*Report, error) {
		return s.generateReport(stepCtx, date, approved, rejected)
	})
	if err != nil {
		return nil, err
	}
	return &Output{
		Status:          StatusCompleted,
		Date:            date,
		TotalRecords:    len(records),
		ApprovedRecords: len(approved),
		RejectedRecords: len(rejected),
		ReportURL:       report.SummaryURL,
	}, nil
}

func (s *Service) approve(ctx workflow.Context, date string, highValueIDs []string) ([]string, error) {
	callback, err := ctx.CreateCallback(ApprovalCallback, workflow.CallbackConfig{
		Timeout:  s.approvalTimeout,
		Validate: ValidateApproval,
		AutoResult: func(approved bool, reason string) (json.RawMessage, *model.CallbackFailure) {
			ids := []string{}
			if approved {
				ids = highValueIDs
			}
			data, _ := json.Marshal(map[string][]string{"approved_ids": ids})
			return data, nil
		},
	})
	if err != nil {
		return nil, err
	}
	request := &ApprovalRequest{CallbackID: callback.ID(), Date: date, HighValueIDs: highValueIDs}
	if _, err = ctx.Step("send-approval-request", func(stepCtx context.Context) (interface{}, error) {
		if err := s.notifier.Notify(stepCtx, request); err != nil {
			return nil, err
		}
		return map[string]interface{}{"sent": true, "count": len(highValueIDs)}, nil
	}); err != nil {
		return nil, err
	}
	result, err := callback.Result()
	if err != nil {
		return nil, err
	}
	return ApprovedIDs(result), nil
}

func (s *Service) sync(ctx workflow.Context, approved []*sales.ProcessedRecord) error {
	batches := sales.Batches(approved, APIBatchSize)
	for i, batch := range batches {
		batch := batch
		if _, err := workflow.Step(ctx, fmt.Sprintf("sync-to-external-api-%d", i), func(stepCtx context.Context) (*SyncResult, error) {
			return s.syncer.Sync(stepCtx, batch)
		}, workflow.WithRetry(s.syncPolicy)); err != nil {
			return err
		}
		if i+1 < len(batches) && s.rateLimitWait > 0 {
			if err := ctx.Wait(s.rateLimitWait); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) generateReport(ctx context.Context, date string, approved, rejected []*sales.ProcessedRecord) (*Report, error) {
	ret := &Report{}
	if rejectedReport := sales.NewRejectedReport(date, rejected); rejectedReport != nil {
		location, err := s.store.PutRejected(ctx, rejectedReport)
		if err != nil {
			return nil, err
		}
		ret.RejectedURL = location
	}
	summary := sales.NewSummaryReport(date, approved, rejected)
	location, err := s.store.PutSummary(ctx, summary)
	if err != nil {
		return nil, err
	}
	ret.SummaryURL = location
	s.logger.Info("report generated",
		zap.String("date", date),
		zap.Int("approvedCount", summary.Summary.TotalApproved),
		zap.Int("rejectedCount", summary.Summary.TotalRejected),
		zap.Int("approvedSales", summary.Summary.ApprovedSales),
		zap.Int("rejectedSales", summary.Summary.RejectedSales),
		zap.String("summaryUrl", ret.SummaryURL),
		zap.String("rejectedUrl", ret.RejectedURL))
	return ret, nil
}

// ValidateApproval accepts an empty result or a JSON object whose optional
// approved_ids is an array of strings.
func ValidateApproval(payload json.RawMessage) error {
	if len(payload) == 0 {
		return nil
	}
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return fmt.Errorf("approval result must be a JSON object")
	}
	ids := gjson.GetBytes(payload, "approved_ids")
	if !ids.Exists() {
		return nil
	}
	if !ids.IsArray() {
		return fmt.Errorf("approved_ids must be an array of strings")
	}
	for _, id := range ids.Array() {
		if id.Type != gjson.String {
			return fmt.Errorf("approved_ids must be an array of strings, got %s", id.Raw)
		}
	}
	return nil
}

// ApprovedIDs extracts approved_ids; a missing or empty result approves nothing.
func ApprovedIDs(result json.RawMessage) []string {
	ids := gjson.GetBytes(result, "approved_ids")
	if !ids.IsArray() {
		return nil
	}
	var ret []string
	for _, id := range ids.Array() {
		ret = append(ret, id.String())
	}
	return ret
}
