package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// ApprovalRequest asks an approver to decide high value records.
type ApprovalRequest struct {
	CallbackID   string   `json:"callback_id"`
	Date         string   `json:"date"`
	HighValueIDs []string `json:"high_value_ids"`
}

// Command returns the CLI invocation that approves every listed record.
func (r *ApprovalRequest) Command() string {
	result, _ := json.Marshal(map[string][]string{"approved_ids": r.HighValueIDs})
	return fmt.Sprintf("durable callback succeed --callback-id %s --result '%s'", r.CallbackID, result)
}

// Notifier delivers approval requests, e.g. to chat or mail.
type Notifier interface {
	Notify(ctx context.Context, request *ApprovalRequest) error
}

// LogNotifier writes approval requests to a logger.
type LogNotifier struct {
	Logger *zap.Logger
}

// Notify logs the request with the command that resumes the workflow.
func (n *LogNotifier) Notify(_ context.Context, request *ApprovalRequest) error {
	n.Logger.Info("approval requested",
		zap.String("callbackId", request.CallbackID),
		zap.String("date", request.Date),
		zap.Int("highValueCount", len(request.HighValueIDs)),
		zap.String("command", request.Command()))
	return nil
}
