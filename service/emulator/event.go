package emulator

import (
	"context"
	"time"

	"github.com/viant/durable/internal/clock"
	"go.uber.org/zap"
)

// Event topics.
const (
	TopicExecutionStarted   = "execution.started"
	TopicExecutionCompleted = "execution.completed"
	TopicCallbackCreated    = "callback.created"
	TopicCallbackCompleted  = "callback.completed"
	TopicCallbackExpired    = "callback.expired"
)

// Event reports an emulator state change.
type Event struct {
	Topic       string    `json:"topic"`
	ExecutionID string    `json:"executionId"`
	Function    string    `json:"function,omitempty"`
	CallbackID  string    `json:"callbackId,omitempty"`
	Name        string    `json:"name,omitempty"`
	State       string    `json:"state,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (s *Service) publish(event *Event) {
	event.CreatedAt = clock.Now()
	if err := s.events.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("topic", event.Topic), zap.Error(err))
	}
}
