package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
)

type event struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

func newQueue(t *testing.T, baseURL string) *Queue[event] {
	queue, err := NewQueue[event](context.Background(), afs.New(), Config{BaseURL: baseURL, MaxRetries: 1, PollInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	return queue
}

func TestQueue(t *testing.T) {
	ctx := context.Background()
	queue := newQueue(t, t.TempDir())

	for _, dir := range []string{queue.pendingDir, queue.processingDir, queue.dlqDir} {
		exists, err := afs.New().Exists(ctx, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}

	topics := []string{"execution.started", "callback.created", "callback.completed"}
	for i, topic := range topics {
		require.NoError(t, queue.Publish(ctx, &event{Topic: topic, Count: i}))
	}
	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)

	for i, topic := range topics {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, &event{Topic: topic, Count: i}, message.T())
		require.NoError(t, message.Ack())
		assert.Error(t, message.Ack())
	}
	pending, err = queue.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueue_SharedBaseURL(t *testing.T) {
	ctx := context.Background()
	baseURL := "mem://localhost/durable/events/shared"
	producer := newQueue(t, baseURL)
	consumer := newQueue(t, baseURL)

	received := make(chan *event, 1)
	go func() {
		message, err := consumer.Consume(ctx)
		if err == nil {
			_ = message.Ack()
			received <- message.T()
		}
	}()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, producer.Publish(ctx, &event{Topic: "callback.created"}))

	select {
	case e := <-received:
		assert.Equal(t, "callback.created", e.Topic)
	case <-time.After(2 * time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestQueue_NackDeadLetters(t *testing.T) {
	ctx := context.Background()
	queue := newQueue(t, "mem://localhost/durable/events/nack")
	require.NoError(t, queue.Publish(ctx, &event{Topic: "callback.expired"}))

	for attempt := 1; attempt <= 2; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, attempt)
		require.NoError(t, message.Nack(errors.New("consumer down")))
	}
	dead, err := queue.Dead(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, dead)

	timeoutCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = queue.Consume(timeoutCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewQueue_EmptyBaseURL(t *testing.T) {
	_, err := NewQueue[event](context.Background(), nil, Config{})
	assert.Error(t, err)
}
