package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type event struct {
	ID    string
	Topic string
}

func TestQueue_AckOnce(t *testing.T) {
	queue := NewQueue[event](DefaultConfig())
	ctx := context.Background()

	require.NoError(t, queue.Publish(ctx, &event{ID: "1", Topic: "callback.created"}))
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.Size())
	assert.EqualValues(t, &event{ID: "1", Topic: "callback.created"}, message.T())

	assert.NoError(t, message.Ack())
	assert.ErrorIs(t, message.Ack(), ErrProcessed)
	assert.ErrorIs(t, message.Nack(nil), ErrProcessed)
	assert.Error(t, queue.Publish(ctx, nil))
}

func TestQueue_Nack(t *testing.T) {
	queue := NewQueue[event](Config{Capacity: 10, MaxRetries: 2})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &event{ID: "retry"}))
	require.NoError(t, queue.Publish(ctx, &event{ID: "next"}))
	var ids []string
	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, "retry", message.T().ID)
		ids = append(ids, message.(*Message[event]).ID())
		require.NoError(t, message.Nack(fmt.Errorf("attempt %d", i)))
	}
	assert.Equal(t, ids[0], ids[1])
	assert.Equal(t, ids[0], ids[2])
	assert.Equal(t, 1, queue.Dead())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "next", message.T().ID)
}

func TestQueue_DropOldest(t *testing.T) {
	queue := NewQueue[event](Config{Capacity: 2, DropOldest: true})
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, queue.Publish(ctx, &event{ID: fmt.Sprint(i)}))
	}
	assert.Equal(t, 2, queue.Size())
	assert.Equal(t, 3, queue.Dropped())

	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3", message.T().ID)
}

func TestQueue_BlockingPublish(t *testing.T) {
	queue := NewQueue[event](Config{Capacity: 1})
	ctx := context.Background()
	require.NoError(t, queue.Publish(ctx, &event{ID: "1"}))

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, queue.Publish(timeout, &event{ID: "2"}), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- queue.Publish(ctx, &event{ID: "3"}) }()
	message, err := queue.Consume(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", message.T().ID)
	require.NoError(t, <-done)
	assert.Equal(t, 1, queue.Size())
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[event](Config{Capacity: 16})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producers, perProducer := 10, 10
	wg := sync.WaitGroup{}
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &event{ID: fmt.Sprintf("p%d-m%d", producer, j)}))
			}
		}(i)
	}

	seen := map[string]bool{}
	for i := 0; i < producers*perProducer; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		seen[message.T().ID] = true
		assert.NoError(t, message.Ack())
	}
	wg.Wait()
	assert.Len(t, seen, producers*perProducer)
}

func TestQueue_Consume_Cancelled(t *testing.T) {
	queue := NewQueue[event](DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, queue.Publish(ctx, &event{ID: "x"}), context.Canceled)

	timeout, cancelTimeout := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelTimeout()
	_, err := queue.Consume(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
