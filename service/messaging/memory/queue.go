// Package memory is a bounded in-process queue that feeds emulator events to
// local consumers.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/viant/durable/internal/idgen"
	"github.com/viant/durable/service/messaging"
)

// ErrProcessed is returned when a message is settled twice.
var ErrProcessed = errors.New("message already processed")

// Config configures a Queue.
type Config struct {
	// Capacity bounds pending messages. Once full, Publish evicts the oldest
	// message when DropOldest is set and blocks otherwise.
	Capacity   int
	DropOldest bool
	// MaxRetries bounds redeliveries after Nack; exhausted messages are
	// counted as dead.
	MaxRetries int
}

// DefaultConfig returns a standard configuration.
func DefaultConfig() Config {
	return Config{Capacity: 1024, DropOldest: true, MaxRetries: 3}
}

// Message is a queued payload.
type Message[T any] struct {
	id      string
	payload T
	retries int
	queue   *Queue[T]
	once    sync.Once
}

// ID returns the message identifier; it is kept across redeliveries.
func (m *Message[T]) ID() string { return m.id }

// T returns the payload.
func (m *Message[T]) T() *T { return &m.payload }

// Ack settles the message.
func (m *Message[T]) Ack() error {
	return m.settle(func() {})
}

// Nack puts the message back at the head of the queue until MaxRetries is
// exceeded.
func (m *Message[T]) Nack(error) error {
	return m.settle(func() {
		retry := &Message[T]{id: m.id, payload: m.payload, retries: m.retries + 1, queue: m.queue}
		m.queue.requeue(retry)
	})
}

func (m *Message[T]) settle(fn func()) error {
	settled := false
	m.once.Do(func() {
		settled = true
		fn()
	})
	if !settled {
		return ErrProcessed
	}
	return nil
}

// Queue is an in-memory messaging.Queue.
type Queue[T any] struct {
	config  Config
	mu      sync.Mutex
	pending []*Message[T]
	ready   chan struct{}
	space   chan struct{}
	dropped int
	dead    int
}

// NewQueue creates a queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.Capacity <= 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	return &Queue[T]{
		config: config,
		ready:  make(chan struct{}, 1),
		space:  make(chan struct{}, 1),
	}
}

// Publish appends a copy of t.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	if t == nil {
		return errors.New("payload is nil")
	}
	message := &Message[T]{id: idgen.New(), payload: *t, queue: q}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.mu.Lock()
		if len(q.pending) >= q.config.Capacity && q.config.DropOldest {
			q.pending = q.pending[1:]
			q.dropped++
		}
		if len(q.pending) < q.config.Capacity {
			q.pending = append(q.pending, message)
			q.mu.Unlock()
			notify(q.ready)
			return nil
		}
		q.mu.Unlock()
		select {
		case <-q.space:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Consume takes the oldest pending message, blocking until one is available
// or ctx is done.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			message := q.pending[0]
			q.pending = q.pending[1:]
			more := len(q.pending) > 0
			q.mu.Unlock()
			notify(q.space)
			if more {
				notify(q.ready)
			}
			return message, nil
		}
		q.mu.Unlock()
		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (q *Queue[T]) requeue(message *Message[T]) {
	q.mu.Lock()
	if message.retries > q.config.MaxRetries {
		q.dead++
		q.mu.Unlock()
		return
	}
	q.pending = append([]*Message[T]{message}, q.pending...)
	q.mu.Unlock()
	notify(q.ready)
}

// Size returns the number of pending messages.
func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns the number of messages evicted by DropOldest.
func (q *Queue[T]) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Dead returns the number of messages that exhausted their retries.
func (q *Queue[T]) Dead() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dead
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
