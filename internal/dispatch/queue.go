// Package dispatch moves chat messages from the platform to the completion
// backend and back: a Filter decides what to answer, a bounded Queue holds
// accepted messages in arrival order, and a single Worker drains it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/zulandar/parley/internal/metrics"
)

// DefaultQueueCapacity is the number of messages the queue holds before
// Offer starts blocking.
const DefaultQueueCapacity = 100

// ErrQueueClosed is returned by Next once the queue is closed and empty.
var ErrQueueClosed = errors.New("dispatch: queue closed")

// QueuedMessage is a message accepted for a reply.
type QueuedMessage struct {
	ID         string // correlation ID, carried into the transcript
	MessageID  string // platform message ID
	ChannelID  string
	AuthorName string
	FromBot    bool // author is another bot
	Content    string
	Reason     Reason // why the filter accepted it
	ReceivedAt time.Time
}

// Outbound is the text sent to the completion backend for this message.
func (m QueuedMessage) Outbound() string {
	return m.AuthorName + ": " + m.Content
}

// Queue is a bounded FIFO of QueuedMessages. A full queue applies
// back-pressure: Offer blocks until there is room.
type Queue struct {
	items     chan QueuedMessage
	closed    chan struct{}
	closeOnce sync.Once
}

// NewQueue creates a Queue holding at most capacity messages.
func NewQueue(capacity int) (*Queue, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("dispatch: queue capacity must be at least 1, got %d", capacity)
	}
	return &Queue{
		items:  make(chan QueuedMessage, capacity),
		closed: make(chan struct{}),
	}, nil
}

// Offer enqueues msg, blocking while the queue is full. It returns ctx.Err()
// if ctx ends first; the message is then not enqueued.
func (q *Queue) Offer(ctx context.Context, msg QueuedMessage) error {
	select {
	case q.items <- msg:
		metrics.QueueDepth.Set(float64(len(q.items)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next blocks until a message is available or ctx ends. After Close it
// keeps returning queued messages, then ErrQueueClosed.
func (q *Queue) Next(ctx context.Context) (QueuedMessage, error) {
	select {
	case msg := <-q.items:
		return q.took(msg), nil
	case <-q.closed:
		select {
		case msg := <-q.items:
			return q.took(msg), nil
		default:
			return QueuedMessage{}, ErrQueueClosed
		}
	case <-ctx.Done():
		return QueuedMessage{}, ctx.Err()
	}
}

// Close marks the end of input. Messages already queued are still handed
// out by Next. Offer must not be called after Close.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

func (q *Queue) took(msg QueuedMessage) QueuedMessage {
	metrics.QueueDepth.Set(float64(len(q.items)))
	return msg
}

// Len returns the number of queued messages.
func (q *Queue) Len() int { return len(q.items) }

// Cap returns the queue's capacity.
func (q *Queue) Cap() int { return cap(q.items) }
