// Package outbound shapes replies and paces their delivery to chat.
package outbound

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bleusakura/borrowbot/deque"
	"github.com/bleusakura/borrowbot/message"
	"github.com/bleusakura/borrowbot/metrics"
)

// Sender delivers one message to chat.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Queue is an unbounded FIFO of messages awaiting delivery.
// Its methods are safe to call concurrently.
type Queue struct {
	mu sync.Mutex
	q  deque.Deque[message.Sent]
}

// Enqueue adds a message to the end of the queue.
func (q *Queue) Enqueue(msg message.Sent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.q = q.q.Append(msg)
}

// Pop removes and returns the message at the front of the queue.
// The second result is false if the queue is empty.
func (q *Queue) Pop() (message.Sent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	msg, ok := q.q.Front()
	if ok {
		q.q = q.q.DropFront(1)
	}
	return msg, ok
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.q.Len()
}

// Run delivers at most one queued message per interval through s until ctx
// is done. A message whose delivery fails is logged and dropped.
// m may be nil.
func (q *Queue) Run(ctx context.Context, interval time.Duration, s Sender, m *metrics.Metrics) error {
	if m == nil {
		m = metrics.Discard()
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		msg, ok := q.Pop()
		m.QueueDepth.Observe(float64(q.Len()))
		if !ok {
			continue
		}
		if err := s.Send(ctx, msg.To, msg.Text); err != nil {
			slog.ErrorContext(ctx, "send failed", slog.String("channel", msg.To), slog.Any("err", err))
			m.SendFailedCount.Observe(1)
			continue
		}
		slog.DebugContext(ctx, "sent", slog.String("channel", msg.To), slog.String("text", msg.Text))
		m.SentCount.Observe(1)
	}
}
