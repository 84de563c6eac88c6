package queue

import (
	"context"
	"sync"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// Handler executes one delivered job.
type Handler func(ctx context.Context, name string, payload map[string]any)

// HandlerQueue is a job queue whose deliveries go to a registered handler.
type HandlerQueue interface {
	faq.JobQueue
	SetHandler(handler Handler)
	Close() error
}

// ImmediateQueue runs each job on its own goroutine as soon as it is enqueued.
// Close waits for in-flight jobs.
type ImmediateQueue struct {
	mu      sync.RWMutex
	handler Handler
	wg      sync.WaitGroup
}

// NewImmediateQueue constructs the queue.
func NewImmediateQueue(handler Handler) *ImmediateQueue {
	return &ImmediateQueue{handler: handler}
}

// SetHandler replaces the handler used for queued jobs.
func (q *ImmediateQueue) SetHandler(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handler = handler
}

// Enqueue invokes the handler asynchronously. The job outlives the caller's cancellation.
func (q *ImmediateQueue) Enqueue(ctx context.Context, name string, payload any) error {
	typed, ok := payload.(map[string]any)
	if !ok {
		typed = map[string]any{}
	}
	q.mu.RLock()
	handler := q.handler
	q.mu.RUnlock()
	if handler == nil {
		return nil
	}
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		handler(context.WithoutCancel(ctx), name, typed)
	}()
	return nil
}

// Close waits for running jobs.
func (q *ImmediateQueue) Close() error {
	q.wg.Wait()
	return nil
}

var _ HandlerQueue = (*ImmediateQueue)(nil)
