// Package async feeds watch-mode paths to the pipeline one at a time.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/pipeline"
	"github.com/joseph-ayodele/deliverynotes/internal/source"
)

// Job is one settled file reported by the watcher.
type Job struct {
	Path        string
	SubmittedAt time.Time
}

// Processor is satisfied by *pipeline.Processor.
type Processor interface {
	ProcessOne(ctx context.Context, doc entity.SourceDocument) pipeline.Result
}

// ProcessorQueue runs jobs on a single worker so documents reach the sink in
// arrival order. Jobs still queued when ctx is cancelled are dropped.
type ProcessorQueue struct {
	ctx     context.Context
	proc    Processor
	logger  *slog.Logger
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex // guards closed and sends on ch
	closed bool

	smu     sync.Mutex
	summary pipeline.Summary
}

type Option func(*ProcessorQueue)

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds a whole document, on top of the per-attempt timeouts.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewProcessorQueue(ctx context.Context, proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		ctx:     ctx,
		proc:    proc,
		logger:  logger,
		timeout: 5 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("queue.worker.started")
			for job := range q.ch {
				q.handle(job)
			}
			q.logger.Info("queue.worker.stopped")
		}()
	})
}

func (q *ProcessorQueue) handle(job Job) {
	if q.ctx.Err() != nil {
		q.logger.Info("queue.job.dropped", "path", job.Path, "reason", "shutting down")
		return
	}
	doc, err := source.LoadFile(job.Path)
	if err != nil {
		q.logger.Warn("queue.job.read_failed", "path", job.Path, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	res := q.proc.ProcessOne(ctx, doc)
	cancel()

	if res.Status == constants.StatusFailed && q.ctx.Err() != nil {
		// interrupted, not failed: the file is picked up again on the next start
		return
	}
	q.smu.Lock()
	q.summary.Add(res)
	q.smu.Unlock()
	q.logger.Debug("queue.job.done",
		"path", job.Path,
		"status", res.Status,
		"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
}

// Enqueue blocks when the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "path", job.Path)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueued", "path", job.Path)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the worker, or for ctx.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-done:
		q.logger.Info("queue.shutdown.complete")
	}
}

// Summary returns the counts accumulated so far.
func (q *ProcessorQueue) Summary() pipeline.Summary {
	q.smu.Lock()
	defer q.smu.Unlock()
	return q.summary
}
