package async

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/extract"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Processor runs one document through the pipeline.
type Processor interface {
	Run(ctx context.Context, path string, opts extract.Options) (*entity.DocumentResult, error)
	Seen(ctx context.Context, path string) (*entity.DocumentSummary, bool, error)
}

// ResultFunc observes every finished job. res is nil when the job failed or
// was skipped.
type ResultFunc func(job Job, res *entity.DocumentResult, err error)

type ProcessorQueue struct {
	proc     Processor
	opts     extract.Options
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOptions sets the extraction options every job runs with.
func WithOptions(opts extract.Options) Option {
	return func(q *ProcessorQueue) { q.opts = opts }
}

func WithResultFunc(fn ResultFunc) Option {
	return func(q *ProcessorQueue) { q.onResult = fn }
}

func NewProcessorQueue(proc Processor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 2,
		timeout: 30 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	log := q.logger.With("worker_id", workerID, "path", job.Path, "trace_id", job.TraceID)

	if !job.Force {
		sum, seen, err := q.proc.Seen(ctx, job.Path)
		if err != nil {
			log.Error("dedupe check failed", "error", err)
			q.done(job, nil, err)
			return
		}
		if seen {
			log.Info("skipping already extracted document", "document_id", sum.ID)
			q.done(job, nil, nil)
			return
		}
	}

	res, err := q.proc.Run(ctx, job.Path, q.opts)
	if err != nil {
		log.Error("processing failed", "error", err, "waited", time.Since(job.SubmittedAt))
	} else {
		log.Info("processed document successfully",
			"document_id", res.Document.ID,
			"pages", res.Document.PageCount,
			"overall_score", res.Quality.OverallScore)
	}
	q.done(job, res, err)
}

func (q *ProcessorQueue) done(job Job, res *entity.DocumentResult, err error) {
	if q.onResult != nil {
		q.onResult(job, res, err)
	}
}

// Enqueue blocks when the buffer is full until a worker frees a slot or ctx
// ends.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued document for processing", "path", job.Path, "force", job.Force)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

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
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
