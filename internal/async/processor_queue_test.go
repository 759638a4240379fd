package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/extract"
)

type fakeProcessor struct {
	seen    map[string]bool
	fail    map[string]error
	runs    atomic.Int32
	release chan struct{}
}

func (p *fakeProcessor) Run(ctx context.Context, path string, _ extract.Options) (*entity.DocumentResult, error) {
	p.runs.Add(1)
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := p.fail[path]; err != nil {
		return nil, err
	}
	return &entity.DocumentResult{Document: entity.Document{ID: uuid.New(), SourcePath: path}}, nil
}

func (p *fakeProcessor) Seen(_ context.Context, path string) (*entity.DocumentSummary, bool, error) {
	if p.seen[path] {
		return &entity.DocumentSummary{ID: uuid.New(), SourcePath: path}, true, nil
	}
	return nil, false, nil
}

type outcome struct {
	job Job
	res *entity.DocumentResult
	err error
}

func collect() (ResultFunc, func() []outcome) {
	var mu sync.Mutex
	var out []outcome
	return func(job Job, res *entity.DocumentResult, err error) {
			mu.Lock()
			defer mu.Unlock()
			out = append(out, outcome{job, res, err})
		}, func() []outcome {
			mu.Lock()
			defer mu.Unlock()
			return append([]outcome(nil), out...)
		}
}

func TestQueueProcessesAndSkips(t *testing.T) {
	boom := errors.New("boom")
	proc := &fakeProcessor{
		seen: map[string]bool{"/in/old.pdf": true},
		fail: map[string]error{"/in/bad.pdf": boom},
	}
	fn, results := collect()
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(4), WithResultFunc(fn))

	ctx := context.Background()
	for _, job := range []Job{
		{Path: "/in/new.pdf"},
		{Path: "/in/old.pdf"},
		{Path: "/in/old.pdf", Force: true},
		{Path: "/in/bad.pdf"},
	} {
		if err := q.Enqueue(ctx, job); err != nil {
			t.Fatalf("Enqueue(%s) error = %v", job.Path, err)
		}
	}
	q.Shutdown(ctx)

	got := results()
	if len(got) != 4 {
		t.Fatalf("results = %d, want 4", len(got))
	}
	if n := proc.runs.Load(); n != 3 {
		t.Errorf("Run called %d times, want 3", n)
	}
	var skipped, failed, ok int
	for _, o := range got {
		switch {
		case o.err != nil:
			if !errors.Is(o.err, boom) {
				t.Errorf("unexpected error %v", o.err)
			}
			failed++
		case o.res == nil:
			skipped++
		default:
			ok++
		}
		if o.job.SubmittedAt.IsZero() {
			t.Errorf("job %s has no SubmittedAt", o.job.Path)
		}
	}
	if skipped != 1 || failed != 1 || ok != 2 {
		t.Errorf("skipped/failed/ok = %d/%d/%d, want 1/1/2", skipped, failed, ok)
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&fakeProcessor{}, nil)
	q.Shutdown(context.Background())
	if err := q.Enqueue(context.Background(), Job{Path: "a.pdf"}); !errors.Is(err, ErrQueueClosed) {
		t.Fatalf("Enqueue() error = %v, want ErrQueueClosed", err)
	}
	q.Shutdown(context.Background())
}

func TestEnqueueBackpressureHonoursContext(t *testing.T) {
	proc := &fakeProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(proc.release)
		q.Shutdown(context.Background())
	}()

	ctx := context.Background()
	if err := q.Enqueue(ctx, Job{Path: "1.pdf"}); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for proc.runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := q.Enqueue(ctx, Job{Path: "2.pdf"}); err != nil {
		t.Fatal(err)
	}

	tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(tctx, Job{Path: "3.pdf"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() on full queue error = %v, want deadline exceeded", err)
	}
}

func TestProcessTimeoutBoundsJobs(t *testing.T) {
	proc := &fakeProcessor{release: make(chan struct{})}
	fn, results := collect()
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithProcessTimeout(20*time.Millisecond), WithResultFunc(fn))
	if err := q.Enqueue(context.Background(), Job{Path: "slow.pdf"}); err != nil {
		t.Fatal(err)
	}
	q.Shutdown(context.Background())

	got := results()
	if len(got) != 1 || !errors.Is(got[0].err, context.DeadlineExceeded) {
		t.Fatalf("results = %+v, want one deadline exceeded", got)
	}
}
