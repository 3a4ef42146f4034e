package ocrrunner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/ocr"
)

type memoryQueue struct {
	mu          sync.Mutex
	pending     []*ocr.Job
	claimErr    error
	staleCalls  int
	rescheduled []int64
	released    []int64
}

func (q *memoryQueue) Enqueue(context.Context, int64, time.Time) error { return nil }

func (q *memoryQueue) ClaimNext(context.Context) (*ocr.Job, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claimErr != nil {
		return nil, false, q.claimErr
	}
	if len(q.pending) == 0 {
		return nil, false, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	job.Attempts++
	job.Status = ocr.JobRunning
	return job, true, nil
}

func (q *memoryQueue) MarkCompleted(context.Context, int64) error { return nil }

func (q *memoryQueue) Reschedule(_ context.Context, id int64, _ time.Time, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rescheduled = append(q.rescheduled, id)
	return nil
}

func (q *memoryQueue) MarkFailed(context.Context, int64, string) error { return nil }

func (q *memoryQueue) Release(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.released = append(q.released, id)
	return nil
}

func (q *memoryQueue) pendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *memoryQueue) RequeueStale(context.Context, time.Time) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.staleCalls++
	return 0, nil
}

type recordingProcessor struct {
	mu        sync.Mutex
	processed []int64
	deadlines []bool
	done      chan struct{}
	want      int
}

func (p *recordingProcessor) Process(ctx context.Context, job *ocr.Job) (ocr.Outcome, error) {
	_, hasDeadline := ctx.Deadline()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, job.ID)
	p.deadlines = append(p.deadlines, hasDeadline)
	if len(p.processed) == p.want {
		close(p.done)
	}
	return ocr.OutcomeCompleted, nil
}

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestRunner_ProcessesAllQueuedJobs(t *testing.T) {
	t.Parallel()

	q := &memoryQueue{pending: []*ocr.Job{{ID: 1, DocumentID: 10, MaxAttempts: 4}, {ID: 2, DocumentID: 11, MaxAttempts: 4}, {ID: 3, DocumentID: 12, MaxAttempts: 4}}}
	p := &recordingProcessor{done: make(chan struct{}), want: 3}
	r := New(q, p, Config{Workers: 2, PollInterval: 10 * time.Millisecond, JobTimeout: time.Second}, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-p.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs to be processed")
	}
	cancel()

	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if q.staleCalls != 1 {
		t.Fatalf("expected stale jobs to be requeued once, got %d", q.staleCalls)
	}
	for i, ok := range p.deadlines {
		if !ok {
			t.Fatalf("job %d processed without timeout", p.processed[i])
		}
	}
}

type blockingProcessor struct {
	started chan struct{}
	unblock chan struct{}
	once    sync.Once
}

func (p *blockingProcessor) Process(context.Context, *ocr.Job) (ocr.Outcome, error) {
	p.once.Do(func() { close(p.started) })
	<-p.unblock
	return ocr.OutcomeCompleted, nil
}

func TestRunner_ShutdownReleasesUnstartedJob(t *testing.T) {
	t.Parallel()

	q := &memoryQueue{pending: []*ocr.Job{{ID: 1, MaxAttempts: 4}, {ID: 2, MaxAttempts: 4}, {ID: 3, MaxAttempts: 4}}}
	p := &blockingProcessor{started: make(chan struct{}), unblock: make(chan struct{})}
	r := New(q, p, Config{Workers: 1, PollInterval: time.Hour, JobTimeout: time.Second}, discardLogger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for first job")
	}
	deadline := time.Now().Add(2 * time.Second)
	for q.pendingCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for second job to be claimed")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	close(p.unblock)
	if err := <-errCh; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(q.released) != 1 || q.released[0] != 2 {
		t.Fatalf("expected job 2 to be released, got %v", q.released)
	}
	if len(q.rescheduled) != 0 {
		t.Fatalf("expected no reschedule on shutdown, got %v", q.rescheduled)
	}
}

func TestRunner_SurvivesClaimErrors(t *testing.T) {
	t.Parallel()

	q := &memoryQueue{claimErr: errors.New("db down")}
	r := New(q, &recordingProcessor{done: make(chan struct{})}, Config{Workers: 1, PollInterval: 5 * time.Millisecond}, discardLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	r := New(&memoryQueue{}, &recordingProcessor{}, Config{}, nil)
	if r.cfg.Workers != 1 || r.cfg.PollInterval != defaultPollInterval || r.cfg.JobTimeout != defaultJobTimeout || r.cfg.StaleAfter != defaultStaleAfter {
		t.Fatalf("unexpected defaults %+v", r.cfg)
	}
}
