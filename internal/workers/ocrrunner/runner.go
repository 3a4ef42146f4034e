package ocrrunner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/ocr"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultJobTimeout   = time.Minute
	defaultStaleAfter   = 10 * time.Minute
)

// JobProcessor はジョブ 1 件を処理します。
type JobProcessor interface {
	Process(ctx context.Context, job *ocr.Job) (ocr.Outcome, error)
}

// Config はワーカーの設定です。
type Config struct {
	Workers      int
	PollInterval time.Duration
	JobTimeout   time.Duration
	StaleAfter   time.Duration
}

// Runner はジョブを確保するディスパッチャと N 個のワーカーを動かします。
type Runner struct {
	queue     ocr.Queue
	processor JobProcessor
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// New は Runner を生成します。
func New(queue ocr.Queue, processor JobProcessor, cfg Config, logger *slog.Logger) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		queue:     queue,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run は ctx がキャンセルされるまでジョブを処理し、実行中のジョブの完了を待って戻ります。
func (r *Runner) Run(ctx context.Context) error {
	r.requeueStale(ctx)

	jobs := make(chan *ocr.Job)
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for job := range jobs {
				r.process(ctx, worker, job)
			}
		}(i)
	}

	r.logger.InfoContext(ctx, "ocr workers started",
		"workers", r.cfg.Workers,
		"poll_interval", r.cfg.PollInterval.String(),
	)

	r.dispatch(ctx, jobs)
	close(jobs)
	wg.Wait()

	r.logger.InfoContext(context.WithoutCancel(ctx), "ocr workers stopped")
	return nil
}

func (r *Runner) dispatch(ctx context.Context, jobs chan<- *ocr.Job) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if !r.drain(ctx, jobs) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drain は実行可能なジョブがなくなるまで確保してワーカーへ渡します。停止時は false を返します。
func (r *Runner) drain(ctx context.Context, jobs chan<- *ocr.Job) bool {
	for {
		if ctx.Err() != nil {
			return false
		}

		job, found, err := r.queue.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			r.logger.ErrorContext(ctx, "ocr job claim failed", "error", err)
			return true
		}
		if !found {
			return true
		}

		select {
		case jobs <- job:
		case <-ctx.Done():
			r.release(job)
			return false
		}
	}
}

// release は確保済みで未着手のジョブをキューへ戻します。
func (r *Runner) release(job *ocr.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.queue.Release(ctx, job.ID); err != nil {
		r.logger.WarnContext(ctx, "failed to release ocr job", "job_id", job.ID, "error", err)
	}
}

func (r *Runner) process(ctx context.Context, worker int, job *ocr.Job) {
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.JobTimeout)
	defer cancel()

	outcome, err := r.processor.Process(jobCtx, job)
	if err != nil {
		r.logger.ErrorContext(jobCtx, "ocr job bookkeeping failed",
			"worker", worker,
			"job_id", job.ID,
			"outcome", outcome,
			"error", err,
		)
	}
}

func (r *Runner) requeueStale(ctx context.Context) {
	n, err := r.queue.RequeueStale(ctx, r.now().Add(-r.cfg.StaleAfter))
	if err != nil {
		r.logger.WarnContext(ctx, "failed to requeue stale ocr jobs", "error", err)
		return
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "requeued stale ocr jobs", "count", n)
	}
}
