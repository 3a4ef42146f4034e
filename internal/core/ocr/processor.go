package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/document"
)

// maxContentBytes は OCR に渡すファイルサイズの上限です。
const maxContentBytes = document.MaxPDFBytes

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// DocumentSource は OCR 対象書類の読み出しと結果の書き戻しを行います。
type DocumentSource interface {
	OpenForOCR(ctx context.Context, documentID int64) (*document.Document, io.ReadCloser, error)
	AttachOCRResult(ctx context.Context, documentID int64, fileKey string, result document.OCRResult) error
	MarkOCRFailed(ctx context.Context, documentID int64, fileKey string, reason string) error
}

// Recorder は OCR ジョブの結果を計測します。
type Recorder interface {
	RecordOCRJob(result string)
}

type noopRecorder struct{}

func (noopRecorder) RecordOCRJob(string) {}

// Outcome はジョブ 1 件の処理結果です。
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRetry     Outcome = "retry"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Processor は OCR ジョブを実行し、結果に応じてキューと書類を更新します。
type Processor struct {
	docs      DocumentSource
	extractor Extractor
	queue     Queue
	backoff   Backoff
	clock     Clock
	metrics   Recorder
	logger    *slog.Logger
}

// ProcessorOption は Processor の任意設定です。
type ProcessorOption func(*Processor)

// WithBackoff は再試行間隔を設定します。
func WithBackoff(b Backoff) ProcessorOption {
	return func(p *Processor) { p.backoff = b }
}

// WithClock は時計を設定します。
func WithClock(c Clock) ProcessorOption {
	return func(p *Processor) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithMetrics は計測を設定します。
func WithMetrics(r Recorder) ProcessorOption {
	return func(p *Processor) {
		if r != nil {
			p.metrics = r
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessor は Processor を生成します。
func NewProcessor(docs DocumentSource, extractor Extractor, queue Queue, opts ...ProcessorOption) *Processor {
	p := &Processor{
		docs:      docs,
		extractor: extractor,
		queue:     queue,
		clock:     realClock{},
		metrics:   noopRecorder{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process はジョブを 1 件処理します。返却されるエラーはキューの更新に失敗した場合のみです。
func (p *Processor) Process(ctx context.Context, job *Job) (Outcome, error) {
	doc, fileKey, err := p.extract(ctx, job)

	var outcome Outcome
	switch {
	case err == nil:
		outcome = OutcomeCompleted
		err = p.queue.MarkCompleted(ctx, job.ID)
	case errors.Is(err, document.ErrDocumentNotFound), errors.Is(err, document.ErrConflict):
		p.logger.InfoContext(ctx, "ocr job skipped",
			"job_id", job.ID,
			"document_id", job.DocumentID,
			"reason", err.Error(),
		)
		outcome = OutcomeSkipped
		err = p.queue.MarkCompleted(ctx, job.ID)
	case !job.Exhausted():
		delay := p.backoff.Delay(job.Attempts)
		p.logger.WarnContext(ctx, "ocr attempt failed, retrying",
			"job_id", job.ID,
			"document_id", job.DocumentID,
			"attempt", job.Attempts,
			"max_attempts", job.MaxAttempts,
			"retry_in", delay.String(),
			"error", err,
		)
		outcome = OutcomeRetry
		err = p.queue.Reschedule(ctx, job.ID, p.clock.Now().Add(delay), err.Error())
	default:
		p.logger.ErrorContext(ctx, "ocr job failed permanently",
			"job_id", job.ID,
			"document_id", job.DocumentID,
			"attempts", job.Attempts,
			"error", err,
		)
		outcome = OutcomeFailed
		reason := err.Error()
		if doc != nil {
			if markErr := p.docs.MarkOCRFailed(ctx, doc.ID, fileKey, reason); markErr != nil && !errors.Is(markErr, document.ErrConflict) {
				p.logger.ErrorContext(ctx, "failed to flag document ocr failure", "document_id", doc.ID, "error", markErr)
			}
		}
		err = p.queue.MarkFailed(ctx, job.ID, reason)
	}

	p.metrics.RecordOCRJob(string(outcome))
	if err != nil {
		return outcome, fmt.Errorf("update ocr job %d: %w", job.ID, err)
	}
	return outcome, nil
}

// extract は書類を読み出して OCR を実行し、結果を書類へ保存します。
// 失敗時も書類が読み出せていれば書類と保存キーを返します。
func (p *Processor) extract(ctx context.Context, job *Job) (*document.Document, string, error) {
	doc, rc, err := p.docs.OpenForOCR(ctx, job.DocumentID)
	if err != nil {
		if doc != nil {
			return doc, doc.File.Key, err
		}
		return nil, "", err
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, maxContentBytes))
	if err != nil {
		return doc, doc.File.Key, fmt.Errorf("read document file: %w", err)
	}

	text, err := p.extractor.ExtractText(ctx, content)
	if err != nil {
		return doc, doc.File.Key, err
	}

	result := document.OCRResult{Text: text, Fields: map[string]string{}, ProcessedAt: p.clock.Now()}
	if doc.TypeCode == document.TypeKTP && text != "" {
		result.Fields = ParseKTP(text)
	}

	if err := p.docs.AttachOCRResult(ctx, doc.ID, doc.File.Key, result); err != nil {
		return doc, doc.File.Key, err
	}

	p.logger.InfoContext(ctx, "ocr completed",
		"job_id", job.ID,
		"document_id", doc.ID,
		"document_type", doc.TypeCode,
		"attempt", job.Attempts,
		"text_length", len(text),
	)
	return doc, doc.File.Key, nil
}
