package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
)

const defaultDeliveryTimeout = 10 * time.Second

// HandlerFunc は StatusChanged を受け取る購読者です。
type HandlerFunc func(ctx context.Context, event applicant.StatusChanged) error

// FailureRecorder は配送失敗を計測します。
type FailureRecorder interface {
	RecordPublishFailure(subscriber string)
}

type noopRecorder struct{}

func (noopRecorder) RecordPublishFailure(string) {}

type subscriber struct {
	name    string
	handler HandlerFunc
}

// Dispatcher は applicant.EventPublisher の実装で、イベントを購読者へ非同期に配送します。
// 購読者のエラーはログと計測に残し、呼び出し元へは返しません。
type Dispatcher struct {
	timeout time.Duration
	logger  *slog.Logger
	metrics FailureRecorder

	mu          sync.RWMutex
	subscribers []subscriber
	closed      bool
	wg          sync.WaitGroup
}

// Option は Dispatcher の任意設定です。
type Option func(*Dispatcher)

// WithTimeout は購読者 1 件あたりの配送タイムアウトを設定します。
func WithTimeout(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.timeout = d
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(x *Dispatcher) {
		if l != nil {
			x.logger = l
		}
	}
}

// WithMetrics は計測を設定します。
func WithMetrics(r FailureRecorder) Option {
	return func(x *Dispatcher) {
		if r != nil {
			x.metrics = r
		}
	}
}

// NewDispatcher は Dispatcher を生成します。
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		timeout: defaultDeliveryTimeout,
		logger:  slog.Default(),
		metrics: noopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subscribe は購読者を登録します。
func (d *Dispatcher) Subscribe(name string, h HandlerFunc) {
	if h == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers = append(d.subscribers, subscriber{name: name, handler: h})
}

// PublishStatusChanged は購読者ごとに goroutine を起動して配送します。
// 配送には呼び出し元のキャンセルを引き継がない、タイムアウト付きのコンテキストを使います。
func (d *Dispatcher) PublishStatusChanged(ctx context.Context, event applicant.StatusChanged) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.WarnContext(ctx, "status change dropped, dispatcher closed",
			"profile_id", event.ProfileID,
			"new_status", event.NewStatus,
		)
		return
	}

	base := context.WithoutCancel(ctx)
	for _, s := range d.subscribers {
		d.wg.Add(1)
		go d.deliver(base, s, event)
	}
}

func (d *Dispatcher) deliver(base context.Context, s subscriber, event applicant.StatusChanged) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("subscriber panic: %v", r)
			}
		}()
		return s.handler(ctx, event)
	}()
	if err == nil {
		return
	}

	d.metrics.RecordPublishFailure(s.name)
	d.logger.ErrorContext(ctx, "status change delivery failed",
		"subscriber", s.name,
		"profile_id", event.ProfileID,
		"old_status", event.OldStatus,
		"new_status", event.NewStatus,
		"error", err,
	)
}

// Close は新規の配送を止め、実行中の配送の完了を ctx の期限まで待ちます。
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for event deliveries: %w", ctx.Err())
	}
}
