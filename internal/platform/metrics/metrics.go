package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kms_connect"

// Metrics はアプリケーション全体の Prometheus メトリクスを保持します。
// nil レシーバでも各メソッドは何もせずに戻ります。
type Metrics struct {
	transitions     *prometheus.CounterVec
	bulkProfiles    *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	reviews         *prometheus.CounterVec
	ocrJobs         *prometheus.CounterVec
	publishFailures *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New はメトリクスを生成して reg に登録します。reg が nil の場合は専用のレジストリを作成します。
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_transitions_total",
			Help:      "Verification workflow operations by operation and result.",
		}, []string{"operation", "result"}),
		bulkProfiles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_status_profiles_total",
			Help:      "Profiles processed by bulk status updates by outcome.",
		}, []string{"outcome"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_uploads_total",
			Help:      "Document uploads by document type and result.",
		}, []string{"document_type", "result"}),
		reviews: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_reviews_total",
			Help:      "Document reviews by decision.",
		}, []string{"decision"}),
		ocrJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ocr_jobs_total",
			Help:      "Processed OCR jobs by outcome.",
		}, []string{"outcome"}),
		publishFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_publish_failures_total",
			Help:      "Failed status change deliveries by subscriber.",
		}, []string{"subscriber"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, route and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		gatherer: reg,
	}
}

// RecordTransition は審査操作の結果を記録します。
func (m *Metrics) RecordTransition(operation, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(operation, result).Inc()
}

// RecordBulkUpdate は一括更新の変更件数とスキップ件数を記録します。
func (m *Metrics) RecordBulkUpdate(changed, skipped int) {
	if m == nil {
		return
	}
	m.bulkProfiles.WithLabelValues("changed").Add(float64(changed))
	m.bulkProfiles.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordUpload は書類アップロードの結果を記録します。
func (m *Metrics) RecordUpload(typeCode, result string) {
	if m == nil {
		return
	}
	if typeCode == "" {
		typeCode = "unknown"
	}
	m.uploads.WithLabelValues(typeCode, result).Inc()
}

// RecordReview は書類審査の判定を記録します。
func (m *Metrics) RecordReview(decision string) {
	if m == nil {
		return
	}
	m.reviews.WithLabelValues(decision).Inc()
}

// RecordOCRJob は OCR ジョブの処理結果を記録します。
func (m *Metrics) RecordOCRJob(outcome string) {
	if m == nil {
		return
	}
	m.ocrJobs.WithLabelValues(outcome).Inc()
}

// RecordPublishFailure はイベント配送の失敗を記録します。
func (m *Metrics) RecordPublishFailure(subscriber string) {
	if m == nil {
		return
	}
	m.publishFailures.WithLabelValues(subscriber).Inc()
}

// ObserveHTTPRequest は HTTP リクエストの処理時間を記録します。
func (m *Metrics) ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler は /metrics 用のハンドラを返します。
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
