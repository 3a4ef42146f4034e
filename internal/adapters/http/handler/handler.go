package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/region"
	"github.com/kmsconnect/kms-connect/internal/platform/auth"
)

const (
	defaultMaxUploadBytes = 4 << 20
	requestTimeout        = 30 * time.Second
)

// Handler は REST API のハンドラをまとめます。
type Handler struct {
	applicants     applicant.UseCase
	documents      document.UseCase
	notifications  notification.UseCase
	regions        RegionLookup
	logger         *slog.Logger
	maxUploadBytes int64
}

// New は Handler を生成します。
func New(applicants applicant.UseCase, documents document.UseCase, notifications notification.UseCase, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		applicants:     applicants,
		documents:      documents,
		notifications:  notifications,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// RegionLookup は行政区マスタの参照です。
type RegionLookup interface {
	ListChildren(ctx context.Context, level region.Level, parentCode string) ([]*region.Region, error)
}

// WithRegions は行政区参照ルートを有効にします。
func (h *Handler) WithRegions(regions RegionLookup) *Handler {
	h.regions = regions
	return h
}

// Register は認証済みの API ルートを登録します。
func (h *Handler) Register(r chi.Router) {
	r.Route("/applicants", func(r chi.Router) {
		r.Post("/", h.handleCreateProfile)
		r.Get("/", h.handleListProfiles)
		r.Get("/me", h.handleGetOwnProfile)
		r.Get("/pending", h.handleListPending)
		r.Post("/bulk-status", h.handleBulkStatus)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.handleGetProfile)
			r.Patch("/", h.handleUpdateProfile)
			r.Put("/work-experiences", h.handleReplaceWorkExperiences)
			r.Post("/submit", h.handleSubmit)
			r.Post("/approve", h.handleApprove)
			r.Post("/reject", h.handleReject)
			r.Post("/reopen", h.handleReopen)
			r.Get("/documents", h.handleListDocuments)
			r.Post("/documents", h.handleUploadDocument)
			r.Get("/documents/checklist", h.handleChecklist)
			r.Get("/ktp-prefill", h.handleKTPPrefill)
			r.Get("/readiness", h.handleReadiness)
		})
	})

	r.Get("/document-types", h.handleListDocumentTypes)
	r.Get("/documents/{id}", h.handleGetDocument)
	r.Post("/documents/{id}/review", h.handleReviewDocument)
	r.Delete("/documents/{id}", h.handleDeleteDocument)

	r.Get("/notifications", h.handleListNotifications)
	r.Post("/notifications/{id}/read", h.handleMarkNotificationRead)

	if h.regions != nil {
		r.Get("/regions/{level}", h.handleListRegions)
	}
}

// HealthCheck は依存先の疎通を確認します。
type HealthCheck func(ctx context.Context) error

// RouterConfig は NewRouter の依存です。
type RouterConfig struct {
	Handler        *Handler
	Validator      TokenValidator
	Observer       RequestObserver
	MetricsHandler http.Handler
	Health         HealthCheck
	Logger         *slog.Logger
}

// NewRouter はミドルウェアとルートを組み立てた http.Handler を返します。
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(Instrument(cfg.Observer, logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health(ctx); err != nil {
				logger.WarnContext(ctx, "health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(RequireAuth(cfg.Validator, logger))
		cfg.Handler.Register(r)
	})

	return r
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (actor.Actor, bool) {
	act, ok := auth.ActorFromContext(r.Context())
	if !ok {
		h.logger.ErrorContext(r.Context(), "actor missing from context despite auth middleware",
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return actor.Actor{}, false
	}
	return act, true
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, applicant.NewValidationError(key, "must be an integer")
	}
	return v, nil
}

func queryString(r *http.Request, key string) *string {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	return &raw
}
