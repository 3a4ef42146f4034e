package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kmsconnect/kms-connect/internal/core/account"
	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/ocr"
	"github.com/kmsconnect/kms-connect/internal/core/region"
	"github.com/kmsconnect/kms-connect/internal/platform/auth"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeError はドメインエラーを HTTP ステータスへ変換して書き込みます。
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := classifyError(err)

	ctx := r.Context()
	attrs := []any{
		"request_id", middleware.GetReqID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	}
	if act, ok := auth.ActorFromContext(ctx); ok {
		attrs = append(attrs, "actor_id", act.ID)
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", attrs...)
	} else {
		logger.WarnContext(ctx, "request rejected", attrs...)
	}

	writeJSON(w, status, body)
}

func classifyError(err error) (int, errorResponse) {
	var verr *applicant.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: "request validation failed", Fields: verr.Fields}
	case errors.Is(err, applicant.ErrInvalidID),
		errors.Is(err, applicant.ErrInvalidStatus),
		errors.Is(err, applicant.ErrInvalidPageSize),
		errors.Is(err, applicant.ErrInvalidPageToken),
		errors.Is(err, applicant.ErrValidation),
		errors.Is(err, document.ErrInvalidID),
		errors.Is(err, document.ErrUnknownType),
		errors.Is(err, notification.ErrInvalidID),
		errors.Is(err, notification.ErrInvalidPageSize),
		errors.Is(err, notification.ErrInvalidPageToken),
		errors.Is(err, region.ErrInvalidHierarchy),
		errors.Is(err, region.ErrInvalidLevel):
		return http.StatusBadRequest, errorResponse{Error: "invalid_argument", Message: err.Error()}
	case errors.Is(err, applicant.ErrInvalidState), errors.Is(err, document.ErrInvalidState):
		return http.StatusConflict, errorResponse{Error: "invalid_state", Message: err.Error()}
	case errors.Is(err, applicant.ErrConflict), errors.Is(err, document.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "conflict", Message: "the resource was modified concurrently, reload and retry"}
	case errors.Is(err, applicant.ErrProfileAlreadyExists), errors.Is(err, account.ErrEmailAlreadyExists):
		return http.StatusConflict, errorResponse{Error: "already_exists", Message: err.Error()}
	case errors.Is(err, applicant.ErrProfileNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, document.ErrPrefillNotAvailable),
		errors.Is(err, notification.ErrNotificationNotFound),
		errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, region.ErrRegionNotFound):
		return http.StatusNotFound, errorResponse{Error: "not_found", Message: err.Error()}
	case errors.Is(err, actor.ErrPermissionDenied):
		return http.StatusForbidden, errorResponse{Error: "permission_denied", Message: err.Error()}
	case errors.Is(err, document.ErrStorageUnavailable), errors.Is(err, ocr.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "unavailable", Message: "a dependent service is temporarily unavailable"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal", Message: "internal server error"}
	}
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return applicant.NewValidationError("body", "is not valid JSON: "+err.Error())
	}
	return nil
}
