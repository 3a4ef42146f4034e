package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
)

const multipartMemory = 1 << 20

func (h *Handler) handleListDocumentTypes(w http.ResponseWriter, _ *http.Request) {
	types := h.documents.ListDocumentTypes()
	out := make([]documentTypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, toDocumentTypeResponse(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_types": out})
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("profile_id: %w", document.ErrInvalidID))
		return
	}

	docs, err := h.documents.ListDocuments(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocumentResponse(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": out})
}

// handleUploadDocument は multipart/form-data の file と document_type を受け取ります。
func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("profile_id: %w", document.ErrInvalidID))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "upload exceeds the maximum request size")
			return
		}
		writeError(w, r, h.logger, applicant.NewValidationError("file", "multipart form is invalid"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.logger, applicant.NewValidationError("file", "is required"))
		return
	}
	defer file.Close()

	doc, err := h.documents.UploadDocument(r.Context(), act, document.UploadInput{
		ProfileID:   id,
		TypeCode:    strings.TrimSpace(r.FormValue("document_type")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentResponse(doc))
}

type readinessResponse struct {
	ProfileID           int64   `json:"profile_id"`
	Score               float64 `json:"score"`
	ProfileCompleteness float64 `json:"profile_completeness"`
	ApprovedDocuments   int     `json:"approved_documents"`
	TotalDocuments      int     `json:"total_documents"`
}

func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("profile_id: %w", document.ErrInvalidID))
		return
	}

	res, err := h.documents.Readiness(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, readinessResponse{
		ProfileID:           res.ProfileID,
		Score:               res.Score,
		ProfileCompleteness: res.ProfileCompleteness,
		ApprovedDocuments:   res.ApprovedDocuments,
		TotalDocuments:      res.TotalDocuments,
	})
}

func (h *Handler) handleChecklist(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("profile_id: %w", document.ErrInvalidID))
		return
	}

	items, err := h.documents.Checklist(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]checklistItemResponse, 0, len(items))
	complete := true
	for _, item := range items {
		if item.Type.Required && !item.Uploaded {
			complete = false
		}
		out = append(out, checklistItemResponse{
			DocumentType: item.Type.Code,
			Name:         item.Type.Name,
			Required:     item.Type.Required,
			Uploaded:     item.Uploaded,
			DocumentID:   item.DocumentID,
			ReviewStatus: string(item.ReviewStatus),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "complete": complete})
}

func (h *Handler) handleKTPPrefill(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("profile_id: %w", document.ErrInvalidID))
		return
	}

	p, err := h.documents.GetKTPPrefill(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prefillResponse{
		FullName:   p.FullName,
		NIK:        p.NIK,
		BirthPlace: p.BirthPlace,
		BirthDate:  p.BirthDate,
		Address:    p.Address,
		Gender:     p.Gender,
	})
}

func (h *Handler) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", document.ErrInvalidID))
		return
	}

	doc, err := h.documents.GetDocument(r.Context(), act, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleReviewDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", document.ErrInvalidID))
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	doc, err := h.documents.ReviewDocument(r.Context(), act, document.ReviewInput{
		ID:       id,
		Decision: document.ReviewStatus(strings.ToUpper(strings.TrimSpace(req.Decision))),
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", document.ErrInvalidID))
		return
	}

	if err := h.documents.DeleteDocument(r.Context(), act, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
