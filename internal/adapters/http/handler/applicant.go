package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
)

func (h *Handler) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	changes, err := req.changes()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	in := applicant.CreateProfileInput{Changes: changes}
	if req.UserID != nil {
		in.UserID = *req.UserID
	}
	created, err := h.applicants.CreateProfile(r.Context(), act, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(created))
}

func (h *Handler) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := applicant.ListProfilesInput{
		PageSize:     pageSize,
		PageToken:    r.URL.Query().Get("page_token"),
		ReferrerID:   queryString(r, "referrer_id"),
		ProvinceCode: queryString(r, "province_code"),
		Order:        applicant.SortOrder(r.URL.Query().Get("order")),
	}
	if s := queryString(r, "status"); s != nil {
		st := applicant.VerificationStatus(strings.ToUpper(*s))
		in.Status = &st
	}

	res, err := h.applicants.ListProfiles(r.Context(), act, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileListResponse(res))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	pageSize, err := queryInt(r, "page_size")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.applicants.ListPendingReview(r.Context(), act, applicant.ListPendingReviewInput{
		PageSize:   pageSize,
		PageToken:  r.URL.Query().Get("page_token"),
		Descending: strings.EqualFold(r.URL.Query().Get("order"), "desc"),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileListResponse(res))
}

func (h *Handler) handleGetOwnProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	p, err := h.applicants.GetOwnProfile(r.Context(), act)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// handleGetProfile は数値 ID または公開 ID (UUID) でプロフィールを返します。
func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	var (
		p   *applicant.Profile
		err error
	)
	if id, ok := pathID(r); ok {
		p, err = h.applicants.GetProfile(r.Context(), act, applicant.GetProfileInput{ID: id})
	} else if raw := chi.URLParam(r, "id"); uuid.Validate(raw) == nil {
		p, err = h.applicants.GetProfileByPublicID(r.Context(), act, raw)
	} else {
		err = fmt.Errorf("id: %w", applicant.ErrInvalidID)
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", applicant.ErrInvalidID))
		return
	}

	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if req.UserID != nil {
		writeError(w, r, h.logger, applicant.NewValidationError("user_id", "cannot be changed"))
		return
	}
	changes, err := req.changes()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	updated, err := h.applicants.UpdateProfile(r.Context(), act, applicant.UpdateProfileInput{ID: id, Changes: changes})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(updated))
}

func (h *Handler) handleReplaceWorkExperiences(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", applicant.ErrInvalidID))
		return
	}

	var req replaceWorkExperiencesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	entries, err := req.entries()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	saved, err := h.applicants.ReplaceWorkExperiences(r.Context(), act, applicant.ReplaceWorkExperiencesInput{ProfileID: id, Entries: entries})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toWorkExperienceResponses(saved)})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, false, func(ctx context.Context, act actor.Actor, id int64, _ string) (*applicant.Profile, error) {
		return h.applicants.SubmitForVerification(ctx, act, applicant.SubmitInput{ID: id})
	})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, true, func(ctx context.Context, act actor.Actor, id int64, notes string) (*applicant.Profile, error) {
		return h.applicants.Approve(ctx, act, applicant.ApproveInput{ID: id, Notes: notes})
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, true, func(ctx context.Context, act actor.Actor, id int64, notes string) (*applicant.Profile, error) {
		return h.applicants.Reject(ctx, act, applicant.RejectInput{ID: id, Notes: notes})
	})
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, true, func(ctx context.Context, act actor.Actor, id int64, notes string) (*applicant.Profile, error) {
		return h.applicants.Reopen(ctx, act, applicant.ReopenInput{ID: id, Notes: notes})
	})
}

// transition は審査操作の共通処理です。withNotes が true の場合は本文の notes を読み取ります (本文は省略可)。
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, withNotes bool, op func(context.Context, actor.Actor, int64, string) (*applicant.Profile, error)) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(r)
	if !ok {
		writeError(w, r, h.logger, fmt.Errorf("id: %w", applicant.ErrInvalidID))
		return
	}

	var req notesRequest
	if withNotes && r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	p, err := op(r.Context(), act, id, req.Notes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

func (h *Handler) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	act, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req bulkStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.applicants.BulkUpdateStatus(r.Context(), act, applicant.BulkUpdateStatusInput{
		ProfileIDs: req.ProfileIDs,
		Status:     applicant.VerificationStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBulkStatusResponse(res))
}
