package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/region"
)

const (
	staffToken     = "staff-token"
	applicantToken = "applicant-token"
)

var (
	staffActor     = actor.Actor{ID: "6f0e0c1a-0000-4000-8000-000000000002", Role: actor.RoleStaff}
	applicantActor = actor.Actor{ID: "6f0e0c1a-0000-4000-8000-000000000001", Role: actor.RoleApplicant}
	fixedNow       = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (actor.Actor, error) {
	switch token {
	case staffToken:
		return staffActor, nil
	case applicantToken:
		return applicantActor, nil
	default:
		return actor.Actor{}, errors.New("invalid token")
	}
}

type stubApplicants struct {
	applicant.UseCase

	lastActor actor.Actor
	approve   func(applicant.ApproveInput) (*applicant.Profile, error)
	reject    func(applicant.RejectInput) (*applicant.Profile, error)
	create    func(applicant.CreateProfileInput) (*applicant.Profile, error)
	update    func(applicant.UpdateProfileInput) (*applicant.Profile, error)
	pending   func(applicant.ListPendingReviewInput) (*applicant.ListProfilesResult, error)
	bulk      func(applicant.BulkUpdateStatusInput) (*applicant.BulkUpdateStatusResult, error)
	byPublic  func(string) (*applicant.Profile, error)
}

func (s *stubApplicants) Approve(_ context.Context, act actor.Actor, in applicant.ApproveInput) (*applicant.Profile, error) {
	s.lastActor = act
	return s.approve(in)
}

func (s *stubApplicants) Reject(_ context.Context, act actor.Actor, in applicant.RejectInput) (*applicant.Profile, error) {
	s.lastActor = act
	return s.reject(in)
}

func (s *stubApplicants) CreateProfile(_ context.Context, act actor.Actor, in applicant.CreateProfileInput) (*applicant.Profile, error) {
	s.lastActor = act
	return s.create(in)
}

func (s *stubApplicants) UpdateProfile(_ context.Context, act actor.Actor, in applicant.UpdateProfileInput) (*applicant.Profile, error) {
	s.lastActor = act
	return s.update(in)
}

func (s *stubApplicants) ListPendingReview(_ context.Context, act actor.Actor, in applicant.ListPendingReviewInput) (*applicant.ListProfilesResult, error) {
	s.lastActor = act
	return s.pending(in)
}

func (s *stubApplicants) BulkUpdateStatus(_ context.Context, act actor.Actor, in applicant.BulkUpdateStatusInput) (*applicant.BulkUpdateStatusResult, error) {
	s.lastActor = act
	return s.bulk(in)
}

func (s *stubApplicants) GetProfileByPublicID(_ context.Context, act actor.Actor, publicID string) (*applicant.Profile, error) {
	s.lastActor = act
	return s.byPublic(publicID)
}

type stubDocuments struct {
	document.UseCase

	upload func(document.UploadInput, []byte) (*document.Document, error)
	review func(document.ReviewInput) (*document.Document, error)
	remove func(int64) error
}

func (s *stubDocuments) Readiness(_ context.Context, act actor.Actor, profileID int64) (*document.Readiness, error) {
	if act.Role == actor.RoleApplicant && profileID != 7 {
		return nil, actor.ErrPermissionDenied
	}
	return &document.Readiness{ProfileID: profileID, Score: 80, ProfileCompleteness: 1, ApprovedDocuments: 3, TotalDocuments: 6}, nil
}

func (s *stubDocuments) ListDocumentTypes() []document.Type { return document.Types() }

func (s *stubDocuments) UploadDocument(_ context.Context, _ actor.Actor, in document.UploadInput) (*document.Document, error) {
	content, err := io.ReadAll(in.Content)
	if err != nil {
		return nil, err
	}
	return s.upload(in, content)
}

func (s *stubDocuments) ReviewDocument(_ context.Context, _ actor.Actor, in document.ReviewInput) (*document.Document, error) {
	return s.review(in)
}

func (s *stubDocuments) DeleteDocument(_ context.Context, _ actor.Actor, id int64) error {
	return s.remove(id)
}

type stubNotifications struct {
	notification.UseCase

	list func(actor.Actor, notification.ListInput) (*notification.ListResult, error)
}

func (s *stubNotifications) List(_ context.Context, act actor.Actor, in notification.ListInput) (*notification.ListResult, error) {
	return s.list(act, in)
}

type testDeps struct {
	applicants    *stubApplicants
	documents     *stubDocuments
	notifications *stubNotifications
	regions       RegionLookup
	health        HealthCheck
}

func newTestServer(t *testing.T, deps testDeps) http.Handler {
	t.Helper()

	if deps.applicants == nil {
		deps.applicants = &stubApplicants{}
	}
	if deps.documents == nil {
		deps.documents = &stubDocuments{}
	}
	if deps.notifications == nil {
		deps.notifications = &stubNotifications{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(deps.applicants, deps.documents, deps.notifications, logger, 1<<20)
	if deps.regions != nil {
		h.WithRegions(deps.regions)
	}
	return NewRouter(RouterConfig{
		Handler:   h,
		Validator: stubValidator{},
		Health:    deps.health,
		Logger:    logger,
	})
}

func doRequest(t *testing.T, srv http.Handler, method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dest))
}

func submittedProfile() *applicant.Profile {
	submitted := fixedNow.Add(-time.Hour)
	birth := time.Date(1998, 4, 2, 0, 0, 0, 0, time.UTC)
	return &applicant.Profile{
		ID:          7,
		PublicID:    "2f1c0e9a-3b6d-4a3e-9b7a-5d1f2c3b4a5e",
		UserID:      applicantActor.ID,
		FullName:    "Siti Rahmawati",
		NIK:         "3204123456789012",
		BirthDate:   &birth,
		Status:      applicant.StatusSubmitted,
		SubmittedAt: &submitted,
		Version:     3,
		CreatedAt:   fixedNow.Add(-24 * time.Hour),
		UpdatedAt:   submitted,
	}
}

func TestRouter_RequiresBearerToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/applicants/pending", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/applicants/pending", "forged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "unauthorized", body.Error)
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()

	healthy := newTestServer(t, testDeps{health: func(context.Context) error { return nil }})
	assert.Equal(t, http.StatusOK, doRequest(t, healthy, http.MethodGet, "/healthz", "", nil, "").Code)

	broken := newTestServer(t, testDeps{health: func(context.Context) error { return errors.New("db down") }})
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, broken, http.MethodGet, "/healthz", "", nil, "").Code)
}

func TestApprove_Success(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{approve: func(in applicant.ApproveInput) (*applicant.Profile, error) {
		assert.Equal(t, int64(7), in.ID)
		assert.Equal(t, "dokumen lengkap", in.Notes)
		p := submittedProfile()
		p.Status = applicant.StatusAccepted
		verifier := staffActor.ID
		p.VerifiedBy = &verifier
		p.VerifiedAt = &fixedNow
		return p, nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/approve", staffToken, strings.NewReader(`{"notes":"dokumen lengkap"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body profileResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "ACCEPTED", body.Status)
	assert.Equal(t, staffActor.ID, *body.VerifiedBy)
	assert.Equal(t, "1998-04-02", *body.BirthDate)
	assert.Equal(t, staffActor, stub.lastActor)
}

func TestApprove_WithoutBody(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{approve: func(in applicant.ApproveInput) (*applicant.Profile, error) {
		assert.Empty(t, in.Notes)
		return submittedProfile(), nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/approve", staffToken, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTransition_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "validation", err: applicant.NewValidationError("notes", "is required when rejecting"), wantStatus: http.StatusBadRequest, wantCode: "validation_failed"},
		{name: "state", err: &applicant.StateError{Operation: applicant.OpReject, Current: applicant.StatusAccepted, Expected: applicant.StatusSubmitted}, wantStatus: http.StatusConflict, wantCode: "invalid_state"},
		{name: "conflict", err: applicant.ErrConflict, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "not found", err: applicant.ErrProfileNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "permission", err: actor.ErrPermissionDenied, wantStatus: http.StatusForbidden, wantCode: "permission_denied"},
		{name: "dependency", err: document.ErrStorageUnavailable, wantStatus: http.StatusServiceUnavailable, wantCode: "unavailable"},
		{name: "internal", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stub := &stubApplicants{reject: func(applicant.RejectInput) (*applicant.Profile, error) { return nil, tt.err }}
			srv := newTestServer(t, testDeps{applicants: stub})

			rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/reject", staffToken, strings.NewReader(`{"notes":"x"}`), "application/json")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body errorResponse
			decodeBody(t, rec, &body)
			assert.Equal(t, tt.wantCode, body.Error)
			if tt.wantCode == "internal" {
				assert.NotContains(t, body.Message, "boom")
			}
		})
	}
}

func TestTransition_InvalidPathID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/abc/approve", staffToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidationError_IncludesFields(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{create: func(applicant.CreateProfileInput) (*applicant.Profile, error) {
		verr := &applicant.ValidationError{}
		verr.Add("nik", "must be exactly 16 digits")
		verr.Add("contact_phone", "must start with 08 or +62")
		return nil, verr
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants", applicantToken, strings.NewReader(`{"nik":"123"}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, "must be exactly 16 digits", body.Fields["nik"])
	assert.Contains(t, body.Fields, "contact_phone")
}

func TestCreateProfile_MapsRequest(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{create: func(in applicant.CreateProfileInput) (*applicant.Profile, error) {
		require.NotNil(t, in.Changes.FullName)
		assert.Equal(t, "Siti Rahmawati", *in.Changes.FullName)
		require.NotNil(t, in.Changes.BirthDate)
		assert.Equal(t, "1998-04-02", in.Changes.BirthDate.Format(dateLayout))
		require.NotNil(t, in.Changes.Gender)
		assert.Equal(t, applicant.GenderFemale, *in.Changes.Gender)
		require.NotNil(t, in.Changes.Region)
		assert.Equal(t, "3204", in.Changes.Region.RegencyCode)
		require.NotNil(t, in.Changes.Passport)
		assert.Equal(t, "2030-01-31", in.Changes.Passport.ExpiryDate.Format(dateLayout))
		p := submittedProfile()
		p.Status = applicant.StatusDraft
		return p, nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	body := `{
		"full_name": "Siti Rahmawati",
		"birth_date": "1998-04-02",
		"gender": "f",
		"region": {"province_code": "32", "regency_code": "3204"},
		"passport": {"has_passport": true, "number": "AB1234567", "issue_date": "2025-01-31", "expiry_date": "2030-01-31"}
	}`
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants", applicantToken, strings.NewReader(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestCreateProfile_RejectsBadDateAndUnknownFields(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants", applicantToken, strings.NewReader(`{"birth_date":"02/04/1998"}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body errorResponse
	decodeBody(t, rec, &body)
	assert.Contains(t, body.Fields, "birth_date")

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/applicants", applicantToken, strings.NewReader(`{"verification_status":"ACCEPTED"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProfile_UserIDImmutable(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodPatch, "/api/v1/applicants/7", applicantToken, strings.NewReader(`{"user_id":"someone-else"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProfile_ByPublicID(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{byPublic: func(publicID string) (*applicant.Profile, error) {
		assert.Equal(t, "2f1c0e9a-3b6d-4a3e-9b7a-5d1f2c3b4a5e", publicID)
		return submittedProfile(), nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/applicants/2f1c0e9a-3b6d-4a3e-9b7a-5d1f2c3b4a5e", staffToken, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListPending_Order(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{pending: func(in applicant.ListPendingReviewInput) (*applicant.ListProfilesResult, error) {
		assert.True(t, in.Descending)
		assert.Equal(t, 20, in.PageSize)
		assert.Equal(t, "40", in.PageToken)
		return &applicant.ListProfilesResult{Profiles: []*applicant.Profile{submittedProfile()}, NextPageToken: "60"}, nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/applicants/pending?order=desc&page_size=20&page_token=40", staffToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body profileListResponse
	decodeBody(t, rec, &body)
	assert.Len(t, body.Profiles, 1)
	assert.Equal(t, "60", body.NextPageToken)
}

func TestListPending_BadPageSize(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/applicants/pending?page_size=many", staffToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkStatus(t *testing.T) {
	t.Parallel()

	stub := &stubApplicants{bulk: func(in applicant.BulkUpdateStatusInput) (*applicant.BulkUpdateStatusResult, error) {
		assert.Equal(t, []int64{1, 2, 3}, in.ProfileIDs)
		assert.Equal(t, applicant.StatusRejected, in.Status)
		return &applicant.BulkUpdateStatusResult{
			Changed: []int64{1, 3},
			Skipped: []applicant.BulkSkip{{ProfileID: 2, Reason: applicant.SkipInvalidState, Detail: "cannot reject profile in status DRAFT (expected SUBMITTED)"}},
		}, nil
	}}
	srv := newTestServer(t, testDeps{applicants: stub})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/bulk-status", staffToken, strings.NewReader(`{"profile_ids":[1,2,3],"status":"rejected","notes":"berkas tidak lengkap"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body bulkStatusResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, []int64{1, 3}, body.Changed)
	require.Len(t, body.Skipped, 1)
	assert.Equal(t, "invalid_state", body.Skipped[0].Reason)
}

func multipartBody(t *testing.T, typeCode, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", typeCode))
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	t.Parallel()

	docs := &stubDocuments{upload: func(in document.UploadInput, content []byte) (*document.Document, error) {
		assert.Equal(t, int64(7), in.ProfileID)
		assert.Equal(t, "ktp", in.TypeCode)
		assert.Equal(t, "ktp-siti.jpg", in.FileName)
		assert.Equal(t, int64(len(content)), in.Size)
		assert.Equal(t, "jpeg-bytes", string(content))
		return &document.Document{
			ID:           11,
			ProfileID:    7,
			TypeCode:     "ktp",
			File:         document.File{Key: "documents/7/ktp/siti-rahmawati-9012-ktp.jpg", OriginalName: in.FileName, Size: in.Size},
			UploadedAt:   fixedNow,
			OCRStatus:    document.OCRPending,
			ReviewStatus: document.ReviewPending,
			Version:      1,
		}, nil
	}}
	srv := newTestServer(t, testDeps{documents: docs})

	body, contentType := multipartBody(t, "ktp", "ktp-siti.jpg", []byte("jpeg-bytes"))
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/documents", applicantToken, body, contentType)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp documentResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "PENDING", resp.OCRStatus)
	assert.Equal(t, "PENDING", resp.ReviewStatus)
	assert.NotContains(t, rec.Body.String(), "documents/7/ktp", "storage key must not leak")
}

func TestUploadDocument_TooLarge(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	body, contentType := multipartBody(t, "ijasah", "ijasah.pdf", bytes.Repeat([]byte("a"), 2<<20))
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/documents", applicantToken, body, contentType)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadDocument_MissingFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("document_type", "ktp"))
	require.NoError(t, mw.Close())

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodPost, "/api/v1/applicants/7/documents", applicantToken, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewDocument(t *testing.T) {
	t.Parallel()

	docs := &stubDocuments{review: func(in document.ReviewInput) (*document.Document, error) {
		assert.Equal(t, document.ReviewRejected, in.Decision)
		if in.Notes == "" {
			return nil, applicant.NewValidationError("notes", "is required when rejecting")
		}
		return &document.Document{ID: in.ID, ReviewStatus: document.ReviewRejected, ReviewNotes: in.Notes}, nil
	}}
	srv := newTestServer(t, testDeps{documents: docs})

	rec := doRequest(t, srv, http.MethodPost, "/api/v1/documents/11/review", staffToken, strings.NewReader(`{"decision":"rejected","notes":"foto buram"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/v1/documents/11/review", staffToken, strings.NewReader(`{"decision":"REJECTED"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	t.Parallel()

	docs := &stubDocuments{remove: func(id int64) error {
		if id == 11 {
			return nil
		}
		return document.ErrDocumentNotFound
	}}
	srv := newTestServer(t, testDeps{documents: docs})

	assert.Equal(t, http.StatusNoContent, doRequest(t, srv, http.MethodDelete, "/api/v1/documents/11", applicantToken, nil, "").Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, srv, http.MethodDelete, "/api/v1/documents/12", applicantToken, nil, "").Code)
}

func TestListDocumentTypes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/document-types", applicantToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		DocumentTypes []documentTypeResponse `json:"document_types"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.DocumentTypes, 12)
}

func TestListNotifications(t *testing.T) {
	t.Parallel()

	read := fixedNow
	notes := &stubNotifications{list: func(act actor.Actor, in notification.ListInput) (*notification.ListResult, error) {
		assert.Equal(t, applicantActor, act)
		assert.True(t, in.UnreadOnly)
		return &notification.ListResult{Notifications: []*notification.Notification{
			{ID: 2, UserID: act.ID, Title: "Profil disetujui", Type: notification.TypeVerification, CreatedAt: fixedNow},
			{ID: 1, UserID: act.ID, Title: "Profil dikirim untuk verifikasi", Type: notification.TypeVerification, ReadAt: &read, CreatedAt: fixedNow},
		}}, nil
	}}
	srv := newTestServer(t, testDeps{notifications: notes})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/notifications?unread=true", applicantToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body notificationListResponse
	decodeBody(t, rec, &body)
	require.Len(t, body.Notifications, 2)
	assert.False(t, body.Notifications[0].Read)
	assert.True(t, body.Notifications[1].Read)
}

type stubRegions func(ctx context.Context, level region.Level, parentCode string) ([]*region.Region, error)

func (f stubRegions) ListChildren(ctx context.Context, level region.Level, parentCode string) ([]*region.Region, error) {
	return f(ctx, level, parentCode)
}

func TestHandler_ListRegions(t *testing.T) {
	t.Parallel()

	var gotLevel region.Level
	var gotParent string
	srv := newTestServer(t, testDeps{regions: stubRegions(func(_ context.Context, level region.Level, parentCode string) ([]*region.Region, error) {
		gotLevel, gotParent = level, parentCode
		if level == "planet" {
			return nil, region.ErrInvalidLevel
		}
		return []*region.Region{{Code: "3204", Name: "KABUPATEN BANDUNG", Level: region.LevelRegency, ParentCode: "32"}}, nil
	})})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/regions/regency?parent=32", applicantToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, region.LevelRegency, gotLevel)
	assert.Equal(t, "32", gotParent)

	var body struct {
		Regions []regionResponse `json:"regions"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Regions, 1)
	assert.Equal(t, "3204", body.Regions[0].Code)
	assert.Equal(t, "32", body.Regions[0].ParentCode)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/regions/planet", applicantToken, nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RegionsRouteDisabledWithoutLookup(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})
	rec := doRequest(t, srv, http.MethodGet, "/api/v1/regions/province", applicantToken, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Readiness(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, testDeps{})

	rec := doRequest(t, srv, http.MethodGet, "/api/v1/applicants/7/readiness", applicantToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body readinessResponse
	decodeBody(t, rec, &body)
	assert.Equal(t, int64(7), body.ProfileID)
	assert.InDelta(t, 80.0, body.Score, 0.001)
	assert.Equal(t, 3, body.ApprovedDocuments)
	assert.Equal(t, 6, body.TotalDocuments)

	rec = doRequest(t, srv, http.MethodGet, "/api/v1/applicants/8/readiness", applicantToken, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
