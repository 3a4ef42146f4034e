package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/platform/auth"
)

// VerificationGrpcHandler は VerificationService の gRPC 実装です。
type VerificationGrpcHandler struct {
	applicants applicant.UseCase
	documents  document.UseCase
}

var _ VerificationServiceServer = (*VerificationGrpcHandler)(nil)

// NewVerificationGrpcHandler は VerificationGrpcHandler を生成します。
func NewVerificationGrpcHandler(applicants applicant.UseCase, documents document.UseCase) *VerificationGrpcHandler {
	return &VerificationGrpcHandler{applicants: applicants, documents: documents}
}

func actorFromContext(ctx context.Context) (actor.Actor, error) {
	act, ok := auth.ActorFromContext(ctx)
	if !ok {
		return actor.Actor{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	return act, nil
}

// GetProfile はプロフィールを取得します。
func (h *VerificationGrpcHandler) GetProfile(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	p, err := h.applicants.GetProfile(ctx, act, applicant.GetProfileInput{ID: req.GetValue()})
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toProfileStruct(p))
}

// ListPendingReview は審査待ちプロフィールを提出日時順に返します。
func (h *VerificationGrpcHandler) ListPendingReview(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fr := newFieldReader(req)
	in := applicant.ListPendingReviewInput{
		PageSize:   int(fr.getInt64("page_size")),
		PageToken:  fr.getString("page_token"),
		Descending: fr.getBool("descending"),
	}
	if err := fr.err(); err != nil {
		return nil, toStatusError(err)
	}

	res, err := h.applicants.ListPendingReview(ctx, act, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toProfileListStruct(res))
}

// ApproveProfile は提出済みプロフィールを承認します。
func (h *VerificationGrpcHandler) ApproveProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fr := newFieldReader(req)
	in := applicant.ApproveInput{ID: fr.getInt64("id"), Notes: fr.getString("notes")}
	if err := fr.err(); err != nil {
		return nil, toStatusError(err)
	}

	p, err := h.applicants.Approve(ctx, act, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toProfileStruct(p))
}

// RejectProfile は提出済みプロフィールを却下します。
func (h *VerificationGrpcHandler) RejectProfile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fr := newFieldReader(req)
	in := applicant.RejectInput{ID: fr.getInt64("id"), Notes: fr.getString("notes")}
	if err := fr.err(); err != nil {
		return nil, toStatusError(err)
	}

	p, err := h.applicants.Reject(ctx, act, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toProfileStruct(p))
}

// BulkUpdateStatus は複数プロフィールを一括で承認または却下します。
func (h *VerificationGrpcHandler) BulkUpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fr := newFieldReader(req)
	in := applicant.BulkUpdateStatusInput{
		ProfileIDs: fr.getInt64List("profile_ids"),
		Status:     applicant.VerificationStatus(strings.ToUpper(strings.TrimSpace(fr.getString("status")))),
		Notes:      fr.getString("notes"),
	}
	if err := fr.err(); err != nil {
		return nil, toStatusError(err)
	}

	res, err := h.applicants.BulkUpdateStatus(ctx, act, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toBulkResultStruct(res))
}

// ReviewDocument は書類を承認または差し戻します。
func (h *VerificationGrpcHandler) ReviewDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	act, err := actorFromContext(ctx)
	if err != nil {
		return nil, err
	}

	fr := newFieldReader(req)
	in := document.ReviewInput{
		ID:       fr.getInt64("id"),
		Decision: document.ReviewStatus(strings.ToUpper(strings.TrimSpace(fr.getString("decision")))),
		Notes:    fr.getString("notes"),
	}
	if err := fr.err(); err != nil {
		return nil, toStatusError(err)
	}

	doc, err := h.documents.ReviewDocument(ctx, act, in)
	if err != nil {
		return nil, toStatusError(err)
	}
	return marshalResult(toDocumentStruct(doc))
}

func marshalResult(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}
