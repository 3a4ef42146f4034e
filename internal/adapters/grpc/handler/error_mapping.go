package handler

import (
	"errors"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kmsconnect/kms-connect/internal/core/account"
	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/ocr"
	"github.com/kmsconnect/kms-connect/internal/core/region"
)

const (
	unavailableMessage = "a dependent service is temporarily unavailable"
	internalMessage    = "internal error"
)

// causeError はクライアントへは汎用メッセージのみ返し、原因はログ用に保持します。
type causeError struct {
	st    *status.Status
	cause error
}

func (e *causeError) Error() string              { return e.st.Err().Error() }
func (e *causeError) GRPCStatus() *status.Status { return e.st }
func (e *causeError) Unwrap() error              { return e.cause }

func opaqueStatus(code codes.Code, message string, cause error) error {
	return &causeError{st: status.New(code, message), cause: cause}
}

func toStatusError(err error) error {
	var verr *applicant.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &verr):
		return validationStatus(verr)
	case errors.Is(err, applicant.ErrInvalidID),
		errors.Is(err, applicant.ErrInvalidStatus),
		errors.Is(err, applicant.ErrInvalidPageSize),
		errors.Is(err, applicant.ErrInvalidPageToken),
		errors.Is(err, applicant.ErrValidation),
		errors.Is(err, document.ErrInvalidID),
		errors.Is(err, document.ErrUnknownType),
		errors.Is(err, notification.ErrInvalidID),
		errors.Is(err, region.ErrInvalidHierarchy),
		errors.Is(err, region.ErrInvalidLevel):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, applicant.ErrInvalidState), errors.Is(err, document.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, applicant.ErrConflict), errors.Is(err, document.ErrConflict):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, applicant.ErrProfileAlreadyExists), errors.Is(err, account.ErrEmailAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, applicant.ErrProfileNotFound),
		errors.Is(err, document.ErrDocumentNotFound),
		errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, region.ErrRegionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, actor.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, document.ErrStorageUnavailable), errors.Is(err, ocr.ErrProviderUnavailable):
		return opaqueStatus(codes.Unavailable, unavailableMessage, err)
	default:
		return opaqueStatus(codes.Internal, internalMessage, err)
	}
}

// validationStatus は項目ごとのエラーを BadRequest の詳細として添付します。
func validationStatus(verr *applicant.ValidationError) error {
	st := status.New(codes.InvalidArgument, verr.Error())

	fields := make([]string, 0, len(verr.Fields))
	for f := range verr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: verr.Fields[f],
		})
	}
	detailed, err := st.WithDetails(br)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
