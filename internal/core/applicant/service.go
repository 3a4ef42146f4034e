package applicant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kmsconnect/kms-connect/internal/core/account"
	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/region"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

// TransactionManager はトランザクション制御の抽象化です。
type TransactionManager interface {
	WithinReadOnly(ctx context.Context, fn func(context.Context) error) error
	WithinReadWrite(ctx context.Context, fn func(context.Context) error) error
}

type noopTransactionManager struct{}

func (noopTransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

func (noopTransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// AccountReader はプロフィール所有者・紹介者のアカウント参照です。
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*account.User, error)
}

// RegionValidator は行政区コードの整合性を検証します。
type RegionValidator interface {
	ValidateHierarchy(ctx context.Context, codes region.Codes) error
}

// Recorder は審査操作の計測を行います。
type Recorder interface {
	RecordTransition(operation, result string)
	RecordBulkUpdate(changed, skipped int)
}

type noopRecorder struct{}

func (noopRecorder) RecordTransition(string, string) {}
func (noopRecorder) RecordBulkUpdate(int, int)       {}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
	maxBulkSize         = 500
)

// BulkSkipReason は一括更新で対象外となった理由です。
type BulkSkipReason string

const (
	SkipInvalidState BulkSkipReason = "invalid_state"
	SkipNotFound     BulkSkipReason = "not_found"
	SkipConflict     BulkSkipReason = "conflict"
	SkipError        BulkSkipReason = "error"
)

// Service は応募者プロフィールと審査ワークフローのユースケースをまとめます。
type Service struct {
	repo     Repository
	clock    Clock
	tx       TransactionManager
	accounts AccountReader
	regions  RegionValidator
	events   EventPublisher
	metrics  Recorder
	logger   *slog.Logger
}

// UseCase は応募者ユースケースの公開インターフェースです。
type UseCase interface {
	CreateProfile(ctx context.Context, act actor.Actor, in CreateProfileInput) (*Profile, error)
	UpdateProfile(ctx context.Context, act actor.Actor, in UpdateProfileInput) (*Profile, error)
	GetProfile(ctx context.Context, act actor.Actor, in GetProfileInput) (*Profile, error)
	GetProfileByPublicID(ctx context.Context, act actor.Actor, publicID string) (*Profile, error)
	GetOwnProfile(ctx context.Context, act actor.Actor) (*Profile, error)
	ListProfiles(ctx context.Context, act actor.Actor, in ListProfilesInput) (*ListProfilesResult, error)
	ListPendingReview(ctx context.Context, act actor.Actor, in ListPendingReviewInput) (*ListProfilesResult, error)
	ReplaceWorkExperiences(ctx context.Context, act actor.Actor, in ReplaceWorkExperiencesInput) ([]WorkExperience, error)
	SubmitForVerification(ctx context.Context, act actor.Actor, in SubmitInput) (*Profile, error)
	Approve(ctx context.Context, act actor.Actor, in ApproveInput) (*Profile, error)
	Reject(ctx context.Context, act actor.Actor, in RejectInput) (*Profile, error)
	Reopen(ctx context.Context, act actor.Actor, in ReopenInput) (*Profile, error)
	BulkUpdateStatus(ctx context.Context, act actor.Actor, in BulkUpdateStatusInput) (*BulkUpdateStatusResult, error)
}

// Option は Service の任意依存を設定します。
type Option func(*Service)

// WithAccounts は所有者・紹介者の検証に使うアカウント参照を設定します。
func WithAccounts(accounts AccountReader) Option {
	return func(s *Service) { s.accounts = accounts }
}

// WithRegions は行政区コードの検証を設定します。
func WithRegions(regions RegionValidator) Option {
	return func(s *Service) { s.regions = regions }
}

// WithEventPublisher は StatusChanged の配送先を設定します。
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithMetrics は計測を設定します。
func WithMetrics(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithLogger はロガーを設定します。
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:    repo,
		clock:   clock,
		tx:      tx,
		events:  noopPublisher{},
		metrics: noopRecorder{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProfileChanges はプロフィールの変更内容です。nil の項目は変更しません。
type ProfileChanges struct {
	FullName     *string
	NIK          *string
	BirthPlace   *string
	BirthDate    *time.Time
	Gender       *Gender
	ContactPhone *string
	Address      *string
	Region       *RegionCodes
	SiblingCount *int
	BirthOrder   *int
	Notes        *string
	Family       *Family
	Passport     *Passport
	ReferrerID   *string
}

// CreateProfileInput はプロフィール作成時の入力です。
type CreateProfileInput struct {
	UserID  string
	Changes ProfileChanges
}

// UpdateProfileInput はプロフィール更新時の入力です。
type UpdateProfileInput struct {
	ID      int64
	Changes ProfileChanges
}

// GetProfileInput はプロフィール取得時の入力です。
type GetProfileInput struct {
	ID int64
}

// ListProfilesInput は一覧取得時の入力です。
type ListProfilesInput struct {
	PageSize     int
	PageToken    string
	Status       *VerificationStatus
	ReferrerID   *string
	ProvinceCode *string
	Order        SortOrder
}

// ListPendingReviewInput は審査待ち一覧の入力です。既定は提出日時の昇順です。
type ListPendingReviewInput struct {
	PageSize   int
	PageToken  string
	Descending bool
}

// ListProfilesResult は一覧取得結果を表します。
type ListProfilesResult struct {
	Profiles      []*Profile
	NextPageToken string
}

// ReplaceWorkExperiencesInput は職歴一覧の置き換え入力です。
type ReplaceWorkExperiencesInput struct {
	ProfileID int64
	Entries   []WorkExperience
}

// SubmitInput は審査提出の入力です。
type SubmitInput struct {
	ID int64
}

// ApproveInput は承認の入力です。
type ApproveInput struct {
	ID    int64
	Notes string
}

// RejectInput は却下の入力です。Notes は必須です。
type RejectInput struct {
	ID    int64
	Notes string
}

// ReopenInput は却下済みプロフィールを下書きへ戻す入力です。
type ReopenInput struct {
	ID    int64
	Notes string
}

// BulkUpdateStatusInput は一括審査の入力です。
type BulkUpdateStatusInput struct {
	ProfileIDs []int64
	Status     VerificationStatus
	Notes      string
}

// BulkSkip は一括審査で変更されなかったプロフィールです。
type BulkSkip struct {
	ProfileID int64
	Reason    BulkSkipReason
	Detail    string
}

// BulkUpdateStatusResult は一括審査の結果です。
type BulkUpdateStatusResult struct {
	Changed []int64
	Skipped []BulkSkip
}

// CreateProfile は下書き状態のプロフィールを作成します。
func (s *Service) CreateProfile(ctx context.Context, act actor.Actor, in CreateProfileInput) (*Profile, error) {
	userID := strings.TrimSpace(in.UserID)
	switch {
	case act.IsApplicant():
		if userID == "" {
			userID = act.ID
		}
		if userID != act.ID {
			return nil, actor.ErrPermissionDenied
		}
	case act.IsBackoffice():
		if userID == "" {
			return nil, NewValidationError("user_id", "is required")
		}
	default:
		return nil, actor.ErrPermissionDenied
	}

	now := s.clock.Now()
	profile := &Profile{
		PublicID:  uuid.NewString(),
		UserID:    userID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyChanges(profile, in.Changes)

	if err := s.validate(ctx, profile, now); err != nil {
		return nil, err
	}

	var created *Profile
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		if err := s.checkAccounts(txCtx, profile); err != nil {
			return err
		}

		existing, err := s.repo.FindByUserID(txCtx, userID)
		if err != nil && !errors.Is(err, ErrProfileNotFound) {
			return err
		}
		if existing != nil {
			return ErrProfileAlreadyExists
		}

		result, err := s.repo.Create(txCtx, profile)
		if err != nil {
			return translateNIKConflict(err)
		}
		created = result
		return nil
	}); err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateProfile はプロフィールの基本情報を部分更新します。
func (s *Service) UpdateProfile(ctx context.Context, act actor.Actor, in UpdateProfileInput) (*Profile, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if in.Changes.ReferrerID != nil && !act.IsBackoffice() {
		return nil, NewValidationError("referrer_id", "can only be changed by staff")
	}

	var updated *Profile
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if err := authorizeEdit(act, existing); err != nil {
			return err
		}

		now := s.clock.Now()
		changed := existing.Clone()
		applyChanges(changed, in.Changes)
		changed.UpdatedAt = now

		if err := s.validate(txCtx, changed, now); err != nil {
			return err
		}
		if in.Changes.ReferrerID != nil {
			if err := s.checkAccounts(txCtx, changed); err != nil {
				return err
			}
		}

		result, err := s.repo.Update(txCtx, changed)
		if err != nil {
			return translateNIKConflict(err)
		}
		updated = result
		return nil
	}); err != nil {
		return nil, err
	}

	return updated, nil
}

// GetProfile は ID でプロフィールを取得します。所有者または管理側のみ参照できます。
func (s *Service) GetProfile(ctx context.Context, act actor.Actor, in GetProfileInput) (*Profile, error) {
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.load(ctx, act, func(txCtx context.Context) (*Profile, error) {
		return s.repo.FindByID(txCtx, in.ID)
	})
}

// GetProfileByPublicID は公開 ID でプロフィールを取得します。
func (s *Service) GetProfileByPublicID(ctx context.Context, act actor.Actor, publicID string) (*Profile, error) {
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, fmt.Errorf("public_id: %w", ErrInvalidID)
	}
	return s.load(ctx, act, func(txCtx context.Context) (*Profile, error) {
		return s.repo.FindByPublicID(txCtx, publicID)
	})
}

// GetOwnProfile は操作主体自身のプロフィールを取得します。
func (s *Service) GetOwnProfile(ctx context.Context, act actor.Actor) (*Profile, error) {
	if act.ID == "" {
		return nil, actor.ErrPermissionDenied
	}
	return s.load(ctx, act, func(txCtx context.Context) (*Profile, error) {
		return s.repo.FindByUserID(txCtx, act.ID)
	})
}

func (s *Service) load(ctx context.Context, act actor.Actor, find func(context.Context) (*Profile, error)) (*Profile, error) {
	var profile *Profile
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		found, err := find(txCtx)
		if err != nil {
			return err
		}
		if err := authorizeRead(act, found); err != nil {
			return err
		}
		experiences, err := s.repo.ListWorkExperiences(txCtx, found.ID)
		if err != nil {
			return err
		}
		found.WorkExperiences = experiences
		profile = found
		return nil
	}); err != nil {
		return nil, err
	}
	return profile, nil
}

// ListProfiles はプロフィールの一覧を取得します。
func (s *Service) ListProfiles(ctx context.Context, act actor.Actor, in ListProfilesInput) (*ListProfilesResult, error) {
	if err := act.RequireBackoffice(); err != nil {
		return nil, err
	}
	if in.Status != nil && !in.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	order := in.Order
	switch order {
	case "":
		order = SortCreatedDesc
	case SortCreatedDesc, SortSubmittedAsc, SortSubmittedDesc:
	default:
		return nil, NewValidationError("order", "is not supported")
	}

	return s.list(ctx, in.PageSize, in.PageToken, ListProfilesFilter{
		Status:       in.Status,
		ReferrerID:   trimmedPtr(in.ReferrerID),
		ProvinceCode: trimmedPtr(in.ProvinceCode),
		Order:        order,
	})
}

// ListPendingReview は審査待ちのプロフィールを提出日時の古い順に返します。
func (s *Service) ListPendingReview(ctx context.Context, act actor.Actor, in ListPendingReviewInput) (*ListProfilesResult, error) {
	if err := act.RequireBackoffice(); err != nil {
		return nil, err
	}

	status := StatusSubmitted
	order := SortSubmittedAsc
	if in.Descending {
		order = SortSubmittedDesc
	}

	return s.list(ctx, in.PageSize, in.PageToken, ListProfilesFilter{Status: &status, Order: order})
}

func (s *Service) list(ctx context.Context, pageSize int, pageToken string, filter ListProfilesFilter) (*ListProfilesResult, error) {
	limit, err := normalizePageSize(pageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(pageToken)
	if err != nil {
		return nil, err
	}
	filter.Limit = limit
	filter.Offset = offset

	var (
		profiles  []*Profile
		nextToken string
	)
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, token, err := s.repo.List(txCtx, filter)
		if err != nil {
			return err
		}
		profiles = result
		nextToken = token
		return nil
	}); err != nil {
		return nil, err
	}

	return &ListProfilesResult{Profiles: profiles, NextPageToken: nextToken}, nil
}

// ReplaceWorkExperiences は職歴一覧を置き換えます。
func (s *Service) ReplaceWorkExperiences(ctx context.Context, act actor.Actor, in ReplaceWorkExperiencesInput) ([]WorkExperience, error) {
	if in.ProfileID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	entries := make([]WorkExperience, len(in.Entries))
	for i, e := range in.Entries {
		entries[i] = e.clone()
	}
	if verr := validateWorkExperiences(entries, s.clock.Now()); verr.HasErrors() {
		return nil, verr
	}

	var saved []WorkExperience
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.FindByID(txCtx, in.ProfileID)
		if err != nil {
			return err
		}
		if err := authorizeEdit(act, existing); err != nil {
			return err
		}
		result, err := s.repo.ReplaceWorkExperiences(txCtx, in.ProfileID, entries)
		if err != nil {
			return err
		}
		saved = result
		return nil
	}); err != nil {
		return nil, err
	}

	return saved, nil
}

// SubmitForVerification は所有者が下書きを審査へ提出します。
func (s *Service) SubmitForVerification(ctx context.Context, act actor.Actor, in SubmitInput) (*Profile, error) {
	return s.transition(ctx, act, in.ID, OpSubmit, "", func(p *Profile) error {
		if !act.IsApplicant() || !p.IsOwnedBy(act.ID) {
			return actor.ErrPermissionDenied
		}
		return nil
	})
}

// Approve は提出済みプロフィールを承認します。
func (s *Service) Approve(ctx context.Context, act actor.Actor, in ApproveInput) (*Profile, error) {
	return s.transition(ctx, act, in.ID, OpApprove, strings.TrimSpace(in.Notes), backofficeOnly(act))
}

// Reject は提出済みプロフィールを却下します。理由の入力は状態に関わらず必須です。
func (s *Service) Reject(ctx context.Context, act actor.Actor, in RejectInput) (*Profile, error) {
	notes := strings.TrimSpace(in.Notes)
	if notes == "" {
		return nil, NewValidationError("notes", "is required when rejecting")
	}
	return s.transition(ctx, act, in.ID, OpReject, notes, backofficeOnly(act))
}

// Reopen は却下済みプロフィールを下書きへ戻します。管理者のみ実行できます。
func (s *Service) Reopen(ctx context.Context, act actor.Actor, in ReopenInput) (*Profile, error) {
	return s.transition(ctx, act, in.ID, OpReopen, strings.TrimSpace(in.Notes), func(*Profile) error {
		return act.RequireAdmin()
	})
}

// BulkUpdateStatus は複数プロフィールへ同じ審査結果を適用します。
// 各プロフィールは個別のトランザクションで処理され、失敗したものは Skipped に記録されます。
func (s *Service) BulkUpdateStatus(ctx context.Context, act actor.Actor, in BulkUpdateStatusInput) (*BulkUpdateStatusResult, error) {
	if err := act.RequireBackoffice(); err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(in.Notes)
	var op Operation
	switch in.Status {
	case StatusAccepted:
		op = OpApprove
	case StatusRejected:
		op = OpReject
		if notes == "" {
			return nil, NewValidationError("notes", "is required when rejecting")
		}
	default:
		return nil, &ValidationError{Fields: map[string]string{"status": "must be ACCEPTED or REJECTED"}, cause: ErrInvalidStatus}
	}

	if len(in.ProfileIDs) == 0 {
		return nil, NewValidationError("profile_ids", "must not be empty")
	}
	if len(in.ProfileIDs) > maxBulkSize {
		return nil, NewValidationError("profile_ids", "must not contain more than "+strconv.Itoa(maxBulkSize)+" ids")
	}

	result := &BulkUpdateStatusResult{Changed: []int64{}, Skipped: []BulkSkip{}}
	seen := make(map[int64]struct{}, len(in.ProfileIDs))
	for _, id := range in.ProfileIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		_, err := s.transition(ctx, act, id, op, notes, backofficeOnly(act))
		if err == nil {
			result.Changed = append(result.Changed, id)
			continue
		}

		skip := BulkSkip{ProfileID: id, Reason: SkipError}
		switch {
		case errors.Is(err, ErrInvalidState):
			skip.Reason = SkipInvalidState
			skip.Detail = err.Error()
		case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrInvalidID):
			skip.Reason = SkipNotFound
		case errors.Is(err, ErrConflict):
			skip.Reason = SkipConflict
		default:
			s.logger.ErrorContext(ctx, "bulk status update failed",
				"profile_id", id,
				"status", in.Status,
				"actor_id", act.ID,
				"error", err,
			)
		}
		result.Skipped = append(result.Skipped, skip)
	}

	s.metrics.RecordBulkUpdate(len(result.Changed), len(result.Skipped))
	return result, nil
}

func (s *Service) transition(ctx context.Context, act actor.Actor, id int64, op Operation, notes string, authorize func(*Profile) error) (*Profile, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}

	var (
		updated  *Profile
		previous VerificationStatus
	)
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := authorize(current); err != nil {
			return err
		}

		next, err := NextStatus(current.Status, op)
		if err != nil {
			return err
		}
		if op == OpSubmit {
			if err := submissionErrors(current).OrNil(); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		t := Transition{
			ProfileID:       current.ID,
			From:            current.Status,
			To:              next,
			ExpectedVersion: current.Version,
			SubmittedAt:     current.SubmittedAt,
			VerifiedBy:      current.VerifiedBy,
			VerifiedAt:      current.VerifiedAt,
			Notes:           current.VerificationNotes,
			UpdatedAt:       now,
		}

		switch {
		case op == OpSubmit:
			t.SubmittedAt = &now
			t.VerifiedBy = nil
			t.VerifiedAt = nil
			t.Notes = ""
		case leavesSubmitted(op):
			verifiedAt := now
			if current.SubmittedAt != nil && verifiedAt.Before(*current.SubmittedAt) {
				verifiedAt = *current.SubmittedAt
			}
			verifiedBy := act.ID
			t.VerifiedBy = &verifiedBy
			t.VerifiedAt = &verifiedAt
			t.Notes = notes
		case op == OpReopen:
			t.SubmittedAt = nil
			t.VerifiedBy = nil
			t.VerifiedAt = nil
			if notes != "" {
				t.Notes = notes
			}
		}

		result, err := s.repo.ApplyTransition(txCtx, t)
		if err != nil {
			return err
		}
		updated = result
		previous = current.Status
		return nil
	})

	s.metrics.RecordTransition(string(op), transitionResult(err))
	if err != nil {
		return nil, err
	}

	s.events.PublishStatusChanged(ctx, StatusChanged{
		ProfileID:  updated.ID,
		PublicID:   updated.PublicID,
		OwnerID:    updated.UserID,
		FullName:   updated.FullName,
		OldStatus:  previous,
		NewStatus:  updated.Status,
		ActorID:    act.ID,
		ActorRole:  act.Role,
		Notes:      updated.VerificationNotes,
		OccurredAt: updated.UpdatedAt,
	})

	return updated, nil
}

func (s *Service) validate(ctx context.Context, p *Profile, now time.Time) error {
	verr := validateProfile(p, now)
	if s.regions != nil {
		s.validateRegion(ctx, verr, "region.", p.Region)
		s.validateRegion(ctx, verr, "family.region.", p.Family.Region)
	}
	return verr.OrNil()
}

func (s *Service) validateRegion(ctx context.Context, verr *ValidationError, prefix string, codes RegionCodes) {
	if codes.IsEmpty() {
		return
	}
	err := s.regions.ValidateHierarchy(ctx, codes)
	if err == nil {
		return
	}
	var herr *region.HierarchyError
	if errors.As(err, &herr) {
		verr.Add(prefix+herr.Field, herr.Message)
		return
	}
	s.logger.WarnContext(ctx, "region validation unavailable", "error", err)
}

func (s *Service) checkAccounts(ctx context.Context, p *Profile) error {
	if s.accounts == nil {
		return nil
	}

	verr := &ValidationError{}
	owner, err := s.accounts.FindByID(ctx, p.UserID)
	switch {
	case errors.Is(err, account.ErrUserNotFound):
		verr.Add("user_id", "unknown user")
	case err != nil:
		return err
	case owner.Role != actor.RoleApplicant:
		verr.Add("user_id", "must be an applicant account")
	}

	if p.ReferrerID != nil {
		if *p.ReferrerID == p.UserID {
			verr.Add("referrer_id", "must not refer to the applicant")
		} else {
			referrer, err := s.accounts.FindByID(ctx, *p.ReferrerID)
			switch {
			case errors.Is(err, account.ErrUserNotFound):
				verr.Add("referrer_id", "unknown user")
			case err != nil:
				return err
			case !referrer.IsBackoffice():
				verr.Add("referrer_id", "must be a staff or admin account")
			}
		}
	}

	return verr.OrNil()
}

func submissionErrors(p *Profile) *ValidationError {
	verr := &ValidationError{}
	for _, field := range missingRequiredFields(p) {
		verr.Add(field, "is required before submission")
	}
	if _, msg := NormalizeNIK(p.NIK); msg != "" {
		verr.Add("nik", msg)
	}
	return verr
}

func authorizeRead(act actor.Actor, p *Profile) error {
	if act.IsBackoffice() || p.IsOwnedBy(act.ID) {
		return nil
	}
	return actor.ErrPermissionDenied
}

// authorizeEdit は所有者には下書きのみ、管理側には下書きと提出済みの編集を許可します。
func authorizeEdit(act actor.Actor, p *Profile) error {
	switch {
	case act.IsBackoffice():
		if p.Status != StatusDraft && p.Status != StatusSubmitted {
			return &StateError{Operation: "update", Current: p.Status, Expected: StatusDraft}
		}
		return nil
	case p.IsOwnedBy(act.ID):
		if p.Status != StatusDraft {
			return &StateError{Operation: "update", Current: p.Status, Expected: StatusDraft}
		}
		return nil
	default:
		return actor.ErrPermissionDenied
	}
}

func backofficeOnly(act actor.Actor) func(*Profile) error {
	return func(*Profile) error {
		return act.RequireBackoffice()
	}
}

func transitionResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, actor.ErrPermissionDenied):
		return "denied"
	default:
		return "error"
	}
}

func translateNIKConflict(err error) error {
	if errors.Is(err, ErrNIKAlreadyExists) {
		return &ValidationError{Fields: map[string]string{"nik": "is already registered"}, cause: ErrNIKAlreadyExists}
	}
	return err
}

func applyChanges(p *Profile, c ProfileChanges) {
	if c.FullName != nil {
		p.FullName = *c.FullName
	}
	if c.NIK != nil {
		p.NIK = *c.NIK
	}
	if c.BirthPlace != nil {
		p.BirthPlace = *c.BirthPlace
	}
	if c.BirthDate != nil {
		p.BirthDate = cloneTime(c.BirthDate)
	}
	if c.Gender != nil {
		p.Gender = *c.Gender
	}
	if c.ContactPhone != nil {
		p.ContactPhone = *c.ContactPhone
	}
	if c.Address != nil {
		p.Address = *c.Address
	}
	if c.Region != nil {
		p.Region = *c.Region
	}
	if c.SiblingCount != nil {
		p.SiblingCount = cloneInt(c.SiblingCount)
	}
	if c.BirthOrder != nil {
		p.BirthOrder = cloneInt(c.BirthOrder)
	}
	if c.Notes != nil {
		p.Notes = strings.TrimSpace(*c.Notes)
	}
	if c.Family != nil {
		f := *c.Family
		f.FatherAge = cloneInt(c.Family.FatherAge)
		f.MotherAge = cloneInt(c.Family.MotherAge)
		f.SpouseAge = cloneInt(c.Family.SpouseAge)
		p.Family = f
	}
	if c.Passport != nil {
		pp := *c.Passport
		pp.IssueDate = cloneTime(c.Passport.IssueDate)
		pp.ExpiryDate = cloneTime(c.Passport.ExpiryDate)
		p.Passport = pp
	}
	if c.ReferrerID != nil {
		if ref := strings.TrimSpace(*c.ReferrerID); ref != "" {
			p.ReferrerID = &ref
		} else {
			p.ReferrerID = nil
		}
	}
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}

	return offset, nil
}
