package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
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

// Recorder は書類操作の計測を行います。
type Recorder interface {
	RecordUpload(typeCode, result string)
	RecordReview(decision string)
}

type noopRecorder struct{}

func (noopRecorder) RecordUpload(string, string) {}
func (noopRecorder) RecordReview(string)         {}

// Service は書類のアップロード・審査・OCR 結果の取り込みを扱います。
type Service struct {
	repo     Repository
	profiles ProfileReader
	storage  Storage
	clock    Clock
	tx       TransactionManager
	jobs     JobQueue
	metrics  Recorder
	logger   *slog.Logger
	newToken func() string
}

// UseCase は書類ユースケースの公開インターフェースです。
type UseCase interface {
	ListDocumentTypes() []Type
	UploadDocument(ctx context.Context, act actor.Actor, in UploadInput) (*Document, error)
	ListDocuments(ctx context.Context, act actor.Actor, profileID int64) ([]*Document, error)
	GetDocument(ctx context.Context, act actor.Actor, id int64) (*Document, error)
	Checklist(ctx context.Context, act actor.Actor, profileID int64) ([]ChecklistItem, error)
	Readiness(ctx context.Context, act actor.Actor, profileID int64) (*Readiness, error)
	GetKTPPrefill(ctx context.Context, act actor.Actor, profileID int64) (*Prefill, error)
	ReviewDocument(ctx context.Context, act actor.Actor, in ReviewInput) (*Document, error)
	DeleteDocument(ctx context.Context, act actor.Actor, id int64) error
}

// Option は Service の任意依存を設定します。
type Option func(*Service)

// WithJobQueue は OCR ジョブの登録先を設定します。未設定の場合 OCR は実行されません。
func WithJobQueue(q JobQueue) Option {
	return func(s *Service) { s.jobs = q }
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
func NewService(repo Repository, profiles ProfileReader, storage Storage, clock Clock, tx TransactionManager, opts ...Option) *Service {
	if clock == nil {
		clock = realClock{}
	}
	if tx == nil {
		tx = noopTransactionManager{}
	}
	s := &Service{
		repo:     repo,
		profiles: profiles,
		storage:  storage,
		clock:    clock,
		tx:       tx,
		metrics:  noopRecorder{},
		logger:   slog.Default(),
		newToken: uploadToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func uploadToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// UploadInput は書類アップロードの入力です。
type UploadInput struct {
	ProfileID   int64
	TypeCode    string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// ReviewInput は書類審査の入力です。
type ReviewInput struct {
	ID       int64
	Decision ReviewStatus
	Notes    string
}

// ListDocumentTypes は書類種別の一覧を返します。
func (s *Service) ListDocumentTypes() []Type {
	return Types()
}

// UploadDocument は書類ファイルを保存し、記録を作成または置き換えます。
// OCR 対象の種別は同じトランザクションで OCR ジョブを登録し、抽出の完了は待ちません。
func (s *Service) UploadDocument(ctx context.Context, act actor.Actor, in UploadInput) (*Document, error) {
	doc, err := s.upload(ctx, act, in)
	s.metrics.RecordUpload(strings.ToLower(strings.TrimSpace(in.TypeCode)), uploadResult(err))
	return doc, err
}

func (s *Service) upload(ctx context.Context, act actor.Actor, in UploadInput) (*Document, error) {
	if in.ProfileID <= 0 {
		return nil, fmt.Errorf("profile_id: %w", ErrInvalidID)
	}

	typ, ok := LookupType(in.TypeCode)
	if !ok {
		return nil, validationError("document_type", "is not a known document type", ErrUnknownType)
	}

	fileName := filepath.Base(strings.TrimSpace(in.FileName))
	ext := strings.ToLower(filepath.Ext(fileName))
	if !typ.AllowsExtension(ext) {
		return nil, validationError("file", "must be one of "+strings.Join(typ.Extensions, ", "), nil)
	}
	if in.Content == nil || in.Size <= 0 {
		return nil, validationError("file", "is empty", nil)
	}
	if in.Size > typ.MaxBytes {
		return nil, validationError("file", fmt.Sprintf("must not exceed %s", humanSize(typ.MaxBytes)), nil)
	}

	profile, err := s.profiles.FindByID(ctx, in.ProfileID)
	if err != nil {
		return nil, err
	}
	if err := authorizeWrite(act, profile); err != nil {
		return nil, err
	}

	// アップロードごとに別キーへ保存し、既存レコードのファイルはコミット後まで残す。
	key := StorageKey(profile.ID, typ.Code, profile.FullName, profile.NIK, s.newToken(), ext)
	counter := &countingReader{r: io.LimitReader(in.Content, typ.MaxBytes+1)}
	if err := s.storage.Save(ctx, key, counter); err != nil {
		s.deleteFile(ctx, key)
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if counter.n > typ.MaxBytes || counter.n == 0 {
		s.deleteFile(ctx, key)
		if counter.n == 0 {
			return nil, validationError("file", "is empty", nil)
		}
		return nil, validationError("file", fmt.Sprintf("must not exceed %s", humanSize(typ.MaxBytes)), nil)
	}

	now := s.clock.Now()
	ocrStatus := OCRNone
	if typ.OCREligible && s.jobs != nil {
		ocrStatus = OCRPending
	}

	var (
		saved       *Document
		previousKey string
	)
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		locked, err := s.profiles.FindByIDForShare(txCtx, profile.ID)
		if err != nil {
			return err
		}
		if err := authorizeWrite(act, locked); err != nil {
			return err
		}

		existing, err := s.repo.FindByProfileAndType(txCtx, profile.ID, typ.Code)
		if err != nil && !errors.Is(err, ErrDocumentNotFound) {
			return err
		}
		if existing != nil {
			previousKey = existing.File.Key
		}

		result, err := s.repo.Upsert(txCtx, &Document{
			ProfileID: profile.ID,
			TypeCode:  typ.Code,
			File: File{
				Key:          key,
				OriginalName: fileName,
				ContentType:  strings.TrimSpace(in.ContentType),
				Size:         counter.n,
			},
			UploadedAt:   now,
			OCRStatus:    ocrStatus,
			ReviewStatus: ReviewPending,
			UpdatedAt:    now,
		})
		if err != nil {
			return err
		}

		if ocrStatus == OCRPending {
			if err := s.jobs.Enqueue(txCtx, result.ID, now); err != nil {
				return err
			}
		}
		saved = result
		return nil
	})
	if err != nil {
		s.deleteFile(ctx, key)
		return nil, err
	}

	if previousKey != "" && previousKey != key {
		s.deleteFile(ctx, previousKey)
	}

	s.logger.InfoContext(ctx, "document uploaded",
		"document_id", saved.ID,
		"profile_id", saved.ProfileID,
		"document_type", saved.TypeCode,
		"size", saved.File.Size,
		"ocr_status", saved.OCRStatus,
	)
	return saved, nil
}

// ListDocuments はプロフィールの書類一覧を返します。
func (s *Service) ListDocuments(ctx context.Context, act actor.Actor, profileID int64) ([]*Document, error) {
	if profileID <= 0 {
		return nil, fmt.Errorf("profile_id: %w", ErrInvalidID)
	}
	if err := s.authorizeProfileRead(ctx, act, profileID); err != nil {
		return nil, err
	}

	var docs []*Document
	if err := s.tx.WithinReadOnly(ctx, func(txCtx context.Context) error {
		result, err := s.repo.ListByProfile(txCtx, profileID)
		if err != nil {
			return err
		}
		docs = result
		return nil
	}); err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument は書類を 1 件取得します。
func (s *Service) GetDocument(ctx context.Context, act actor.Actor, id int64) (*Document, error) {
	if id <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeProfileRead(ctx, act, doc.ProfileID); err != nil {
		return nil, err
	}
	return doc, nil
}

// Checklist は書類種別ごとの提出状況を返します。
func (s *Service) Checklist(ctx context.Context, act actor.Actor, profileID int64) ([]ChecklistItem, error) {
	docs, err := s.ListDocuments(ctx, act, profileID)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]*Document, len(docs))
	for _, d := range docs {
		byType[d.TypeCode] = d
	}

	types := Types()
	items := make([]ChecklistItem, 0, len(types))
	for _, t := range types {
		item := ChecklistItem{Type: t}
		if d, ok := byType[t.Code]; ok {
			item.Uploaded = true
			item.DocumentID = d.ID
			item.ReviewStatus = d.ReviewStatus
		}
		items = append(items, item)
	}
	return items, nil
}

// Readiness は基本情報の入力率と承認済み書類の割合から準備度を算出します。
func (s *Service) Readiness(ctx context.Context, act actor.Actor, profileID int64) (*Readiness, error) {
	docs, err := s.ListDocuments(ctx, act, profileID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return nil, err
	}

	approved := 0
	for _, d := range docs {
		if d.ReviewStatus == ReviewApproved {
			approved++
		}
	}
	return &Readiness{
		ProfileID:           profileID,
		Score:               applicant.ReadinessScore(profile, approved, len(docs)),
		ProfileCompleteness: profile.CompletenessRatio(),
		ApprovedDocuments:   approved,
		TotalDocuments:      len(docs),
	}, nil
}

// GetKTPPrefill は KTP の OCR 結果からプロフィール入力候補を返します。
func (s *Service) GetKTPPrefill(ctx context.Context, act actor.Actor, profileID int64) (*Prefill, error) {
	if profileID <= 0 {
		return nil, fmt.Errorf("profile_id: %w", ErrInvalidID)
	}
	if err := s.authorizeProfileRead(ctx, act, profileID); err != nil {
		return nil, err
	}

	doc, err := s.repo.FindByProfileAndType(ctx, profileID, TypeKTP)
	if errors.Is(err, ErrDocumentNotFound) {
		return nil, ErrPrefillNotAvailable
	}
	if err != nil {
		return nil, err
	}
	if doc.OCRStatus != OCRCompleted || len(doc.OCRFields) == 0 {
		return nil, ErrPrefillNotAvailable
	}

	f := doc.OCRFields
	prefill := &Prefill{
		FullName:   strings.TrimSpace(f["name"]),
		NIK:        strings.TrimSpace(f["nik"]),
		BirthPlace: strings.TrimSpace(f["birth_place"]),
		BirthDate:  strings.TrimSpace(f["birth_date"]),
		Address:    strings.TrimSpace(f["address"]),
	}
	if g := strings.TrimSpace(f["gender"]); g != "" {
		prefill.Gender = strings.ToUpper(g[:1])
	}
	return prefill, nil
}

// ReviewDocument は審査待ちの書類を承認または却下します。同時審査では 1 件のみ成功します。
func (s *Service) ReviewDocument(ctx context.Context, act actor.Actor, in ReviewInput) (*Document, error) {
	if err := act.RequireBackoffice(); err != nil {
		return nil, err
	}
	if in.ID <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	if in.Decision != ReviewApproved && in.Decision != ReviewRejected {
		return nil, validationError("decision", "must be APPROVED or REJECTED", nil)
	}
	notes := strings.TrimSpace(in.Notes)
	if in.Decision == ReviewRejected && notes == "" {
		return nil, validationError("notes", "is required when rejecting", nil)
	}

	var reviewed *Document
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		doc, err := s.repo.FindByID(txCtx, in.ID)
		if err != nil {
			return err
		}
		if doc.ReviewStatus != ReviewPending {
			return fmt.Errorf("%w: current status %s", ErrInvalidState, doc.ReviewStatus)
		}

		result, err := s.repo.ApplyReview(txCtx, Review{
			DocumentID:      doc.ID,
			ExpectedVersion: doc.Version,
			Status:          in.Decision,
			ReviewedBy:      act.ID,
			ReviewedAt:      s.clock.Now(),
			Notes:           notes,
		})
		if err != nil {
			return err
		}
		reviewed = result
		return nil
	}); err != nil {
		return nil, err
	}

	s.metrics.RecordReview(string(in.Decision))
	return reviewed, nil
}

// DeleteDocument は書類を削除します。申請者本人は下書き中のみ削除できます。
func (s *Service) DeleteDocument(ctx context.Context, act actor.Actor, id int64) error {
	if id <= 0 {
		return fmt.Errorf("id: %w", ErrInvalidID)
	}

	var key string
	if err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		doc, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return err
		}
		profile, err := s.profiles.FindByIDForShare(txCtx, doc.ProfileID)
		if err != nil {
			return err
		}
		if err := authorizeWrite(act, profile); err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return err
		}
		key = doc.File.Key
		return nil
	}); err != nil {
		return err
	}

	s.deleteFile(ctx, key)
	return nil
}

// OpenForOCR は OCR 処理のために書類とファイル本体を開きます。呼び出し側で Close が必要です。
// ファイルが開けない場合も書類は返却されます。
func (s *Service) OpenForOCR(ctx context.Context, documentID int64) (*Document, io.ReadCloser, error) {
	doc, err := s.repo.FindByID(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.storage.Open(ctx, doc.File.Key)
	if err != nil {
		return doc, nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return doc, rc, nil
}

// AttachOCRResult は OCR 結果を書類へ上書き保存します。ファイルが差し替えられていた場合は ErrConflict を返します。
func (s *Service) AttachOCRResult(ctx context.Context, documentID int64, fileKey string, result OCRResult) error {
	if result.ProcessedAt.IsZero() {
		result.ProcessedAt = s.clock.Now()
	}
	return s.repo.AttachOCRResult(ctx, documentID, fileKey, result)
}

// MarkOCRFailed は OCR の失敗を書類へ記録します。OCR 項目は空のまま残ります。
func (s *Service) MarkOCRFailed(ctx context.Context, documentID int64, fileKey string, reason string) error {
	return s.repo.MarkOCRFailed(ctx, documentID, fileKey, reason, s.clock.Now())
}

func (s *Service) authorizeProfileRead(ctx context.Context, act actor.Actor, profileID int64) error {
	if act.IsBackoffice() {
		return nil
	}
	profile, err := s.profiles.FindByID(ctx, profileID)
	if err != nil {
		return err
	}
	if !profile.IsOwnedBy(act.ID) {
		return actor.ErrPermissionDenied
	}
	return nil
}

func (s *Service) deleteFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete stored file", "key", key, "error", err)
	}
}

func authorizeWrite(act actor.Actor, profile *applicant.Profile) error {
	if act.IsBackoffice() {
		return nil
	}
	if !profile.IsOwnedBy(act.ID) {
		return actor.ErrPermissionDenied
	}
	if profile.Status != applicant.StatusDraft {
		return &applicant.StateError{Operation: "modify documents of", Current: profile.Status, Expected: applicant.StatusDraft}
	}
	return nil
}

func validationError(field, message string, cause error) error {
	verr := applicant.NewValidationError(field, message)
	if cause == nil {
		return verr
	}
	return fmt.Errorf("%w: %w", verr, cause)
}

func uploadResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, applicant.ErrValidation):
		return "validation"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_error"
	case errors.Is(err, actor.ErrPermissionDenied), errors.Is(err, applicant.ErrInvalidState):
		return "denied"
	default:
		return "error"
	}
}

func humanSize(n int64) string {
	if n >= 1024*1024 {
		return fmt.Sprintf("%d MB", n/(1024*1024))
	}
	return fmt.Sprintf("%d KB", n/1024)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
