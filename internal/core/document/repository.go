package document

import (
	"context"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
)

// Repository は書類の永続化を行うインターフェースです。
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Document, error)
	FindByProfileAndType(ctx context.Context, profileID int64, typeCode string) (*Document, error)
	ListByProfile(ctx context.Context, profileID int64) ([]*Document, error)
	// Upsert はプロフィールと書類種別の組で書類を作成または置き換え、審査と OCR 状態を初期化します。
	Upsert(ctx context.Context, doc *Document) (*Document, error)
	// ApplyReview は審査待ちかつバージョン一致の場合のみ審査結果を記録します。一致しなければ ErrConflict を返します。
	ApplyReview(ctx context.Context, review Review) (*Document, error)
	Delete(ctx context.Context, id int64) error
	// AttachOCRResult は保存キーが一致する場合のみ OCR 結果を上書きします。一致しなければ ErrConflict を返します。
	AttachOCRResult(ctx context.Context, id int64, fileKey string, result OCRResult) error
	MarkOCRFailed(ctx context.Context, id int64, fileKey string, reason string, at time.Time) error
}

// Review は書類審査の条件付き更新内容です。
type Review struct {
	DocumentID      int64
	ExpectedVersion int64
	Status          ReviewStatus
	ReviewedBy      string
	ReviewedAt      time.Time
	Notes           string
}

// JobQueue は OCR ジョブの登録先です。書類の保存と同じトランザクションで呼び出されます。
type JobQueue interface {
	Enqueue(ctx context.Context, documentID int64, runAfter time.Time) error
}

// ProfileReader は書類の所有プロフィールを参照します。
type ProfileReader interface {
	FindByID(ctx context.Context, id int64) (*applicant.Profile, error)
	// FindByIDForShare はトランザクション内でプロフィールの状態遷移を待たせて取得します。
	FindByIDForShare(ctx context.Context, id int64) (*applicant.Profile, error)
}
