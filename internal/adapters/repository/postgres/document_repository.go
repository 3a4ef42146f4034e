package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

const documentColumns = `id, profile_id, type_code, file_key, original_name, content_type, size_bytes, uploaded_at,
               ocr_status, ocr_text, ocr_fields, ocr_processed_at, ocr_error,
               review_status, reviewed_by, reviewed_at, review_notes,
               version, updated_at`

// DocumentRepository は PostgreSQL を利用した書類永続化の実装です。
type DocumentRepository struct {
	pool pgdb.Queryer
}

// NewDocumentRepository は DocumentRepository を生成します。
func NewDocumentRepository(pool pgdb.Queryer) *DocumentRepository {
	return &DocumentRepository{pool: pool}
}

// FindByID は ID で書類を取得します。
func (r *DocumentRepository) FindByID(ctx context.Context, id int64) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+documentColumns+`
          FROM applicant_documents
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanDocument(row)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return found, nil
}

// FindByProfileAndType はプロフィールと書類種別で書類を取得します。
func (r *DocumentRepository) FindByProfileAndType(ctx context.Context, profileID int64, typeCode string) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT `+documentColumns+`
          FROM applicant_documents
         WHERE profile_id = $1
           AND type_code = $2
         LIMIT 1
    `, profileID, typeCode)

	found, err := scanDocument(row)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return found, nil
}

// ListByProfile はプロフィールの書類をアップロード順に取得します。
func (r *DocumentRepository) ListByProfile(ctx context.Context, profileID int64) ([]*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT `+documentColumns+`
          FROM applicant_documents
         WHERE profile_id = $1
         ORDER BY uploaded_at ASC, id ASC
    `, profileID)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		found, err := scanDocument(rows)
		if err != nil {
			return nil, translateDocumentPgError(err)
		}
		docs = append(docs, found)
	}
	if err := rows.Err(); err != nil {
		return nil, translateDocumentPgError(err)
	}
	return docs, nil
}

// Upsert は書類を作成し、既存の場合はファイルを差し替えて審査と OCR の状態を初期化します。
func (r *DocumentRepository) Upsert(ctx context.Context, doc *document.Document) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO applicant_documents (profile_id, type_code, file_key, original_name, content_type, size_bytes,
                                         uploaded_at, ocr_status, review_status, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        ON CONFLICT (profile_id, type_code) DO UPDATE
           SET file_key = EXCLUDED.file_key,
               original_name = EXCLUDED.original_name,
               content_type = EXCLUDED.content_type,
               size_bytes = EXCLUDED.size_bytes,
               uploaded_at = EXCLUDED.uploaded_at,
               ocr_status = EXCLUDED.ocr_status,
               ocr_text = '',
               ocr_fields = '{}'::jsonb,
               ocr_processed_at = NULL,
               ocr_error = '',
               review_status = EXCLUDED.review_status,
               reviewed_by = NULL,
               reviewed_at = NULL,
               review_notes = '',
               version = applicant_documents.version + 1,
               updated_at = EXCLUDED.updated_at
        RETURNING `+documentColumns,
		doc.ProfileID, doc.TypeCode, doc.File.Key, doc.File.OriginalName, doc.File.ContentType, doc.File.Size,
		doc.UploadedAt, string(doc.OCRStatus), string(doc.ReviewStatus), doc.UpdatedAt,
	)

	saved, err := scanDocument(row)
	if err != nil {
		return nil, translateDocumentPgError(err)
	}
	return saved, nil
}

// ApplyReview は審査待ちかつバージョン一致の書類にのみ審査結果を記録します。
func (r *DocumentRepository) ApplyReview(ctx context.Context, review document.Review) (*document.Document, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE applicant_documents
           SET review_status = $1,
               reviewed_by = $2,
               reviewed_at = $3,
               review_notes = $4,
               version = version + 1,
               updated_at = $3
         WHERE id = $5
           AND review_status = 'PENDING'
           AND version = $6
        RETURNING `+documentColumns,
		string(review.Status), review.ReviewedBy, review.ReviewedAt, review.Notes, review.DocumentID, review.ExpectedVersion,
	)

	updated, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, document.ErrDocumentNotFound) {
			return nil, document.ErrConflict
		}
		return nil, translateDocumentPgError(err)
	}
	return updated, nil
}

// Delete は書類を削除します。
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `DELETE FROM applicant_documents WHERE id = $1`, id)
	if err != nil {
		return translateDocumentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrDocumentNotFound
	}
	return nil
}

// AttachOCRResult は保存キーが一致する書類に OCR 結果を保存します。
func (r *DocumentRepository) AttachOCRResult(ctx context.Context, id int64, fileKey string, result document.OCRResult) error {
	fields := result.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode ocr fields: %w", err)
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE applicant_documents
           SET ocr_status = 'COMPLETED',
               ocr_text = $1,
               ocr_fields = $2,
               ocr_processed_at = $3,
               ocr_error = '',
               updated_at = $3
         WHERE id = $4
           AND file_key = $5
    `, result.Text, raw, result.ProcessedAt, id, fileKey)
	if err != nil {
		return translateDocumentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrConflict
	}
	return nil
}

// MarkOCRFailed は保存キーが一致する書類の OCR を失敗として記録します。
func (r *DocumentRepository) MarkOCRFailed(ctx context.Context, id int64, fileKey string, reason string, at time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE applicant_documents
           SET ocr_status = 'FAILED',
               ocr_error = $1,
               ocr_processed_at = $2,
               updated_at = $2
         WHERE id = $3
           AND file_key = $4
    `, reason, at, id, fileKey)
	if err != nil {
		return translateDocumentPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrConflict
	}
	return nil
}

func scanDocument(row pgx.Row) (*document.Document, error) {
	var (
		d                          document.Document
		ocrStatus, reviewStatus    string
		ocrFields                  []byte
		ocrProcessedAt, reviewedAt sql.NullTime
		reviewedBy                 sql.NullString
	)

	if err := row.Scan(
		&d.ID, &d.ProfileID, &d.TypeCode, &d.File.Key, &d.File.OriginalName, &d.File.ContentType, &d.File.Size, &d.UploadedAt,
		&ocrStatus, &d.OCRText, &ocrFields, &ocrProcessedAt, &d.OCRError,
		&reviewStatus, &reviewedBy, &reviewedAt, &d.ReviewNotes,
		&d.Version, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, document.ErrDocumentNotFound
		}
		return nil, err
	}

	d.OCRStatus = document.OCRStatus(ocrStatus)
	d.ReviewStatus = document.ReviewStatus(reviewStatus)
	d.OCRProcessedAt = timePtr(ocrProcessedAt)
	d.ReviewedBy = stringPtr(reviewedBy)
	d.ReviewedAt = timePtr(reviewedAt)
	d.OCRFields = map[string]string{}
	if len(ocrFields) > 0 {
		if err := json.Unmarshal(ocrFields, &d.OCRFields); err != nil {
			return nil, fmt.Errorf("decode ocr fields: %w", err)
		}
	}
	return &d, nil
}

func translateDocumentPgError(err error) error {
	code, _, ok := pgErrorCode(err)
	if !ok {
		return err
	}
	switch code {
	case foreignKeyViolationCode:
		return applicant.ErrProfileNotFound
	case checkViolationCode:
		return applicant.NewValidationError("document", "is invalid")
	}
	return err
}
