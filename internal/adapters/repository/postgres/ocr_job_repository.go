package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/ocr"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

const defaultOCRMaxAttempts = 4

// OCRJobRepository は PostgreSQL を利用した OCR ジョブキューの実装です。
type OCRJobRepository struct {
	pool        pgdb.Queryer
	maxAttempts int
}

// NewOCRJobRepository は OCRJobRepository を生成します。maxAttempts が 0 以下の場合は既定値を使用します。
func NewOCRJobRepository(pool pgdb.Queryer, maxAttempts int) *OCRJobRepository {
	if maxAttempts <= 0 {
		maxAttempts = defaultOCRMaxAttempts
	}
	return &OCRJobRepository{pool: pool, maxAttempts: maxAttempts}
}

// Enqueue はジョブを登録します。書類保存と同じトランザクション内で呼び出されます。
func (r *OCRJobRepository) Enqueue(ctx context.Context, documentID int64, runAfter time.Time) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	_, err := exec.Exec(ctx, `
        INSERT INTO ocr_jobs (document_id, status, attempts, max_attempts, run_after, created_at, updated_at)
        VALUES ($1, 'QUEUED', 0, $2, $3, $3, $3)
    `, documentID, r.maxAttempts, runAfter)
	return err
}

// ClaimNext は実行時刻に達した最古のジョブを SKIP LOCKED で確保し、RUNNING に更新します。
func (r *OCRJobRepository) ClaimNext(ctx context.Context) (*ocr.Job, bool, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE ocr_jobs
           SET status = 'RUNNING',
               attempts = attempts + 1,
               updated_at = now()
         WHERE id = (
                SELECT id
                  FROM ocr_jobs
                 WHERE status = 'QUEUED'
                   AND run_after <= now()
                 ORDER BY run_after, id
                   FOR UPDATE SKIP LOCKED
                 LIMIT 1
               )
        RETURNING id, document_id, status, attempts, max_attempts, run_after, last_error, created_at, updated_at
    `)

	job, err := scanJob(row)
	if errors.Is(err, ocr.ErrJobNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}

// MarkCompleted はジョブを完了にします。
func (r *OCRJobRepository) MarkCompleted(ctx context.Context, id int64) error {
	return r.exec(ctx, `
        UPDATE ocr_jobs
           SET status = 'COMPLETED',
               last_error = '',
               updated_at = now()
         WHERE id = $1
    `, id)
}

// Reschedule はジョブを再実行待ちに戻します。
func (r *OCRJobRepository) Reschedule(ctx context.Context, id int64, runAfter time.Time, lastErr string) error {
	return r.exec(ctx, `
        UPDATE ocr_jobs
           SET status = 'QUEUED',
               run_after = $2,
               last_error = $3,
               updated_at = now()
         WHERE id = $1
    `, id, runAfter, lastErr)
}

// MarkFailed はジョブを失敗で終了します。
func (r *OCRJobRepository) MarkFailed(ctx context.Context, id int64, lastErr string) error {
	return r.exec(ctx, `
        UPDATE ocr_jobs
           SET status = 'FAILED',
               last_error = $2,
               updated_at = now()
         WHERE id = $1
    `, id, lastErr)
}

// Release は確保したが実行しなかったジョブを試行回数を戻して再実行待ちにします。
func (r *OCRJobRepository) Release(ctx context.Context, id int64) error {
	return r.exec(ctx, `
        UPDATE ocr_jobs
           SET status = 'QUEUED',
               attempts = GREATEST(attempts - 1, 0),
               updated_at = now()
         WHERE id = $1
           AND status = 'RUNNING'
    `, id)
}

// RequeueStale は停止したワーカーが保持したままの RUNNING ジョブを再実行待ちに戻します。
func (r *OCRJobRepository) RequeueStale(ctx context.Context, updatedBefore time.Time) (int64, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, `
        UPDATE ocr_jobs
           SET status = 'QUEUED',
               run_after = now(),
               updated_at = now()
         WHERE status = 'RUNNING'
           AND updated_at < $1
    `, updatedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *OCRJobRepository) exec(ctx context.Context, query string, args ...any) error {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	tag, err := exec.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ocr.ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*ocr.Job, error) {
	var (
		j      ocr.Job
		status string
	)
	if err := row.Scan(&j.ID, &j.DocumentID, &status, &j.Attempts, &j.MaxAttempts, &j.RunAfter, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ocr.ErrJobNotFound
		}
		return nil, err
	}
	j.Status = ocr.JobStatus(status)
	return &j, nil
}
