package ocr

import (
	"context"
	"time"
)

// Queue は OCR ジョブキューの永続化を行うインターフェースです。
type Queue interface {
	Enqueue(ctx context.Context, documentID int64, runAfter time.Time) error
	// ClaimNext は実行可能なジョブを 1 件確保して RUNNING にし、試行回数を加算します。
	ClaimNext(ctx context.Context) (*Job, bool, error)
	MarkCompleted(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, runAfter time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id int64, lastErr string) error
	// Release は未着手のまま確保を解いたジョブを QUEUED に戻し、ClaimNext で加算した試行回数を取り消します。
	Release(ctx context.Context, id int64) error
	// RequeueStale は updatedBefore より前から RUNNING のままのジョブを QUEUED に戻します。
	RequeueStale(ctx context.Context, updatedBefore time.Time) (int64, error)
}

// Extractor は画像から全文テキストを抽出する OCR プロバイダです。
type Extractor interface {
	ExtractText(ctx context.Context, content []byte) (string, error)
}
