package ocr

import "time"

// JobStatus は OCR ジョブの状態です。
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
)

// Job は書類 1 件の OCR 処理要求です。
type Job struct {
	ID          int64
	DocumentID  int64
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Exhausted は今回の試行が最後かを判定します。
func (j *Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}
