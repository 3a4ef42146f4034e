package document

import "time"

// ReviewStatus は書類単位の審査状態です。プロフィールの審査状態とは独立しています。
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "PENDING"
	ReviewApproved ReviewStatus = "APPROVED"
	ReviewRejected ReviewStatus = "REJECTED"
)

// IsValid は既知の審査状態かを判定します。
func (s ReviewStatus) IsValid() bool {
	switch s {
	case ReviewPending, ReviewApproved, ReviewRejected:
		return true
	default:
		return false
	}
}

// OCRStatus は OCR 抽出の進捗です。
type OCRStatus string

const (
	OCRNone      OCRStatus = "NONE"
	OCRPending   OCRStatus = "PENDING"
	OCRCompleted OCRStatus = "COMPLETED"
	OCRFailed    OCRStatus = "FAILED"
)

// File は保存済みファイルへの参照です。
type File struct {
	Key          string
	OriginalName string
	ContentType  string
	Size         int64
}

// Document はアップロードされた書類 1 件です。プロフィールと書類種別の組で一意です。
type Document struct {
	ID        int64
	ProfileID int64
	TypeCode  string
	File      File

	UploadedAt time.Time

	OCRStatus      OCRStatus
	OCRText        string
	OCRFields      map[string]string
	OCRProcessedAt *time.Time
	OCRError       string

	ReviewStatus ReviewStatus
	ReviewedBy   *string
	ReviewedAt   *time.Time
	ReviewNotes  string

	Version   int64
	UpdatedAt time.Time
}

// Clone はディープコピーを返します。
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	c := *d
	if d.OCRFields != nil {
		c.OCRFields = make(map[string]string, len(d.OCRFields))
		for k, v := range d.OCRFields {
			c.OCRFields[k] = v
		}
	}
	if d.OCRProcessedAt != nil {
		t := *d.OCRProcessedAt
		c.OCRProcessedAt = &t
	}
	if d.ReviewedBy != nil {
		s := *d.ReviewedBy
		c.ReviewedBy = &s
	}
	if d.ReviewedAt != nil {
		t := *d.ReviewedAt
		c.ReviewedAt = &t
	}
	return &c
}

// OCRResult は OCR 抽出結果です。
type OCRResult struct {
	Text        string
	Fields      map[string]string
	ProcessedAt time.Time
}

// ChecklistItem は書類種別ごとの提出状況です。
type ChecklistItem struct {
	Type         Type
	Uploaded     bool
	DocumentID   int64
	ReviewStatus ReviewStatus
}

// Readiness はプロフィールの準備度です。
type Readiness struct {
	ProfileID           int64
	Score               float64
	ProfileCompleteness float64
	ApprovedDocuments   int
	TotalDocuments      int
}

// Prefill は KTP の OCR 結果から得たプロフィール入力候補です。
type Prefill struct {
	FullName   string
	NIK        string
	BirthPlace string
	BirthDate  string
	Address    string
	Gender     string
}
