package applicant

import (
	"context"
	"time"
)

// Repository は応募者プロフィールの永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, profile *Profile) (*Profile, error)
	// Update はバージョン一致時のみ基本情報を更新します。不一致時は ErrConflict を返します。
	Update(ctx context.Context, profile *Profile) (*Profile, error)
	FindByID(ctx context.Context, id int64) (*Profile, error)
	FindByPublicID(ctx context.Context, publicID string) (*Profile, error)
	FindByUserID(ctx context.Context, userID string) (*Profile, error)
	List(ctx context.Context, filter ListProfilesFilter) ([]*Profile, string, error)
	// ApplyTransition は状態とバージョンが一致する場合のみ審査状態を更新します。
	// 一致する行がなければ ErrConflict を返します。
	ApplyTransition(ctx context.Context, t Transition) (*Profile, error)
	ListWorkExperiences(ctx context.Context, profileID int64) ([]WorkExperience, error)
	ReplaceWorkExperiences(ctx context.Context, profileID int64, entries []WorkExperience) ([]WorkExperience, error)
}

// SortOrder は一覧の並び順です。
type SortOrder string

const (
	SortCreatedDesc   SortOrder = "created_desc"
	SortSubmittedAsc  SortOrder = "submitted_asc"
	SortSubmittedDesc SortOrder = "submitted_desc"
)

// ListProfilesFilter は一覧取得時の検索条件を表します。
type ListProfilesFilter struct {
	Limit        int
	Offset       int
	Status       *VerificationStatus
	ReferrerID   *string
	ProvinceCode *string
	Order        SortOrder
}

// Transition は審査状態の条件付き更新内容です。
type Transition struct {
	ProfileID       int64
	From            VerificationStatus
	To              VerificationStatus
	ExpectedVersion int64
	SubmittedAt     *time.Time
	VerifiedBy      *string
	VerifiedAt      *time.Time
	Notes           string
	UpdatedAt       time.Time
}
