package applicant

import (
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/region"
)

// VerificationStatus は応募者プロフィールの審査状態を表します。
type VerificationStatus string

const (
	StatusDraft     VerificationStatus = "DRAFT"
	StatusSubmitted VerificationStatus = "SUBMITTED"
	StatusAccepted  VerificationStatus = "ACCEPTED"
	StatusRejected  VerificationStatus = "REJECTED"
)

// IsValid は既知のステータスかを判定します。
func (s VerificationStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAccepted, StatusRejected:
		return true
	default:
		return false
	}
}

// Gender は性別です。空文字は未入力を表します。
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// RegionCodes は住所の行政区コードです。
type RegionCodes = region.Codes

// Family は両親・配偶者の情報です。
type Family struct {
	FatherName       string
	FatherAge        *int
	FatherOccupation string
	MotherName       string
	MotherAge        *int
	MotherOccupation string
	SpouseName       string
	SpouseAge        *int
	SpouseOccupation string
	Address          string
	Region           RegionCodes
	ContactPhone     string
}

// Passport はパスポート情報です。参考情報であり審査の前提条件ではありません。
type Passport struct {
	HasPassport bool
	Number      string
	IssueDate   *time.Time
	ExpiryDate  *time.Time
	IssuePlace  string
}

// Profile は応募者プロフィール (集約ルート) です。
type Profile struct {
	ID         int64
	PublicID   string
	UserID     string
	ReferrerID *string

	FullName     string
	NIK          string
	BirthPlace   string
	BirthDate    *time.Time
	Gender       Gender
	ContactPhone string
	Address      string
	Region       RegionCodes
	SiblingCount *int
	BirthOrder   *int
	Notes        string

	Family   Family
	Passport Passport

	WorkExperiences []WorkExperience

	Status            VerificationStatus
	SubmittedAt       *time.Time
	VerifiedBy        *string
	VerifiedAt        *time.Time
	VerificationNotes string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsOwnedBy は指定ユーザーがプロフィールの所有者かを判定します。
func (p *Profile) IsOwnedBy(userID string) bool {
	return p != nil && userID != "" && p.UserID == userID
}

// Clone はプロフィールのディープコピーを返します。
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.ReferrerID = cloneString(p.ReferrerID)
	c.BirthDate = cloneTime(p.BirthDate)
	c.SiblingCount = cloneInt(p.SiblingCount)
	c.BirthOrder = cloneInt(p.BirthOrder)
	c.Family.FatherAge = cloneInt(p.Family.FatherAge)
	c.Family.MotherAge = cloneInt(p.Family.MotherAge)
	c.Family.SpouseAge = cloneInt(p.Family.SpouseAge)
	c.Passport.IssueDate = cloneTime(p.Passport.IssueDate)
	c.Passport.ExpiryDate = cloneTime(p.Passport.ExpiryDate)
	c.SubmittedAt = cloneTime(p.SubmittedAt)
	c.VerifiedBy = cloneString(p.VerifiedBy)
	c.VerifiedAt = cloneTime(p.VerifiedAt)
	if p.WorkExperiences != nil {
		c.WorkExperiences = make([]WorkExperience, len(p.WorkExperiences))
		for i, w := range p.WorkExperiences {
			c.WorkExperiences[i] = w.clone()
		}
	}
	return &c
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
