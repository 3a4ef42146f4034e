package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/region"
)

const dateLayout = "2006-01-02"

type regionCodesDTO struct {
	ProvinceCode string `json:"province_code"`
	RegencyCode  string `json:"regency_code"`
	DistrictCode string `json:"district_code"`
	VillageCode  string `json:"village_code"`
}

func (d regionCodesDTO) codes() region.Codes {
	return region.Codes{
		ProvinceCode: strings.TrimSpace(d.ProvinceCode),
		RegencyCode:  strings.TrimSpace(d.RegencyCode),
		DistrictCode: strings.TrimSpace(d.DistrictCode),
		VillageCode:  strings.TrimSpace(d.VillageCode),
	}
}

func toRegionCodesDTO(c region.Codes) regionCodesDTO {
	return regionCodesDTO{
		ProvinceCode: c.ProvinceCode,
		RegencyCode:  c.RegencyCode,
		DistrictCode: c.DistrictCode,
		VillageCode:  c.VillageCode,
	}
}

type familyDTO struct {
	FatherName       string         `json:"father_name"`
	FatherAge        *int           `json:"father_age"`
	FatherOccupation string         `json:"father_occupation"`
	MotherName       string         `json:"mother_name"`
	MotherAge        *int           `json:"mother_age"`
	MotherOccupation string         `json:"mother_occupation"`
	SpouseName       string         `json:"spouse_name"`
	SpouseAge        *int           `json:"spouse_age"`
	SpouseOccupation string         `json:"spouse_occupation"`
	Address          string         `json:"address"`
	Region           regionCodesDTO `json:"region"`
	ContactPhone     string         `json:"contact_phone"`
}

type passportDTO struct {
	HasPassport bool    `json:"has_passport"`
	Number      string  `json:"number"`
	IssueDate   *string `json:"issue_date"`
	ExpiryDate  *string `json:"expiry_date"`
	IssuePlace  string  `json:"issue_place"`
}

// profileRequest はプロフィールの作成・部分更新リクエストです。省略された項目は変更しません。
type profileRequest struct {
	UserID       *string         `json:"user_id"`
	FullName     *string         `json:"full_name"`
	NIK          *string         `json:"nik"`
	BirthPlace   *string         `json:"birth_place"`
	BirthDate    *string         `json:"birth_date"`
	Gender       *string         `json:"gender"`
	ContactPhone *string         `json:"contact_phone"`
	Address      *string         `json:"address"`
	Region       *regionCodesDTO `json:"region"`
	SiblingCount *int            `json:"sibling_count"`
	BirthOrder   *int            `json:"birth_order"`
	Notes        *string         `json:"notes"`
	Family       *familyDTO      `json:"family"`
	Passport     *passportDTO    `json:"passport"`
	ReferrerID   *string         `json:"referrer_id"`
}

func (req profileRequest) changes() (applicant.ProfileChanges, error) {
	verr := &applicant.ValidationError{}
	c := applicant.ProfileChanges{
		FullName:     req.FullName,
		NIK:          req.NIK,
		BirthPlace:   req.BirthPlace,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		SiblingCount: req.SiblingCount,
		BirthOrder:   req.BirthOrder,
		Notes:        req.Notes,
		ReferrerID:   req.ReferrerID,
	}
	if req.BirthDate != nil {
		c.BirthDate = parseDate(verr, "birth_date", *req.BirthDate)
	}
	if req.Gender != nil {
		g := applicant.Gender(strings.ToUpper(strings.TrimSpace(*req.Gender)))
		c.Gender = &g
	}
	if req.Region != nil {
		codes := req.Region.codes()
		c.Region = &codes
	}
	if req.Family != nil {
		f := req.Family
		c.Family = &applicant.Family{
			FatherName:       f.FatherName,
			FatherAge:        f.FatherAge,
			FatherOccupation: f.FatherOccupation,
			MotherName:       f.MotherName,
			MotherAge:        f.MotherAge,
			MotherOccupation: f.MotherOccupation,
			SpouseName:       f.SpouseName,
			SpouseAge:        f.SpouseAge,
			SpouseOccupation: f.SpouseOccupation,
			Address:          f.Address,
			Region:           f.Region.codes(),
			ContactPhone:     f.ContactPhone,
		}
	}
	if req.Passport != nil {
		p := req.Passport
		c.Passport = &applicant.Passport{
			HasPassport: p.HasPassport,
			Number:      p.Number,
			IssuePlace:  p.IssuePlace,
		}
		if p.IssueDate != nil {
			c.Passport.IssueDate = parseDate(verr, "passport.issue_date", *p.IssueDate)
		}
		if p.ExpiryDate != nil {
			c.Passport.ExpiryDate = parseDate(verr, "passport.expiry_date", *p.ExpiryDate)
		}
	}
	return c, verr.OrNil()
}

// parseDate は YYYY-MM-DD を解析します。空文字は未入力として nil を返します。
func parseDate(verr *applicant.ValidationError, field, value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		verr.Add(field, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &t
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type profileResponse struct {
	ID                int64                    `json:"id"`
	PublicID          string                   `json:"public_id"`
	UserID            string                   `json:"user_id"`
	ReferrerID        *string                  `json:"referrer_id"`
	FullName          string                   `json:"full_name"`
	NIK               string                   `json:"nik"`
	BirthPlace        string                   `json:"birth_place"`
	BirthDate         *string                  `json:"birth_date"`
	Gender            string                   `json:"gender"`
	ContactPhone      string                   `json:"contact_phone"`
	Address           string                   `json:"address"`
	Region            regionCodesDTO           `json:"region"`
	SiblingCount      *int                     `json:"sibling_count"`
	BirthOrder        *int                     `json:"birth_order"`
	Notes             string                   `json:"notes"`
	Family            familyDTO                `json:"family"`
	Passport          passportDTO              `json:"passport"`
	WorkExperiences   []workExperienceResponse `json:"work_experiences,omitempty"`
	Status            string                   `json:"verification_status"`
	SubmittedAt       *time.Time               `json:"submitted_at"`
	VerifiedBy        *string                  `json:"verified_by"`
	VerifiedAt        *time.Time               `json:"verified_at"`
	VerificationNotes string                   `json:"verification_notes"`
	Version           int64                    `json:"version"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

func toProfileResponse(p *applicant.Profile) profileResponse {
	resp := profileResponse{
		ID:           p.ID,
		PublicID:     p.PublicID,
		UserID:       p.UserID,
		ReferrerID:   p.ReferrerID,
		FullName:     p.FullName,
		NIK:          p.NIK,
		BirthPlace:   p.BirthPlace,
		BirthDate:    formatDate(p.BirthDate),
		Gender:       string(p.Gender),
		ContactPhone: p.ContactPhone,
		Address:      p.Address,
		Region:       toRegionCodesDTO(p.Region),
		SiblingCount: p.SiblingCount,
		BirthOrder:   p.BirthOrder,
		Notes:        p.Notes,
		Family: familyDTO{
			FatherName:       p.Family.FatherName,
			FatherAge:        p.Family.FatherAge,
			FatherOccupation: p.Family.FatherOccupation,
			MotherName:       p.Family.MotherName,
			MotherAge:        p.Family.MotherAge,
			MotherOccupation: p.Family.MotherOccupation,
			SpouseName:       p.Family.SpouseName,
			SpouseAge:        p.Family.SpouseAge,
			SpouseOccupation: p.Family.SpouseOccupation,
			Address:          p.Family.Address,
			Region:           toRegionCodesDTO(p.Family.Region),
			ContactPhone:     p.Family.ContactPhone,
		},
		Passport: passportDTO{
			HasPassport: p.Passport.HasPassport,
			Number:      p.Passport.Number,
			IssueDate:   formatDate(p.Passport.IssueDate),
			ExpiryDate:  formatDate(p.Passport.ExpiryDate),
			IssuePlace:  p.Passport.IssuePlace,
		},
		Status:            string(p.Status),
		SubmittedAt:       p.SubmittedAt,
		VerifiedBy:        p.VerifiedBy,
		VerifiedAt:        p.VerifiedAt,
		VerificationNotes: p.VerificationNotes,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if len(p.WorkExperiences) > 0 {
		resp.WorkExperiences = toWorkExperienceResponses(p.WorkExperiences)
	}
	return resp
}

type profileListResponse struct {
	Profiles      []profileResponse `json:"profiles"`
	NextPageToken string            `json:"next_page_token,omitempty"`
}

func toProfileListResponse(res *applicant.ListProfilesResult) profileListResponse {
	out := profileListResponse{Profiles: make([]profileResponse, 0, len(res.Profiles)), NextPageToken: res.NextPageToken}
	for _, p := range res.Profiles {
		out.Profiles = append(out.Profiles, toProfileResponse(p))
	}
	return out
}

type workExperienceRequest struct {
	CompanyName   string  `json:"company_name"`
	Position      string  `json:"position"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	StillEmployed bool    `json:"still_employed"`
	Description   string  `json:"description"`
}

type replaceWorkExperiencesRequest struct {
	Entries []workExperienceRequest `json:"entries"`
}

func (req replaceWorkExperiencesRequest) entries() ([]applicant.WorkExperience, error) {
	verr := &applicant.ValidationError{}
	out := make([]applicant.WorkExperience, 0, len(req.Entries))
	for i, e := range req.Entries {
		w := applicant.WorkExperience{
			CompanyName:   e.CompanyName,
			Position:      e.Position,
			StillEmployed: e.StillEmployed,
			Description:   e.Description,
			SortOrder:     i,
		}
		prefix := "work_experiences[" + strconv.Itoa(i) + "]."
		if e.StartDate != nil {
			w.StartDate = parseDate(verr, prefix+"start_date", *e.StartDate)
		}
		if e.EndDate != nil {
			w.EndDate = parseDate(verr, prefix+"end_date", *e.EndDate)
		}
		out = append(out, w)
	}
	return out, verr.OrNil()
}

type workExperienceResponse struct {
	ID            int64   `json:"id"`
	CompanyName   string  `json:"company_name"`
	Position      string  `json:"position"`
	StartDate     *string `json:"start_date"`
	EndDate       *string `json:"end_date"`
	StillEmployed bool    `json:"still_employed"`
	Description   string  `json:"description"`
	SortOrder     int     `json:"sort_order"`
}

func toWorkExperienceResponses(entries []applicant.WorkExperience) []workExperienceResponse {
	out := make([]workExperienceResponse, 0, len(entries))
	for _, w := range entries {
		out = append(out, workExperienceResponse{
			ID:            w.ID,
			CompanyName:   w.CompanyName,
			Position:      w.Position,
			StartDate:     formatDate(w.StartDate),
			EndDate:       formatDate(w.EndDate),
			StillEmployed: w.StillEmployed,
			Description:   w.Description,
			SortOrder:     w.SortOrder,
		})
	}
	return out
}

type notesRequest struct {
	Notes string `json:"notes"`
}

type bulkStatusRequest struct {
	ProfileIDs []int64 `json:"profile_ids"`
	Status     string  `json:"status"`
	Notes      string  `json:"notes"`
}

type bulkSkipResponse struct {
	ProfileID int64  `json:"profile_id"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

type bulkStatusResponse struct {
	Changed []int64            `json:"changed"`
	Skipped []bulkSkipResponse `json:"skipped"`
}

func toBulkStatusResponse(res *applicant.BulkUpdateStatusResult) bulkStatusResponse {
	out := bulkStatusResponse{Changed: res.Changed, Skipped: make([]bulkSkipResponse, 0, len(res.Skipped))}
	if out.Changed == nil {
		out.Changed = []int64{}
	}
	for _, s := range res.Skipped {
		out.Skipped = append(out.Skipped, bulkSkipResponse{ProfileID: s.ProfileID, Reason: string(s.Reason), Detail: s.Detail})
	}
	return out
}

type documentTypeResponse struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	Required    bool     `json:"required"`
	SortOrder   int      `json:"sort_order"`
	Kind        string   `json:"kind"`
	MaxBytes    int64    `json:"max_bytes"`
	Extensions  []string `json:"extensions"`
	OCREligible bool     `json:"ocr_eligible"`
	Description string   `json:"description"`
}

func toDocumentTypeResponse(t document.Type) documentTypeResponse {
	return documentTypeResponse{
		Code:        t.Code,
		Name:        t.Name,
		Required:    t.Required,
		SortOrder:   t.SortOrder,
		Kind:        string(t.Kind),
		MaxBytes:    t.MaxBytes,
		Extensions:  t.Extensions,
		OCREligible: t.OCREligible,
		Description: t.Description,
	}
}

type fileResponse struct {
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	Size         int64  `json:"size"`
}

type documentResponse struct {
	ID             int64             `json:"id"`
	ProfileID      int64             `json:"profile_id"`
	DocumentType   string            `json:"document_type"`
	File           fileResponse      `json:"file"`
	UploadedAt     time.Time         `json:"uploaded_at"`
	OCRStatus      string            `json:"ocr_status"`
	OCRFields      map[string]string `json:"ocr_fields,omitempty"`
	OCRProcessedAt *time.Time        `json:"ocr_processed_at"`
	OCRError       string            `json:"ocr_error,omitempty"`
	ReviewStatus   string            `json:"review_status"`
	ReviewedBy     *string           `json:"reviewed_by"`
	ReviewedAt     *time.Time        `json:"reviewed_at"`
	ReviewNotes    string            `json:"review_notes"`
	Version        int64             `json:"version"`
}

func toDocumentResponse(d *document.Document) documentResponse {
	return documentResponse{
		ID:           d.ID,
		ProfileID:    d.ProfileID,
		DocumentType: d.TypeCode,
		File: fileResponse{
			OriginalName: d.File.OriginalName,
			ContentType:  d.File.ContentType,
			Size:         d.File.Size,
		},
		UploadedAt:     d.UploadedAt,
		OCRStatus:      string(d.OCRStatus),
		OCRFields:      d.OCRFields,
		OCRProcessedAt: d.OCRProcessedAt,
		OCRError:       d.OCRError,
		ReviewStatus:   string(d.ReviewStatus),
		ReviewedBy:     d.ReviewedBy,
		ReviewedAt:     d.ReviewedAt,
		ReviewNotes:    d.ReviewNotes,
		Version:        d.Version,
	}
}

type checklistItemResponse struct {
	DocumentType string `json:"document_type"`
	Name         string `json:"name"`
	Required     bool   `json:"required"`
	Uploaded     bool   `json:"uploaded"`
	DocumentID   int64  `json:"document_id,omitempty"`
	ReviewStatus string `json:"review_status,omitempty"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type prefillResponse struct {
	FullName   string `json:"full_name"`
	NIK        string `json:"nik"`
	BirthPlace string `json:"birth_place"`
	BirthDate  string `json:"birth_date"`
	Address    string `json:"address"`
	Gender     string `json:"gender"`
}

type notificationResponse struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	ActionURL string     `json:"action_url"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func toNotificationResponse(n *notification.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		ActionURL: n.ActionURL,
		Read:      n.IsRead(),
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

type notificationListResponse struct {
	Notifications []notificationResponse `json:"notifications"`
	NextPageToken string                 `json:"next_page_token,omitempty"`
}
