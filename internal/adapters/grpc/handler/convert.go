package handler

import (
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
)

const dateLayout = "2006-01-02"

// fieldReader は Struct の値を型付きで取り出し、最初の不正項目を ValidationError にまとめます。
type fieldReader struct {
	fields map[string]*structpb.Value
	verr   *applicant.ValidationError
}

func newFieldReader(s *structpb.Struct) *fieldReader {
	return &fieldReader{fields: s.GetFields(), verr: &applicant.ValidationError{}}
}

func (r *fieldReader) err() error {
	return r.verr.OrNil()
}

func (r *fieldReader) getString(key string) string {
	v, ok := r.fields[key]
	if !ok {
		return ""
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return ""
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		r.verr.Add(key, "must be a string")
		return ""
	}
	return s.StringValue
}

func (r *fieldReader) getBool(key string) bool {
	v, ok := r.fields[key]
	if !ok {
		return false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		r.verr.Add(key, "must be a boolean")
		return false
	}
	return b.BoolValue
}

func (r *fieldReader) getInt64(key string) int64 {
	v, ok := r.fields[key]
	if !ok {
		return 0
	}
	n, valid := toInt64(v)
	if !valid {
		r.verr.Add(key, "must be an integer")
		return 0
	}
	return n
}

func (r *fieldReader) getInt64List(key string) []int64 {
	v, ok := r.fields[key]
	if !ok {
		return nil
	}
	list, isList := v.GetKind().(*structpb.Value_ListValue)
	if !isList {
		r.verr.Add(key, "must be a list of integers")
		return nil
	}
	out := make([]int64, 0, len(list.ListValue.GetValues()))
	for _, item := range list.ListValue.GetValues() {
		n, valid := toInt64(item)
		if !valid {
			r.verr.Add(key, "must be a list of integers")
			return nil
		}
		out = append(out, n)
	}
	return out
}

// toInt64 は JSON 数値 (float64) を整数として解釈します。文字列表現も受け付けます。
func toInt64(v *structpb.Value) (int64, bool) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		f := k.NumberValue
		if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, false
		}
		return int64(f), true
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(strings.TrimSpace(k.StringValue), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func optionalString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func optionalInt(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func profileFields(p *applicant.Profile) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"public_id":     p.PublicID,
		"user_id":       p.UserID,
		"referrer_id":   optionalString(p.ReferrerID),
		"full_name":     p.FullName,
		"nik":           p.NIK,
		"birth_place":   p.BirthPlace,
		"birth_date":    formatDate(p.BirthDate),
		"gender":        string(p.Gender),
		"contact_phone": p.ContactPhone,
		"address":       p.Address,
		"region": map[string]any{
			"province_code": p.Region.ProvinceCode,
			"regency_code":  p.Region.RegencyCode,
			"district_code": p.Region.DistrictCode,
			"village_code":  p.Region.VillageCode,
		},
		"sibling_count":       optionalInt(p.SiblingCount),
		"birth_order":         optionalInt(p.BirthOrder),
		"verification_status": string(p.Status),
		"submitted_at":        formatTime(p.SubmittedAt),
		"verified_by":         optionalString(p.VerifiedBy),
		"verified_at":         formatTime(p.VerifiedAt),
		"verification_notes":  p.VerificationNotes,
		"version":             p.Version,
		"created_at":          p.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":          p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toProfileStruct(p *applicant.Profile) (*structpb.Struct, error) {
	return structpb.NewStruct(profileFields(p))
}

func toProfileListStruct(res *applicant.ListProfilesResult) (*structpb.Struct, error) {
	profiles := make([]any, 0, len(res.Profiles))
	for _, p := range res.Profiles {
		profiles = append(profiles, profileFields(p))
	}
	return structpb.NewStruct(map[string]any{
		"profiles":        profiles,
		"next_page_token": res.NextPageToken,
	})
}

func toBulkResultStruct(res *applicant.BulkUpdateStatusResult) (*structpb.Struct, error) {
	changed := make([]any, 0, len(res.Changed))
	for _, id := range res.Changed {
		changed = append(changed, id)
	}
	skipped := make([]any, 0, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped = append(skipped, map[string]any{
			"profile_id": s.ProfileID,
			"reason":     string(s.Reason),
			"detail":     s.Detail,
		})
	}
	return structpb.NewStruct(map[string]any{
		"changed": changed,
		"skipped": skipped,
	})
}

func toDocumentStruct(d *document.Document) (*structpb.Struct, error) {
	ocrFields := make(map[string]any, len(d.OCRFields))
	for k, v := range d.OCRFields {
		ocrFields[k] = v
	}
	return structpb.NewStruct(map[string]any{
		"id":            d.ID,
		"profile_id":    d.ProfileID,
		"document_type": d.TypeCode,
		"file": map[string]any{
			"original_name": d.File.OriginalName,
			"content_type":  d.File.ContentType,
			"size":          d.File.Size,
		},
		"uploaded_at":      d.UploadedAt.UTC().Format(time.RFC3339Nano),
		"ocr_status":       string(d.OCRStatus),
		"ocr_fields":       ocrFields,
		"ocr_processed_at": formatTime(d.OCRProcessedAt),
		"review_status":    string(d.ReviewStatus),
		"reviewed_by":      optionalString(d.ReviewedBy),
		"reviewed_at":      formatTime(d.ReviewedAt),
		"review_notes":     d.ReviewNotes,
		"version":          d.Version,
	})
}
