package applicant

import (
	"regexp"
	"strings"
	"time"
)

const (
	minApplicantAge = 17
	maxApplicantAge = 65
	maxPersonAge    = 120
)

var (
	nikPattern      = regexp.MustCompile(`^\d{16}$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
	passportPattern = regexp.MustCompile(`^[A-Z]{2}\d{7}$`)
)

// requiredForSubmission は審査提出時に必須となる項目です。
var requiredForSubmission = []string{"full_name", "nik", "birth_date", "address"}

// NormalizeNIK は NIK を検証し正規化します。空文字は未入力として許容します。
func NormalizeNIK(raw string) (string, string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ""
	}
	if !digitsPattern.MatchString(v) {
		return "", "must contain digits only"
	}
	if !nikPattern.MatchString(v) {
		return "", "must be exactly 16 digits"
	}
	return v, ""
}

// NormalizePhone はインドネシアの電話番号を 0 始まりの数字列へ正規化します。
func NormalizePhone(raw string) (string, string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", ""
	}
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(v)
	switch {
	case strings.HasPrefix(cleaned, "+62"):
		cleaned = "0" + cleaned[3:]
	case strings.HasPrefix(cleaned, "62"):
		cleaned = "0" + cleaned[2:]
	}
	if !digitsPattern.MatchString(cleaned) {
		return "", "must contain digits only"
	}
	if !strings.HasPrefix(cleaned, "0") {
		return "", "must start with 0 or +62"
	}
	if len(cleaned) < 10 || len(cleaned) > 13 {
		return "", "must be 10-13 digits"
	}
	return cleaned, ""
}

// NormalizePassportNumber はパスポート番号 (英字2文字 + 数字7桁) を検証します。
func NormalizePassportNumber(raw string) (string, string) {
	v := strings.ToUpper(strings.TrimSpace(raw))
	if v == "" {
		return "", ""
	}
	if !passportPattern.MatchString(v) {
		return "", "must be 2 letters followed by 7 digits"
	}
	return v, ""
}

func validateBirthDate(birth time.Time, now time.Time) string {
	today := truncateDay(now)
	if truncateDay(birth).After(today) {
		return "must not be in the future"
	}
	age := ageOn(birth, today)
	if age < minApplicantAge {
		return "applicant must be at least 17 years old"
	}
	if age > maxApplicantAge {
		return "applicant must be at most 65 years old"
	}
	return ""
}

func ageOn(birth, on time.Time) int {
	age := on.Year() - birth.Year()
	if on.Month() < birth.Month() || (on.Month() == birth.Month() && on.Day() < birth.Day()) {
		age--
	}
	return age
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isValidGender(g Gender) bool {
	switch g {
	case "", GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// validateProfile はプロフィール全体の項目検証を行い、正規化した値を書き戻します。
func validateProfile(p *Profile, now time.Time) *ValidationError {
	verr := &ValidationError{}

	p.FullName = strings.TrimSpace(p.FullName)
	p.Address = strings.TrimSpace(p.Address)
	p.BirthPlace = strings.TrimSpace(p.BirthPlace)

	if nik, msg := NormalizeNIK(p.NIK); msg != "" {
		verr.Add("nik", msg)
	} else {
		p.NIK = nik
	}

	if phone, msg := NormalizePhone(p.ContactPhone); msg != "" {
		verr.Add("contact_phone", msg)
	} else {
		p.ContactPhone = phone
	}

	if phone, msg := NormalizePhone(p.Family.ContactPhone); msg != "" {
		verr.Add("family.contact_phone", msg)
	} else {
		p.Family.ContactPhone = phone
	}

	if p.BirthDate != nil {
		if msg := validateBirthDate(*p.BirthDate, now); msg != "" {
			verr.Add("birth_date", msg)
		}
	}

	p.Gender = Gender(strings.ToUpper(strings.TrimSpace(string(p.Gender))))
	if !isValidGender(p.Gender) {
		verr.Add("gender", "must be one of M, F, O")
	}

	validateNonNegative(verr, "sibling_count", p.SiblingCount, -1)
	validateNonNegative(verr, "birth_order", p.BirthOrder, -1)
	if p.SiblingCount != nil && p.BirthOrder != nil && *p.BirthOrder > *p.SiblingCount+1 {
		verr.Add("birth_order", "must not exceed sibling count + 1")
	}

	validateNonNegative(verr, "family.father_age", p.Family.FatherAge, maxPersonAge)
	validateNonNegative(verr, "family.mother_age", p.Family.MotherAge, maxPersonAge)
	validateNonNegative(verr, "family.spouse_age", p.Family.SpouseAge, maxPersonAge)

	validatePassport(verr, &p.Passport)

	return verr
}

func validateNonNegative(verr *ValidationError, field string, v *int, max int) {
	if v == nil {
		return
	}
	if *v < 0 {
		verr.Add(field, "must not be negative")
		return
	}
	if max >= 0 && *v > max {
		verr.Add(field, "is out of range")
	}
}

func validatePassport(verr *ValidationError, p *Passport) {
	number, msg := NormalizePassportNumber(p.Number)
	if msg != "" {
		verr.Add("passport.number", msg)
	} else {
		p.Number = number
	}
	p.IssuePlace = strings.TrimSpace(p.IssuePlace)

	if !p.HasPassport {
		return
	}
	if p.Number == "" && msg == "" {
		verr.Add("passport.number", "is required when has_passport is set")
	}
	if p.IssueDate != nil && p.ExpiryDate != nil && !p.ExpiryDate.After(*p.IssueDate) {
		verr.Add("passport.expiry_date", "must be after issue date")
	}
}

// missingRequiredFields は審査提出に必要な未入力項目を返します。
func missingRequiredFields(p *Profile) []string {
	var missing []string
	for _, field := range requiredForSubmission {
		switch field {
		case "full_name":
			if strings.TrimSpace(p.FullName) == "" {
				missing = append(missing, field)
			}
		case "nik":
			if strings.TrimSpace(p.NIK) == "" {
				missing = append(missing, field)
			}
		case "birth_date":
			if p.BirthDate == nil {
				missing = append(missing, field)
			}
		case "address":
			if strings.TrimSpace(p.Address) == "" {
				missing = append(missing, field)
			}
		}
	}
	return missing
}
