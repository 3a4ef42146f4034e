package applicant

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeNIK(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: " 3201234567890123 ", want: "3201234567890123"},
		{in: "320123456789012", wantErr: true},
		{in: "32012345678901234", wantErr: true},
		{in: "32012345678901AB", wantErr: true},
	}

	for _, tt := range tests {
		got, msg := NormalizeNIK(tt.in)
		if tt.wantErr {
			if msg == "" {
				t.Errorf("NormalizeNIK(%q): expected error", tt.in)
			}
			continue
		}
		if msg != "" || got != tt.want {
			t.Errorf("NormalizeNIK(%q) = %q, %q; want %q", tt.in, got, msg, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "+62 812-3456-7890", want: "081234567890"},
		{in: "6281234567890", want: "081234567890"},
		{in: "(021) 555.1234", want: "0215551234"},
		{in: "0812345", wantErr: true},
		{in: "08123456789012", wantErr: true},
		{in: "812345678901", wantErr: true},
		{in: "0812abc45678", wantErr: true},
	}

	for _, tt := range tests {
		got, msg := NormalizePhone(tt.in)
		if tt.wantErr {
			if msg == "" {
				t.Errorf("NormalizePhone(%q): expected error, got %q", tt.in, got)
			}
			continue
		}
		if msg != "" || got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, %q; want %q", tt.in, got, msg, tt.want)
		}
	}
}

func TestNormalizePassportNumber(t *testing.T) {
	t.Parallel()

	if got, msg := NormalizePassportNumber(" ab1234567 "); msg != "" || got != "AB1234567" {
		t.Fatalf("unexpected result %q, %q", got, msg)
	}
	if _, msg := NormalizePassportNumber("A12345678"); msg == "" {
		t.Fatal("expected error for malformed passport number")
	}
}

func TestValidateBirthDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		birth time.Time
		ok    bool
	}{
		{name: "exactly 17", birth: time.Date(2008, 6, 15, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "one day short of 17", birth: time.Date(2008, 6, 16, 0, 0, 0, 0, time.UTC), ok: false},
		{name: "65", birth: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "66", birth: time.Date(1959, 6, 15, 0, 0, 0, 0, time.UTC), ok: false},
		{name: "future", birth: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), ok: false},
	}

	for _, tt := range tests {
		msg := validateBirthDate(tt.birth, now)
		if tt.ok && msg != "" {
			t.Errorf("%s: unexpected error %q", tt.name, msg)
		}
		if !tt.ok && msg == "" {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestValidateProfile_FamilyAndPassport(t *testing.T) {
	t.Parallel()

	negative := -1
	tooOld := 130
	siblings := 1
	order := 4
	issue := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	p := &Profile{
		SiblingCount: &siblings,
		BirthOrder:   &order,
		Gender:       "x",
		Family:       Family{FatherAge: &negative, MotherAge: &tooOld},
		Passport:     Passport{HasPassport: true, IssueDate: &issue, ExpiryDate: &expiry},
	}

	verr := validateProfile(p, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	for _, field := range []string{"birth_order", "gender", "family.father_age", "family.mother_age", "passport.number", "passport.expiry_date"} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected %s error, got %v", field, verr.Fields)
		}
	}
	if !errors.Is(verr, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", verr)
	}
}

func TestValidateWorkExperiences(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)
	farFuture := now.AddDate(2, 0, 0)
	end := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []WorkExperience{
		{CompanyName: "PT A", StartDate: &start, EndDate: &end},
		{CompanyName: "", StartDate: &future},
		{CompanyName: "PT C", StartDate: &start, EndDate: &end, StillEmployed: true},
		{CompanyName: "PT D", StartDate: &start, EndDate: &farFuture},
	}

	verr := validateWorkExperiences(entries, now)

	if _, ok := verr.Fields["work_experiences[0].end_date"]; ok {
		t.Errorf("expected first entry to be valid, got %v", verr.Fields)
	}
	for _, field := range []string{
		"work_experiences[1].company_name",
		"work_experiences[1].start_date",
		"work_experiences[2].end_date",
		"work_experiences[3].end_date",
	} {
		if _, ok := verr.Fields[field]; !ok {
			t.Errorf("expected %s error, got %v", field, verr.Fields)
		}
	}
}

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	verr := NewValidationError("nik", "is required")
	verr.Add("address", "is required")
	verr.Add("nik", "ignored")

	want := "validation failed: address: is required; nik: is required"
	if verr.Error() != want {
		t.Fatalf("expected %q, got %q", want, verr.Error())
	}
}
