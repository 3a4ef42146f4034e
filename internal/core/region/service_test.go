package region

import (
	"context"
	"errors"
	"testing"
)

type fakeRepo struct {
	regions map[Level]map[string]*Region
}

func newFakeRepo(regions ...*Region) *fakeRepo {
	r := &fakeRepo{regions: make(map[Level]map[string]*Region)}
	for _, reg := range regions {
		if r.regions[reg.Level] == nil {
			r.regions[reg.Level] = make(map[string]*Region)
		}
		r.regions[reg.Level][reg.Code] = reg
	}
	return r
}

func (r *fakeRepo) FindByCode(_ context.Context, level Level, code string) (*Region, error) {
	reg, ok := r.regions[level][code]
	if !ok {
		return nil, ErrRegionNotFound
	}
	c := *reg
	return &c, nil
}

func (r *fakeRepo) ListChildren(_ context.Context, level Level, parentCode string) ([]*Region, error) {
	var out []*Region
	for _, reg := range r.regions[level] {
		if parentCode == "" || reg.ParentCode == parentCode {
			c := *reg
			out = append(out, &c)
		}
	}
	return out, nil
}

func westJava() *fakeRepo {
	return newFakeRepo(
		&Region{Code: "32", Name: "Jawa Barat", Level: LevelProvince},
		&Region{Code: "34", Name: "DI Yogyakarta", Level: LevelProvince},
		&Region{Code: "3273", Name: "Kota Bandung", Level: LevelRegency, ParentCode: "32"},
		&Region{Code: "3471", Name: "Kota Yogyakarta", Level: LevelRegency, ParentCode: "34"},
		&Region{Code: "327301", Name: "Sukasari", Level: LevelDistrict, ParentCode: "3273"},
		&Region{Code: "3273011001", Name: "Gegerkalong", Level: LevelVillage, ParentCode: "327301"},
	)
}

func TestService_ValidateHierarchy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		codes     Codes
		wantField string
	}{
		{name: "empty", codes: Codes{}},
		{name: "province only", codes: Codes{ProvinceCode: "32"}},
		{name: "full chain", codes: Codes{ProvinceCode: "32", RegencyCode: "3273", DistrictCode: "327301", VillageCode: "3273011001"}},
		{name: "unknown province", codes: Codes{ProvinceCode: "99"}, wantField: "province_code"},
		{name: "regency of other province", codes: Codes{ProvinceCode: "32", RegencyCode: "3471"}, wantField: "regency_code"},
		{name: "missing parent", codes: Codes{ProvinceCode: "32", DistrictCode: "327301"}, wantField: "regency_code"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewService(westJava())
			err := svc.ValidateHierarchy(context.Background(), tt.codes)

			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var herr *HierarchyError
			if !errors.As(err, &herr) {
				t.Fatalf("expected HierarchyError, got %v", err)
			}
			if herr.Field != tt.wantField {
				t.Fatalf("expected field %s, got %s", tt.wantField, herr.Field)
			}
			if !errors.Is(err, ErrInvalidHierarchy) {
				t.Fatalf("expected ErrInvalidHierarchy, got %v", err)
			}
		})
	}
}

func TestService_Describe(t *testing.T) {
	t.Parallel()

	svc := NewService(westJava())
	names, err := svc.Describe(context.Background(), Codes{ProvinceCode: "32", RegencyCode: "3273"})
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if names.Province != "Jawa Barat" || names.Regency != "Kota Bandung" || names.District != "" {
		t.Fatalf("unexpected names %+v", names)
	}
}

func TestService_ListChildren(t *testing.T) {
	t.Parallel()

	svc := NewService(westJava())

	provinces, err := svc.ListChildren(context.Background(), LevelProvince, "ignored")
	if err != nil {
		t.Fatalf("ListChildren returned error: %v", err)
	}
	if len(provinces) != 2 {
		t.Fatalf("expected 2 provinces, got %d", len(provinces))
	}

	regencies, err := svc.ListChildren(context.Background(), LevelRegency, " 32 ")
	if err != nil {
		t.Fatalf("ListChildren returned error: %v", err)
	}
	if len(regencies) != 1 || regencies[0].Code != "3273" {
		t.Fatalf("unexpected regencies %+v", regencies)
	}

	if _, err := svc.ListChildren(context.Background(), Level("country"), ""); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("expected ErrInvalidLevel, got %v", err)
	}
}
