package region

import (
	"context"
	"errors"
	"strings"
)

var hierarchy = []Level{LevelProvince, LevelRegency, LevelDistrict, LevelVillage}

// Service は行政区参照のユースケースをまとめます。
type Service struct {
	repo Repository
}

// NewService は Service を生成します。
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListChildren は指定階層の行政区を親コードで絞り込んで返します。州の場合 parentCode は無視されます。
func (s *Service) ListChildren(ctx context.Context, level Level, parentCode string) ([]*Region, error) {
	if !level.IsValid() {
		return nil, ErrInvalidLevel
	}
	parentCode = strings.TrimSpace(parentCode)
	if level == LevelProvince {
		parentCode = ""
	}
	return s.repo.ListChildren(ctx, level, parentCode)
}

// ValidateHierarchy は各コードが存在し、上位コードと親子関係にあることを検証します。
func (s *Service) ValidateHierarchy(ctx context.Context, codes Codes) error {
	_, err := s.resolve(ctx, codes)
	return err
}

// Describe はコードに対応する行政区名を返します。
func (s *Service) Describe(ctx context.Context, codes Codes) (*Names, error) {
	resolved, err := s.resolve(ctx, codes)
	if err != nil {
		return nil, err
	}
	names := &Names{}
	if r := resolved[LevelProvince]; r != nil {
		names.Province = r.Name
	}
	if r := resolved[LevelRegency]; r != nil {
		names.Regency = r.Name
	}
	if r := resolved[LevelDistrict]; r != nil {
		names.District = r.Name
	}
	if r := resolved[LevelVillage]; r != nil {
		names.Village = r.Name
	}
	return names, nil
}

func (s *Service) resolve(ctx context.Context, codes Codes) (map[Level]*Region, error) {
	resolved := make(map[Level]*Region, len(hierarchy))
	if codes.IsEmpty() {
		return resolved, nil
	}

	for _, level := range hierarchy {
		code := strings.TrimSpace(codes.code(level))
		if code == "" {
			continue
		}

		parentLevel, hasParent := level.Parent()
		if hasParent && strings.TrimSpace(codes.code(parentLevel)) == "" {
			return nil, &HierarchyError{Field: string(parentLevel) + "_code", Message: "is required when " + string(level) + "_code is set"}
		}

		r, err := s.repo.FindByCode(ctx, level, code)
		if err != nil {
			if errors.Is(err, ErrRegionNotFound) {
				return nil, &HierarchyError{Field: string(level) + "_code", Message: "unknown code"}
			}
			return nil, err
		}

		if hasParent && r.ParentCode != strings.TrimSpace(codes.code(parentLevel)) {
			return nil, &HierarchyError{Field: string(level) + "_code", Message: "does not belong to " + string(parentLevel) + "_code"}
		}

		resolved[level] = r
	}

	return resolved, nil
}
