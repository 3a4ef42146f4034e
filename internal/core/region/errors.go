package region

import (
	"errors"
	"fmt"
)

var (
	// ErrRegionNotFound は行政区が存在しない場合に返却されます。
	ErrRegionNotFound = errors.New("region not found")
	// ErrInvalidHierarchy は行政区コードの親子関係が不正な場合に返却されます。
	ErrInvalidHierarchy = errors.New("invalid region hierarchy")
	// ErrInvalidLevel は階層が不正な場合に返却されます。
	ErrInvalidLevel = errors.New("invalid region level")
)

// HierarchyError は不正なコードの項目名と理由を保持します。
type HierarchyError struct {
	Field   string
	Message string
}

func (e *HierarchyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *HierarchyError) Is(target error) bool {
	return target == ErrInvalidHierarchy
}
