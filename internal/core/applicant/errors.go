package applicant

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProfileNotFound はプロフィールが存在しない場合に返却されます。
	ErrProfileNotFound = errors.New("applicant profile not found")
	// ErrProfileAlreadyExists はユーザーに既にプロフィールが存在する場合に返却されます。
	ErrProfileAlreadyExists = errors.New("applicant profile already exists")
	// ErrNIKAlreadyExists は NIK 重複時に返却されます。
	ErrNIKAlreadyExists = errors.New("nik already exists")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidStatus はステータスが不正な場合に返却されます。
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidPageSize はページサイズが不正な場合に返却されます。
	ErrInvalidPageSize = errors.New("invalid page size")
	// ErrInvalidPageToken はページトークンが不正な場合に返却されます。
	ErrInvalidPageToken = errors.New("invalid page token")
	// ErrValidation は入力検証エラー全般を表します。
	ErrValidation = errors.New("validation failed")
	// ErrInvalidState は現在の状態で許可されない操作を表します。
	ErrInvalidState = errors.New("invalid state transition")
	// ErrConflict は同時更新に敗れた場合に返却されます。
	ErrConflict = errors.New("concurrent update conflict")
)

// ValidationError は項目ごとの入力検証エラーです。
type ValidationError struct {
	Fields map[string]string
	cause  error
}

// NewValidationError は単一項目の ValidationError を生成します。
func NewValidationError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.Add(field, message)
	return v
}

// Add は項目のエラーを追加します。同じ項目は最初のメッセージを保持します。
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// Merge は別の ValidationError の項目を prefix 付きで取り込みます。
func (e *ValidationError) Merge(prefix string, other *ValidationError) {
	if other == nil {
		return
	}
	for field, msg := range other.Fields {
		e.Add(prefix+field, msg)
	}
}

// HasErrors はエラー項目が存在するかを返します。
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

// OrNil はエラー項目がなければ nil を返します。
func (e *ValidationError) OrNil() error {
	if !e.HasErrors() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

// StateError は現在の状態で操作が許可されないことを表します。
type StateError struct {
	Operation Operation
	Current   VerificationStatus
	Expected  VerificationStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s profile in status %s (expected %s)", e.Operation, e.Current, e.Expected)
}

func (e *StateError) Is(target error) bool {
	return target == ErrInvalidState
}
