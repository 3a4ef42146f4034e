package document

import "errors"

var (
	// ErrDocumentNotFound は書類が存在しない場合に返却されます。
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnknownType は未定義の書類種別です。
	ErrUnknownType = errors.New("unknown document type")
	// ErrInvalidID は ID が不正な場合に返却されます。
	ErrInvalidID = errors.New("invalid id")
	// ErrInvalidState は審査待ちでない書類を審査しようとした場合に返却されます。
	ErrInvalidState = errors.New("document is not pending review")
	// ErrConflict は同時更新に敗れた場合に返却されます。
	ErrConflict = errors.New("concurrent document update conflict")
	// ErrStorageUnavailable はファイルストレージが利用できない場合に返却されます。
	ErrStorageUnavailable = errors.New("document storage unavailable")
	// ErrPrefillNotAvailable は KTP の OCR 結果がまだない場合に返却されます。
	ErrPrefillNotAvailable = errors.New("ktp prefill not available")
)
