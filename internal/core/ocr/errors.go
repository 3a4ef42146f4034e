package ocr

import "errors"

var (
	// ErrJobNotFound はジョブが存在しない場合に返却されます。
	ErrJobNotFound = errors.New("ocr job not found")
	// ErrProviderUnavailable は OCR プロバイダが利用できない場合に返却されます。
	ErrProviderUnavailable = errors.New("ocr provider unavailable")
)
