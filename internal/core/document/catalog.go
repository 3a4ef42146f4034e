package document

import "strings"

// Kind は書類の形式です。
type Kind string

const (
	KindPDF   Kind = "PDF"
	KindImage Kind = "IMAGE"
)

const (
	MaxPDFBytes   int64 = 2 * 1024 * 1024
	MaxImageBytes int64 = 500 * 1024
)

// TypeKTP は OCR 対象となる身分証 (KTP) の書類種別コードです。
const TypeKTP = "ktp"

var (
	pdfExtensions   = []string{".pdf"}
	imageExtensions = []string{".jpg", ".jpeg", ".png"}
)

// Type は書類種別の定義です。
type Type struct {
	Code        string
	Name        string
	Required    bool
	SortOrder   int
	Kind        Kind
	MaxBytes    int64
	Extensions  []string
	OCREligible bool
	Description string
}

// AllowsExtension は拡張子 (先頭のドットを含む) が許可されているかを判定します。
func (t Type) AllowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range t.Extensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func pdfType(code, name string, required bool, order int, description string) Type {
	return Type{
		Code:        code,
		Name:        name,
		Required:    required,
		SortOrder:   order,
		Kind:        KindPDF,
		MaxBytes:    MaxPDFBytes,
		Extensions:  pdfExtensions,
		Description: description,
	}
}

func imageType(code, name string, required bool, order int, description string) Type {
	return Type{
		Code:        code,
		Name:        name,
		Required:    required,
		SortOrder:   order,
		Kind:        KindImage,
		MaxBytes:    MaxImageBytes,
		Extensions:  imageExtensions,
		OCREligible: code == TypeKTP,
		Description: description,
	}
}

var catalog = []Type{
	pdfType("ijasah", "Ijasah", true, 1, "PDF, maks. 2 MB."),
	pdfType("sertifikat-keterampilan", "Sertifikat Keterampilan", false, 2, "Jika ada. PDF, maks. 2 MB."),
	pdfType("ijin-keluarga", "Ijin Keluarga", true, 3, "PDF, maks. 2 MB."),
	pdfType("surat-keterangan-pemberi-ijin", "Surat Keterangan Pemberi Ijin", true, 4, "PDF, maks. 2 MB."),
	pdfType("surat-kesehatan", "Surat Kesehatan", true, 5, "PDF, maks. 2 MB."),
	pdfType("surat-keterangan-status-perkawinan", "Surat Keterangan Status Perkawinan", true, 6, "PDF, maks. 2 MB."),
	pdfType("perjanjian-penempatan", "Perjanjian Penempatan", true, 7, "PDF, maks. 2 MB."),
	imageType("photo-tki", "Photo TKI", true, 8, "JPG/PNG, maks. 500 KB."),
	imageType(TypeKTP, "KTP", true, 9, "JPG/PNG, maks. 500 KB."),
	imageType("kartu-keluarga", "Kartu Keluarga", true, 10, "JPG/PNG, maks. 500 KB."),
	imageType("kartu-bpjs", "Kartu BPJS", true, 11, "JPG/PNG, maks. 500 KB."),
	imageType("paspor", "Paspor", false, 12, "Jika ada. JPG/PNG, maks. 500 KB."),
}

// Types は書類種別の一覧を表示順で返します。
func Types() []Type {
	out := make([]Type, len(catalog))
	copy(out, catalog)
	return out
}

// LookupType はコードに対応する書類種別を返します。
func LookupType(code string) (Type, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, t := range catalog {
		if t.Code == code {
			return t, true
		}
	}
	return Type{}, false
}
