package document

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Storage はファイル本体の保存先です。
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// StorageKey は documents/<profile id>/<type>/<氏名スラッグ>-<NIK 下4桁>-<type>-<token><ext> 形式の保存キーを返します。
// token はアップロードごとに異なり、再アップロードが既存ファイルを上書きしないようにします。
func StorageKey(profileID int64, typeCode, fullName, nik, token, ext string) string {
	parts := []string{Slugify(fullName)}
	if parts[0] == "" {
		parts[0] = "applicant"
	}
	nik = strings.TrimSpace(nik)
	if len(nik) >= 4 {
		parts = append(parts, nik[len(nik)-4:])
	}
	if typeCode != "" {
		parts = append(parts, typeCode)
	}
	if token = Slugify(token); token != "" {
		parts = append(parts, token)
	}
	return fmt.Sprintf("documents/%d/%s/%s%s", profileID, typeCode, strings.Join(parts, "-"), strings.ToLower(ext))
}

// Slugify は文字列をダイアクリティクスを除いた小文字の英数字とハイフンへ変換します。
func Slugify(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}
	return b.String()
}
