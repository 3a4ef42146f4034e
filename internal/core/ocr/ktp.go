package ocr

import (
	"regexp"
	"strings"
)

// KTP の OCR 結果に格納される項目名です。
const (
	FieldNIK        = "nik"
	FieldName       = "name"
	FieldBirthPlace = "birth_place"
	FieldBirthDate  = "birth_date"
	FieldAddress    = "address"
	FieldGender     = "gender"
)

var ktpFields = []string{FieldNIK, FieldName, FieldBirthPlace, FieldBirthDate, FieldAddress, FieldGender}

var (
	nikPattern    = regexp.MustCompile(`\b\d{16}\b`)
	datePattern   = regexp.MustCompile(`\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}`)
	nameLabel     = regexp.MustCompile(`(?i)^nama\b\s*[:.]?\s*`)
	addressLabel  = regexp.MustCompile(`(?i)^alamat\b\s*[:.]?\s*`)
	birthLabel    = regexp.MustCompile(`(?i)^(tempat\s*/?\s*tgl\.?\s*lahir|tempat\s*lahir|ttl)\b\s*[:.]?\s*`)
	genderLabel   = regexp.MustCompile(`(?i)(jenis\s*)?kelamin\s*[:.]?\s*`)
	maleWords     = regexp.MustCompile(`(?i)\b(laki|laki-laki|pria|male)\b`)
	femaleWords   = regexp.MustCompile(`(?i)\b(perempuan|wanita|female)\b`)
	headerPattern = regexp.MustCompile(`(?i)^(provinsi|kabupaten|kota|nik)\b`)
)

// ParseKTP は KTP (インドネシアの身分証) の OCR テキストから主要項目を推定します。
// 該当しない項目は空文字になります。
func ParseKTP(text string) map[string]string {
	fields := make(map[string]string, len(ktpFields))
	for _, k := range ktpFields {
		fields[k] = ""
	}

	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return fields
	}

	fields[FieldNIK] = nikPattern.FindString(strings.Join(lines, " "))

	if v, ok := labeledValue(lines, nameLabel); ok && !isDigits(v) {
		fields[FieldName] = v
	} else {
		fields[FieldName] = guessName(lines)
	}

	if v, ok := labeledValue(lines, birthLabel); ok {
		fields[FieldBirthPlace], fields[FieldBirthDate] = splitBirth(v)
	}
	if fields[FieldBirthDate] == "" {
		for _, ln := range lines {
			if d := datePattern.FindString(ln); d != "" {
				fields[FieldBirthDate] = d
				break
			}
		}
	}

	if v, ok := labeledValue(lines, addressLabel); ok {
		fields[FieldAddress] = v
	} else {
		for _, ln := range lines {
			lower := strings.ToLower(ln)
			if strings.Contains(lower, "kel/") || strings.Contains(lower, "rt/") ||
				strings.Contains(lower, "desa") || strings.Contains(lower, "kec") {
				fields[FieldAddress] = ln
				break
			}
		}
	}

	for _, ln := range lines {
		if !genderLabel.MatchString(ln) {
			continue
		}
		switch {
		case maleWords.MatchString(ln):
			fields[FieldGender] = "M"
		case femaleWords.MatchString(ln):
			fields[FieldGender] = "F"
		}
		break
	}

	return fields
}

// labeledValue はラベルで始まる行の値を返します。ラベルのみの行は次の行を値とします。
func labeledValue(lines []string, label *regexp.Regexp) (string, bool) {
	for i, ln := range lines {
		loc := label.FindStringIndex(ln)
		if loc == nil || loc[0] != 0 {
			continue
		}
		if v := strings.TrimSpace(ln[loc[1]:]); v != "" {
			return v, true
		}
		if i+1 < len(lines) && len(lines[i+1]) > 2 {
			return lines[i+1], true
		}
		return "", false
	}
	return "", false
}

func guessName(lines []string) string {
	limit := len(lines)
	if limit > 5 {
		limit = 5
	}
	for _, ln := range lines[:limit] {
		if len(ln) <= 4 || headerPattern.MatchString(ln) {
			continue
		}
		if ln[0] >= '0' && ln[0] <= '9' {
			continue
		}
		return ln
	}
	return ""
}

func splitBirth(v string) (place, date string) {
	if loc := datePattern.FindStringIndex(v); loc != nil {
		date = v[loc[0]:loc[1]]
		place = strings.Trim(strings.TrimSpace(v[:loc[0]]), ",/ ")
		return place, date
	}
	parts := strings.SplitN(v, ",", 2)
	place = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		date = strings.TrimSpace(parts[1])
	}
	return place, date
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
