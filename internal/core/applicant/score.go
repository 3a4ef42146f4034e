package applicant

import (
	"math"
	"strings"
)

const (
	profileCompletenessWeight = 0.6
	documentWeight            = 0.4
)

// CompletenessRatio は主要な基本情報の入力率 (0..1) を返します。
func (p *Profile) CompletenessRatio() float64 {
	if p == nil {
		return 0
	}
	fields := []bool{
		strings.TrimSpace(p.FullName) != "",
		strings.TrimSpace(p.NIK) != "",
		p.BirthDate != nil,
		p.Gender != "",
		strings.TrimSpace(p.Address) != "",
		strings.TrimSpace(p.ContactPhone) != "",
		p.Region.ProvinceCode != "",
		p.Region.RegencyCode != "",
		p.Region.DistrictCode != "",
		p.Region.VillageCode != "",
	}
	filled := 0
	for _, ok := range fields {
		if ok {
			filled++
		}
	}
	return float64(filled) / float64(len(fields))
}

// ReadinessScore は入力率と承認済み書類の割合から 0..100 の準備度を小数 1 桁で返します。
// 書類が 1 件もない場合、書類分は 0 として扱います。
func ReadinessScore(p *Profile, approvedDocuments, totalDocuments int) float64 {
	docRatio := 0.0
	if totalDocuments > 0 && approvedDocuments > 0 {
		docRatio = math.Min(float64(approvedDocuments)/float64(totalDocuments), 1)
	}
	total := p.CompletenessRatio()*profileCompletenessWeight*100 + docRatio*documentWeight*100
	total = math.Max(0, math.Min(total, 100))
	return math.Round(total*10) / 10
}
