package region

// Level は行政区の階層です。
type Level string

const (
	LevelProvince Level = "province"
	LevelRegency  Level = "regency"
	LevelDistrict Level = "district"
	LevelVillage  Level = "village"
)

// IsValid は既知の階層かを判定します。
func (l Level) IsValid() bool {
	switch l {
	case LevelProvince, LevelRegency, LevelDistrict, LevelVillage:
		return true
	default:
		return false
	}
}

// Parent は一つ上の階層を返します。州 (province) には親がありません。
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelRegency:
		return LevelProvince, true
	case LevelDistrict:
		return LevelRegency, true
	case LevelVillage:
		return LevelDistrict, true
	default:
		return "", false
	}
}

// Region は参照専用の行政区データです。
type Region struct {
	Code       string
	Name       string
	Level      Level
	ParentCode string
}

// Codes は住所に紐づく行政区コードの組です。
type Codes struct {
	ProvinceCode string
	RegencyCode  string
	DistrictCode string
	VillageCode  string
}

// IsEmpty はいずれのコードも指定されていないかを判定します。
func (c Codes) IsEmpty() bool {
	return c.ProvinceCode == "" && c.RegencyCode == "" && c.DistrictCode == "" && c.VillageCode == ""
}

func (c Codes) code(level Level) string {
	switch level {
	case LevelProvince:
		return c.ProvinceCode
	case LevelRegency:
		return c.RegencyCode
	case LevelDistrict:
		return c.DistrictCode
	case LevelVillage:
		return c.VillageCode
	default:
		return ""
	}
}

// Names は表示用の行政区名です。
type Names struct {
	Province string
	Regency  string
	District string
	Village  string
}
