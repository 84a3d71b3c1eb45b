package model

// City 城市（只读目录，由种子命令维护）
// (Name, CountryISO2) 唯一；中心点坐标为 WGS84（SRID 4326）
type City struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	CountryISO2 string  `json:"country_iso2" db:"country_iso2"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}
