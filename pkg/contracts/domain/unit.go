package domain

import "strconv"

// ResolvedUnit is the canonical per-constituency identity produced once
// a boundary feature has been matched against the registry. Instances
// are built once per pipeline run and never mutated afterward.
type ResolvedUnit struct {
	ID                string   `json:"id" validate:"required"`
	DistrictNo        int      `json:"district_no" validate:"min=1"`
	ProvinceID        string   `json:"province_id" validate:"required"`
	ProvinceName      string   `json:"province_name"`
	ProvinceNameLocal string   `json:"province_name_local,omitempty"`
	Zones             []string `json:"zones,omitempty"`
	StationCount      int      `json:"station_count"`
	RegisteredVoters  *int64   `json:"registered_voters"`
}

// UnitKey builds the composite "{province_code}:{district_no}" key that
// joins boundary features to registry records.
func UnitKey(provinceCode string, districtNo int) string {
	return provinceCode + ":" + strconv.Itoa(districtNo)
}
