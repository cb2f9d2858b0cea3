package domain

// RegistryRecord is one row of the static constituency registry.
// DistrictNo 0 marks a province-level summary row; those rows are
// excluded from per-unit processing and only used for provincial
// aggregates upstream.
type RegistryRecord struct {
	UnitID           string   `json:"unit_id" validate:"required"`
	DistrictNo       int      `json:"district_no" validate:"min=0"`
	ProvinceCode     string   `json:"province_code" validate:"required"`
	Zones            []string `json:"zones,omitempty"`
	StationCount     int      `json:"station_count" validate:"min=0"`
	RegisteredVoters *int64   `json:"registered_voters"`
}

// IsSummary reports whether the record is a province-level summary row
// rather than a real constituency.
func (r RegistryRecord) IsSummary() bool {
	return r.DistrictNo == 0
}

// Key returns the composite matching key used by the geo matcher.
func (r RegistryRecord) Key() string {
	return UnitKey(r.ProvinceCode, r.DistrictNo)
}
