package domain

import "encoding/json"

// BoundaryFeature is a single polygon from the boundary file. The Unit
// attachment is set exactly once during matching; features that cannot
// be resolved keep a nil Unit and are still handed to the rendering
// layer with a fallback label.
type BoundaryFeature struct {
	ProvinceName string          `json:"province_name" validate:"required"`
	DistrictNo   int             `json:"district_no" validate:"min=0"`
	Geometry     json.RawMessage `json:"geometry,omitempty"`
	Unit         *ResolvedUnit   `json:"unit,omitempty"`
}

// Matched reports whether the feature was resolved to a registry unit.
func (f BoundaryFeature) Matched() bool {
	return f.Unit != nil
}

// Label returns the display label for the feature: the resolved unit id
// when matched, otherwise the raw province name from the boundary file.
func (f BoundaryFeature) Label() string {
	if f.Unit != nil {
		return f.Unit.ID
	}
	return f.ProvinceName
}
