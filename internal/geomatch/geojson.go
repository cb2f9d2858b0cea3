package geomatch

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	apperrors "electionpulse/internal/errors"
	"electionpulse/pkg/contracts/domain"
)

// featureCollection mirrors the subset of GeoJSON the boundary file uses
type featureCollection struct {
	Type     string       `json:"type"`
	Features []geoFeature `json:"features"`
}

type geoFeature struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// featureProperties accepts the property spellings seen across boundary
// file releases. District numbers arrive as JSON numbers in recent
// releases and as strings in older ones.
type featureProperties struct {
	Province   string          `json:"province"`
	Name1      string          `json:"NAME_1"`
	District   json.RawMessage `json:"district"`
	DistrictNo json.RawMessage `json:"district_no"`
}

// ParseBoundaryFile reads and parses the boundary polygon collection.
func ParseBoundaryFile(path string) ([]domain.BoundaryFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("read boundary file", err).WithContext("path", path)
	}
	return ParseBoundaries(data)
}

// ParseBoundaries parses a GeoJSON FeatureCollection into boundary
// features. Features missing a usable province name or district number
// are rejected; the boundary file is a static input and a malformed
// feature means a broken release, not a live-data hiccup.
func ParseBoundaries(data []byte) ([]domain.BoundaryFeature, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, apperrors.NewParsingError("decode boundary collection", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("unexpected GeoJSON type %q, want FeatureCollection", fc.Type), nil)
	}

	features := make([]domain.BoundaryFeature, 0, len(fc.Features))
	for i, f := range fc.Features {
		var props featureProperties
		if err := json.Unmarshal(f.Properties, &props); err != nil {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("decode properties of feature %d", i), err)
		}

		name := strings.TrimSpace(props.Province)
		if name == "" {
			name = strings.TrimSpace(props.Name1)
		}
		if name == "" {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("feature %d has no province name", i), nil)
		}

		districtRaw := props.District
		if len(districtRaw) == 0 {
			districtRaw = props.DistrictNo
		}
		district, err := parseDistrictNo(districtRaw)
		if err != nil {
			return nil, apperrors.NewParsingError(
				fmt.Sprintf("feature %d (%s) has no usable district number", i, name), err)
		}

		features = append(features, domain.BoundaryFeature{
			ProvinceName: name,
			DistrictNo:   district,
			Geometry:     f.Geometry,
		})
	}

	return features, nil
}

// parseDistrictNo accepts a JSON number or a numeric string
func parseDistrictNo(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("missing district number")
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("district number is neither number nor string")
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("parse district number %q: %w", s, err)
	}
	return n, nil
}
