package geomatch

import (
	"log/slog"

	"electionpulse/pkg/contracts/domain"
)

// Matcher resolves boundary features to registry units by the
// "{province_code}:{district_no}" composite key. Matching is total and
// order-independent: the same inputs always produce the same
// matched/unmatched partition.
type Matcher struct {
	table  *ProvinceTable
	logger *slog.Logger
}

// NewMatcher creates a matcher over the given province table.
func NewMatcher(table *ProvinceTable, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		table:  table,
		logger: logger.With("component", "geo_matcher"),
	}
}

// MatchResult carries the post-matching feature set. Features keep
// their input order; unmatched features have a nil Unit.
type MatchResult struct {
	Features  []domain.BoundaryFeature
	Matched   int
	Unmatched int
}

// BuildIndex builds the composite-key index from registry records,
// skipping province-level summary rows (district number 0). Duplicate
// keys keep the last-seen record; the registry is trusted to be
// duplicate-free, and this is a documented limitation rather than an
// error.
func (m *Matcher) BuildIndex(registry []domain.RegistryRecord) map[string]domain.ResolvedUnit {
	index := make(map[string]domain.ResolvedUnit, len(registry))
	for _, rec := range registry {
		if rec.IsSummary() {
			continue
		}
		index[rec.Key()] = m.resolveUnit(rec)
	}
	return index
}

// resolveUnit produces the canonical identity for a registry record
func (m *Matcher) resolveUnit(rec domain.RegistryRecord) domain.ResolvedUnit {
	unit := domain.ResolvedUnit{
		ID:               rec.UnitID,
		DistrictNo:       rec.DistrictNo,
		ProvinceID:       rec.ProvinceCode,
		Zones:            rec.Zones,
		StationCount:     rec.StationCount,
		RegisteredVoters: rec.RegisteredVoters,
	}
	if p, ok := m.table.Province(rec.ProvinceCode); ok {
		unit.ProvinceName = p.Name
		unit.ProvinceNameLocal = p.NameLocal
	}
	return unit
}

// Match resolves each boundary feature against the index. The unit
// attachment is set exactly once here and never mutated afterward.
// Match failures are per-feature: the feature is kept with a nil unit,
// logged, and never fatal.
func (m *Matcher) Match(features []domain.BoundaryFeature, index map[string]domain.ResolvedUnit) MatchResult {
	result := MatchResult{Features: make([]domain.BoundaryFeature, len(features))}

	for i, f := range features {
		result.Features[i] = f

		code, ok := m.table.ResolveCode(f.ProvinceName)
		if !ok {
			result.Unmatched++
			m.logger.Warn("unknown province name on boundary feature",
				"province_name", f.ProvinceName,
				"district_no", f.DistrictNo,
			)
			continue
		}

		unit, ok := index[domain.UnitKey(code, f.DistrictNo)]
		if !ok {
			result.Unmatched++
			m.logger.Warn("no registry unit for boundary feature",
				"province_code", code,
				"district_no", f.DistrictNo,
			)
			continue
		}

		u := unit
		result.Features[i].Unit = &u
		result.Matched++
	}

	m.logger.Info("boundary matching completed",
		"features", len(features),
		"matched", result.Matched,
		"unmatched", result.Unmatched,
	)

	return result
}

// Units returns the resolved units of all matched features, keyed by
// unit id. This is the unit population handed to the lookup builder.
func (r MatchResult) Units() map[string]domain.ResolvedUnit {
	units := make(map[string]domain.ResolvedUnit, r.Matched)
	for _, f := range r.Features {
		if f.Unit != nil {
			units[f.Unit.ID] = *f.Unit
		}
	}
	return units
}
