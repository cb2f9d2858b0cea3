package geomatch

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electionpulse/pkg/contracts/domain"
)

func testTable() *ProvinceTable {
	return NewProvinceTable([]Province{
		{Code: "CHU", Name: "Chuy", NameLocal: "Чүй", Region: "North"},
		{Code: "OSH", Name: "Osh", NameLocal: "Ош", Region: "South"},
	}, map[string]string{
		"Chui": "CHU",
	})
}

func testMatcher() *Matcher {
	return NewMatcher(testTable(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func voters(n int64) *int64 { return &n }

func TestBuildIndexSkipsSummaryRows(t *testing.T) {
	m := testMatcher()

	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-0", DistrictNo: 0, ProvinceCode: "CHU"},
		{UnitID: "CHU-1", DistrictNo: 1, ProvinceCode: "CHU", StationCount: 40, RegisteredVoters: voters(52000)},
		{UnitID: "OSH-3", DistrictNo: 3, ProvinceCode: "OSH"},
	})

	require.Len(t, index, 2)
	assert.NotContains(t, index, "CHU:0")

	unit := index["CHU:1"]
	assert.Equal(t, "CHU-1", unit.ID)
	assert.Equal(t, "Chuy", unit.ProvinceName)
	assert.Equal(t, "Чүй", unit.ProvinceNameLocal)
	assert.Equal(t, 40, unit.StationCount)
}

func TestBuildIndexDuplicateKeysKeepLast(t *testing.T) {
	m := testMatcher()

	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-1-old", DistrictNo: 1, ProvinceCode: "CHU"},
		{UnitID: "CHU-1-new", DistrictNo: 1, ProvinceCode: "CHU"},
	})

	require.Len(t, index, 1)
	assert.Equal(t, "CHU-1-new", index["CHU:1"].ID)
}

func TestMatchResolvesAliasSpellings(t *testing.T) {
	m := testMatcher()
	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-1", DistrictNo: 1, ProvinceCode: "CHU"},
	})

	features := []domain.BoundaryFeature{
		{ProvinceName: "Chuy", DistrictNo: 1},
		{ProvinceName: "Chui", DistrictNo: 1},  // alias spelling
		{ProvinceName: "chuy ", DistrictNo: 1}, // case/whitespace variant
		{ProvinceName: "Чүй", DistrictNo: 1},   // local script
	}

	result := m.Match(features, index)
	assert.Equal(t, 4, result.Matched)
	assert.Equal(t, 0, result.Unmatched)
	for _, f := range result.Features {
		require.NotNil(t, f.Unit)
		assert.Equal(t, "CHU-1", f.Unit.ID)
	}
}

func TestMatchKeepsUnmatchedFeatures(t *testing.T) {
	m := testMatcher()
	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-1", DistrictNo: 1, ProvinceCode: "CHU"},
	})

	features := []domain.BoundaryFeature{
		{ProvinceName: "Chuy", DistrictNo: 1},
		{ProvinceName: "Atlantis", DistrictNo: 1}, // unknown province
		{ProvinceName: "Chuy", DistrictNo: 9},     // no registry unit
	}

	result := m.Match(features, index)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 2, result.Unmatched)

	require.Len(t, result.Features, 3)
	assert.True(t, result.Features[0].Matched())
	assert.False(t, result.Features[1].Matched())
	assert.False(t, result.Features[2].Matched())
	assert.Equal(t, "Atlantis", result.Features[1].Label())
}

func TestMatchIsOrderIndependent(t *testing.T) {
	m := testMatcher()
	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-1", DistrictNo: 1, ProvinceCode: "CHU"},
		{UnitID: "OSH-3", DistrictNo: 3, ProvinceCode: "OSH"},
	})

	forward := []domain.BoundaryFeature{
		{ProvinceName: "Chuy", DistrictNo: 1},
		{ProvinceName: "Osh", DistrictNo: 3},
		{ProvinceName: "Osh", DistrictNo: 7},
	}
	reversed := []domain.BoundaryFeature{forward[2], forward[1], forward[0]}

	a := m.Match(forward, index)
	b := m.Match(reversed, index)

	assert.Equal(t, a.Matched, b.Matched)
	assert.Equal(t, a.Unmatched, b.Unmatched)
	assert.Equal(t, a.Units(), b.Units())
}

func TestMatchDoesNotMutateInput(t *testing.T) {
	m := testMatcher()
	index := m.BuildIndex([]domain.RegistryRecord{
		{UnitID: "CHU-1", DistrictNo: 1, ProvinceCode: "CHU"},
	})

	features := []domain.BoundaryFeature{{ProvinceName: "Chuy", DistrictNo: 1}}
	result := m.Match(features, index)

	assert.Nil(t, features[0].Unit, "input features stay untouched")
	assert.NotNil(t, result.Features[0].Unit)
}
