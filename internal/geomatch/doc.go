// Package geomatch matches boundary polygons from the geospatial
// constituency file to registry records by the administrative-name plus
// district-number composite key. Province-name spellings vary between
// boundary file releases, so resolution goes through an explicit
// ProvinceTable carrying known transliteration aliases.
package geomatch
