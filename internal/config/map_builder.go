package config

import (
	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// MapConfig is the validated, immutable set of render parameters. The only
// way to obtain one is through MapBuilder.Build.
type MapConfig struct {
	mapAccuracy         int
	maxLToCache         int
	rotate              bool
	centralPoint        sphere.GeoPoint
	meridianPoint       sphere.GeoPoint
	allowNegativeValues bool
	maxAccuracy         int
	maxLLimit           int
}

func (m MapConfig) MapAccuracy() int               { return m.mapAccuracy }
func (m MapConfig) MaxLToCache() int               { return m.maxLToCache }
func (m MapConfig) Rotate() bool                   { return m.rotate }
func (m MapConfig) CentralPoint() sphere.GeoPoint  { return m.centralPoint }
func (m MapConfig) MeridianPoint() sphere.GeoPoint { return m.meridianPoint }
func (m MapConfig) AllowNegativeValues() bool      { return m.allowNegativeValues }

// Section converts m back to its storage form.
func (m MapConfig) Section() MapSection {
	return MapSection{
		MapAccuracy:         m.mapAccuracy,
		MaxLToCache:         m.maxLToCache,
		Rotate:              m.rotate,
		CentralPoint:        m.centralPoint,
		MeridianPoint:       m.meridianPoint,
		AllowNegativeValues: m.allowNegativeValues,
		MaxAccuracy:         m.maxAccuracy,
		MaxLLimit:           m.maxLLimit,
	}
}

// Builder returns a MapBuilder seeded with m, for per-request overrides.
func (m MapConfig) Builder() *MapBuilder {
	return NewMapBuilder().FromSection(m.Section())
}

// MapBuilder accumulates map settings and validates them once in Build.
type MapBuilder struct {
	section MapSection
}

// NewMapBuilder starts from DefaultMapSection.
func NewMapBuilder() *MapBuilder {
	return &MapBuilder{section: DefaultMapSection()}
}

// FromSection replaces every field with the values in s.
func (b *MapBuilder) FromSection(s MapSection) *MapBuilder {
	b.section = s
	return b
}

func (b *MapBuilder) MapAccuracy(dpi int) *MapBuilder {
	b.section.MapAccuracy = dpi
	return b
}

func (b *MapBuilder) MaxLToCache(maxL int) *MapBuilder {
	b.section.MaxLToCache = maxL
	return b
}

func (b *MapBuilder) Rotate(on bool) *MapBuilder {
	b.section.Rotate = on
	return b
}

func (b *MapBuilder) CentralPoint(lon, lat float64) *MapBuilder {
	b.section.CentralPoint = sphere.GeoPoint{Lon: lon, Lat: lat}
	return b
}

func (b *MapBuilder) MeridianPoint(lon, lat float64) *MapBuilder {
	b.section.MeridianPoint = sphere.GeoPoint{Lon: lon, Lat: lat}
	return b
}

func (b *MapBuilder) AllowNegativeValues(on bool) *MapBuilder {
	b.section.AllowNegativeValues = on
	return b
}

// Limits sets the ceilings applied to map_accuracy and max_l_to_cache.
func (b *MapBuilder) Limits(maxAccuracy, maxL int) *MapBuilder {
	b.section.MaxAccuracy = maxAccuracy
	b.section.MaxLLimit = maxL
	return b
}

// Build validates the accumulated settings. Errors carry MAP_002 for a
// dimension that is not positive or above its ceiling, and MAP_003 for a
// malformed anchor point.
func (b *MapBuilder) Build() (MapConfig, error) {
	s := b.section
	if s.MaxAccuracy == 0 {
		s.MaxAccuracy = DefaultMaxAccuracy
	}
	if s.MaxLLimit == 0 {
		s.MaxLLimit = DefaultMaxLLimit
	}
	if s.MaxAccuracy < 0 {
		return MapConfig{}, errors.NonPositiveDimension("max_accuracy", s.MaxAccuracy)
	}
	if s.MaxLLimit < 0 {
		return MapConfig{}, errors.NonPositiveDimension("max_l_limit", s.MaxLLimit)
	}
	if s.MapAccuracy <= 0 {
		return MapConfig{}, errors.NonPositiveDimension("map_accuracy", s.MapAccuracy)
	}
	if s.MapAccuracy > s.MaxAccuracy {
		return MapConfig{}, errors.DimensionTooLarge("map_accuracy", s.MapAccuracy, s.MaxAccuracy)
	}
	if s.MaxLToCache <= 0 {
		return MapConfig{}, errors.NonPositiveDimension("max_l_to_cache", s.MaxLToCache)
	}
	if s.MaxLToCache > s.MaxLLimit {
		return MapConfig{}, errors.DimensionTooLarge("max_l_to_cache", s.MaxLToCache, s.MaxLLimit)
	}
	if err := s.CentralPoint.Validate(); err != nil {
		return MapConfig{}, errors.Wrap(err, errors.CodeMalformedGeoPoint, "central_point is malformed")
	}
	if err := s.MeridianPoint.Validate(); err != nil {
		return MapConfig{}, errors.Wrap(err, errors.CodeMalformedGeoPoint, "meridian_point is malformed")
	}
	return MapConfig{
		mapAccuracy:         s.MapAccuracy,
		maxLToCache:         s.MaxLToCache,
		rotate:              s.Rotate,
		centralPoint:        s.CentralPoint,
		meridianPoint:       s.MeridianPoint,
		allowNegativeValues: s.AllowNegativeValues,
		maxAccuracy:         s.MaxAccuracy,
		maxLLimit:           s.MaxLLimit,
	}, nil
}
