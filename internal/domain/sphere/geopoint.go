// Package sphere holds the pure geometry of the mapper: geographic points,
// spherical/Cartesian conversion and the rotations that re-orient the map so
// that a chosen anchor becomes the center and a second anchor fixes the prime
// meridian.
//
// Cartesian convention: x = cos(lat)cos(lon), y = cos(lat)sin(lon), z = sin(lat).
// The reference axis (1,0,0) is the point (lon 0°, lat 0°).
package sphere

import (
	"fmt"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/spf13/cast"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Epsilon is the offset, in degrees, applied to coordinates that sit exactly
// on 0°, ±90° or ±180°.
const Epsilon = 1e-8

// allclose tolerances, matching the absolute/relative pair used for anchor
// coincidence checks.
const (
	coincidenceAtol = 1e-8
	coincidenceRtol = 1e-5
)

// GeoPoint is a longitude/latitude pair in degrees.
type GeoPoint struct {
	Lon float64 `json:"lon" mapstructure:"lon"`
	Lat float64 `json:"lat" mapstructure:"lat"`
}

// NewGeoPoint validates and returns a GeoPoint.
func NewGeoPoint(lon, lat float64) (GeoPoint, error) {
	p := GeoPoint{Lon: lon, Lat: lat}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// ParseGeoPoint accepts "lon,lat" in degrees with optional surrounding
// parentheses, as typed on the command line or in a query string.
func ParseGeoPoint(txt string) (GeoPoint, error) {
	trimmed := strings.TrimSpace(txt)
	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "("), ")")
	parts := strings.Split(trimmed, ",")
	if len(parts) != 2 {
		return GeoPoint{}, errors.MalformedGeoPoint("expected lon,lat").WithDetail(txt)
	}
	lon, err := cast.ToFloat64E(strings.TrimSpace(parts[0]))
	if err != nil {
		return GeoPoint{}, errors.MalformedGeoPoint("longitude is not a number").WithDetail(txt).WithCause(err)
	}
	lat, err := cast.ToFloat64E(strings.TrimSpace(parts[1]))
	if err != nil {
		return GeoPoint{}, errors.MalformedGeoPoint("latitude is not a number").WithDetail(txt).WithCause(err)
	}
	return NewGeoPoint(lon, lat)
}

// Validate checks that both coordinates are finite and inside their ranges.
func (p GeoPoint) Validate() error {
	switch {
	case math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0):
		return errors.MalformedGeoPoint("longitude is not finite").WithDetailf("lon=%v", p.Lon)
	case math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0):
		return errors.MalformedGeoPoint("latitude is not finite").WithDetailf("lat=%v", p.Lat)
	case p.Lon < -180 || p.Lon > 180:
		return errors.MalformedGeoPoint("longitude must be within [-180, 180]").WithDetailf("lon=%v", p.Lon)
	case p.Lat < -90 || p.Lat > 90:
		return errors.MalformedGeoPoint("latitude must be within [-90, 90]").WithDetailf("lat=%v", p.Lat)
	}
	return nil
}

// Nudged returns p with degenerate coordinates moved by Epsilon toward the
// interior of their range. Values that are not exactly 0, ±90 or ±180 are
// returned unchanged.
func (p GeoPoint) Nudged() GeoPoint {
	return GeoPoint{Lon: nudge(p.Lon), Lat: nudge(p.Lat)}
}

func nudge(deg float64) float64 {
	switch deg {
	case 0, -90, -180:
		return deg + Epsilon
	case 90, 180:
		return deg - Epsilon
	}
	return deg
}

// Vector converts p to a unit Cartesian vector without nudging.
func (p GeoPoint) Vector() r3.Vector {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lon)).Vector
}

// Radians returns (lon, lat) in radians.
func (p GeoPoint) Radians() (lon, lat float64) {
	return (s1.Angle(p.Lon) * s1.Degree).Radians(), (s1.Angle(p.Lat) * s1.Degree).Radians()
}

// ApproxEqual reports whether both coordinates of p and o are close within
// an absolute 1e-8 plus relative 1e-5 tolerance.
func (p GeoPoint) ApproxEqual(o GeoPoint) bool {
	return isClose(p.Lon, o.Lon) && isClose(p.Lat, o.Lat)
}

func isClose(a, b float64) bool {
	return math.Abs(a-b) <= coincidenceAtol+coincidenceRtol*math.Abs(b)
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%g°, %g°)", p.Lon, p.Lat)
}

// GeoPointFromVector converts a Cartesian vector back to degrees.
func GeoPointFromVector(v r3.Vector) GeoPoint {
	ll := s2.LatLngFromPoint(s2.Point{Vector: v})
	return GeoPoint{Lon: ll.Lng.Degrees(), Lat: ll.Lat.Degrees()}
}
