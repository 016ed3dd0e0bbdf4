package sphere

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// ToCartesian converts longitude/latitude in radians to a unit vector.
func ToCartesian(lon, lat float64) r3.Vector {
	return s2.PointFromLatLng(s2.LatLng{Lat: s1.Angle(lat), Lng: s1.Angle(lon)}).Vector
}

// FromCartesian converts a vector to longitude/latitude in radians. The
// vector need not be normalized. Longitude is in (-π, π].
func FromCartesian(v r3.Vector) (lon, lat float64) {
	ll := s2.LatLngFromPoint(s2.Point{Vector: v})
	return WrapLongitude(ll.Lng.Radians()), ll.Lat.Radians()
}

// WrapLongitude maps any longitude in radians into (-π, π].
func WrapLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return math.NaN()
	}
	x := math.Mod(lon+math.Pi, 2*math.Pi)
	if x <= 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
