package sphere

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats"
)

// CircleSamples is the number of points generated per small circle.
const CircleSamples = 360

// poleAxis seeds the orthonormal frame around a circle center.
var poleAxis = r3.Vector{X: 0, Y: 0, Z: 1}

// SmallCircle returns samples points, in radians, on the circle of angular
// radius alphaDeg around center. alphaDeg of 90 yields a great circle.
// Longitudes are wrapped into (-π, π]; the first and last samples coincide.
func SmallCircle(center GeoPoint, alphaDeg float64, samples int) (lon, lat []float64) {
	if samples < 2 {
		samples = CircleSamples
	}
	c := center.Vector()

	u := poleAxis.Cross(c)
	if u.Norm() < parallelTolerance {
		u = r3.Vector{X: 1}
	} else {
		u = u.Normalize()
	}
	w := c.Cross(u)

	alpha := alphaDeg * math.Pi / 180
	ca, sa := math.Cos(alpha), math.Sin(alpha)

	t := floats.Span(make([]float64, samples), 0, 2*math.Pi)
	lon = make([]float64, samples)
	lat = make([]float64, samples)
	for i, ti := range t {
		ct, st := math.Cos(ti), math.Sin(ti)
		p := c.Mul(ca).Add(u.Mul(sa * ct)).Add(w.Mul(sa * st))
		lon[i], lat[i] = FromCartesian(p)
	}
	return lon, lat
}
