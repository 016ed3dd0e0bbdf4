package resample

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Missing marks a cell with no interpolation neighbours. Renderers draw it as
// a gap.
var Missing = math.NaN()

// Interpolator performs bilinear interpolation over a heatmap laid out on the
// canonical axes (LatitudeAxis rows, LongitudeAxis columns). Queries outside
// the axes envelope return Missing.
type Interpolator struct {
	data   *mat.Dense
	n      int
	lat0   float64
	lon0   float64
	latStp float64
	lonStp float64
}

// NewInterpolator wraps a square heatmap.
func NewInterpolator(data *mat.Dense) (*Interpolator, error) {
	rows, cols := data.Dims()
	if rows != cols {
		return nil, errors.New(errors.CodeInvalidParam, "heatmap must be square").
			WithDetailf("shape=%dx%d", rows, cols)
	}
	in := &Interpolator{data: data, n: rows, lat0: math.Pi / 2, lon0: math.Pi}
	if rows > 1 {
		in.latStp = math.Pi / float64(rows-1)
		in.lonStp = 2 * math.Pi / float64(rows-1)
	}
	return in, nil
}

// At returns the interpolated value at (lat, lon) in radians.
func (in *Interpolator) At(lat, lon float64) float64 {
	if math.IsNaN(lat) || math.IsNaN(lon) ||
		lat > math.Pi/2 || lat < -math.Pi/2 ||
		lon > math.Pi || lon < -math.Pi {
		return Missing
	}
	if in.n == 1 {
		if lat == in.lat0 && lon == in.lon0 {
			return in.data.At(0, 0)
		}
		return Missing
	}

	r0, t := cell((in.lat0-lat)/in.latStp, in.n)
	c0, u := cell((in.lon0-lon)/in.lonStp, in.n)

	d00 := in.data.At(r0, c0)
	d01 := in.data.At(r0, c0+1)
	d10 := in.data.At(r0+1, c0)
	d11 := in.data.At(r0+1, c0+1)
	return (1-t)*(1-u)*d00 + (1-t)*u*d01 + t*(1-u)*d10 + t*u*d11
}

// cell splits a fractional index into the lower neighbour and its weight,
// keeping the upper neighbour in range.
func cell(f float64, n int) (int, float64) {
	i := int(math.Floor(f))
	if i >= n-1 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i, f - float64(i)
}

// Interpolate samples data at every (newLat, newLon) pair. The result has the
// shape of newLat.
func Interpolate(data, newLat, newLon *mat.Dense) (*mat.Dense, error) {
	in, err := NewInterpolator(data)
	if err != nil {
		return nil, err
	}
	rows, cols := newLat.Dims()
	if lr, lc := newLon.Dims(); lr != rows || lc != cols {
		return nil, errors.New(errors.CodeInvalidParam, "latitude and longitude meshes differ in shape")
	}
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, in.At(newLat.At(i, j), newLon.At(i, j)))
		}
	}
	return out, nil
}

// CountMissing returns the number of Missing cells in m.
func CountMissing(m *mat.Dense) int {
	rows, cols := m.Dims()
	n := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(m.At(i, j)) {
				n++
			}
		}
	}
	return n
}

func vec(x, y, z float64) r3.Vector {
	return r3.Vector{X: x, Y: y, Z: z}
}
