// Package resample moves the contracted heatmap and the overlay curves onto a
// rotated sphere: it rotates coordinate meshes, pulls heatmap values back by
// bilinear interpolation and breaks polylines where they cross the ±π seam.
package resample

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// Mesh is a grid of coordinates in radians; Lon and Lat share their shape.
type Mesh struct {
	Lon *mat.Dense
	Lat *mat.Dense
}

// Dims returns the mesh shape.
func (m *Mesh) Dims() (rows, cols int) {
	return m.Lon.Dims()
}

// CanonicalMesh returns the renderer's dpi×dpi mesh: longitude runs -π..π
// across columns and latitude π/2..-π/2 down rows.
func CanonicalMesh(dpi int) (*Mesh, error) {
	if dpi <= 0 {
		return nil, errors.NonPositiveDimension("dpi", dpi)
	}
	lon := linspace(-math.Pi, math.Pi, dpi)
	lat := LatitudeAxis(dpi)

	lonData := make([]float64, dpi*dpi)
	latData := make([]float64, dpi*dpi)
	for r := 0; r < dpi; r++ {
		copy(lonData[r*dpi:(r+1)*dpi], lon)
		for c := 0; c < dpi; c++ {
			latData[r*dpi+c] = lat[r]
		}
	}
	return &Mesh{Lon: mat.NewDense(dpi, dpi, lonData), Lat: mat.NewDense(dpi, dpi, latData)}, nil
}

// LatitudeAxis returns the heatmap row coordinates, π/2 down to -π/2.
func LatitudeAxis(dpi int) []float64 {
	return linspace(math.Pi/2, -math.Pi/2, dpi)
}

// LongitudeAxis returns the heatmap column coordinates, π down to -π.
func LongitudeAxis(dpi int) []float64 {
	return linspace(math.Pi, -math.Pi, dpi)
}

// RotateGrid applies r to every mesh point in one batched multiplication and
// converts the result back to longitude (wrapped into (-π, π]) and latitude.
func RotateGrid(mesh *Mesh, r sphere.Rotation) *Mesh {
	rows, cols := mesh.Dims()
	n := rows * cols

	pts := make([]float64, 0, 3*n)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := sphere.ToCartesian(mesh.Lon.At(i, j), mesh.Lat.At(i, j))
			pts = append(pts, v.X, v.Y, v.Z)
		}
	}
	rotated := r.ApplyRows(mat.NewDense(n, 3, pts))

	lon := mat.NewDense(rows, cols, nil)
	lat := mat.NewDense(rows, cols, nil)
	for k := 0; k < n; k++ {
		x, y, z := rotated.At(k, 0), rotated.At(k, 1), rotated.At(k, 2)
		lo, la := sphere.FromCartesian(vec(x, y, z))
		lon.Set(k/cols, k%cols, lo)
		lat.Set(k/cols, k%cols, la)
	}
	return &Mesh{Lon: lon, Lat: lat}
}

func linspace(a, b float64, n int) []float64 {
	if n == 1 {
		return []float64{a}
	}
	return floats.Span(make([]float64, n), a, b)
}
