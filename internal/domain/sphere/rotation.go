package sphere

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Rotation is a 3×3 rotation matrix stored row-major. The zero value is not a
// rotation; use Identity or one of the builders.
type Rotation struct {
	m [9]float64
}

// Identity returns the identity rotation.
func Identity() Rotation {
	return Rotation{m: [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// RotationFromRows builds a Rotation from row-major entries without checking
// orthonormality.
func RotationFromRows(rows [3][3]float64) Rotation {
	var r Rotation
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.m[3*i+j] = rows[i][j]
		}
	}
	return r
}

// AxisAngle returns the right-handed rotation by angle radians about axis
// (Rodrigues' formula). axis is normalized internally.
func AxisAngle(axis r3.Vector, angle float64) Rotation {
	k := axis.Normalize()
	c, s := math.Cos(angle), math.Sin(angle)
	t := 1 - c
	return Rotation{m: [9]float64{
		c + k.X*k.X*t, k.X*k.Y*t - k.Z*s, k.X*k.Z*t + k.Y*s,
		k.Y*k.X*t + k.Z*s, c + k.Y*k.Y*t, k.Y*k.Z*t - k.X*s,
		k.Z*k.X*t - k.Y*s, k.Z*k.Y*t + k.X*s, c + k.Z*k.Z*t,
	}}
}

// RotationX returns the right-handed rotation by angle radians about the x axis.
func RotationX(angle float64) Rotation {
	c, s := math.Cos(angle), math.Sin(angle)
	return Rotation{m: [9]float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}}
}

// At returns the entry at row i, column j.
func (r Rotation) At(i, j int) float64 {
	return r.m[3*i+j]
}

// Rows returns the matrix as nested arrays, row-major.
func (r Rotation) Rows() [3][3]float64 {
	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r.m[3*i+j]
		}
	}
	return out
}

// Apply returns R·v.
func (r Rotation) Apply(v r3.Vector) r3.Vector {
	return r3.Vector{
		X: r.m[0]*v.X + r.m[1]*v.Y + r.m[2]*v.Z,
		Y: r.m[3]*v.X + r.m[4]*v.Y + r.m[5]*v.Z,
		Z: r.m[6]*v.X + r.m[7]*v.Y + r.m[8]*v.Z,
	}
}

// Dense returns a copy of the matrix as a gonum Dense.
func (r Rotation) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, r.m[:])
	return mat.NewDense(3, 3, data)
}

// Mul returns the product r·o, i.e. o applied first.
func (r Rotation) Mul(o Rotation) Rotation {
	var prod mat.Dense
	prod.Mul(r.Dense(), o.Dense())
	var out Rotation
	copy(out.m[:], prod.RawMatrix().Data)
	return out
}

// Transpose returns rᵀ, which is also the inverse of a proper rotation.
func (r Rotation) Transpose() Rotation {
	return Rotation{m: [9]float64{
		r.m[0], r.m[3], r.m[6],
		r.m[1], r.m[4], r.m[7],
		r.m[2], r.m[5], r.m[8],
	}}
}

// ApplyRows rotates every row of points, an n×3 matrix of Cartesian vectors,
// in one multiplication: points · Rᵀ.
func (r Rotation) ApplyRows(points *mat.Dense) *mat.Dense {
	n, _ := points.Dims()
	out := mat.NewDense(n, 3, nil)
	out.Mul(points, r.Dense().T())
	return out
}

// Det returns the determinant.
func (r Rotation) Det() float64 {
	return mat.Det(r.Dense())
}

// IsProper reports whether r is orthonormal with determinant +1 within tol.
func (r Rotation) IsProper(tol float64) bool {
	var rrt mat.Dense
	d := r.Dense()
	rrt.Mul(d, d.T())
	eye := mat.NewDiagDense(3, []float64{1, 1, 1})
	if !mat.EqualApprox(&rrt, eye, tol) {
		return false
	}
	return math.Abs(mat.Det(d)-1) <= tol
}

// ApproxEqual reports whether every entry differs by at most tol.
func (r Rotation) ApproxEqual(o Rotation, tol float64) bool {
	for i := range r.m {
		if math.Abs(r.m[i]-o.m[i]) > tol {
			return false
		}
	}
	return true
}
