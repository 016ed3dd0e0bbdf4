package sphere

import (
	"math"

	"github.com/golang/geo/r3"
)

// ReferenceAxis is the Cartesian image of (lon 0°, lat 0°); the centering
// rotation moves the anchor onto it.
var ReferenceAxis = r3.Vector{X: 1, Y: 0, Z: 0}

// parallelTolerance bounds |v × x̂| below which v is treated as (anti)parallel
// to the reference axis.
const parallelTolerance = 1e-12

// BuildCenteringRotation returns the shortest-arc rotation R with
// R·cartesian(anchor) = (1,0,0). Degenerate anchors are nudged first, so
// anchor (0°,0°) yields a rotation within 1e-9 of the identity.
func BuildCenteringRotation(anchor GeoPoint) (Rotation, error) {
	if err := anchor.Validate(); err != nil {
		return Rotation{}, err
	}
	v := anchor.Nudged().Vector()
	return shortestArc(v, ReferenceAxis), nil
}

// shortestArc returns the minimal rotation taking unit vector from onto to.
func shortestArc(from, to r3.Vector) Rotation {
	axis := from.Cross(to)
	dot := math.Max(-1, math.Min(1, from.Dot(to)))
	if axis.Norm() < parallelTolerance {
		if dot > 0 {
			return Identity()
		}
		// Antipodal: any axis orthogonal to `to` works.
		return AxisAngle(to.Ortho(), math.Pi)
	}
	return AxisAngle(axis, math.Acos(dot))
}

// BuildMeridianRotation returns the rotation about the reference axis that
// brings the centered image of anchor2 into the x–z half-plane with z ≥ 0.
// With v = centering·cartesian(anchor2) and β = atan2(v.y, v.z) the result is
// a right-handed rotation about x by β.
func BuildMeridianRotation(anchor2 GeoPoint, centering Rotation) (Rotation, error) {
	if err := anchor2.Validate(); err != nil {
		return Rotation{}, err
	}
	v := centering.Apply(anchor2.Nudged().Vector())
	beta := math.Atan2(v.Y, v.Z)
	return RotationX(beta), nil
}

// RotationPair is the pair of rotations derived from the two anchors.
// Full equals Meridian·Center, or Center alone when the anchors coincide.
type RotationPair struct {
	Center   Rotation
	Meridian Rotation
	Full     Rotation

	// Coincident is true when the meridian step was skipped.
	Coincident bool
}

// BuildRotationPair derives both rotations from the central and meridian
// anchors. When the anchors coincide the meridian rotation would spin the map
// by an anchor-independent angle, so it is replaced by the identity.
func BuildRotationPair(central, meridian GeoPoint) (RotationPair, error) {
	center, err := BuildCenteringRotation(central)
	if err != nil {
		return RotationPair{}, err
	}
	if err := meridian.Validate(); err != nil {
		return RotationPair{}, err
	}
	if central.ApproxEqual(meridian) {
		return RotationPair{Center: center, Meridian: Identity(), Full: center, Coincident: true}, nil
	}
	mer, err := BuildMeridianRotation(meridian, center)
	if err != nil {
		return RotationPair{}, err
	}
	return RotationPair{Center: center, Meridian: mer, Full: mer.Mul(center)}, nil
}

// RotatePoint applies r to a single longitude/latitude pair in radians.
func RotatePoint(r Rotation, lon, lat float64) (float64, float64) {
	return FromCartesian(r.Apply(ToCartesian(lon, lat)))
}
