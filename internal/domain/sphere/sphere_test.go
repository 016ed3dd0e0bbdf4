package sphere_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

const tol = 1e-9

func randomPoint(rng *rand.Rand) sphere.GeoPoint {
	return sphere.GeoPoint{
		Lon: rng.Float64()*359.8 - 179.9,
		Lat: rng.Float64()*179.8 - 89.9,
	}
}

func assertVectorNear(t *testing.T, want, got r3.Vector, eps float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Z, got.Z, eps, "z")
}

// ─────────────────────────────────────────────────────────────────────────────
// GeoPoint
// ─────────────────────────────────────────────────────────────────────────────

func TestGeoPoint_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		point sphere.GeoPoint
		ok    bool
	}{
		{"origin", sphere.GeoPoint{}, true},
		{"corners", sphere.GeoPoint{Lon: -180, Lat: 90}, true},
		{"lon too large", sphere.GeoPoint{Lon: 180.5, Lat: 0}, false},
		{"lat too small", sphere.GeoPoint{Lon: 0, Lat: -90.01}, false},
		{"nan", sphere.GeoPoint{Lon: math.NaN(), Lat: 0}, false},
		{"inf", sphere.GeoPoint{Lon: 0, Lat: math.Inf(1)}, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.point.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeMalformedGeoPoint))
		})
	}
}

func TestGeoPoint_Nudged(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sphere.GeoPoint{Lon: sphere.Epsilon, Lat: 90 - sphere.Epsilon}, sphere.GeoPoint{Lon: 0, Lat: 90}.Nudged())
	assert.Equal(t, sphere.GeoPoint{Lon: 180 - sphere.Epsilon, Lat: -90 + sphere.Epsilon}, sphere.GeoPoint{Lon: 180, Lat: -90}.Nudged())
	assert.Equal(t, sphere.GeoPoint{Lon: -180 + sphere.Epsilon, Lat: 12.5}, sphere.GeoPoint{Lon: -180, Lat: 12.5}.Nudged())
	assert.Equal(t, sphere.GeoPoint{Lon: 33, Lat: -45}, sphere.GeoPoint{Lon: 33, Lat: -45}.Nudged())
}

func TestGeoPoint_ApproxEqual(t *testing.T) {
	t.Parallel()

	a := sphere.GeoPoint{Lon: 255.7 - 360, Lat: 5.1}
	assert.True(t, a.ApproxEqual(sphere.GeoPoint{Lon: a.Lon + 1e-9, Lat: a.Lat}))
	assert.False(t, a.ApproxEqual(sphere.GeoPoint{Lon: a.Lon + 0.01, Lat: a.Lat}))
}

// ─────────────────────────────────────────────────────────────────────────────
// Conversion
// ─────────────────────────────────────────────────────────────────────────────

func TestToCartesian_Convention(t *testing.T) {
	t.Parallel()

	assertVectorNear(t, r3.Vector{X: 1}, sphere.ToCartesian(0, 0), tol)
	assertVectorNear(t, r3.Vector{Y: 1}, sphere.ToCartesian(math.Pi/2, 0), tol)
	assertVectorNear(t, r3.Vector{Z: 1}, sphere.ToCartesian(0, math.Pi/2), tol)
	assertVectorNear(t, r3.Vector{X: 1}, sphere.GeoPoint{}.Vector(), tol)
}

func TestFromCartesian_RoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		p := randomPoint(rng)
		lon, lat := p.Radians()
		gotLon, gotLat := sphere.FromCartesian(sphere.ToCartesian(lon, lat))
		assert.InDelta(t, lon, gotLon, tol)
		assert.InDelta(t, lat, gotLat, tol)

		back := sphere.GeoPointFromVector(p.Vector())
		assert.InDelta(t, p.Lon, back.Lon, 1e-7)
		assert.InDelta(t, p.Lat, back.Lat, 1e-7)
	}
}

func TestWrapLongitude(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, math.Pi, sphere.WrapLongitude(math.Pi), tol)
	assert.InDelta(t, math.Pi, sphere.WrapLongitude(-math.Pi), tol)
	assert.InDelta(t, -math.Pi/2, sphere.WrapLongitude(3*math.Pi/2), tol)
	assert.InDelta(t, 0.25, sphere.WrapLongitude(0.25+4*math.Pi), tol)
	assert.True(t, math.IsNaN(sphere.WrapLongitude(math.NaN())))
}

// ─────────────────────────────────────────────────────────────────────────────
// Rotations
// ─────────────────────────────────────────────────────────────────────────────

func TestBuildCenteringRotation_OriginIsIdentity(t *testing.T) {
	t.Parallel()

	r, err := sphere.BuildCenteringRotation(sphere.GeoPoint{Lon: 0, Lat: 0})
	require.NoError(t, err)
	assert.True(t, r.ApproxEqual(sphere.Identity(), 1e-9))
}

func TestBuildCenteringRotation_MovesAnchorToReferenceAxis(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		anchor := randomPoint(rng)
		r, err := sphere.BuildCenteringRotation(anchor)
		require.NoError(t, err)
		assertVectorNear(t, sphere.ReferenceAxis, r.Apply(anchor.Vector()), 1e-9)
		assert.True(t, r.IsProper(1e-9), "anchor %s", anchor)
	}
}

func TestBuildCenteringRotation_DegenerateAnchors(t *testing.T) {
	t.Parallel()

	for _, anchor := range []sphere.GeoPoint{
		{Lon: 180, Lat: 0},
		{Lon: -180, Lat: 0},
		{Lon: 0, Lat: 90},
		{Lon: 0, Lat: -90},
		{Lon: 90, Lat: 0},
		{Lon: -90, Lat: 90},
	} {
		r, err := sphere.BuildCenteringRotation(anchor)
		require.NoError(t, err, anchor.String())
		assert.True(t, r.IsProper(1e-9), anchor.String())
		assertVectorNear(t, sphere.ReferenceAxis, r.Apply(anchor.Vector()), 1e-6)
	}
}

func TestBuildCenteringRotation_RejectsMalformed(t *testing.T) {
	t.Parallel()

	_, err := sphere.BuildCenteringRotation(sphere.GeoPoint{Lon: 200, Lat: 0})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedGeoPoint))
}

func TestBuildRotationPair_ProperAndAligned(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1234))
	for i := 0; i < 50; i++ {
		a, b := randomPoint(rng), randomPoint(rng)
		pair, err := sphere.BuildRotationPair(a, b)
		require.NoError(t, err)
		require.False(t, pair.Coincident)

		assert.True(t, pair.Center.IsProper(1e-9))
		assert.True(t, pair.Full.IsProper(1e-9))
		assert.InDelta(t, 1.0, pair.Full.Det(), 1e-9)

		// The meridian step spins about x, so A stays centered.
		assertVectorNear(t, sphere.ReferenceAxis, pair.Full.Apply(a.Vector()), 1e-9)

		// B lands in the x–z half-plane on the northern side.
		vb := pair.Full.Apply(b.Vector())
		assert.InDelta(t, 0, vb.Y, 1e-9)
		assert.GreaterOrEqual(t, vb.Z, -1e-12)
	}
}

func TestBuildRotationPair_CoincidentAnchorsSkipMeridian(t *testing.T) {
	t.Parallel()

	a := sphere.GeoPoint{Lon: -104.3, Lat: 5.1}
	pair, err := sphere.BuildRotationPair(a, a)
	require.NoError(t, err)

	assert.True(t, pair.Coincident)
	assert.Equal(t, pair.Center, pair.Full)
	assert.Equal(t, sphere.Identity(), pair.Meridian)
}

func TestBuildRotationPair_MalformedMeridian(t *testing.T) {
	t.Parallel()

	_, err := sphere.BuildRotationPair(sphere.GeoPoint{}, sphere.GeoPoint{Lon: 0, Lat: 95})
	assert.True(t, errors.IsCode(err, errors.CodeMalformedGeoPoint))
}

func TestRotation_MulAndTranspose(t *testing.T) {
	t.Parallel()

	r := sphere.AxisAngle(r3.Vector{X: 1, Y: 2, Z: 3}, 0.7)
	assert.True(t, r.IsProper(1e-12))
	assert.True(t, r.Mul(r.Transpose()).ApproxEqual(sphere.Identity(), 1e-12))

	rx := sphere.RotationX(math.Pi / 2)
	assertVectorNear(t, r3.Vector{Z: 1}, rx.Apply(r3.Vector{Y: 1}), tol)
}

func TestRotation_ApplyRowsMatchesApply(t *testing.T) {
	t.Parallel()

	r := sphere.AxisAngle(r3.Vector{X: -1, Y: 0.5, Z: 2}, 1.3)
	pts := []r3.Vector{{X: 1}, {Y: 1}, {X: 0.3, Y: -0.4, Z: 0.866}}
	data := make([]float64, 0, 3*len(pts))
	for _, p := range pts {
		data = append(data, p.X, p.Y, p.Z)
	}

	out := r.ApplyRows(mat.NewDense(len(pts), 3, data))
	for i, p := range pts {
		want := r.Apply(p)
		assertVectorNear(t, want, r3.Vector{X: out.At(i, 0), Y: out.At(i, 1), Z: out.At(i, 2)}, 1e-12)
	}
}

func TestRotatePoint(t *testing.T) {
	t.Parallel()

	quarterTurn := sphere.AxisAngle(r3.Vector{Z: 1}, math.Pi/2)
	lon, lat := sphere.RotatePoint(quarterTurn, 0, 0)
	assert.InDelta(t, math.Pi/2, lon, tol)
	assert.InDelta(t, 0, lat, tol)

	_, lat = sphere.RotatePoint(sphere.RotationX(math.Pi/2), math.Pi/2, 0)
	assert.InDelta(t, math.Pi/2, lat, tol)
}

// ─────────────────────────────────────────────────────────────────────────────
// Small circles
// ─────────────────────────────────────────────────────────────────────────────

func TestSmallCircle_ConstantAngularDistance(t *testing.T) {
	t.Parallel()

	for _, center := range []sphere.GeoPoint{{Lon: 30, Lat: 10}, {Lon: 0, Lat: 90}, {Lon: -120, Lat: -45}} {
		lon, lat := sphere.SmallCircle(center, 25, sphere.CircleSamples)
		require.Len(t, lon, sphere.CircleSamples)
		require.Len(t, lat, sphere.CircleSamples)

		c := center.Vector()
		for i := range lon {
			p := sphere.ToCartesian(lon[i], lat[i])
			angle := math.Acos(math.Max(-1, math.Min(1, p.Dot(c))))
			assert.InDelta(t, 25*math.Pi/180, angle, 1e-9)
			assert.True(t, lon[i] > -math.Pi-tol && lon[i] <= math.Pi+tol)
		}
	}
}

func TestParseGeoPoint(t *testing.T) {
	cases := []struct {
		in       string
		lon, lat float64
		wantErr  bool
	}{
		{"-70,0", -70, 0, false},
		{"(-90, 10)", -90, 10, false},
		{" 12.5 , -45 ", 12.5, -45, false},
		{"12", 0, 0, true},
		{"a,b", 0, 0, true},
		{"0,95", 0, 0, true},
		{"181,0", 0, 0, true},
	}
	for _, tc := range cases {
		p, err := sphere.ParseGeoPoint(tc.in)
		if tc.wantErr {
			assert.True(t, errors.IsCode(err, errors.CodeMalformedGeoPoint), tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, sphere.GeoPoint{Lon: tc.lon, Lat: tc.lat}, p, tc.in)
	}
}
