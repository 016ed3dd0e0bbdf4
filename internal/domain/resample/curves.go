package resample

import (
	"fmt"
	"math"

	"github.com/BlackCockder/IBEX-Mapper/internal/domain/sphere"
)

// Default graticule layout.
const (
	DefaultGraticuleStep = 30.0
	GraticuleSamples     = 361
)

// Polyline is a curve in radians, possibly carrying NaN seam markers.
type Polyline struct {
	Lon []float64 `json:"lon"`
	Lat []float64 `json:"lat"`
}

// RotateCurve applies r to every sample of a curve.
func RotateCurve(lon, lat []float64, r sphere.Rotation) ([]float64, []float64) {
	outLon := make([]float64, len(lon))
	outLat := make([]float64, len(lat))
	for i := range lon {
		outLon[i], outLat[i] = sphere.RotatePoint(r, lon[i], lat[i])
	}
	return outLon, outLat
}

// RotateAndSplit rotates a curve and then breaks it at the seam.
func RotateAndSplit(lon, lat []float64, r sphere.Rotation) Polyline {
	rl, ra := RotateCurve(lon, lat, r)
	sl, sa := SplitAtSeam(rl, ra, SeamThreshold)
	return Polyline{Lon: sl, Lat: sa}
}

// GraticuleKind distinguishes parallels from meridians.
type GraticuleKind string

const (
	Parallel GraticuleKind = "parallel"
	Meridian GraticuleKind = "meridian"
)

// GraticuleLine is one rotated, seam-split grid line.
type GraticuleLine struct {
	Kind GraticuleKind `json:"kind"`
	// Degrees is the constant latitude of a parallel or longitude of a meridian.
	Degrees float64 `json:"degrees"`
	Polyline
}

// Graticule returns parallels every stepDeg from -90 to 90 and meridians every
// stepDeg from -180 to 180, each sampled samples times, rotated by r and
// split at the seam. Pass sphere.Identity for an unrotated map.
func Graticule(stepDeg float64, samples int, r sphere.Rotation) []GraticuleLine {
	if stepDeg <= 0 {
		stepDeg = DefaultGraticuleStep
	}
	if samples < 2 {
		samples = GraticuleSamples
	}
	var lines []GraticuleLine

	for deg := -90.0; deg <= 90+1e-9; deg += stepDeg {
		lon := linspace(-math.Pi, math.Pi, samples)
		lat := constant(deg*math.Pi/180, samples)
		lines = append(lines, GraticuleLine{Kind: Parallel, Degrees: deg, Polyline: RotateAndSplit(lon, lat, r)})
	}
	for deg := -180.0; deg <= 180+1e-9; deg += stepDeg {
		lat := linspace(-math.Pi/2, math.Pi/2, samples)
		lon := constant(deg*math.Pi/180, samples)
		lines = append(lines, GraticuleLine{Kind: Meridian, Degrees: deg, Polyline: RotateAndSplit(lon, lat, r)})
	}
	return lines
}

// Label is a coordinate annotation placed on the map, in radians.
type Label struct {
	Text string  `json:"text"`
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
}

// CoordinateLabels returns longitude labels along the equator (-180 up to but
// excluding 180) and latitude labels along the zero meridian (-90..90,
// skipping 0), every stepDeg and rotated by r.
func CoordinateLabels(stepDeg float64, r sphere.Rotation) []Label {
	if stepDeg <= 0 {
		stepDeg = DefaultGraticuleStep
	}
	var labels []Label
	for deg := -180.0; deg < 180-1e-9; deg += stepDeg {
		text := fmt.Sprintf("%d°", int(deg))
		if deg == 0 {
			text = "0"
		}
		lon, lat := sphere.RotatePoint(r, deg*math.Pi/180, 0)
		labels = append(labels, Label{Text: text, Lon: lon, Lat: lat})
	}
	for deg := -90.0; deg <= 90+1e-9; deg += stepDeg {
		if deg == 0 {
			continue
		}
		lon, lat := sphere.RotatePoint(r, 0, deg*math.Pi/180)
		labels = append(labels, Label{Text: fmt.Sprintf("%d°", int(deg)), Lon: lon, Lat: lat})
	}
	return labels
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
