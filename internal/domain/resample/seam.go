package resample

import "math"

// SeamThreshold is the longitude jump, in radians, taken as a ±π crossing.
const SeamThreshold = math.Pi

// SplitAtSeam returns copies of lon and lat with a NaN marker inserted
// between consecutive samples whose longitudes differ by more than
// threshold. Renderers start a new polyline segment after each marker.
// A threshold ≤ 0 selects SeamThreshold.
func SplitAtSeam(lon, lat []float64, threshold float64) ([]float64, []float64) {
	if threshold <= 0 {
		threshold = SeamThreshold
	}
	n := len(lon)
	if len(lat) < n {
		n = len(lat)
	}
	outLon := make([]float64, 0, n+4)
	outLat := make([]float64, 0, n+4)
	for i := 0; i < n; i++ {
		if i > 0 && math.Abs(lon[i]-lon[i-1]) > threshold {
			outLon = append(outLon, math.NaN())
			outLat = append(outLat, math.NaN())
		}
		outLon = append(outLon, lon[i])
		outLat = append(outLat, lat[i])
	}
	return outLon, outLat
}

// Segments splits a marker-separated curve into its drawable pieces, dropping
// empty ones.
func Segments(lon, lat []float64) [][2][]float64 {
	var out [][2][]float64
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			out = append(out, [2][]float64{lon[start:end], lat[start:end]})
		}
		start = -1
	}
	for i := range lon {
		if math.IsNaN(lon[i]) || math.IsNaN(lat[i]) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
		}
	}
	flush(len(lon))
	return out
}
