package harmonics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// HeatmapGrid is the contracted field on the canonical grid. Row r is
// latitude π/2 − rπ/(dpi−1) (row 0 is the north pole) and column index
// increases with decreasing longitude, the zero-longitude column sitting at
// dpi/2.
type HeatmapGrid struct {
	DPI    int
	Values *mat.Dense
}

// At returns the value at row r, column c.
func (h *HeatmapGrid) At(r, c int) float64 {
	return h.Values.At(r, c)
}

// ClampMin raises every value below floor to floor. NaN cells are kept.
func (h *HeatmapGrid) ClampMin(floor float64) {
	raw := h.Values.RawMatrix().Data
	for i, v := range raw {
		if v < floor {
			raw[i] = floor
		}
	}
}

// ClampRange clips values to [lo, hi]. NaN cells are kept.
func (h *HeatmapGrid) ClampRange(lo, hi float64) {
	raw := h.Values.RawMatrix().Data
	for i, v := range raw {
		switch {
		case v < lo:
			raw[i] = lo
		case v > hi:
			raw[i] = hi
		}
	}
}

// Range returns the minimum and maximum finite values. Both are NaN when the
// grid holds no finite value.
func (h *HeatmapGrid) Range() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range h.Values.RawMatrix().Data {
		if math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// Contract forms Σ coefficients[k] · basis[k] and realigns it from the
// basis [longitude][colatitude] layout to the renderer's [latitude][longitude]
// layout: transpose, left-right flip, then a cyclic column shift by dpi/2.
// len(coefficients) must not exceed len(basis).
func Contract(coefficients []float64, basis []*mat.Dense, dpi int) (*HeatmapGrid, error) {
	if dpi <= 0 {
		return nil, errors.NonPositiveDimension("dpi", dpi)
	}
	if len(coefficients) > len(basis) {
		return nil, errors.New(errors.CodeMaxLMismatch, "more coefficients than basis elements").
			WithDetailf("coefficients=%d basis=%d", len(coefficients), len(basis))
	}

	sum := make([]float64, dpi*dpi)
	for k, c := range coefficients {
		r, cols := basis[k].Dims()
		if r != dpi || cols != dpi {
			return nil, errors.New(errors.CodeNonPositiveDimension, "basis element has wrong shape").
				WithDetailf("index=%d shape=%dx%d dpi=%d", k, r, cols, dpi)
		}
		if c == 0 {
			continue
		}
		floats.AddScaled(sum, c, denseData(basis[k]))
	}

	shift := dpi / 2
	out := make([]float64, dpi*dpi)
	for row := 0; row < dpi; row++ {
		for col := 0; col < dpi; col++ {
			lonIdx := dpi - 1 - mod(col-shift, dpi)
			out[row*dpi+col] = sum[lonIdx*dpi+row]
		}
	}
	return &HeatmapGrid{DPI: dpi, Values: mat.NewDense(dpi, dpi, out)}, nil
}

// denseData returns the contiguous row-major data of m, copying only when m
// is a strided view.
func denseData(m *mat.Dense) []float64 {
	raw := m.RawMatrix()
	if raw.Stride == raw.Cols {
		return raw.Data[:raw.Rows*raw.Cols]
	}
	out := make([]float64, 0, raw.Rows*raw.Cols)
	for i := 0; i < raw.Rows; i++ {
		out = append(out, raw.Data[i*raw.Stride:i*raw.Stride+raw.Cols]...)
	}
	return out
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
