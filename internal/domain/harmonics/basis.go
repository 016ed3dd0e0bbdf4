package harmonics

import (
	"context"
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/BlackCockder/IBEX-Mapper/pkg/errors"
)

// BasisLen returns the number of real harmonics of degree 0..maxL.
func BasisLen(maxL int) int {
	return (maxL + 1) * (maxL + 1)
}

// Index returns the canonical position of (l, m): l=0,m=0; l=1,m=-1,0,1; ...
func Index(l, m int) int {
	return l*l + l + m
}

// BasisSet is the real spherical-harmonics basis sampled on a dpi×dpi mesh.
//
// Each element is indexed [longitude sample][colatitude sample], with
// longitude = linspace(0, 2π, dpi) and colatitude = linspace(0, π, dpi).
// Elements are in canonical (l, m) order. A BasisSet is read-only once built
// and is shared between requests.
type BasisSet struct {
	DPI      int
	MaxL     int
	Elements []*mat.Dense
}

// Len returns the number of basis elements.
func (b *BasisSet) Len() int {
	return len(b.Elements)
}

// Truncate returns the first n elements. n larger than Len is capped.
func (b *BasisSet) Truncate(n int) []*mat.Dense {
	if n > len(b.Elements) {
		n = len(b.Elements)
	}
	return b.Elements[:n]
}

// ProgressFunc receives the number of basis elements completed out of total.
type ProgressFunc func(completed, total int)

// Evaluator computes BasisSets. Degrees are evaluated concurrently; the
// context is checked before each degree.
type Evaluator struct {
	workers  int
	progress ProgressFunc
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWorkers bounds the number of degrees evaluated in parallel. Values
// below 1 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Evaluator) { e.workers = n }
}

// WithProgress installs a progress callback. It may be called from several
// goroutines, but never concurrently.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Evaluator) { e.progress = fn }
}

// NewEvaluator returns an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// ValidateDimensions rejects a non-positive dpi or a negative degree.
func ValidateDimensions(dpi, maxL int) error {
	if dpi <= 0 {
		return errors.NonPositiveDimension("dpi", dpi)
	}
	if maxL < 0 {
		return errors.New(errors.CodeNonPositiveDimension, "max_l must not be negative").WithDetailf("max_l=%d", maxL)
	}
	return nil
}

// EvaluateBasis samples every real harmonic of degree 0..maxL on the dpi×dpi
// mesh. Cost is O(maxL² · dpi²).
func (e *Evaluator) EvaluateBasis(ctx context.Context, dpi, maxL int) (*BasisSet, error) {
	if err := ValidateDimensions(dpi, maxL); err != nil {
		return nil, err
	}

	colat := linspace(0, math.Pi, dpi)
	lon := linspace(0, 2*math.Pi, dpi)

	// legendre[j] holds P̄_l^m(cos θ_j) for every (l, m≥0).
	legendre := make([][]float64, dpi)
	for j, theta := range colat {
		legendre[j] = make([]float64, legendreLen(maxL))
		normalizedLegendre(maxL, theta, legendre[j])
	}

	set := &BasisSet{DPI: dpi, MaxL: maxL, Elements: make([]*mat.Dense, BasisLen(maxL))}
	total := BasisLen(maxL)

	var (
		mu   sync.Mutex
		done int
	)
	report := func(n int) {
		if e.progress == nil {
			return
		}
		mu.Lock()
		done += n
		e.progress(done, total)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for l := 0; l <= maxL; l++ {
		l := l
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for m := -l; m <= l; m++ {
				set.Elements[Index(l, m)] = realHarmonic(l, m, lon, legendre)
			}
			report(2*l + 1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "basis evaluation cancelled")
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeCancelled, "basis evaluation cancelled")
	}
	return set, nil
}

// realHarmonic samples the real harmonic (l, m) into a [lon][colat] matrix.
func realHarmonic(l, m int, lon []float64, legendre [][]float64) *mat.Dense {
	n := len(lon)
	am := m
	if am < 0 {
		am = -am
	}
	sign := complex(parity(am), 0)
	data := make([]float64, n*n)
	for i, phi := range lon {
		rot := complex(math.Cos(float64(am)*phi), math.Sin(float64(am)*phi))
		row := data[i*n : (i+1)*n]
		for j := range row {
			pos := complex(legendre[j][legendreIndex(l, am)], 0) * rot
			neg := sign * conj(pos)
			var yM, yNegM complex128
			if m < 0 {
				yM, yNegM = neg, pos
			} else {
				yM, yNegM = pos, neg
			}
			row[j] = real(RealCombination(m, yM, yNegM))
		}
	}
	return mat.NewDense(n, n, data)
}

// linspace returns n evenly spaced samples over [a, b], both ends included.
func linspace(a, b float64, n int) []float64 {
	if n == 1 {
		return []float64{a}
	}
	return floats.Span(make([]float64, n), a, b)
}
