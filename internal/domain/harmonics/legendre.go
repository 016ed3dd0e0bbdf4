package harmonics

import "math"

// legendreLen is the number of (l, m≥0) pairs up to maxL.
func legendreLen(maxL int) int {
	return (maxL + 1) * (maxL + 2) / 2
}

// legendreIndex addresses P̄_l^m inside a table built by normalizedLegendre.
func legendreIndex(l, m int) int {
	return l*(l+1)/2 + m
}

// normalizedLegendre fills out with the orthonormalized associated Legendre
// values P̄_l^m(cos θ) = sqrt((2l+1)/(4π) · (l-m)!/(l+m)!) · P_l^m(cos θ) for
// 0 ≤ m ≤ l ≤ maxL, Condon–Shortley phase included. With this normalization
// Y_l^m(θ, φ) = P̄_l^m(cos θ) · e^{imφ}.
//
// The recurrences are the standard stable ones: diagonal seeds
// P̄_m^m = -sqrt((2m+1)/(2m)) · sin θ · P̄_{m-1}^{m-1}, first off-diagonal
// P̄_{m+1}^m = sqrt(2m+3) · cos θ · P̄_m^m, then upward in l.
func normalizedLegendre(maxL int, theta float64, out []float64) {
	x, s := math.Cos(theta), math.Sin(theta)

	out[0] = 1 / math.Sqrt(4*math.Pi)
	for m := 1; m <= maxL; m++ {
		fm := float64(m)
		out[legendreIndex(m, m)] = -math.Sqrt((2*fm+1)/(2*fm)) * s * out[legendreIndex(m-1, m-1)]
	}
	for m := 0; m < maxL; m++ {
		out[legendreIndex(m+1, m)] = math.Sqrt(2*float64(m)+3) * x * out[legendreIndex(m, m)]
	}
	for m := 0; m <= maxL; m++ {
		fm := float64(m)
		for l := m + 2; l <= maxL; l++ {
			fl := float64(l)
			a := math.Sqrt((4*fl*fl - 1) / (fl*fl - fm*fm))
			b := math.Sqrt(((fl-1)*(fl-1) - fm*fm) / (4*(fl-1)*(fl-1) - 1))
			out[legendreIndex(l, m)] = a * (x*out[legendreIndex(l-1, m)] - b*out[legendreIndex(l-2, m)])
		}
	}
}

// SphericalHarmonic evaluates the complex harmonic Y_l^m at colatitude theta
// and longitude phi, Condon–Shortley phase included. Negative orders use
// Y_l^{-m} = (-1)^m · conj(Y_l^m).
func SphericalHarmonic(l, m int, theta, phi float64) complex128 {
	am := m
	if am < 0 {
		am = -am
	}
	if l < 0 || am > l {
		return 0
	}
	table := make([]float64, legendreLen(l))
	normalizedLegendre(l, theta, table)
	p := table[legendreIndex(l, am)]
	y := complex(p*math.Cos(float64(am)*phi), p*math.Sin(float64(am)*phi))
	if m < 0 {
		return complex(parity(am), 0) * conj(y)
	}
	return y
}

// RealCombination converts the complex pair (Y_{l,m}, Y_{l,-m}) into the real
// orthonormal harmonic of order m:
//
//	m < 0: (i/√2) · (Y_{l,m} − (−1)^|m| · Y_{l,−m})
//	m = 0: Y_{l,0}
//	m > 0: (1/√2) · (Y_{l,−m} + (−1)^|m| · Y_{l,m})
//
// The imaginary part of the result is zero up to rounding.
func RealCombination(m int, yM, yNegM complex128) complex128 {
	switch {
	case m < 0:
		return complex(0, 1/math.Sqrt2) * (yM - complex(parity(-m), 0)*yNegM)
	case m == 0:
		return yM
	default:
		return complex(1/math.Sqrt2, 0) * (yNegM + complex(parity(m), 0)*yM)
	}
}

// parity returns (-1)^k.
func parity(k int) float64 {
	if k%2 == 0 {
		return 1
	}
	return -1
}

func conj(z complex128) complex128 {
	return complex(real(z), -imag(z))
}
