package ckdata

import "math"

const (
	// Rescaling pair used during the downward recursion to avoid overflow.
	bigNo = 1.0e10
	bigNi = 1.0e-10

	// besselAcc controls how far above the highest requested order the
	// downward recursion starts.
	besselAcc = 160.0

	// Below smallArg the series replaces the recurrence.
	smallArg = 1e-8

	// MaxBesselOrder caps the order returned by MaxOrder.
	MaxBesselOrder = 2000
)

// Bessel returns J_0(x) .. J_n(x).
func Bessel(x float64, n int) []float64 {
	if n < 0 {
		return nil
	}
	j := make([]float64, n+1)
	BesselInto(j, x)
	return j
}

// BesselInto fills dst[k] with J_k(x) for k = 0 .. len(dst)-1.
//
// The values come from Miller's downward recurrence J_{k-1} = (2k/x) J_k - J_{k+1},
// started at an even order comfortably above both len(dst)-1 and x, and normalized
// with 1 = J_0 + 2(J_2 + J_4 + ...).
func BesselInto(dst []float64, x float64) {
	clear(dst)
	if len(dst) == 0 {
		return
	}
	if x == 0 {
		dst[0] = 1
		return
	}

	n := len(dst) - 1
	ax := math.Abs(x)
	if ax < smallArg {
		besselSeries(dst, x)
		return
	}
	top := max(n, int(ax)) + 1
	start := 2 * ((top + int(math.Sqrt(besselAcc*float64(top)))) / 2)

	var (
		bjp  = 0.0 // J_{k+1}
		bj   = 1.0 // J_k
		even = 0.0 // J_2 + J_4 + ...
	)
	for k := start; k > 0; k-- {
		bjm := float64(2*k)/ax*bj - bjp
		bjp, bj = bj, bjm
		for math.Abs(bj) > bigNo {
			bj *= bigNi
			bjp *= bigNi
			even *= bigNi
			for i := k; i <= n; i++ {
				dst[i] *= bigNi
			}
		}
		// bj now holds the unnormalized J_{k-1}.
		if k-1 <= n {
			dst[k-1] = bj
		}
		if k-1 > 0 && (k-1)%2 == 0 {
			even += bj
		}
	}

	norm := bj + 2*even
	for i := range dst {
		dst[i] /= norm
	}
	if x < 0 {
		for i := 1; i < len(dst); i += 2 {
			dst[i] = -dst[i]
		}
	}
}

// besselSeries fills dst from the leading two terms of the power series,
// J_k(x) = (x/2)^k/k! (1 - (x/2)^2/(k+1)). The recurrence would overflow for
// such arguments.
func besselSeries(dst []float64, x float64) {
	h := x / 2
	term := 1.0
	for k := range dst {
		if k > 0 {
			term *= h / float64(k)
		}
		dst[k] = term * (1 - h*h/float64(k+1))
	}
}

// BesselDerivatives returns J'_k for the orders held in j, using
// J'_k = (J_{k-1} - J_{k+1})/2 and J'_0 = -J_1. The highest order treats the
// missing J_{n+1} as zero.
func BesselDerivatives(j []float64) []float64 {
	d := make([]float64, len(j))
	at := func(k int) float64 {
		if k < len(j) {
			return j[k]
		}
		return 0
	}
	for k := range j {
		if k == 0 {
			d[0] = -at(1)
			continue
		}
		d[k] = (j[k-1] - at(k+1)) / 2
	}
	return d
}

// MaxOrder returns the smallest order M such that |J_n(x)| < tol for all n > M.
//
// It uses the bound |J_n(x)| <= (|x|/2)^n / n!, which is decreasing in n once
// n > |x|/2, so the order grows with the tolerance instead of being tied to one
// fitted constant.
func MaxOrder(x, tol float64) int {
	ax := math.Abs(x)
	if ax == 0 || tol <= 0 {
		return 0
	}
	logTol := math.Log(tol)
	logHalf := math.Log(ax / 2)
	for n := 0; n < MaxBesselOrder; n++ {
		lg, _ := math.Lgamma(float64(n + 2))
		if float64(n+1)*logHalf-lg < logTol {
			return n
		}
	}
	return MaxBesselOrder
}
