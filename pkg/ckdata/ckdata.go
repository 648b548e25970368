// Package ckdata computes the large-signal harmonic convolution coefficients of
// a photon-assisted tunneling element.
//
// For a junction pumped by the harmonic voltages V[1..N] of a local oscillator,
// the phase factor exp(-i φ(t)) expands as a Fourier series Σ_k C_k e^{-ikωt}.
// The coefficients C_k drive both the large-signal current and the small-signal
// admittance of the junction.
package ckdata

import (
	"math/cmplx"

	"github.com/charmbracelet/log"

	"github.com/PaulKGrimes/supermix-sub001/internal/consts"
	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
)

// CkData holds the convolution coefficients for one operating point.
type CkData struct {
	// Ck is indexed over [-k, k]. Reads outside the range are zero (see At).
	Ck *numeric.Array[complex128]
	// Tol is the truncation tolerance Ck was computed with.
	Tol float64

	tol    float64
	logger *log.Logger

	// scratch, reused across Calc calls
	buf [2]*numeric.Array[complex128]
	amj []complex128
	bes []float64
}

// Option configures a CkData.
type Option func(*CkData)

// WithTolerance overrides the truncation tolerance (default consts.ZEROTOL).
func WithTolerance(tol float64) Option {
	return func(c *CkData) {
		if tol > 0 {
			c.tol = tol
		}
	}
}

// WithLogger sets the logger used for warnings.
func WithLogger(l *log.Logger) Option {
	return func(c *CkData) {
		c.logger = l
	}
}

// New returns a CkData holding the trivial result Ck[0] = 1.
func New(opts ...Option) *CkData {
	c := &CkData{
		Ck:  numeric.NewSymmetric[complex128](0),
		tol: consts.ZEROTOL,
		buf: [2]*numeric.Array[complex128]{
			numeric.NewSymmetric[complex128](0),
			numeric.NewSymmetric[complex128](0),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Ck.Set(0, 1)
	c.Tol = c.tol
	return c
}

func (c *CkData) log() *log.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log.Default()
}

// At returns C_k, or zero when k lies outside the computed range.
func (c *CkData) At(k int) complex128 {
	return c.Ck.Get(k)
}

// Kmax returns the highest index held in Ck.
func (c *CkData) Kmax() int {
	return c.Ck.Hi()
}

// Clone returns a copy holding only Ck and Tol; scratch buffers are not shared.
func (c *CkData) Clone() *CkData {
	out := New(WithTolerance(c.tol), WithLogger(c.logger))
	out.Ck = c.Ck.Clone()
	out.Tol = c.Tol
	return out
}

// Calc computes Ck for the RMS harmonic voltages v (v[0] is DC and is ignored,
// v[j] is the amplitude at j*freq).
//
// When freq <= 0, v is empty, or every harmonic is zero, the result is the
// trivial Ck[0] = 1: the convolution is the identity.
//
// When only odd harmonics are pumped, Ck[-k] = (-1)^k conj(Ck[k]). An even
// harmonic j contributes (-1)^(k/j) instead, so the relation does not hold
// for a general pump.
func (c *CkData) Calc(freq float64, v []complex128) {
	cur, next := c.buf[0], c.buf[1]
	cur.Reshape(0, 0)
	cur.Set(0, 1)
	cmax := 0

	if freq <= 0 {
		if hasHarmonics(v) {
			c.log().Debug("ckdata: non-positive LO frequency, harmonics ignored", "freq", freq)
		}
		v = nil
	}

	for j := 1; j < len(v); j++ {
		if v[j] == 0 {
			// identity in this harmonic; growing the width would only add zeros
			continue
		}

		alpha := v[j] * complex(consts.RMSToPeak*consts.VoltToFreq/(float64(j)*freq), 0)
		x, phi := cmplx.Abs(alpha), cmplx.Phase(alpha)

		m := MaxOrder(x, c.tol)
		if m >= MaxBesselOrder {
			c.log().Warn("ckdata: Bessel order clamped", "harmonic", j, "alpha", x, "order", m)
		}
		c.amjFill(x, phi, m)

		width := cmax + j*m
		next.Reshape(-width, width)
		for k := -width; k <= width; k++ {
			sum := cur.Get(k) * c.amj[0]
			sign := complex(-1, 0)
			for n := 1; n <= m; n++ {
				a := c.amj[n]
				sum += cur.Get(k-j*n)*a + cur.Get(k+j*n)*sign*cmplx.Conj(a)
				sign = -sign
			}
			next.Set(k, sum)
		}

		cur, next = next, cur
		cmax = width
	}
	c.buf[0], c.buf[1] = cur, next

	// Symmetric truncation of negligible outer coefficients.
	kt := cmax
	for kt > 0 && cmplx.Abs(cur.At(kt)) < c.tol && cmplx.Abs(cur.At(-kt)) < c.tol {
		kt--
	}
	c.Ck.Reshape(-kt, kt)
	for k := -kt; k <= kt; k++ {
		c.Ck.Set(k, cur.At(k))
	}
	c.Tol = c.tol
}

// amjFill stores A_m = J_m(x) exp(-i m phi) for m = 0..order.
func (c *CkData) amjFill(x, phi float64, order int) {
	if cap(c.bes) < order+1 {
		c.bes = make([]float64, order+1, 2*(order+1))
		c.amj = make([]complex128, order+1, 2*(order+1))
	}
	c.bes = c.bes[:order+1]
	c.amj = c.amj[:order+1]

	BesselInto(c.bes, x)
	for m, jm := range c.bes {
		c.amj[m] = cmplx.Rect(jm, -float64(m)*phi)
	}
}

func hasHarmonics(v []complex128) bool {
	for j := 1; j < len(v); j++ {
		if v[j] != 0 {
			return true
		}
	}
	return false
}
