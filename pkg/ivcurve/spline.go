package ivcurve

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"
)

// asymptote models Ikk beyond the tabulated range as
// io*ln(v) + c0 + c2/v^2 + c4/v^4.
type asymptote struct {
	io, c0, c2, c4 float64
}

func (a asymptote) value(v float64) float64 {
	u := 1 / (v * v)
	return a.io*math.Log(v) + a.c0 + (a.c2+a.c4*u)*u
}

func (a asymptote) slope(v float64) float64 {
	u := 1 / (v * v)
	return a.io/v - (2*a.c2+4*a.c4*u)*u/v
}

// fitAsymptote takes io from the slope between the last two points and places
// the c0, c2, c4 quadratic (in 1/v^2) through the last three.
func fitAsymptote(v, i []float64) (asymptote, error) {
	n := len(v)
	if n < 3 || v[n-3] <= 0 {
		return asymptote{}, errors.New("need three points above zero")
	}
	var a asymptote
	a.io = 0.5 * (v[n-1] + v[n-2]) * (i[n-1] - i[n-2]) / (v[n-1] - v[n-2])

	var u, r [3]float64
	for k := range 3 {
		vk := v[n-3+k]
		u[k] = 1 / (vk * vk)
		r[k] = i[n-3+k] - a.io*math.Log(vk)
	}

	// Lagrange form of the quadratic through (u[k], r[k]), expanded to
	// coefficients of 1, u, u^2.
	for k := range 3 {
		p, q := u[(k+1)%3], u[(k+2)%3]
		w := r[k] / ((u[k] - p) * (u[k] - q))
		a.c0 += w * p * q
		a.c2 -= w * (p + q)
		a.c4 += w
	}
	if math.IsNaN(a.c0+a.c2+a.c4) || math.IsInf(a.c0+a.c2+a.c4, 0) {
		return asymptote{}, errors.New("degenerate tail points")
	}
	return a, nil
}

// fitClamped fits a C2 cubic spline through (xs, ys) with prescribed end slopes.
// The knot slopes solve the tridiagonal continuity system
//
//	h[i]*m[i-1] + 2(h[i-1]+h[i])*m[i] + h[i-1]*m[i+1] = 3(h[i]*d[i-1] + h[i-1]*d[i])
//
// where h are the interval widths and d the secant slopes.
func fitClamped(pc *interp.PiecewiseCubic, xs, ys []float64, left, right float64) error {
	n := len(xs)
	a := mat.NewTridiag(n, nil, nil, nil)
	b := mat.NewVecDense(n, nil)

	a.SetBand(0, 0, 1)
	b.SetVec(0, left)
	a.SetBand(n-1, n-1, 1)
	b.SetVec(n-1, right)
	for i := 1; i < n-1; i++ {
		h0, h1 := xs[i]-xs[i-1], xs[i+1]-xs[i]
		d0, d1 := (ys[i]-ys[i-1])/h0, (ys[i+1]-ys[i])/h1
		a.SetBand(i, i-1, h1)
		a.SetBand(i, i, 2*(h0+h1))
		a.SetBand(i, i+1, h0)
		b.SetVec(i, 3*(h1*d0+h0*d1))
	}

	m := mat.NewVecDense(n, nil)
	if err := a.SolveVecTo(m, false, b); err != nil {
		return err
	}
	pc.FitWithDerivatives(xs, ys, m.RawVector().Data)
	return nil
}
