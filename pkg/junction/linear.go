package junction

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/internal/consts"
	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

// Linear is a frequency-independent impedance R that can stand in for a
// junction in either representation. It has an exact small-signal response,
// which makes it a reference for the harmonic-balance and mixer code.
type Linear struct {
	R   complex128
	Rep Representation

	solvedR   complex128
	solvedRep Representation
	solved    bool
	tag       statetag.Tag
	v, i      []complex128
}

func (l *Linear) Representation() Representation { return l.Rep }

func (l *Linear) CallLargeSignal() bool {
	return !l.solved || l.solvedR != l.R || l.solvedRep != l.Rep
}

func (l *Linear) Tag() statetag.Tag { return l.tag }

func (l *Linear) V() []complex128 { return append([]complex128(nil), l.v...) }
func (l *Linear) I() []complex128 { return append([]complex128(nil), l.i...) }

// LargeSignal returns x/R for a Y-type element and R*x for a Z-type one.
func (l *Linear) LargeSignal(x []complex128, loFreq float64, n int) ([]complex128, error) {
	if l.R == 0 {
		return nil, fmt.Errorf("linear: zero impedance")
	}
	if n < 0 || len(x) != n+1 {
		return nil, fmt.Errorf("linear: %w: %d values for %d harmonics", ErrHarmonicMismatch, len(x), n)
	}

	out := make([]complex128, len(x))
	for k, v := range x {
		if l.Rep == ZType {
			out[k] = l.R * v
		} else {
			out[k] = v / l.R
		}
	}

	if l.Rep == ZType {
		l.i, l.v = append(l.i[:0], x...), append(l.v[:0], out...)
	} else {
		l.v, l.i = append(l.v[:0], x...), append(l.i[:0], out...)
	}
	l.solvedR, l.solvedRep, l.solved = l.R, l.Rep, true
	l.tag = statetag.New()
	return out, nil
}

// SmallSignal returns diag(1/R) for a Y-type element and diag(R) for a Z-type one.
func (l *Linear) SmallSignal(ifFreq float64, n int) (*numeric.Matrix[complex128], error) {
	if l.R == 0 {
		return nil, fmt.Errorf("linear: zero impedance")
	}
	m := numeric.NewSymmetricMatrix[complex128](n)
	d := 1 / l.R
	if l.Rep == ZType {
		d = l.R
	}
	for k := -n; k <= n; k++ {
		m.Set(k, k, d)
	}
	return m, nil
}

// Noise returns the Johnson current noise 4kT Re(1/R) on every sideband, in
// both representations.
func (l *Linear) Noise(ifFreq, temp float64, n int) (*numeric.Matrix[complex128], error) {
	if l.R == 0 {
		return nil, fmt.Errorf("linear: zero impedance")
	}
	m := numeric.NewSymmetricMatrix[complex128](n)
	g := real(1 / l.R)
	for k := -n; k <= n; k++ {
		m.Set(k, k, complex(4*consts.BOLTZMANN*temp*g, 0))
	}
	return m, nil
}
