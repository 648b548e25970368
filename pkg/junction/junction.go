// Package junction models nonlinear elements driven by a local oscillator:
// the large-signal harmonic response used by harmonic balance, and the
// small-signal admittance and noise correlation matrices over the sidebands
// of an intermediate frequency.
//
// Harmonic phasors are RMS: a component V at harmonic m is the time signal
// Re(sqrt(2) V exp(i m w t)). Sideband index m refers to the frequency
// f_IF + m*f_LO; negative sidebands carry conjugated phasors.
package junction

import (
	"errors"
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

var (
	// ErrStale is returned when small-signal data is requested before the
	// large-signal state matches the current parameters.
	ErrStale = errors.New("junction: large-signal state is stale")
	// ErrHarmonicMismatch is returned when the sideband count differs from the
	// harmonic count of the last large-signal call, or a voltage vector does not
	// match the requested harmonic count.
	ErrHarmonicMismatch = errors.New("junction: harmonic count mismatch")
)

// Representation selects the natural unknown of a junction in harmonic balance.
type Representation int

const (
	// YType junctions take voltages and return currents.
	YType Representation = iota
	// ZType junctions take currents and return voltages.
	ZType
)

func (r Representation) String() string {
	switch r {
	case YType:
		return "Y"
	case ZType:
		return "Z"
	default:
		return fmt.Sprintf("Representation(%d)", int(r))
	}
}

// Admittance returns the small-signal admittance matrix of j, inverting the
// impedance matrix of a Z-type junction.
func (r Representation) Admittance(j Junction, ifFreq float64, n int) (*numeric.Matrix[complex128], error) {
	m, err := j.SmallSignal(ifFreq, n)
	if err != nil {
		return nil, err
	}
	if r == ZType {
		return ToAdmittance(m)
	}
	return m, nil
}

// Junction is a nonlinear element seen by the mixer driver.
type Junction interface {
	Representation() Representation

	// LargeSignal evaluates the response to the harmonic drive x[0..n] at the
	// LO frequency: currents for a Y-type junction, voltages for a Z-type one.
	LargeSignal(x []complex128, loFreq float64, n int) ([]complex128, error)

	// SmallSignal returns the sideband matrix over [-n, n] at the operating
	// point of the last LargeSignal call: an admittance for Y-type junctions,
	// an impedance for Z-type ones.
	SmallSignal(ifFreq float64, n int) (*numeric.Matrix[complex128], error)

	// Noise returns the current noise correlation matrix over [-n, n] in A^2/Hz.
	Noise(ifFreq, temp float64, n int) (*numeric.Matrix[complex128], error)

	// V and I hold the harmonic voltages and currents of the last LargeSignal call.
	V() []complex128
	I() []complex128

	// CallLargeSignal reports whether parameters changed since the last
	// LargeSignal call.
	CallLargeSignal() bool

	// Tag identifies the state produced by the last LargeSignal call.
	Tag() statetag.Tag
}

// ToAdmittance inverts a sideband impedance matrix.
func ToAdmittance(z *numeric.Matrix[complex128]) (*numeric.Matrix[complex128], error) {
	y, err := matrix.InvertComplex(z)
	if err != nil {
		return nil, fmt.Errorf("impedance to admittance: %w", err)
	}
	return y, nil
}

// ToImpedance inverts a sideband admittance matrix.
func ToImpedance(y *numeric.Matrix[complex128]) (*numeric.Matrix[complex128], error) {
	z, err := matrix.InvertComplex(y)
	if err != nil {
		return nil, fmt.Errorf("admittance to impedance: %w", err)
	}
	return z, nil
}
