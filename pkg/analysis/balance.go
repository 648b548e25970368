package analysis

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
	"github.com/PaulKGrimes/supermix-sub001/pkg/junction"
	"github.com/PaulKGrimes/supermix-sub001/pkg/newton"
	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

const (
	// DefaultVoltageScale is the unit of the scaled unknowns and residuals.
	DefaultVoltageScale = 1e-3
	// DefaultImpedanceScale converts VoltageScale to a current unit for Z-type
	// junctions.
	DefaultImpedanceScale = 50.0

	fdStep = 1e-6
)

// BalanceTolerances are the Newton controls used unless overridden. The
// residual is in units of VoltageScale, so FTol 1e-5 is 10 nV by default.
var BalanceTolerances = newton.Options{FTol: 1e-5, DxTol: 1e-8}

var ErrNotSolved = errors.New("analysis: harmonic balance has not been run")

// Balance finds the harmonic voltages and currents of a junction connected to
// the port of an embedding circuit. At each harmonic m the port obeys
//
//	V_m + Zth_m I_m = Vth_m
//
// with I_m the junction response. A Y-type junction is solved for V, a Z-type
// junction for I.
type Balance struct {
	BaseAnalysis
	Junction       junction.Junction
	LOFreq         float64
	Harmonics      int
	VoltageScale   float64
	ImpedanceScale float64

	newtonOpts []newton.Option
	vth, zth   []complex128
	x          []complex128 // unknowns of the last converged solve, for warm starts
	v, i       []complex128
	result     newton.Result
	solved     bool

	junctionTag  statetag.Tag
	embeddingTag statetag.Tag
	solvedLO     float64
	solvedN      int
}

var _ Analysis = (*Balance)(nil)

func NewBalance(j junction.Junction, loFreq float64, harmonics int, opts ...newton.Option) *Balance {
	return &Balance{
		BaseAnalysis:   *NewBaseAnalysis(),
		Junction:       j,
		LOFreq:         loFreq,
		Harmonics:      harmonics,
		VoltageScale:   DefaultVoltageScale,
		ImpedanceScale: DefaultImpedanceScale,
		newtonOpts:     opts,
	}
}

func (b *Balance) Setup(emb *circuit.Embedding) error {
	switch {
	case emb == nil:
		return fmt.Errorf("embedding not set")
	case b.Junction == nil:
		return fmt.Errorf("junction not set")
	case b.Harmonics < 0:
		return fmt.Errorf("invalid harmonic count %d", b.Harmonics)
	case b.Harmonics > 0 && !(b.LOFreq > 0):
		return fmt.Errorf("invalid LO frequency %g", b.LOFreq)
	case !(b.VoltageScale > 0) || !(b.ImpedanceScale > 0):
		return fmt.Errorf("invalid scaling %g V, %g ohm", b.VoltageScale, b.ImpedanceScale)
	}
	b.Embedding = emb
	b.solved = false
	b.x = nil
	return nil
}

// current reports whether the last solution still describes the junction,
// the embedding and the LO settings.
func (b *Balance) current() bool {
	return b.solved &&
		b.LOFreq == b.solvedLO &&
		b.Harmonics == b.solvedN &&
		!b.Junction.CallLargeSignal() &&
		b.Junction.Tag().Equal(b.junctionTag) &&
		b.Embedding.Tag().Equal(b.embeddingTag)
}

// Execute balances the circuit. It returns an error only for invalid input
// or a failing evaluation; non-convergence is reported by NoSolution.
func (b *Balance) Execute() error {
	if b.Embedding == nil {
		return fmt.Errorf("embedding not set")
	}
	if b.current() {
		b.log().Debug("harmonic balance: state unchanged")
		return nil
	}

	n := b.Harmonics
	b.vth = make([]complex128, n+1)
	b.zth = make([]complex128, n+1)
	for m := 0; m <= n; m++ {
		v, z, err := b.Embedding.Thevenin(float64(m)*b.LOFreq, m)
		if err != nil {
			return fmt.Errorf("harmonic balance: harmonic %d: %w", m, err)
		}
		b.vth[m], b.zth[m] = v, z
	}

	x0 := b.x
	if len(x0) != n+1 {
		x0 = make([]complex128, n+1)
		if b.Junction.Representation() == junction.YType {
			copy(x0, b.vth)
		}
	}

	opts := append([]newton.Option{
		newton.WithOptions(BalanceTolerances),
		newton.WithLogger(b.log()),
	}, b.newtonOpts...)
	solver := newton.New(newton.ProblemFunc(b.calc), opts...)

	res, err := solver.Solve(b.pack(x0))
	if err != nil {
		b.solved = false
		return fmt.Errorf("harmonic balance: %w", err)
	}
	b.result = res

	// The solver's last evaluation may be a perturbed Jacobian column; leave
	// the junction at the solution.
	x := b.unpack(res.X)
	if _, err := b.Junction.LargeSignal(x, b.LOFreq, n); err != nil {
		b.solved = false
		return fmt.Errorf("harmonic balance: %w", err)
	}
	b.v = b.Junction.V()
	b.i = b.Junction.I()

	if res.NoSolution() {
		b.log().Warn("harmonic balance did not converge", "status", res.Status, "iterations", res.Iterations)
		b.x = nil
	} else {
		b.x = x
		b.log().Debug("harmonic balance converged", "iterations", res.Iterations)
	}

	b.solved = true
	b.junctionTag = b.Junction.Tag()
	b.embeddingTag = b.Embedding.Tag()
	b.solvedLO, b.solvedN = b.LOFreq, n

	b.ResetResults()
	for m := 0; m <= n; m++ {
		b.StoreComplexResult("HARMONIC", float64(m), map[string]complex128{"V": b.v[m], "I": b.i[m]})
	}
	return nil
}

func (b *Balance) unit() float64 {
	if b.Junction.Representation() == junction.ZType {
		return b.VoltageScale / b.ImpedanceScale
	}
	return b.VoltageScale
}

// pack maps harmonics 0..n to 2n+1 scaled reals; the DC term is real.
func (b *Balance) pack(x []complex128) []float64 {
	u := b.unit()
	out := make([]float64, 2*len(x)-1)
	out[0] = real(x[0]) / u
	for m := 1; m < len(x); m++ {
		out[2*m-1] = real(x[m]) / u
		out[2*m] = imag(x[m]) / u
	}
	return out
}

func (b *Balance) unpack(xs []float64) []complex128 {
	u := b.unit()
	x := make([]complex128, (len(xs)+1)/2)
	x[0] = complex(xs[0]*u, 0)
	for m := 1; m < len(x); m++ {
		x[m] = complex(xs[2*m-1]*u, xs[2*m]*u)
	}
	return x
}

// residual evaluates the port equation at every harmonic in units of
// VoltageScale.
func (b *Balance) residual(x []complex128) ([]float64, error) {
	out, err := b.Junction.LargeSignal(x, b.LOFreq, b.Harmonics)
	if err != nil {
		return nil, err
	}
	f := make([]float64, 2*len(x)-1)
	for m := range x {
		var r complex128
		if b.Junction.Representation() == junction.ZType {
			r = b.zth[m]*x[m] + out[m] - b.vth[m]
		} else {
			r = x[m] + b.zth[m]*out[m] - b.vth[m]
		}
		r /= complex(b.VoltageScale, 0)
		if m == 0 {
			f[0] = real(r)
			continue
		}
		f[2*m-1], f[2*m] = real(r), imag(r)
	}
	return f, nil
}

// calc returns the residual and a forward-difference Jacobian.
func (b *Balance) calc(xs []float64) ([]float64, *mat.Dense, error) {
	f, err := b.residual(b.unpack(xs))
	if err != nil {
		return nil, nil, err
	}
	n := len(xs)
	jac := mat.NewDense(n, n, nil)
	xp := make([]float64, n)
	for c := range n {
		copy(xp, xs)
		h := fdStep * math.Max(math.Abs(xs[c]), 1)
		xp[c] += h
		fp, err := b.residual(b.unpack(xp))
		if err != nil {
			return nil, nil, err
		}
		for r := range n {
			jac.Set(r, c, (fp[r]-f[r])/h)
		}
	}
	return f, jac, nil
}

// V returns the junction voltage at each harmonic of the last balance.
func (b *Balance) V() []complex128 { return append([]complex128(nil), b.v...) }

// I returns the junction current at each harmonic of the last balance.
func (b *Balance) I() []complex128 { return append([]complex128(nil), b.i...) }

// Result returns the Newton result of the last balance.
func (b *Balance) Result() newton.Result { return b.result }

// NoSolution reports whether the last balance failed to converge or none
// has run.
func (b *Balance) NoSolution() bool { return !b.solved || b.result.NoSolution() }

// Thevenin returns the embedding source voltages and impedances used by the
// last balance.
func (b *Balance) Thevenin() (vth, zth []complex128) {
	return append([]complex128(nil), b.vth...), append([]complex128(nil), b.zth...)
}

// Ready fails when small-signal analysis cannot use the junction state.
func (b *Balance) Ready() error {
	if !b.solved {
		return ErrNotSolved
	}
	if !b.current() {
		return fmt.Errorf("%w: state changed since the last balance", junction.ErrStale)
	}
	return nil
}
