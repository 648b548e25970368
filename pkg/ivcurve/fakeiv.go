package ivcurve

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

// Fake generates a synthetic normalized SIS I-V curve: a smoothed current step
// at the gap voltage v = 1 on top of a subgap resistance, plus the matching
// Kramers-Kronig curve. Useful for tests and for trying out a mixer without
// measured data.
type Fake struct {
	RSubgap  float64 // subgap resistance in units of Rn
	GapWidth float64 // width of the current rise at the gap
	ILeakage float64 // leakage current rising near zero bias
	IDefect  float64 // excess current above the gap

	VMax float64 // tabulated range is [-VMax, VMax]
	Step float64 // grid spacing
}

// NewFake returns a generator with the usual defaults.
func NewFake() *Fake {
	return &Fake{
		RSubgap:  20,
		GapWidth: 0.02,
		ILeakage: 0.01,
		IDefect:  0.1,
		VMax:     4,
		Step:     0.002,
	}
}

// Idc evaluates the synthetic DC curve at v.
func (f *Fake) Idc(v float64) float64 {
	av := math.Abs(v)
	s := 0.5 * (1 + math.Tanh((av-1)/f.GapWidth))
	i := f.ILeakage*math.Tanh(av/f.GapWidth) + (1-s)*av/f.RSubgap + s*(av+f.IDefect)
	if v < 0 {
		return -i
	}
	return i
}

// Table returns the v in [0, VMax] grid together with Idc and Ikk on it.
//
// Ikk is the principal value (1/pi) PV integral of (Idc(v') - v')/(v' - v) dv'.
// The integral is summed over a symmetric grid twice as wide as the output with
// the singular term left out; beyond the grid the excess current is taken as
// constant, which contributes -(c/pi) ln(L^2 - v^2) up to an additive constant.
func (f *Fake) Table() (v, idc, ikk []float64, err error) {
	if f.Step <= 0 || f.VMax <= f.Step || f.GapWidth <= 0 || f.RSubgap <= 0 {
		return nil, nil, nil, fmt.Errorf("fakeiv: invalid parameters %+v", *f)
	}

	out := int(math.Round(f.VMax / f.Step))
	half := 2 * out
	grid := make([]float64, 2*half+1)
	excess := make([]float64, len(grid))
	for k := range grid {
		x := float64(k-half) * f.Step
		grid[k] = x
		excess[k] = f.Idc(x) - x
	}
	edge := grid[len(grid)-1] + f.Step/2
	c := excess[len(excess)-1]

	v = grid[half : half+out+1]
	idc = make([]float64, len(v))
	ikk = make([]float64, len(v))
	for i, x := range v {
		idc[i] = f.Idc(x)
		sum := 0.0
		self := half + i
		for k, y := range grid {
			if k == self {
				continue
			}
			sum += excess[k] / (y - x)
		}
		ikk[i] = (sum*f.Step - c*math.Log(edge*edge-x*x)) / math.Pi
	}
	return v, idc, ikk, nil
}

// Write emits the Idc and Ikk tables as two-column text.
func (f *Fake) Write(idcW, ikkW io.Writer) error {
	v, idc, ikk, err := f.Table()
	if err != nil {
		return err
	}
	if err := writeColumns(idcW, v, idc); err != nil {
		return fmt.Errorf("write idc: %w", err)
	}
	if err := writeColumns(ikkW, v, ikk); err != nil {
		return fmt.Errorf("write ikk: %w", err)
	}
	return nil
}

// Curve returns a loaded IVCurve built from the synthetic tables.
func (f *Fake) Curve(opts ...Option) (*IVCurve, error) {
	v, idc, ikk, err := f.Table()
	if err != nil {
		return nil, err
	}
	c := New(opts...)
	if err := c.LoadPoints(v, idc, v, ikk); err != nil {
		return nil, err
	}
	return c, nil
}

func writeColumns(w io.Writer, x, y []float64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# v\ti\n")
	for k := range x {
		fmt.Fprintf(bw, "%.8e\t%.8e\n", x[k], y[k])
	}
	return bw.Flush()
}
