package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/PaulKGrimes/supermix-sub001/internal/consts"
	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
)

// shortImpedance replaces a zero embedding impedance so that every sideband
// has a finite termination admittance.
const shortImpedance = 1e-9

var ErrNotConverged = errors.New("analysis: harmonic balance did not converge")

// Point is the small-signal performance of the mixer at one IF. Gains are
// available power ratios from the upper (m=+1) and lower (m=-1) sideband
// ports to the IF port (m=0). Noise temperatures are in K.
type Point struct {
	IF      float64
	GainUSB float64
	GainLSB float64
	TOut    float64    // output noise temperature at the IF port
	TSSB    float64    // noise referred to the upper sideband input
	TDSB    float64    // noise referred to both sideband inputs
	ZOut    complex128 // IF output impedance of the pumped junction and embedding
}

// SmallSignal sweeps the IF and computes conversion gain and noise at the
// operating point found by a Balance.
type SmallSignal struct {
	BaseAnalysis
	Balance  *Balance
	Temp     float64 // junction physical temperature for noise
	TermTemp float64 // temperature of the sideband terminations other than the signal and IF ports

	startFreq   float64
	stopFreq    float64
	numPoints   int
	pointsType  string // "DEC", "OCT", "LIN"
	frequencies []float64
	points      []Point
}

var _ Analysis = (*SmallSignal)(nil)

func NewSmallSignal(b *Balance, fStart, fStop float64, nPoints int, pType string) *SmallSignal {
	return &SmallSignal{
		BaseAnalysis: *NewBaseAnalysis(),
		Balance:      b,
		startFreq:    fStart,
		stopFreq:     fStop,
		numPoints:    nPoints,
		pointsType:   pType,
	}
}

func (s *SmallSignal) Setup(emb *circuit.Embedding) error {
	if s.Balance == nil {
		return fmt.Errorf("harmonic balance not set")
	}
	if s.Temp < 0 || s.TermTemp < 0 {
		return fmt.Errorf("negative noise temperature")
	}
	if err := s.generateFrequencyPoints(); err != nil {
		return err
	}

	s.Embedding = emb
	if s.Balance.Embedding != emb {
		if err := s.Balance.Setup(emb); err != nil {
			return fmt.Errorf("harmonic balance setup error: %w", err)
		}
	}
	if err := s.Balance.Execute(); err != nil {
		return fmt.Errorf("harmonic balance error: %w", err)
	}
	if s.Balance.NoSolution() {
		return ErrNotConverged
	}
	return nil
}

func (s *SmallSignal) Execute() error {
	if s.Embedding == nil {
		return fmt.Errorf("embedding not set")
	}

	s.ResetResults()
	s.points = s.points[:0]
	for _, freq := range s.frequencies {
		p, err := s.Point(freq)
		if err != nil {
			return fmt.Errorf("small signal at IF=%g: %w", freq, err)
		}
		s.points = append(s.points, p)
		s.StoreResult("FREQ", freq, map[string]float64{
			"GAIN_USB":    p.GainUSB,
			"GAIN_LSB":    p.GainLSB,
			"GAIN_USB_DB": decibels(p.GainUSB),
			"GAIN_LSB_DB": decibels(p.GainLSB),
			"TOUT":        p.TOut,
			"TSSB":        p.TSSB,
			"TDSB":        p.TDSB,
			"ZOUT_RE":     real(p.ZOut),
			"ZOUT_IM":     imag(p.ZOut),
		})
	}
	return nil
}

// Points returns the results of the last Execute.
func (s *SmallSignal) Points() []Point { return s.points }

// Point evaluates the mixer at one IF from the current balance.
func (s *SmallSignal) Point(ifFreq float64) (Point, error) {
	b := s.Balance
	if err := b.Ready(); err != nil {
		return Point{}, err
	}
	n := b.Harmonics

	yj, err := b.Junction.Representation().Admittance(b.Junction, ifFreq, n)
	if err != nil {
		return Point{}, err
	}
	h, err := b.Junction.Noise(ifFreq, s.Temp, n)
	if err != nil {
		return Point{}, err
	}
	h = h.Clone()

	// Sideband termination admittances from the embedding.
	ye := numeric.NewSymmetric[complex128](n)
	for m := -n; m <= n; m++ {
		z, err := b.Embedding.Impedance(ifFreq + float64(m)*b.LOFreq)
		if err != nil {
			return Point{}, err
		}
		if cmplx.Abs(z) < shortImpedance {
			z = shortImpedance
		}
		ye.Set(m, 1/z)
	}

	// Row 0 of the augmented impedance matrix, from the transposed system.
	yt := numeric.NewSymmetricMatrix[complex128](n)
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			yt.Set(j, i, yj.At(i, j))
		}
		yt.Add(i, i, ye.At(i))
	}
	e0 := numeric.NewSymmetric[complex128](n)
	e0.Set(0, 1)
	sol, err := matrix.SolveComplexDense(yt, e0)
	if err != nil {
		return Point{}, fmt.Errorf("sideband system: %w", err)
	}
	z0 := sol[0]

	g0 := real(ye.At(0))
	gain := func(m int) float64 {
		if m < -n || m > n {
			return 0
		}
		return 4 * g0 * real(ye.At(m)) * numeric.Abs2(z0.At(m))
	}
	p := Point{IF: ifFreq, GainUSB: gain(1), GainLSB: gain(-1)}

	// Thermal noise of the image and higher sideband terminations.
	for m := -n; m <= n; m++ {
		if m == 0 || m == 1 {
			continue
		}
		h.Add(m, m, complex(4*consts.BOLTZMANN*s.TermTemp*real(ye.At(m)), 0))
	}
	var vv complex128
	for i := -n; i <= n; i++ {
		for j := -n; j <= n; j++ {
			vv += z0.At(i) * h.At(i, j) * cmplx.Conj(z0.At(j))
		}
	}
	p.TOut = real(vv) * g0 / consts.BOLTZMANN
	p.TSSB = ratio(p.TOut, p.GainUSB)
	p.TDSB = ratio(p.TOut, p.GainUSB+p.GainLSB)

	if z00 := z0.At(0); z00 != 0 {
		if yout := 1/z00 - ye.At(0); yout != 0 {
			p.ZOut = 1 / yout
		} else {
			p.ZOut = cmplx.Inf()
		}
	}
	return p, nil
}

func ratio(t, g float64) float64 {
	if g <= 0 {
		return math.Inf(1)
	}
	return t / g
}

func decibels(g float64) float64 {
	return 10 * math.Log10(g)
}

func (s *SmallSignal) generateFrequencyPoints() error {
	if s.numPoints < 1 {
		return fmt.Errorf("invalid number of IF points %d", s.numPoints)
	}
	if s.numPoints == 1 {
		s.frequencies = []float64{s.startFreq}
		return nil
	}
	if s.stopFreq < s.startFreq {
		return fmt.Errorf("IF stop %g below start %g", s.stopFreq, s.startFreq)
	}

	s.frequencies = make([]float64, s.numPoints)
	switch s.pointsType {
	case "DEC", "OCT": // Logarithmic
		if !(s.startFreq > 0) {
			return fmt.Errorf("%s sweep needs a positive start frequency", s.pointsType)
		}
		logStart := math.Log(s.startFreq)
		logStop := math.Log(s.stopFreq)
		step := (logStop - logStart) / float64(s.numPoints-1)
		for i := range s.numPoints {
			s.frequencies[i] = math.Exp(logStart + float64(i)*step)
		}

	case "LIN": // Linear
		step := (s.stopFreq - s.startFreq) / float64(s.numPoints-1)
		for i := range s.numPoints {
			s.frequencies[i] = s.startFreq + float64(i)*step
		}

	default:
		return fmt.Errorf("invalid sweep type: %s", s.pointsType)
	}
	return nil
}
