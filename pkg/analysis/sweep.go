package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
)

// BiasSweep steps a DC source of the embedding and rebalances the pumped
// junction at every value. Each balance starts from the previous solution.
type BiasSweep struct {
	BaseAnalysis
	Balance *Balance
	// IFFreq, when positive, adds the small-signal gain and noise at that IF
	// to every point.
	IFFreq   float64
	Temp     float64
	TermTemp float64

	sourceName string
	startVal   float64
	stopVal    float64
	increment  float64
	sweepVals  []float64
	origVal    float64
}

var _ Analysis = (*BiasSweep)(nil)

func NewBiasSweep(b *Balance, source string, start, stop, increment float64) *BiasSweep {
	return &BiasSweep{
		BaseAnalysis: *NewBaseAnalysis(),
		Balance:      b,
		sourceName:   source,
		startVal:     start,
		stopVal:      stop,
		increment:    increment,
	}
}

func (bs *BiasSweep) Setup(emb *circuit.Embedding) error {
	if bs.Balance == nil {
		return fmt.Errorf("harmonic balance not set")
	}
	if bs.increment == 0 || (bs.stopVal-bs.startVal)*bs.increment < 0 {
		return fmt.Errorf("invalid sweep %g to %g step %g", bs.startVal, bs.stopVal, bs.increment)
	}
	orig, err := emb.Source(bs.sourceName)
	if err != nil {
		return err
	}
	bs.origVal = orig
	bs.Embedding = emb
	if bs.Balance.Embedding != emb {
		if err := bs.Balance.Setup(emb); err != nil {
			return fmt.Errorf("harmonic balance setup error: %w", err)
		}
	}

	// Index-based steps avoid accumulating the increment.
	bs.sweepVals = bs.sweepVals[:0]
	steps := int(math.Floor((bs.stopVal-bs.startVal)/bs.increment + 1e-9))
	for i := 0; i <= steps; i++ {
		bs.sweepVals = append(bs.sweepVals, bs.startVal+float64(i)*bs.increment)
	}
	return nil
}

func (bs *BiasSweep) Execute() error {
	if bs.Embedding == nil {
		return fmt.Errorf("embedding not set")
	}
	defer func() {
		if err := bs.Embedding.SetSource(bs.sourceName, bs.origVal); err != nil {
			bs.log().Error("restoring source", "source", bs.sourceName, "err", err)
		}
	}()

	var ss *SmallSignal
	if bs.IFFreq > 0 {
		ss = NewSmallSignal(bs.Balance, bs.IFFreq, bs.IFFreq, 1, "LIN")
		ss.Temp, ss.TermTemp = bs.Temp, bs.TermTemp
	}

	bs.ResetResults()
	failed := 0
	for _, val := range bs.sweepVals {
		if err := bs.Embedding.SetSource(bs.sourceName, val); err != nil {
			return err
		}
		if err := bs.Balance.Execute(); err != nil {
			return fmt.Errorf("balance error at %s=%g: %w", bs.sourceName, val, err)
		}

		v, i := bs.Balance.V(), bs.Balance.I()
		solution := map[string]float64{
			"V0":        real(v[0]),
			"I0":        real(i[0]),
			"CONVERGED": 1,
		}
		if len(v) > 1 {
			solution["V1_MAG"] = cmplx.Abs(v[1])
			solution["I1_MAG"] = cmplx.Abs(i[1])
		}

		if bs.Balance.NoSolution() {
			failed++
			solution["CONVERGED"] = 0
		}
		if ss != nil {
			p := Point{GainUSB: math.NaN(), GainLSB: math.NaN(), TSSB: math.NaN()}
			if !bs.Balance.NoSolution() {
				var err error
				p, err = ss.Point(bs.IFFreq)
				if err != nil {
					return fmt.Errorf("small signal at %s=%g: %w", bs.sourceName, val, err)
				}
			}
			solution["GAIN_USB"] = p.GainUSB
			solution["GAIN_LSB"] = p.GainLSB
			solution["TSSB"] = p.TSSB
		}
		bs.StoreResult("SWEEP1", val, solution)
	}

	if failed > 0 {
		bs.log().Warn("bias sweep points without a balance solution", "count", failed, "points", len(bs.sweepVals))
	}
	return nil
}
