package analysis

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
	"github.com/PaulKGrimes/supermix-sub001/pkg/junction"
	"github.com/PaulKGrimes/supermix-sub001/pkg/newton"
)

// OperatingPoint is the unpumped DC state of the junction: a balance with no
// LO harmonics.
type OperatingPoint struct {
	BaseAnalysis
	balance *Balance
}

var _ Analysis = (*OperatingPoint)(nil)

func NewOP(j junction.Junction, opts ...newton.Option) *OperatingPoint {
	return &OperatingPoint{
		BaseAnalysis: *NewBaseAnalysis(),
		balance:      NewBalance(j, 0, 0, opts...),
	}
}

func (op *OperatingPoint) Setup(emb *circuit.Embedding) error {
	op.Embedding = emb
	op.balance.Logger = op.Logger
	return op.balance.Setup(emb)
}

func (op *OperatingPoint) Execute() error {
	if err := op.balance.Execute(); err != nil {
		return fmt.Errorf("operating point: %w", err)
	}
	if op.balance.NoSolution() {
		return fmt.Errorf("operating point: %w", ErrNotConverged)
	}
	op.ResetResults()
	op.StoreResult("V0", op.Voltage(), map[string]float64{"I0": op.Current()})
	return nil
}

// Voltage is the DC junction voltage.
func (op *OperatingPoint) Voltage() float64 { return real(op.balance.V()[0]) }

// Current is the DC junction current.
func (op *OperatingPoint) Current() float64 { return real(op.balance.I()[0]) }
