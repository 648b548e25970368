package device

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

// Inductor carries its current as a branch unknown so that it is a short at
// DC rather than an infinite admittance.
type Inductor struct {
	BaseDevice
	branchIdx int
}

var _ BranchDevice = (*Inductor)(nil)

func NewInductor(name string, nodeNames []string, value float64) *Inductor {
	return &Inductor{BaseDevice: newBaseDevice(name, value, nodeNames)}
}

func (l *Inductor) GetType() string { return "L" }

func (l *Inductor) SetBranchIndex(idx int) { l.branchIdx = idx }

func (l *Inductor) BranchIndex() int { return l.branchIdx }

// Stamp writes V(n1) - V(n2) - iwL*I = 0 on the branch row.
func (l *Inductor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(l.Nodes) != 2 {
		return fmt.Errorf("inductor %s: requires exactly 2 nodes", l.Name)
	}
	if l.branchIdx == 0 {
		return fmt.Errorf("inductor %s: branch index not assigned", l.Name)
	}
	b := l.branchIdx
	stampBranch(matrix, l.Nodes[0], l.Nodes[1], b)
	matrix.AddComplexElement(b, b, 0, -status.Omega()*l.Value)
	return nil
}
