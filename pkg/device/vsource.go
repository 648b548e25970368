package device

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

// VoltageSource is an independent voltage source. Its current is a branch
// unknown flowing from n+ through the source to n-.
type VoltageSource struct {
	BaseDevice
	drive
	branchIdx int
}

var (
	_ BranchDevice = (*VoltageSource)(nil)
	_ Source       = (*VoltageSource)(nil)
)

func NewDCVoltageSource(name string, nodeNames []string, value float64) *VoltageSource {
	return NewVoltageSource(name, nodeNames, value, nil)
}

func NewVoltageSource(name string, nodeNames []string, dc float64, harmonics []Harmonic) *VoltageSource {
	return &VoltageSource{
		BaseDevice: newBaseDevice(name, dc, nodeNames),
		drive:      newDrive(dc, harmonics),
	}
}

func (v *VoltageSource) GetType() string { return "V" }

func (v *VoltageSource) SetBranchIndex(idx int) { v.branchIdx = idx }

func (v *VoltageSource) BranchIndex() int { return v.branchIdx }

// SetValue changes the DC value.
func (v *VoltageSource) SetValue(dc float64) {
	v.Value = dc
	v.dc = dc
}

func (v *VoltageSource) Phasor(harmonic int) complex128 { return v.phasor(harmonic) }

func (v *VoltageSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(v.Nodes) != 2 {
		return fmt.Errorf("voltage source %s: requires exactly 2 nodes", v.Name)
	}
	if v.branchIdx == 0 {
		return fmt.Errorf("voltage source %s: branch index not assigned", v.Name)
	}
	stampBranch(matrix, v.Nodes[0], v.Nodes[1], v.branchIdx)
	value := v.at(status)
	matrix.AddComplexRHS(v.branchIdx, real(value), imag(value))
	return nil
}
