// Package device holds the linear elements of an embedding circuit. Each
// element stamps its complex admittance at one harmonic of the local
// oscillator into a modified nodal analysis matrix.
package device

import (
	"math"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

type Device interface {
	GetName() string
	GetType() string
	GetNodeNames() []string
	GetNodes() []int
	Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error
	GetValue() float64
	SetNodes(nodes []int)
}

// BranchDevice is an element that adds a current unknown to the system.
type BranchDevice interface {
	Device
	SetBranchIndex(idx int)
	BranchIndex() int
}

// Source is an independent source with a DC value and harmonic phasors.
type Source interface {
	Device
	SetValue(dc float64)
	Phasor(harmonic int) complex128
}

type BaseDevice struct {
	Name      string
	Nodes     []int
	Value     float64
	NodeNames []string
}

// CircuitStatus describes the frequency a circuit is being stamped at.
type CircuitStatus struct {
	Frequency   float64 // Hz, 0 at DC
	Harmonic    int     // LO harmonic selecting source phasors
	ZeroSources bool    // stamp independent sources as zero
	Gmin        float64
	Temp        float64 // K, 0 leaves temperature coefficients unused
}

// Omega returns the angular frequency of the status.
func (s *CircuitStatus) Omega() float64 {
	return 2 * math.Pi * s.Frequency
}

func (d *BaseDevice) GetName() string {
	return d.Name
}

func (d *BaseDevice) GetNodes() []int {
	return d.Nodes
}

func (d *BaseDevice) GetNodeNames() []string {
	return d.NodeNames
}

func (d *BaseDevice) GetValue() float64 {
	return d.Value
}

func (d *BaseDevice) SetNodes(nodes []int) {
	d.Nodes = nodes
}

func newBaseDevice(name string, value float64, nodeNames []string) BaseDevice {
	return BaseDevice{
		Name:      name,
		Value:     value,
		NodeNames: nodeNames,
		Nodes:     make([]int, len(nodeNames)),
	}
}

// stampAdmittance places y between nodes n1 and n2. Ground (0) rows are skipped.
func stampAdmittance(m matrix.DeviceMatrix, n1, n2 int, y complex128) {
	g, b := real(y), imag(y)
	if n1 != 0 {
		m.AddComplexElement(n1, n1, g, b)
		if n2 != 0 {
			m.AddComplexElement(n1, n2, -g, -b)
		}
	}
	if n2 != 0 {
		if n1 != 0 {
			m.AddComplexElement(n2, n1, -g, -b)
		}
		m.AddComplexElement(n2, n2, g, b)
	}
}

// stampBranch couples branch row b to nodes n1 (+1) and n2 (-1) in both the
// KCL rows and the branch equation.
func stampBranch(m matrix.DeviceMatrix, n1, n2, b int) {
	if n1 != 0 {
		m.AddComplexElement(n1, b, 1, 0)
		m.AddComplexElement(b, n1, 1, 0)
	}
	if n2 != 0 {
		m.AddComplexElement(n2, b, -1, 0)
		m.AddComplexElement(b, n2, -1, 0)
	}
}
