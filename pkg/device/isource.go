package device

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

// CurrentSource drives current from n+ through the source to n-, so it
// leaves node n+ and enters node n- from the circuit's point of view.
type CurrentSource struct {
	BaseDevice
	drive
}

var _ Source = (*CurrentSource)(nil)

func NewDCCurrentSource(name string, nodeNames []string, value float64) *CurrentSource {
	return NewCurrentSource(name, nodeNames, value, nil)
}

func NewCurrentSource(name string, nodeNames []string, dc float64, harmonics []Harmonic) *CurrentSource {
	return &CurrentSource{
		BaseDevice: newBaseDevice(name, dc, nodeNames),
		drive:      newDrive(dc, harmonics),
	}
}

func (i *CurrentSource) GetType() string { return "I" }

// SetValue changes the DC value.
func (i *CurrentSource) SetValue(dc float64) {
	i.Value = dc
	i.dc = dc
}

func (i *CurrentSource) Phasor(harmonic int) complex128 { return i.phasor(harmonic) }

func (i *CurrentSource) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(i.Nodes) != 2 {
		return fmt.Errorf("current source %s: requires exactly 2 nodes", i.Name)
	}
	n1, n2 := i.Nodes[0], i.Nodes[1]
	value := i.at(status)
	if n1 != 0 {
		matrix.AddComplexRHS(n1, -real(value), -imag(value))
	}
	if n2 != 0 {
		matrix.AddComplexRHS(n2, real(value), imag(value))
	}
	return nil
}
