package device

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

type Resistor struct {
	BaseDevice
	Tc1  float64
	Tc2  float64
	Tnom float64
}

func NewResistor(name string, nodeNames []string, value float64) *Resistor {
	return &Resistor{
		BaseDevice: newBaseDevice(name, value, nodeNames),
		Tnom:       300.15,
	}
}

func (r *Resistor) GetType() string { return "R" }

func (r *Resistor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(r.Nodes) != 2 {
		return fmt.Errorf("resistor %s: requires exactly 2 nodes", r.Name)
	}
	value := r.temperatureAdjustedValue(status.Temp)
	if value == 0 {
		return fmt.Errorf("resistor %s: zero resistance", r.Name)
	}
	stampAdmittance(matrix, r.Nodes[0], r.Nodes[1], complex(1/value, 0))
	return nil
}

func (r *Resistor) temperatureAdjustedValue(temp float64) float64 {
	if temp <= 0 {
		return r.Value
	}
	dt := temp - r.Tnom
	return r.Value * (1.0 + r.Tc1*dt + r.Tc2*dt*dt)
}
