package device

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

type Capacitor struct {
	BaseDevice
}

func NewCapacitor(name string, nodeNames []string, value float64) *Capacitor {
	return &Capacitor{BaseDevice: newBaseDevice(name, value, nodeNames)}
}

func (c *Capacitor) GetType() string { return "C" }

// Stamp adds iwC. At DC the capacitor is open and contributes nothing.
func (c *Capacitor) Stamp(matrix matrix.DeviceMatrix, status *CircuitStatus) error {
	if len(c.Nodes) != 2 {
		return fmt.Errorf("capacitor %s: requires exactly 2 nodes", c.Name)
	}
	stampAdmittance(matrix, c.Nodes[0], c.Nodes[1], complex(0, status.Omega()*c.Value))
	return nil
}
