package device

import (
	"math"
	"math/cmplx"
	"sort"
)

// Harmonic is the phasor of a source at one LO harmonic. Mag is RMS, Phase is
// in degrees.
type Harmonic struct {
	K     int
	Mag   float64
	Phase float64
}

// Phasor returns Mag at angle Phase.
func (h Harmonic) Phasor() complex128 {
	return cmplx.Rect(h.Mag, h.Phase*math.Pi/180.0)
}

// drive is the waveform shared by independent sources: a DC value plus phasors
// keyed by harmonic number.
type drive struct {
	dc        float64
	harmonics map[int]complex128
}

func newDrive(dc float64, harmonics []Harmonic) drive {
	d := drive{dc: dc, harmonics: make(map[int]complex128, len(harmonics))}
	for _, h := range harmonics {
		if h.K <= 0 {
			continue
		}
		d.harmonics[h.K] += h.Phasor()
	}
	return d
}

func (d *drive) phasor(harmonic int) complex128 {
	switch {
	case harmonic == 0:
		return complex(d.dc, 0)
	case harmonic < 0:
		return cmplx.Conj(d.harmonics[-harmonic])
	default:
		return d.harmonics[harmonic]
	}
}

func (d *drive) at(status *CircuitStatus) complex128 {
	if status.ZeroSources {
		return 0
	}
	return d.phasor(status.Harmonic)
}

// Harmonics lists the non-zero harmonic numbers in increasing order.
func (d *drive) Harmonics() []int {
	ks := make([]int, 0, len(d.harmonics))
	for k, v := range d.harmonics {
		if v != 0 {
			ks = append(ks, k)
		}
	}
	sort.Ints(ks)
	return ks
}
