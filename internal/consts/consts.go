package consts

import "math"

const (
	CHARGE    = 1.602176634e-19 // Elementary charge (C)
	BOLTZMANN = 1.380649e-23    // Boltzmann constant (J/K)
	PLANCK    = 6.62607015e-34  // Planck constant (J s)
	KELVIN    = 273.15          // Kelvin temperature (K)
)

const (
	// VoltToFreq converts a voltage to the equivalent photon frequency, e/h (Hz/V).
	VoltToFreq = CHARGE / PLANCK

	// RMSToPeak converts RMS phasor amplitudes to peak amplitudes.
	RMSToPeak = math.Sqrt2

	// ZEROTOL is the magnitude below which convolution coefficients are dropped.
	ZEROTOL = 1e-6
)
