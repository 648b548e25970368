// Package util formats simulation values for tables.
package util

import (
	"fmt"
	"math"
	"math/cmplx"
)

// FormatValueFactor prints value with an SI prefix on unit, e.g. 2.800 mV.
func FormatValueFactor(value float64, unit string) string {
	absValue := math.Abs(value)
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		return fmt.Sprintf("%v %s", value, unit)
	case absValue >= 1e3:
		return fmt.Sprintf("%.3f k%s", value/1e3, unit)
	case absValue >= 1 || absValue == 0:
		return fmt.Sprintf("%.3f %s", value, unit)
	case absValue >= 1e-3:
		return fmt.Sprintf("%.3f m%s", value*1e3, unit)
	case absValue >= 1e-6:
		return fmt.Sprintf("%.3f u%s", value*1e6, unit)
	case absValue >= 1e-9:
		return fmt.Sprintf("%.3f n%s", value*1e9, unit)
	case absValue >= 1e-12:
		return fmt.Sprintf("%.3f p%s", value*1e12, unit)
	default:
		return fmt.Sprintf("%.3e %s", value, unit)
	}
}

func FormatFrequency(freq float64) string {
	switch {
	case freq >= 1e12:
		return fmt.Sprintf("%7.3f THz", freq/1e12)
	case freq >= 1e9:
		return fmt.Sprintf("%7.3f GHz", freq/1e9)
	case freq >= 1e6:
		return fmt.Sprintf("%7.3f MHz", freq/1e6)
	case freq >= 1e3:
		return fmt.Sprintf("%7.3f kHz", freq/1e3)
	default:
		return fmt.Sprintf("%7.3f Hz ", freq)
	}
}

// FormatPhasor prints a complex value as name=magnitude<phase.
func FormatPhasor(name string, value complex128) string {
	return FormatMagnitudePhase(name, cmplx.Abs(value), cmplx.Phase(value)*180/math.Pi)
}

func FormatMagnitudePhase(name string, value, phase float64) string {
	return fmt.Sprintf("%s=%s<%sdeg", name, FormatMagnitude(value), FormatPhase(phase))
}

func FormatMagnitude(value float64) string {
	if value >= 1000 || (value < 0.001 && value != 0) {
		return fmt.Sprintf("%8.2e", value) // "1.00e+03" or "5.43e-05"
	}
	return fmt.Sprintf("%8.3g", value) // "  732.5 "
}

func FormatPhase(value float64) string {
	return fmt.Sprintf("%6.1f", value) // "  90.0"
}

// FormatDecibels prints a power ratio in dB.
func FormatDecibels(ratio float64) string {
	if ratio <= 0 {
		return "   -inf dB"
	}
	return fmt.Sprintf("%7.2f dB", 10*math.Log10(ratio))
}

// FormatTemperature prints a noise temperature in K.
func FormatTemperature(t float64) string {
	if math.IsInf(t, 1) {
		return "     inf K"
	}
	return fmt.Sprintf("%8.2f K", t)
}
