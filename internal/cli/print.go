package cli

import (
	"fmt"
	"io"
	"math"

	"github.com/PaulKGrimes/supermix-sub001/pkg/analysis"
	"github.com/PaulKGrimes/supermix-sub001/pkg/util"
)

func printBalance(w io.Writer, b *analysis.Balance) {
	fmt.Fprintf(w, "\nHarmonic Balance (LO %s, %d harmonics): %s\n",
		util.FormatFrequency(b.LOFreq), b.Harmonics, b.Result().Status)
	fmt.Fprintln(w, "Harmonic  Frequency      Junction Voltage          Junction Current")
	fmt.Fprintln(w, "---------------------------------------------------------------------")
	v, i := b.V(), b.I()
	for m := range v {
		fmt.Fprintf(w, "%-8d  %-13s  %s  %s\n", m,
			util.FormatFrequency(float64(m)*b.LOFreq),
			util.FormatPhasor("V", v[m]),
			util.FormatPhasor("I", i[m]))
	}
}

func printIFSweep(w io.Writer, points []analysis.Point) {
	fmt.Fprintf(w, "\nIF Analysis Results (%d frequency points):\n", len(points))
	fmt.Fprintln(w, "IF            Gain USB     Gain LSB     T SSB        T DSB        Zout")
	fmt.Fprintln(w, "-----------------------------------------------------------------------------")
	for _, p := range points {
		fmt.Fprintf(w, "%-13s %s   %s   %s   %s   %s ohm\n",
			util.FormatFrequency(p.IF),
			util.FormatDecibels(p.GainUSB),
			util.FormatDecibels(p.GainLSB),
			util.FormatTemperature(p.TSSB),
			util.FormatTemperature(p.TDSB),
			util.FormatPhasor("Z", p.ZOut))
	}
}

func printBiasSweep(w io.Writer, source string, results map[string][]float64) {
	sweep := results["SWEEP1"]
	fmt.Fprintf(w, "\nBias Sweep of %s (%d points):\n", source, len(sweep))
	fmt.Fprintln(w, "Source       V0           I0           |V1|         Gain USB     T SSB")
	fmt.Fprintln(w, "-----------------------------------------------------------------------------")
	_, withIF := results["GAIN_USB"]
	for i, val := range sweep {
		fmt.Fprintf(w, "%-12s %-12s %-12s %-12s",
			util.FormatValueFactor(val, "V"),
			util.FormatValueFactor(results["V0"][i], "V"),
			util.FormatValueFactor(results["I0"][i], "A"),
			util.FormatValueFactor(at(results["V1_MAG"], i), "V"))
		if withIF {
			fmt.Fprintf(w, " %s   %s",
				util.FormatDecibels(results["GAIN_USB"][i]),
				util.FormatTemperature(results["TSSB"][i]))
		}
		if results["CONVERGED"][i] == 0 {
			fmt.Fprint(w, "  (no solution)")
		}
		fmt.Fprintln(w)
	}
}

func at(x []float64, i int) float64 {
	if i < len(x) {
		return x[i]
	}
	return math.NaN()
}
