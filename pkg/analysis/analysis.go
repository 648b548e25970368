// Package analysis drives a junction embedded in a linear circuit: harmonic
// balance for the pumped operating point, small-signal conversion gain and
// noise over an IF sweep, and DC bias sweeps of the pumped state.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"

	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
)

type Analysis interface {
	Setup(emb *circuit.Embedding) error
	Execute() error
	GetResults() map[string][]float64
}

type BaseAnalysis struct {
	Embedding *circuit.Embedding
	Logger    *log.Logger
	results   map[string][]float64 // key: variable name, value: result per sweep point
}

func NewBaseAnalysis() *BaseAnalysis {
	return &BaseAnalysis{
		Logger:  log.Default(),
		results: make(map[string][]float64),
	}
}

func (a *BaseAnalysis) log() *log.Logger {
	if a.Logger == nil {
		return log.Default()
	}
	return a.Logger
}

// StoreResult appends one sweep point under key and the named values beside it.
func (a *BaseAnalysis) StoreResult(key string, sweep float64, solution map[string]float64) {
	a.results[key] = append(a.results[key], sweep)
	for name, value := range solution {
		a.results[name] = append(a.results[name], value)
	}
}

// StoreComplexResult stores magnitude and phase (degrees) of each value as
// NAME_MAG and NAME_PHASE.
func (a *BaseAnalysis) StoreComplexResult(key string, sweep float64, solution map[string]complex128) {
	a.results[key] = append(a.results[key], sweep)
	for name, value := range solution {
		a.results[name+"_MAG"] = append(a.results[name+"_MAG"], cmplx.Abs(value))
		a.results[name+"_PHASE"] = append(a.results[name+"_PHASE"], cmplx.Phase(value)*180.0/math.Pi)
	}
}

func (a *BaseAnalysis) ResetResults() {
	clear(a.results)
}

func (a *BaseAnalysis) GetResults() map[string][]float64 {
	return a.results
}
