package device

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct{ i, j int }

// recorder collects stamps without a solver behind them.
type recorder struct {
	a   map[entry]complex128
	rhs map[int]complex128
}

func newRecorder() *recorder {
	return &recorder{a: map[entry]complex128{}, rhs: map[int]complex128{}}
}

func (r *recorder) AddElement(i, j int, value float64) { r.a[entry{i, j}] += complex(value, 0) }
func (r *recorder) AddRHS(i int, value float64)        { r.rhs[i] += complex(value, 0) }
func (r *recorder) AddComplexElement(i, j int, re, im float64) {
	r.a[entry{i, j}] += complex(re, im)
}
func (r *recorder) AddComplexRHS(i int, re, im float64) { r.rhs[i] += complex(re, im) }

func TestResistorStamp(t *testing.T) {
	r := NewResistor("R1", []string{"a", "b"}, 50)
	r.SetNodes([]int{1, 2})
	m := newRecorder()
	require.NoError(t, r.Stamp(m, &CircuitStatus{}))

	assert.Equal(t, complex(0.02, 0), m.a[entry{1, 1}])
	assert.Equal(t, complex(-0.02, 0), m.a[entry{1, 2}])
	assert.Equal(t, complex(-0.02, 0), m.a[entry{2, 1}])
	assert.Equal(t, complex(0.02, 0), m.a[entry{2, 2}])

	t.Run("grounded", func(t *testing.T) {
		r.SetNodes([]int{1, 0})
		m := newRecorder()
		require.NoError(t, r.Stamp(m, &CircuitStatus{}))
		assert.Len(t, m.a, 1)
	})

	t.Run("temperature", func(t *testing.T) {
		r.Tc1 = 0.01
		m := newRecorder()
		require.NoError(t, r.Stamp(m, &CircuitStatus{Temp: r.Tnom + 10}))
		assert.InDelta(t, 1/55.0, real(m.a[entry{1, 1}]), 1e-12)
		r.Tc1 = 0
	})

	t.Run("zero", func(t *testing.T) {
		z := NewResistor("R0", []string{"a", "0"}, 0)
		z.SetNodes([]int{1, 0})
		assert.Error(t, z.Stamp(newRecorder(), &CircuitStatus{}))
	})
}

func TestCapacitorStamp(t *testing.T) {
	c := NewCapacitor("C1", []string{"a", "0"}, 1e-12)
	c.SetNodes([]int{1, 0})

	m := newRecorder()
	require.NoError(t, c.Stamp(m, &CircuitStatus{Frequency: 1e9}))
	assert.InDelta(t, 2*math.Pi*1e9*1e-12, imag(m.a[entry{1, 1}]), 1e-15)

	m = newRecorder()
	require.NoError(t, c.Stamp(m, &CircuitStatus{}))
	assert.Zero(t, m.a[entry{1, 1}])
}

func TestInductorStamp(t *testing.T) {
	l := NewInductor("L1", []string{"a", "b"}, 1e-9)
	l.SetNodes([]int{1, 2})
	assert.Error(t, l.Stamp(newRecorder(), &CircuitStatus{}))

	l.SetBranchIndex(3)
	m := newRecorder()
	require.NoError(t, l.Stamp(m, &CircuitStatus{Frequency: 1e9}))
	assert.Equal(t, complex(1, 0), m.a[entry{1, 3}])
	assert.Equal(t, complex(-1, 0), m.a[entry{2, 3}])
	assert.Equal(t, complex(1, 0), m.a[entry{3, 1}])
	assert.Equal(t, complex(-1, 0), m.a[entry{3, 2}])
	assert.InDelta(t, -2*math.Pi, imag(m.a[entry{3, 3}]), 1e-12)
}

func TestVoltageSourceHarmonics(t *testing.T) {
	v := NewVoltageSource("VLO", []string{"a", "0"}, 2e-3, []Harmonic{
		{K: 1, Mag: 1e-3, Phase: 90},
		{K: 3, Mag: 0, Phase: 0},
	})
	v.SetNodes([]int{1, 0})
	v.SetBranchIndex(2)

	assert.Equal(t, complex(2e-3, 0), v.Phasor(0))
	assert.InDelta(t, 1e-3, imag(v.Phasor(1)), 1e-15)
	assert.InDelta(t, -1e-3, imag(v.Phasor(-1)), 1e-15)
	assert.Zero(t, v.Phasor(2))
	assert.Equal(t, []int{1}, v.Harmonics())

	tests := []struct {
		name   string
		status CircuitStatus
		want   complex128
	}{
		{"dc", CircuitStatus{}, 2e-3},
		{"first", CircuitStatus{Frequency: 1e9, Harmonic: 1}, cmplx.Rect(1e-3, math.Pi/2)},
		{"zeroed", CircuitStatus{Harmonic: 1, ZeroSources: true}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newRecorder()
			require.NoError(t, v.Stamp(m, &tt.status))
			assert.InDelta(t, real(tt.want), real(m.rhs[2]), 1e-15)
			assert.InDelta(t, imag(tt.want), imag(m.rhs[2]), 1e-15)
			assert.Equal(t, complex(1, 0), m.a[entry{1, 2}])
		})
	}

	v.SetValue(5e-3)
	assert.Equal(t, 5e-3, v.GetValue())
	assert.Equal(t, complex(5e-3, 0), v.Phasor(0))
}

func TestCurrentSourceDirection(t *testing.T) {
	i := NewDCCurrentSource("I1", []string{"a", "b"}, 1e-6)
	i.SetNodes([]int{1, 2})
	m := newRecorder()
	require.NoError(t, i.Stamp(m, &CircuitStatus{}))
	assert.Equal(t, complex(-1e-6, 0), m.rhs[1])
	assert.Equal(t, complex(1e-6, 0), m.rhs[2])
}

func TestDCVoltageSourceIgnoresHarmonics(t *testing.T) {
	v := NewDCVoltageSource("VB", []string{"1", "0"}, 2e-3)
	v.SetNodes([]int{1, 0})
	v.SetBranchIndex(2)
	assert.Empty(t, v.Harmonics())

	m := newRecorder()
	require.NoError(t, v.Stamp(m, &CircuitStatus{Frequency: 1e9, Harmonic: 1}))
	assert.Zero(t, m.rhs[2])
}
