package matrix

import (
	"bytes"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
)

func TestVoltageDivider(t *testing.T) {
	const (
		r1, r2 = 1000.0, 2000.0
		vin    = 5.0
	)
	m, err := NewMatrix(2, false)
	require.NoError(t, err)
	defer m.Destroy()

	// Norton source vin/r1 into node 1
	m.AddElement(1, 1, 1/r1)
	m.AddElement(1, 2, -1/r1)
	m.AddElement(2, 1, -1/r1)
	m.AddElement(2, 2, 1/r1+1/r2)
	m.AddRHS(1, vin/(r1+r2))

	require.NoError(t, m.Solve())
	assert.InDelta(t, vin*r2/(r1+r2), m.Solution()[2], 1e-9)
	assert.Equal(t, complex(m.Solution()[2], 0), m.ComplexSolution(2))
	assert.Equal(t, complex128(0), m.ComplexSolution(0))
}

func TestComplexSystemReusesFactorization(t *testing.T) {
	m, err := NewMatrix(2, true)
	require.NoError(t, err)
	defer m.Destroy()

	// [1+i  2 ] x = b
	// [ 0  3-i]
	m.AddComplexElement(1, 1, 1, 1)
	m.AddComplexElement(1, 2, 2, 0)
	m.AddComplexElement(2, 2, 3, -1)

	for _, b := range [][2]complex128{{1, 0}, {2i, 1 + 1i}} {
		m.ClearRHS()
		m.AddComplexRHS(1, real(b[0]), imag(b[0]))
		m.AddComplexRHS(2, real(b[1]), imag(b[1]))
		require.NoError(t, m.Solve())

		x1, x2 := m.ComplexSolution(1), m.ComplexSolution(2)
		assert.InDelta(t, 0, cmplx.Abs((1+1i)*x1+2*x2-b[0]), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs((3-1i)*x2-b[1]), 1e-12)
	}
}

func TestOutOfRangeStampIsReported(t *testing.T) {
	m, err := NewMatrix(2, false)
	require.NoError(t, err)
	defer m.Destroy()

	m.AddElement(1, 1, 1)
	m.AddElement(2, 2, 1)
	m.AddElement(3, 1, 1)
	assert.Error(t, m.Solve())

	m.Clear()
	m.AddElement(1, 1, 1)
	m.AddElement(2, 2, 1)
	assert.NoError(t, m.Solve())

	var buf bytes.Buffer
	m.PrintSystem(&buf)
	assert.Contains(t, buf.String(), "Equation 2:")
}

func TestNewMatrixRejectsEmpty(t *testing.T) {
	_, err := NewMatrix(0, false)
	assert.Error(t, err)
}

func TestLinearSolvers(t *testing.T) {
	a := mat.NewDense(3, 3, []float64{
		4, 1, 0,
		1, 3, -1,
		0, -1, 2,
	})
	b := []float64{1, 2, 3}

	solvers := map[string]LinearSolver{
		"dense":  DenseSolver{},
		"sparse": &SparseSolver{},
	}
	for name, s := range solvers {
		t.Run(name, func(t *testing.T) {
			x, err := s.Solve(a, b)
			require.NoError(t, err)

			var ax mat.VecDense
			ax.MulVec(a, mat.NewVecDense(3, x))
			for i := range b {
				assert.InDelta(t, b[i], ax.AtVec(i), 1e-12)
			}
			// solving twice reuses state without leaking the first system
			x2, err := s.Solve(a, b)
			require.NoError(t, err)
			assert.InDeltaSlice(t, x, x2, 1e-15)
		})
	}
}

func TestLinearSolversSingular(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 2, 2, 4})
	for name, s := range map[string]LinearSolver{"dense": DenseSolver{}, "sparse": &SparseSolver{}} {
		t.Run(name, func(t *testing.T) {
			_, err := s.Solve(a, []float64{1, 1})
			assert.ErrorIs(t, err, ErrSingular)
		})
	}
}

func TestLinearSolversShape(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{1, 0, 0, 1})
	_, err := DenseSolver{}.Solve(a, []float64{1})
	assert.Error(t, err)
	_, err = (&SparseSolver{}).Solve(a, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestInvertComplexSymmetricRange(t *testing.T) {
	a := numeric.NewSymmetricMatrix[complex128](1)
	vals := [][]complex128{
		{2 + 1i, 0.5, 0},
		{0.1i, 3, -1},
		{0, 1 - 1i, 4 + 2i},
	}
	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			a.Set(i, j, vals[i+1][j+1])
		}
	}

	inv, err := InvertComplex(a)
	require.NoError(t, err)
	require.Equal(t, -1, inv.Lo)

	for i := -1; i <= 1; i++ {
		for j := -1; j <= 1; j++ {
			var s complex128
			for k := -1; k <= 1; k++ {
				s += a.At(i, k) * inv.At(k, j)
			}
			want := complex128(0)
			if i == j {
				want = 1
			}
			assert.InDeltaf(t, 0, cmplx.Abs(s-want), 1e-12, "(A A^-1)[%d,%d]", i, j)
		}
	}
}

func TestSolveComplexDense(t *testing.T) {
	a := numeric.NewSymmetricMatrix[complex128](1)
	a.Set(-1, -1, 2)
	a.Set(0, 0, 1i)
	a.Set(1, 1, 4)
	a.Set(-1, 1, 1)

	b1 := numeric.NewSymmetric[complex128](1)
	b1.Set(-1, 3)
	b1.Set(0, 1)
	b1.Set(1, 4)
	b2 := numeric.NewSymmetric[complex128](1)
	b2.Set(0, 2i)

	xs, err := SolveComplexDense(a, b1, b2)
	require.NoError(t, err)
	require.Len(t, xs, 2)

	assert.InDelta(t, 1, real(xs[0].At(1)), 1e-12)
	assert.InDelta(t, 1, real(xs[0].At(-1)), 1e-12)
	assert.InDelta(t, 0, cmplx.Abs(xs[0].At(0)-(-1i)), 1e-12)
	assert.InDelta(t, 2, real(xs[1].At(0)), 1e-12)

	_, err = SolveComplexDense(a, numeric.NewSymmetric[complex128](2))
	assert.Error(t, err)
}

func TestRestampAfterSolve(t *testing.T) {
	m, err := NewMatrix(2, true)
	require.NoError(t, err)
	defer m.Destroy()

	for _, g := range []float64{1, 4, 0.5} {
		m.Clear()
		m.AddComplexElement(1, 1, g, g)
		m.AddComplexElement(1, 2, -1, 0)
		m.AddComplexElement(2, 1, -1, 0)
		m.AddComplexElement(2, 2, 2, 0)
		m.AddComplexRHS(1, 1, 0)
		require.NoError(t, m.Solve())

		x1, x2 := m.ComplexSolution(1), m.ComplexSolution(2)
		assert.InDelta(t, 0, cmplx.Abs(complex(g, g)*x1-x2-1), 1e-12)
		assert.InDelta(t, 0, cmplx.Abs(2*x2-x1), 1e-12)
	}
}

func TestSparseSolverChangingSystems(t *testing.T) {
	s := &SparseSolver{}
	defer s.Close()

	for _, d := range []float64{2, 5, 9} {
		a := mat.NewDense(2, 2, []float64{d, 1, 1, 3})
		b := []float64{1, 2}
		x, err := s.Solve(a, b)
		require.NoError(t, err)

		var ax mat.VecDense
		ax.MulVec(a, mat.NewVecDense(2, x))
		assert.InDeltaSlice(t, b, ax.RawVector().Data, 1e-12)
	}
}
