package newton

import (
	"errors"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

var quiet = log.New(io.Discard)

// circleLine has its positive root at x = y = sqrt(2).
func circleLine(x []float64) ([]float64, *mat.Dense, error) {
	f := []float64{x[0]*x[0] + x[1]*x[1] - 4, x[0] - x[1]}
	j := mat.NewDense(2, 2, []float64{
		2 * x[0], 2 * x[1],
		1, -1,
	})
	return f, j, nil
}

// noRoot is rank one everywhere and bounded away from zero.
func noRoot(x []float64) ([]float64, *mat.Dense, error) {
	r := x[0]*x[0] + x[1]*x[1] + 1
	f := []float64{r, 2 * r}
	j := mat.NewDense(2, 2, []float64{
		2 * x[0], 2 * x[1],
		4 * x[0], 4 * x[1],
	})
	return f, j, nil
}

func TestSolveCircleLine(t *testing.T) {
	solvers := map[string]matrix.LinearSolver{
		"dense":  matrix.DenseSolver{},
		"sparse": &matrix.SparseSolver{},
	}
	for name, ls := range solvers {
		t.Run(name, func(t *testing.T) {
			s := New(ProblemFunc(circleLine), WithLinearSolver(ls), WithLogger(quiet))
			res, err := s.Solve([]float64{3, 3})
			require.NoError(t, err)

			assert.Equal(t, Converged, res.Status)
			assert.False(t, res.NoSolution())
			assert.False(t, s.NoSolution())
			assert.InDelta(t, math.Sqrt2, res.X[0], 1e-9)
			assert.InDelta(t, math.Sqrt2, res.X[1], 1e-9)
			assert.Equal(t, res.X, s.X())
			assert.Positive(t, res.Iterations)
		})
	}
}

func TestSolveStartingAtRoot(t *testing.T) {
	s := New(ProblemFunc(circleLine), WithLogger(quiet))
	res, err := s.Solve([]float64{math.Sqrt2, math.Sqrt2})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.Equal(t, 0, res.Iterations)
}

func TestSolveNoRootReportsFailure(t *testing.T) {
	s := New(ProblemFunc(noRoot), WithSeed(7), WithLogger(quiet))
	res, err := s.Solve([]float64{2, -1})
	require.NoError(t, err)

	assert.True(t, res.NoSolution())
	assert.True(t, s.NoSolution())
	assert.NotEqual(t, Converged, res.Status)
	for _, x := range res.X {
		assert.False(t, math.IsNaN(x))
	}
}

func TestSolveIsDeterministicForSeed(t *testing.T) {
	run := func() Result {
		s := New(ProblemFunc(noRoot), WithRand(rand.New(rand.NewSource(42))), WithLogger(quiet))
		res, err := s.Solve([]float64{0.5, 0.25})
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestSolveIterationLimit(t *testing.T) {
	steep := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{math.Pow(x[0], 10) - 1}, mat.NewDense(1, 1, []float64{10 * math.Pow(x[0], 9)}), nil
	}
	s := New(ProblemFunc(steep), WithOptions(Options{MaxIter: 2}), WithLogger(quiet))
	res, err := s.Solve([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, 2, res.Iterations)

	s = New(ProblemFunc(steep), WithLogger(quiet))
	res, err = s.Solve([]float64{3})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.Status)
	assert.InDelta(t, 1, res.X[0], 1e-9)
}

func TestSolveDimensionMismatch(t *testing.T) {
	bad := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{1, 2, 3}, mat.NewDense(3, 2, nil), nil
	}
	s := New(ProblemFunc(bad), WithLogger(quiet))
	res, err := s.Solve([]float64{1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.True(t, res.NoSolution())

	badJac := func(x []float64) ([]float64, *mat.Dense, error) {
		return []float64{1, 2}, mat.NewDense(2, 3, nil), nil
	}
	_, err = New(ProblemFunc(badJac), WithLogger(quiet)).Solve([]float64{1, 1})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = New(ProblemFunc(circleLine), WithLogger(quiet)).Solve(nil)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSolveEvaluationError(t *testing.T) {
	boom := errors.New("boom")
	s := New(ProblemFunc(func([]float64) ([]float64, *mat.Dense, error) { return nil, nil, boom }), WithLogger(quiet))
	_, err := s.Solve([]float64{1})
	assert.ErrorIs(t, err, boom)
}

func TestWithOptionsKeepsDefaults(t *testing.T) {
	s := New(ProblemFunc(circleLine), WithOptions(Options{FTol: 1e-6}))
	o := s.Options()
	assert.Equal(t, 1e-6, o.FTol)
	assert.Equal(t, 100, o.MaxIter)
	assert.Equal(t, 1e-10, o.DxTol)
	assert.Equal(t, 1e-4, o.RateFactor)
	assert.Equal(t, 1e-6, o.GradTol)
	assert.Zero(t, o.MaxStep)

	assert.Panics(t, func() { WithRand(nil) })
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "converged", Converged.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "local minimum", LocalMinimum.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
