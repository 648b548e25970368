package matrix

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrSingular = errors.New("singular matrix")

// LinearSolver solves the square real system a x = b.
type LinearSolver interface {
	Solve(a *mat.Dense, b []float64) ([]float64, error)
}

// DenseSolver solves with a dense LU factorization.
type DenseSolver struct {
	// CondLimit rejects systems whose estimated condition number exceeds it.
	// Zero means mat.ConditionTolerance.
	CondLimit float64
}

func (s DenseSolver) Solve(a *mat.Dense, b []float64) ([]float64, error) {
	n, c := a.Dims()
	if n != c || n != len(b) {
		return nil, fmt.Errorf("dense solve: shape %dx%d with rhs %d", n, c, len(b))
	}

	limit := s.CondLimit
	if limit <= 0 {
		limit = mat.ConditionTolerance
	}

	var lu mat.LU
	lu.Factorize(a)
	if cond := lu.Cond(); !(cond <= limit) {
		return nil, fmt.Errorf("dense solve: %w (condition %g)", ErrSingular, cond)
	}

	x := mat.NewVecDense(n, nil)
	if err := lu.SolveVecTo(x, false, mat.NewVecDense(n, append([]float64(nil), b...))); err != nil {
		return nil, fmt.Errorf("dense solve: %w: %v", ErrSingular, err)
	}
	out := x.RawVector().Data
	for _, v := range out {
		if !finite(v) {
			return nil, fmt.Errorf("dense solve: %w: non-finite solution", ErrSingular)
		}
	}
	return out, nil
}

// SparseSolver stamps the nonzeros of a into a real CircuitMatrix and solves
// it with sparse LU. The matrix is kept between calls of the same size.
type SparseSolver struct {
	m *CircuitMatrix
}

func (s *SparseSolver) Solve(a *mat.Dense, b []float64) ([]float64, error) {
	n, c := a.Dims()
	if n != c || n != len(b) {
		return nil, fmt.Errorf("sparse solve: shape %dx%d with rhs %d", n, c, len(b))
	}

	if s.m == nil || s.m.Size != n {
		s.Close()
		m, err := NewMatrix(n, false)
		if err != nil {
			return nil, err
		}
		s.m = m
	}
	s.m.Clear()

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := a.At(i, j); v != 0 {
				s.m.AddElement(i+1, j+1, v)
			}
		}
		s.m.AddRHS(i+1, b[i])
	}

	if err := s.m.Solve(); err != nil {
		return nil, fmt.Errorf("sparse solve: %w", err)
	}
	out := make([]float64, n)
	copy(out, s.m.Solution()[1:n+1])
	return out, nil
}

// Close releases the underlying sparse matrix.
func (s *SparseSolver) Close() {
	if s.m != nil {
		s.m.Destroy()
		s.m = nil
	}
}
