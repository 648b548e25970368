package matrix

import (
	"fmt"
	"io"
	"math"

	"github.com/edp1096/sparse"
)

// CircuitMatrix is a 1-based sparse system A x = b, real or complex.
// Complex systems keep the real and imaginary parts of b and x in separate
// vectors.
type CircuitMatrix struct {
	Size         int
	matrix       *sparse.Matrix
	rhs          []float64
	rhsImag      []float64
	solution     []float64
	solutionImag []float64
	isComplex    bool
	config       *sparse.Configuration
	factored     bool
	err          error // first out-of-range stamp, reported by Factor
}

func NewMatrix(size int, isComplex bool) (*CircuitMatrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("matrix size must be positive, got %d", size)
	}

	config := &sparse.Configuration{
		Real:                    true,
		Complex:                 isComplex,
		SeparatedComplexVectors: true,
		Expandable:              true,
		Translate:               true,
		ModifiedNodal:           true,
		TiesMultiplier:          5,
		PrinterWidth:            140,
		Annotate:                0,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %w", err)
	}

	m := &CircuitMatrix{
		Size:      size,
		matrix:    mat,
		rhs:       make([]float64, size+1), // 1-based indexing
		solution:  make([]float64, size+1),
		isComplex: isComplex,
		config:    config,
	}
	if isComplex {
		m.rhsImag = make([]float64, size+1)
		m.solutionImag = make([]float64, size+1)
	}
	return m, nil
}

// IsComplex reports whether the matrix holds complex elements.
func (m *CircuitMatrix) IsComplex() bool { return m.isComplex }

func (m *CircuitMatrix) inRange(i int) bool { return i > 0 && i <= m.Size }

func (m *CircuitMatrix) outOfRange(what string, i, j int) {
	if m.err == nil {
		m.err = fmt.Errorf("%s index out of bounds (i=%d, j=%d, size=%d)", what, i, j, m.Size)
	}
}

func (m *CircuitMatrix) AddElement(i, j int, value float64) {
	if !m.inRange(i) || !m.inRange(j) {
		m.outOfRange("matrix", i, j)
		return
	}
	m.matrix.GetElement(int64(i), int64(j)).Real += value
}

func (m *CircuitMatrix) AddComplexElement(i, j int, real, imag float64) {
	if !m.inRange(i) || !m.inRange(j) {
		m.outOfRange("matrix", i, j)
		return
	}

	element := m.matrix.GetElement(int64(i), int64(j))
	element.Real += real
	if m.isComplex {
		element.Imag += imag
	}
}

func (m *CircuitMatrix) AddRHS(i int, value float64) {
	if !m.inRange(i) {
		m.outOfRange("rhs", i, 0)
		return
	}
	m.rhs[i] += value
}

func (m *CircuitMatrix) AddComplexRHS(i int, real, imag float64) {
	if !m.inRange(i) {
		m.outOfRange("rhs", i, 0)
		return
	}
	m.rhs[i] += real
	if m.isComplex {
		m.rhsImag[i] += imag
	}
}

// LoadGmin adds a small conductance from each of the first nodes rows to
// ground so that floating nodes do not leave the system singular. Branch rows
// that follow the node rows are left exact.
func (m *CircuitMatrix) LoadGmin(gmin float64, nodes int) {
	for i := 1; i <= min(nodes, m.Size); i++ {
		m.matrix.GetElement(int64(i), int64(i)).Real += gmin
	}
}

// Clear zeroes the matrix and right-hand side for restamping.
func (m *CircuitMatrix) Clear() {
	m.matrix.Clear()
	m.ClearRHS()
	m.factored = false
	m.err = nil
}

// ClearRHS zeroes only the right-hand side; an existing factorization is kept.
func (m *CircuitMatrix) ClearRHS() {
	clear(m.rhs)
	clear(m.rhsImag)
}

// Factor computes the LU factorization once; later Solve calls reuse it until
// the next Clear.
func (m *CircuitMatrix) Factor() error {
	if m.err != nil {
		return m.err
	}
	if m.factored {
		return nil
	}
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("matrix factorization failed: %w: %v", ErrSingular, err)
	}
	m.factored = true
	return nil
}

// Solve solves for the current right-hand side, factoring first if needed.
func (m *CircuitMatrix) Solve() error {
	if err := m.Factor(); err != nil {
		return err
	}

	var err error
	if m.isComplex {
		m.solution, m.solutionImag, err = m.matrix.SolveComplex(m.rhs, m.rhsImag)
	} else {
		m.solution, err = m.matrix.Solve(m.rhs)
	}
	if err != nil {
		return fmt.Errorf("matrix solve failed: %w: %v", ErrSingular, err)
	}

	for i := 1; i <= m.Size; i++ {
		if !finite(m.solution[i]) || (m.isComplex && !finite(m.solutionImag[i])) {
			return fmt.Errorf("matrix solve: %w: non-finite solution at row %d", ErrSingular, i)
		}
	}
	return nil
}

func (m *CircuitMatrix) Solution() []float64 {
	return m.solution
}

// ComplexSolution returns x[i]. Index 0 (ground) and out-of-range rows are zero.
func (m *CircuitMatrix) ComplexSolution(i int) complex128 {
	if !m.inRange(i) {
		return 0
	}
	if !m.isComplex {
		return complex(m.solution[i], 0)
	}
	return complex(m.solution[i], m.solutionImag[i])
}

// PrintSystem writes the stamped equations, one row per line.
func (m *CircuitMatrix) PrintSystem(w io.Writer) {
	fmt.Fprintf(w, "Circuit Equations (%dx%d):\n", m.Size, m.Size)

	for i := 1; i <= m.Size; i++ {
		fmt.Fprintf(w, "Equation %d:", i)
		for j := 1; j <= m.Size; j++ {
			element := m.matrix.GetElement(int64(i), int64(j))
			switch {
			case element.Real == 0 && element.Imag == 0:
			case !m.isComplex || element.Imag == 0:
				fmt.Fprintf(w, "  %+g*x%d", element.Real, j)
			default:
				fmt.Fprintf(w, "  (%g + j%g)*x%d", element.Real, element.Imag, j)
			}
		}
		if m.isComplex {
			fmt.Fprintf(w, " = %g + j%g\n", m.rhs[i], m.rhsImag[i])
		} else {
			fmt.Fprintf(w, " = %g\n", m.rhs[i])
		}
	}
}

func (m *CircuitMatrix) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
		m.matrix = nil
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
