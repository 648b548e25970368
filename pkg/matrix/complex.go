package matrix

import (
	"fmt"

	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
)

// stampComplex builds a factored complex CircuitMatrix from a. Row/column Lo of
// a maps to sparse index 1.
func stampComplex(a *numeric.Matrix[complex128]) (*CircuitMatrix, error) {
	n := a.Size()
	m, err := NewMatrix(n, true)
	if err != nil {
		return nil, err
	}
	for i := a.Lo; i <= a.Hi(); i++ {
		for j := a.Lo; j <= a.Hi(); j++ {
			if v := a.At(i, j); v != 0 {
				m.AddComplexElement(i-a.Lo+1, j-a.Lo+1, real(v), imag(v))
			}
		}
	}
	if err := m.Factor(); err != nil {
		m.Destroy()
		return nil, err
	}
	return m, nil
}

// SolveComplexDense solves a x = b for each right-hand side, sharing one
// factorization. Every b must cover the index range of a.
func SolveComplexDense(a *numeric.Matrix[complex128], rhs ...*numeric.Array[complex128]) ([]*numeric.Array[complex128], error) {
	for k, b := range rhs {
		if b.Lo != a.Lo || b.Hi() != a.Hi() {
			return nil, fmt.Errorf("rhs %d range [%d,%d] does not match matrix [%d,%d]", k, b.Lo, b.Hi(), a.Lo, a.Hi())
		}
	}
	m, err := stampComplex(a)
	if err != nil {
		return nil, err
	}
	defer m.Destroy()

	out := make([]*numeric.Array[complex128], len(rhs))
	for k, b := range rhs {
		m.ClearRHS()
		for i := a.Lo; i <= a.Hi(); i++ {
			v := b.At(i)
			m.AddComplexRHS(i-a.Lo+1, real(v), imag(v))
		}
		if err := m.Solve(); err != nil {
			return nil, err
		}
		x := numeric.NewArray[complex128](a.Lo, a.Hi())
		for i := a.Lo; i <= a.Hi(); i++ {
			x.Set(i, m.ComplexSolution(i-a.Lo+1))
		}
		out[k] = x
	}
	return out, nil
}

// InvertComplex returns the inverse of a over the same index range.
func InvertComplex(a *numeric.Matrix[complex128]) (*numeric.Matrix[complex128], error) {
	m, err := stampComplex(a)
	if err != nil {
		return nil, err
	}
	defer m.Destroy()

	inv := numeric.NewMatrix[complex128](a.Lo, a.Hi())
	for j := a.Lo; j <= a.Hi(); j++ {
		m.ClearRHS()
		m.AddComplexRHS(j-a.Lo+1, 1, 0)
		if err := m.Solve(); err != nil {
			return nil, err
		}
		for i := a.Lo; i <= a.Hi(); i++ {
			inv.Set(i, j, m.ComplexSolution(i-a.Lo+1))
		}
	}
	return inv, nil
}
