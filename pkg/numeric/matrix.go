package numeric

import (
	"fmt"
	"strings"
)

// Matrix is a dense square matrix whose rows and columns share the index range
// [Lo, Lo+n-1]. Storage is row-major.
type Matrix[T Number] struct {
	Lo   int
	n    int
	data []T
}

// NewMatrix returns a zeroed square matrix over [lo, hi] x [lo, hi].
func NewMatrix[T Number](lo, hi int) *Matrix[T] {
	n := hi - lo + 1
	if n < 0 {
		n = 0
	}
	return &Matrix[T]{Lo: lo, n: n, data: make([]T, n*n)}
}

// NewSymmetricMatrix returns a zeroed matrix over [-k, k] x [-k, k].
func NewSymmetricMatrix[T Number](k int) *Matrix[T] {
	return NewMatrix[T](-k, k)
}

// Size returns the number of rows (and columns).
func (m *Matrix[T]) Size() int { return m.n }

// Hi returns the last valid row/column index.
func (m *Matrix[T]) Hi() int { return m.Lo + m.n - 1 }

// InRange reports whether i is a valid row/column index.
func (m *Matrix[T]) InRange(i int) bool { return i >= m.Lo && i <= m.Hi() }

func (m *Matrix[T]) offset(i, j int) int {
	if !m.InRange(i) || !m.InRange(j) {
		panic(fmt.Sprintf("numeric: index (%d, %d) out of range [%d, %d]", i, j, m.Lo, m.Hi()))
	}
	return (i-m.Lo)*m.n + (j - m.Lo)
}

// At returns element (i, j).
func (m *Matrix[T]) At(i, j int) T { return m.data[m.offset(i, j)] }

// Set stores v at (i, j).
func (m *Matrix[T]) Set(i, j int, v T) { m.data[m.offset(i, j)] = v }

// Add accumulates v into (i, j).
func (m *Matrix[T]) Add(i, j int, v T) { m.data[m.offset(i, j)] += v }

// Zero sets every element to zero.
func (m *Matrix[T]) Zero() { clear(m.data) }

// Scale multiplies every element by s.
func (m *Matrix[T]) Scale(s T) {
	for i := range m.data {
		m.data[i] *= s
	}
}

// AddMatrix adds b element-wise. Both matrices must share the same range.
func (m *Matrix[T]) AddMatrix(b *Matrix[T]) error {
	if m.Lo != b.Lo || m.n != b.n {
		return fmt.Errorf("numeric: range mismatch [%d, %d] vs [%d, %d]", m.Lo, m.Hi(), b.Lo, b.Hi())
	}
	for i := range m.data {
		m.data[i] += b.data[i]
	}
	return nil
}

// MulArray returns m*x over the intersection of m's range with x's range.
func (m *Matrix[T]) MulArray(x *Array[T]) *Array[T] {
	out := NewArray[T](m.Lo, m.Hi())
	for i := m.Lo; i <= m.Hi(); i++ {
		var sum T
		for j := max(m.Lo, x.Lo); j <= min(m.Hi(), x.Hi()); j++ {
			sum += m.At(i, j) * x.At(j)
		}
		out.Set(i, sum)
	}
	return out
}

// Clone returns a deep copy.
func (m *Matrix[T]) Clone() *Matrix[T] {
	out := &Matrix[T]{Lo: m.Lo, n: m.n, data: make([]T, len(m.data))}
	copy(out.data, m.data)
	return out
}

func (m *Matrix[T]) String() string {
	var sb strings.Builder
	for i := m.Lo; i <= m.Hi(); i++ {
		fmt.Fprintf(&sb, "%4d:", i)
		for j := m.Lo; j <= m.Hi(); j++ {
			fmt.Fprintf(&sb, " %v", m.At(i, j))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
