package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymmetricArrayIndexing(t *testing.T) {
	a := NewSymmetric[complex128](3)
	require.Equal(t, -3, a.Lo)
	require.Equal(t, 3, a.Hi())
	require.Equal(t, 7, a.Len())

	a.Set(-3, 1i)
	a.Set(3, 2)
	a.Add(3, 1)

	assert.Equal(t, 1i, a.At(-3))
	assert.Equal(t, complex(3, 0), a.At(3))
	assert.Equal(t, complex128(0), a.Get(10), "out of range reads are zero")
	assert.Panics(t, func() { a.At(4) })
}

func TestArrayResizeKeepsOverlap(t *testing.T) {
	a := NewArray[float64](0, 4)
	for i := 0; i <= 4; i++ {
		a.Set(i, float64(i+1))
	}

	a.Resize(-2, 2)
	assert.Equal(t, -2, a.Lo)
	assert.Equal(t, []float64{0, 0, 1, 2, 3}, a.Slice())

	a.Resize(-2, 4)
	assert.Equal(t, []float64{0, 0, 1, 2, 3, 0, 0}, a.Slice())
}

func TestArrayArithmetic(t *testing.T) {
	a := NewArray[float64](1, 3)
	b := NewArray[float64](1, 3)
	for i := 1; i <= 3; i++ {
		a.Set(i, float64(i))
		b.Set(i, float64(2*i))
	}

	assert.Equal(t, 28.0, a.Dot(b))
	assert.Equal(t, 14.0, Norm(a))

	a.AddArray(b)
	assert.Equal(t, []float64{3, 6, 9}, a.Slice())
	a.SubArray(b)
	a.Scale(-1)
	assert.Equal(t, []float64{-1, -2, -3}, a.Slice())
}

func TestAbs2(t *testing.T) {
	assert.Equal(t, 25.0, Abs2(complex(3, 4)))
	assert.Equal(t, 4.0, Abs2(-2.0))
}

func TestMatrixSymmetricRange(t *testing.T) {
	m := NewSymmetricMatrix[complex128](1)
	require.Equal(t, 3, m.Size())

	m.Set(-1, -1, 1)
	m.Set(0, 0, 2)
	m.Set(1, 1, 3)
	m.Add(1, -1, 1i)

	x := NewSymmetric[complex128](1)
	x.Fill(1)
	y := m.MulArray(x)
	assert.Equal(t, complex128(1), y.At(-1))
	assert.Equal(t, complex128(2), y.At(0))
	assert.Equal(t, complex(3, 1), y.At(1))

	other := NewMatrix[complex128](0, 2)
	assert.Error(t, m.AddMatrix(other))
}

func TestArrayReshapeZeroes(t *testing.T) {
	a := NewSymmetric[complex128](2)
	a.Fill(1)

	a.Reshape(-1, 1)
	assert.Equal(t, -1, a.Lo)
	assert.Equal(t, []complex128{0, 0, 0}, a.Slice())

	a.Reshape(-10, 10)
	assert.Equal(t, 21, a.Len())
	assert.Equal(t, complex128(0), a.At(10))
}
