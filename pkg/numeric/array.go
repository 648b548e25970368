// Package numeric provides dense vectors and square matrices indexed over an
// arbitrary contiguous integer range [Lo, Hi].
//
// Harmonic quantities (convolution coefficients, sideband admittance and noise
// matrices) use the symmetric range [-k, k]; everything else uses plain slices.
package numeric

import (
	"fmt"
	"strings"
)

// Number is the element constraint for the containers.
type Number interface {
	float64 | complex128
}

// Array is a dense vector over the index range [Lo, Lo+len-1].
type Array[T Number] struct {
	Lo   int
	data []T
}

// NewArray returns a zeroed array over [lo, hi]. An empty range (hi < lo) is allowed.
func NewArray[T Number](lo, hi int) *Array[T] {
	n := hi - lo + 1
	if n < 0 {
		n = 0
	}
	return &Array[T]{Lo: lo, data: make([]T, n)}
}

// NewSymmetric returns a zeroed array over [-k, k].
func NewSymmetric[T Number](k int) *Array[T] {
	return NewArray[T](-k, k)
}

// Hi returns the last valid index.
func (a *Array[T]) Hi() int { return a.Lo + len(a.data) - 1 }

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// InRange reports whether i is a valid index.
func (a *Array[T]) InRange(i int) bool { return i >= a.Lo && i <= a.Hi() }

// At returns element i. It panics when i is out of range.
func (a *Array[T]) At(i int) T {
	if !a.InRange(i) {
		panic(fmt.Sprintf("numeric: index %d out of range [%d, %d]", i, a.Lo, a.Hi()))
	}
	return a.data[i-a.Lo]
}

// Get returns element i, or zero when i is outside the valid range.
func (a *Array[T]) Get(i int) T {
	if !a.InRange(i) {
		var zero T
		return zero
	}
	return a.data[i-a.Lo]
}

// Set stores v at index i.
func (a *Array[T]) Set(i int, v T) {
	if !a.InRange(i) {
		panic(fmt.Sprintf("numeric: index %d out of range [%d, %d]", i, a.Lo, a.Hi()))
	}
	a.data[i-a.Lo] = v
}

// Add accumulates v into index i.
func (a *Array[T]) Add(i int, v T) {
	if !a.InRange(i) {
		panic(fmt.Sprintf("numeric: index %d out of range [%d, %d]", i, a.Lo, a.Hi()))
	}
	a.data[i-a.Lo] += v
}

// Resize changes the index range to [lo, hi], keeping values in the overlap and
// zeroing the rest. Storage is reused when its capacity suffices.
func (a *Array[T]) Resize(lo, hi int) {
	n := hi - lo + 1
	if n < 0 {
		n = 0
	}
	var next []T
	if cap(a.data) >= n && lo == a.Lo {
		next = a.data[:n]
		for i := len(a.data); i < n; i++ {
			next[i] = 0
		}
	} else {
		next = make([]T, n)
		for i := max(lo, a.Lo); i <= min(hi, a.Hi()); i++ {
			next[i-lo] = a.data[i-a.Lo]
		}
	}
	a.Lo = lo
	a.data = next
}

// Reshape changes the index range to [lo, hi] and zeroes every element.
// Existing storage is reused when large enough; otherwise it is grown with slack
// so repeated reshaping of scratch buffers does not reallocate on every call.
func (a *Array[T]) Reshape(lo, hi int) {
	n := hi - lo + 1
	if n < 0 {
		n = 0
	}
	if cap(a.data) < n {
		a.data = make([]T, n, n+n/2)
	} else {
		a.data = a.data[:n]
		clear(a.data)
	}
	a.Lo = lo
}

// Zero sets every element to zero.
func (a *Array[T]) Zero() {
	clear(a.data)
}

// Fill sets every element to v.
func (a *Array[T]) Fill(v T) {
	for i := range a.data {
		a.data[i] = v
	}
}

// Scale multiplies every element by s.
func (a *Array[T]) Scale(s T) {
	for i := range a.data {
		a.data[i] *= s
	}
}

// AddArray adds b element-wise over the intersection of both ranges.
func (a *Array[T]) AddArray(b *Array[T]) {
	for i := max(a.Lo, b.Lo); i <= min(a.Hi(), b.Hi()); i++ {
		a.data[i-a.Lo] += b.data[i-b.Lo]
	}
}

// SubArray subtracts b element-wise over the intersection of both ranges.
func (a *Array[T]) SubArray(b *Array[T]) {
	for i := max(a.Lo, b.Lo); i <= min(a.Hi(), b.Hi()); i++ {
		a.data[i-a.Lo] -= b.data[i-b.Lo]
	}
}

// Dot returns sum(a[i]*b[i]) over the intersection of both ranges.
func (a *Array[T]) Dot(b *Array[T]) T {
	var sum T
	for i := max(a.Lo, b.Lo); i <= min(a.Hi(), b.Hi()); i++ {
		sum += a.data[i-a.Lo] * b.data[i-b.Lo]
	}
	return sum
}

// Clone returns a deep copy.
func (a *Array[T]) Clone() *Array[T] {
	out := &Array[T]{Lo: a.Lo, data: make([]T, len(a.data))}
	copy(out.data, a.data)
	return out
}

// CopyFrom makes a an exact copy of b, reusing storage when possible.
func (a *Array[T]) CopyFrom(b *Array[T]) {
	if cap(a.data) >= len(b.data) {
		a.data = a.data[:len(b.data)]
	} else {
		a.data = make([]T, len(b.data))
	}
	a.Lo = b.Lo
	copy(a.data, b.data)
}

// Slice returns the backing storage in index order. Element i is at position i-Lo.
func (a *Array[T]) Slice() []T { return a.data }

// String formats the array as "[lo..hi]{v0 v1 ...}".
func (a *Array[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d..%d]{", a.Lo, a.Hi())
	for i, v := range a.data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, v)
	}
	sb.WriteByte('}')
	return sb.String()
}

// Norm returns the squared magnitude of every element summed.
func Norm[T Number](a *Array[T]) float64 {
	sum := 0.0
	for _, v := range a.data {
		sum += Abs2(v)
	}
	return sum
}

// Abs2 returns the squared magnitude |v|² of a scalar.
func Abs2[T Number](v T) float64 {
	switch x := any(v).(type) {
	case float64:
		return x * x
	case complex128:
		return real(x)*real(x) + imag(x)*imag(x)
	}
	return 0
}
