package ivcurve

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smoothCurve(t *testing.T) *IVCurve {
	t.Helper()
	var v, idc, ikk []float64
	for k := 0; k <= 60; k++ {
		x := 0.05 * float64(k)
		v = append(v, x)
		idc = append(idc, x+0.1*math.Tanh(4*x))
		ikk = append(ikk, math.Log(1+x*x))
	}
	c := New()
	require.NoError(t, c.LoadPoints(v, idc, v, ikk))
	return c
}

func TestNotLoaded(t *testing.T) {
	c := New()
	assert.False(t, c.Valid())
	assert.ErrorIs(t, c.Check(), ErrNotLoaded)
	assert.True(t, math.IsNaN(c.Idc(0.5)))
	assert.True(t, math.IsNaN(c.Ikk(0.5)))
	assert.True(t, c.Tag().Undefined())
}

func TestLoadErrors(t *testing.T) {
	good := "0 0\n1 1\n2 2\n3 3\n"
	cases := []struct {
		name     string
		idc, ikk string
		want     error
	}{
		{"three columns", "0 0 0\n1 1 1\n2 2 2\n3 3 3\n", good, ErrBadColumns},
		{"not a number", "0 0\n1 x\n2 2\n3 3\n", good, ErrBadColumns},
		{"too few idc", "0 0\n1 1\n2 2\n", good, ErrTooFewPoints},
		{"negative half only", good, "-1 1\n-2 2\n-3 3\n0 0\n", ErrTooFewPoints},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			err := c.Load(strings.NewReader(tc.idc), strings.NewReader(tc.ikk))
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
			assert.False(t, c.Valid())
		})
	}
}

func TestLoadParsesCommentsAndCommas(t *testing.T) {
	idc := "# bias current\n\n0, 0\n0.5, 0.5\n1.0,1.0\n1.5\t1.5\n2 2\n"
	ikk := "0 0\n0.5 0.1\n1 0.3\n1.5 0.4\n2 0.45\n"
	c := New()
	require.NoError(t, c.Load(strings.NewReader(idc), strings.NewReader(ikk)))
	assert.InDelta(t, 0.75, c.Idc(0.75), 1e-12)
	assert.InDelta(t, 0.3, c.Ikk(1), 1e-12)
}

func TestFailedLoadKeepsData(t *testing.T) {
	c := smoothCurve(t)
	tag := c.Tag()
	before := c.Idc(1.1)

	err := c.LoadPoints([]float64{0, 1}, []float64{0, 1}, []float64{0, 1}, []float64{0, 1})
	require.ErrorIs(t, err, ErrTooFewPoints)
	assert.True(t, c.Valid())
	assert.True(t, tag.Equal(c.Tag()))
	assert.Equal(t, before, c.Idc(1.1))
}

func TestReloadMintsNewTag(t *testing.T) {
	c := smoothCurve(t)
	first := c.Tag()
	v := []float64{0, 1, 2, 3}
	require.NoError(t, c.LoadPoints(v, v, v, []float64{0, 1, 1.5, 1.7}))
	assert.False(t, first.Equal(c.Tag()))
	assert.True(t, first.Before(c.Tag()))
}

func TestExactSymmetry(t *testing.T) {
	c := smoothCurve(t)
	for _, v := range []float64{0.013, 0.5, 1, 2.25, 3, 4.7, 11} {
		assert.Equal(t, -c.Idc(v), c.Idc(-v), "Idc odd at %g", v)
		assert.Equal(t, c.Ikk(v), c.Ikk(-v), "Ikk even at %g", v)

		y, yp := c.Iprime(v)
		ym, ypm := c.Iprime(-v)
		assert.Equal(t, real(y), real(ym))
		assert.Equal(t, -imag(y), imag(ym))
		assert.Equal(t, -real(yp), real(ypm))
		assert.Equal(t, imag(yp), imag(ypm))
	}
	assert.Equal(t, 0.0, c.Idc(0))
}

func TestSplineHitsKnots(t *testing.T) {
	c := smoothCurve(t)
	for k := 0; k <= 60; k += 7 {
		x := 0.05 * float64(k)
		assert.InDelta(t, x+0.1*math.Tanh(4*x), c.Idc(x), 1e-12)
		assert.InDelta(t, math.Log(1+x*x), c.Ikk(x), 1e-12)
	}
	// between knots the interpolant tracks the smooth source
	assert.InDelta(t, math.Log(1+1.234*1.234), c.Ikk(1.234), 1e-4)
}

func TestIprimeMatchesFiniteDifference(t *testing.T) {
	c := smoothCurve(t)
	const h = 1e-6
	for _, v := range []float64{0.37, -1.23, 2.91, 3.5, -4.2, 8} {
		y, yp := c.Iprime(v)
		assert.Equal(t, c.I(v), y)

		fd := (c.I(v+h) - c.I(v-h)) / complex(2*h, 0)
		assert.InDelta(t, real(fd), real(yp), 1e-5, "Ikk' at %g", v)
		assert.InDelta(t, imag(fd), imag(yp), 1e-5, "Idc' at %g", v)
	}
}

func TestTailIsContinuous(t *testing.T) {
	c := smoothCurve(t)
	_, last := c.Range()
	const eps = 1e-9

	in, inP := c.Iprime(last - eps)
	out, outP := c.Iprime(last + eps)
	assert.InDelta(t, real(in), real(out), 1e-7)
	assert.InDelta(t, imag(in), imag(out), 1e-7)
	assert.InDelta(t, real(inP), real(outP), 1e-5)
	assert.InDelta(t, imag(inP), imag(outP), 1e-5)

	// log-like growth carries on past the table
	assert.InDelta(t, math.Log(1+36), c.Ikk(6), 0.1)
}

func TestLinearIdcExtrapolates(t *testing.T) {
	v := []float64{-1, 0, 1, 2, 3}
	c := New()
	require.NoError(t, c.LoadPoints(v, v, v, []float64{0, 0, 0.2, 0.35, 0.45}))
	assert.InDelta(t, 7, c.Idc(7), 1e-9)
	assert.InDelta(t, -7, c.Idc(-7), 1e-9)
}

func TestMissingZeroIsFilled(t *testing.T) {
	v := []float64{0.5, 1, 1.5, 2}
	c := New()
	require.NoError(t, c.LoadPoints(v, v, v, []float64{1, 1.2, 1.3, 1.35}))
	assert.Equal(t, 0.0, c.Idc(0))
	assert.InDelta(t, 1.0, c.Ikk(0), 1e-12)
}

func TestFakeCurve(t *testing.T) {
	f := NewFake()
	f.VMax, f.Step = 3, 0.005

	c, err := f.Curve()
	require.NoError(t, err)
	require.True(t, c.Valid())

	// subgap, gap rise, normal branch
	assert.InDelta(t, 0.5/f.RSubgap+f.ILeakage, c.Idc(0.5), 1e-3)
	assert.InDelta(t, 2+f.IDefect+f.ILeakage, c.Idc(2), 1e-3)
	assert.Greater(t, c.Idc(1.05)-c.Idc(0.95), 0.5)

	// the Kramers-Kronig curve peaks at the gap
	assert.Greater(t, c.Ikk(1), c.Ikk(0.8))
	assert.Greater(t, c.Ikk(1), c.Ikk(1.2))
}

func TestFakeWriteRoundTrip(t *testing.T) {
	f := NewFake()
	f.VMax, f.Step = 2, 0.01

	var idc, ikk bytes.Buffer
	require.NoError(t, f.Write(&idc, &ikk))
	assert.True(t, strings.HasPrefix(idc.String(), "#"))

	c := New()
	require.NoError(t, c.Load(&idc, &ikk))
	assert.InDelta(t, f.Idc(1.5), c.Idc(1.5), 1e-6)
}

func TestFakeRejectsBadParameters(t *testing.T) {
	f := NewFake()
	f.Step = 0
	_, err := f.Curve()
	assert.Error(t, err)
}
