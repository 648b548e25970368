package junction

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/charmbracelet/log"

	"github.com/PaulKGrimes/supermix-sub001/internal/consts"
	"github.com/PaulKGrimes/supermix-sub001/pkg/ckdata"
	"github.com/PaulKGrimes/supermix-sub001/pkg/ivcurve"
	"github.com/PaulKGrimes/supermix-sub001/pkg/numeric"
	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

// SISDevice is a superconductor-insulator-superconductor tunnel junction
// described by photon-assisted tunneling theory.
//
// The IV curve is not owned: it must stay alive and loaded for as long as the
// device is used. Reloading it, or changing Vn, Rn or Cap, makes the device
// stale until the next LargeSignal call.
type SISDevice struct {
	Vn  float64 // gap voltage normalizing the IV curve
	Rn  float64 // normal-state resistance
	Cap float64 // geometric capacitance in parallel with the junction

	IV *ivcurve.IVCurve

	key    OperatingPointKey
	solved bool
	tag    statetag.Tag
	logger *log.Logger

	ck      *ckdata.CkData
	v, i    []complex128
	v0, vph float64                    // normalized bias and photon step
	samples *numeric.Array[complex128] // IV.I(v0 + k*vph) over the Ck range
}

// SISOption configures a SISDevice.
type SISOption func(*SISDevice)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) SISOption {
	return func(d *SISDevice) {
		d.logger = l
	}
}

// NewSIS returns a device with the given normalization and IV curve.
func NewSIS(vn, rn, cap float64, iv *ivcurve.IVCurve, opts ...SISOption) *SISDevice {
	d := &SISDevice{Vn: vn, Rn: rn, Cap: cap, IV: iv}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *SISDevice) log() *log.Logger {
	if d.logger != nil {
		return d.logger
	}
	return log.Default()
}

func (d *SISDevice) Representation() Representation { return YType }

func (d *SISDevice) currentKey(loFreq float64, n int) OperatingPointKey {
	k := OperatingPointKey{LOFreq: loFreq, Harmonics: n, Vn: d.Vn, Rn: d.Rn, Cap: d.Cap}
	if d.IV != nil {
		k.IV = d.IV.Tag()
	}
	return k
}

// CallLargeSignal reports whether the cached large-signal state no longer
// matches the device parameters.
func (d *SISDevice) CallLargeSignal() bool {
	return !d.solved || d.key != d.currentKey(d.key.LOFreq, d.key.Harmonics)
}

func (d *SISDevice) Tag() statetag.Tag { return d.tag }

// Key returns the operating-point key of the cached large-signal state.
func (d *SISDevice) Key() OperatingPointKey { return d.key }

// Ck returns the convolution coefficients of the last LargeSignal call. The
// result must not be modified.
func (d *SISDevice) Ck() *ckdata.CkData { return d.ck }

func (d *SISDevice) V() []complex128 { return append([]complex128(nil), d.v...) }
func (d *SISDevice) I() []complex128 { return append([]complex128(nil), d.i...) }

func (d *SISDevice) checkParams() error {
	if d.IV == nil {
		return fmt.Errorf("sis: %w", ivcurve.ErrNotLoaded)
	}
	if err := d.IV.Check(); err != nil {
		return fmt.Errorf("sis: %w", err)
	}
	if !(d.Vn > 0) || !(d.Rn > 0) || d.Cap < 0 {
		return fmt.Errorf("sis: invalid parameters Vn=%g Rn=%g Cap=%g", d.Vn, d.Rn, d.Cap)
	}
	return nil
}

// LargeSignal returns the RMS harmonic currents through the junction for the
// RMS harmonic voltages v[0..n] (v[0] is the DC bias), including the current
// through Cap.
func (d *SISDevice) LargeSignal(v []complex128, loFreq float64, n int) ([]complex128, error) {
	if err := d.checkParams(); err != nil {
		return nil, err
	}
	if n < 0 || len(v) != n+1 {
		return nil, fmt.Errorf("sis: %w: %d voltages for %d harmonics", ErrHarmonicMismatch, len(v), n)
	}
	if loFreq < 0 || (n > 0 && loFreq == 0) {
		return nil, fmt.Errorf("sis: invalid LO frequency %g", loFreq)
	}

	if d.ck == nil {
		d.ck = ckdata.New(ckdata.WithLogger(d.logger))
	}
	d.ck.Calc(loFreq, v)

	d.v0 = real(v[0]) / d.Vn
	d.vph = consts.PLANCK * loFreq / (consts.CHARGE * d.Vn)

	kmax := d.ck.Kmax()
	if d.samples == nil {
		d.samples = numeric.NewSymmetric[complex128](kmax)
	} else {
		d.samples.Reshape(-kmax, kmax)
	}
	for k := -kmax; k <= kmax; k++ {
		d.samples.Set(k, d.IV.I(d.v0+float64(k)*d.vph))
	}

	// A_m = sum_k C_k conj(C_{k-m}) j(v0 + k vph); the harmonic current is
	// built from A_m and A_-m because I(t) is the imaginary part of the
	// response.
	scale := d.Vn / d.Rn
	omega := 2 * math.Pi * loFreq
	cur := make([]complex128, n+1)
	cur[0] = complex(scale*imag(d.convolve(0)), 0)
	for m := 1; m <= n; m++ {
		am, amNeg := d.convolve(m), d.convolve(-m)
		im := (amNeg - cmplx.Conj(am)) / 2i
		cur[m] = complex(scale*consts.RMSToPeak, 0)*im + complex(0, float64(m)*omega*d.Cap)*v[m]
	}

	d.v = append(d.v[:0], v...)
	d.i = cur
	d.key = d.currentKey(loFreq, n)
	d.solved = true
	d.tag = statetag.New()

	d.log().Debug("sis: large signal", "v0", d.v0, "vph", d.vph, "kmax", kmax, "idc", real(cur[0]))
	return append([]complex128(nil), cur...), nil
}

func (d *SISDevice) convolve(m int) complex128 {
	var sum complex128
	kmax := d.ck.Kmax()
	for k := max(-kmax, m-kmax); k <= min(kmax, m+kmax); k++ {
		sum += d.ck.At(k) * cmplx.Conj(d.ck.At(k-m)) * d.samples.At(k)
	}
	return sum
}

// ready checks that small-signal quantities may be computed for n sidebands.
func (d *SISDevice) ready(n int) error {
	if err := d.checkParams(); err != nil {
		return err
	}
	if d.CallLargeSignal() {
		return ErrStale
	}
	if n != d.key.Harmonics {
		return fmt.Errorf("%w: %d sidebands, large signal used %d harmonics", ErrHarmonicMismatch, n, d.key.Harmonics)
	}
	return nil
}

// SmallSignal returns the sideband admittance matrix Y[m][m'] relating the
// current at sideband m to the voltage at sideband m'.
func (d *SISDevice) SmallSignal(ifFreq float64, n int) (*numeric.Matrix[complex128], error) {
	if err := d.ready(n); err != nil {
		return nil, err
	}

	loFreq := d.key.LOFreq
	kmax := d.ck.Kmax()
	y := numeric.NewSymmetricMatrix[complex128](n)
	lower := numeric.NewSymmetric[complex128](kmax) // j_k - j(V_k - s)
	upper := numeric.NewSymmetric[complex128](kmax) // j(V_k + s) - j_k

	for mp := -n; mp <= n; mp++ {
		f := ifFreq + float64(mp)*loFreq
		s := consts.PLANCK * f / (consts.CHARGE * d.Vn)

		// prefactor 1/(2 i s Rn); s -> 0 takes the derivative limit
		var pre complex128
		if math.Abs(s) < consts.ZEROTOL*d.vphOrOne() {
			pre = complex(0, -1/(2*d.Rn))
			for k := -kmax; k <= kmax; k++ {
				_, jp := d.IV.Iprime(d.v0 + float64(k)*d.vph)
				lower.Set(k, jp)
				upper.Set(k, jp)
			}
		} else {
			pre = complex(0, -1/(2*s*d.Rn))
			for k := -kmax; k <= kmax; k++ {
				vk := d.v0 + float64(k)*d.vph
				jk := d.samples.At(k)
				lower.Set(k, jk-d.IV.I(vk-s))
				upper.Set(k, d.IV.I(vk+s)-jk)
			}
		}

		for m := -n; m <= n; m++ {
			var sum complex128
			for k := -kmax; k <= kmax; k++ {
				ck := d.ck.At(k)
				sum += ck*cmplx.Conj(d.ck.At(k-mp+m))*lower.At(k) -
					cmplx.Conj(ck)*d.ck.At(k-m+mp)*cmplx.Conj(upper.At(k))
			}
			y.Set(m, mp, pre*sum)
		}
	}

	for m := -n; m <= n; m++ {
		w := 2 * math.Pi * (ifFreq + float64(m)*loFreq)
		y.Add(m, m, complex(0, w*d.Cap))
	}
	return y, nil
}

func (d *SISDevice) vphOrOne() float64 {
	if d.vph > 0 {
		return d.vph
	}
	return 1
}

// Noise returns the shot-noise current correlation matrix over the sidebands,
// H[m][m'] = <I_m conj(I_m')> per unit bandwidth. temp is the physical
// temperature of the junction.
func (d *SISDevice) Noise(ifFreq, temp float64, n int) (*numeric.Matrix[complex128], error) {
	if err := d.ready(n); err != nil {
		return nil, err
	}
	if temp < 0 {
		return nil, fmt.Errorf("sis: negative temperature %g", temp)
	}

	kmax := d.ck.Kmax()
	sIF := consts.PLANCK * ifFreq / (consts.CHARGE * d.Vn)

	// fp[p] = F(v0 + p vph + sIF), fm[q] = F(v0 + q vph - sIF) for every index
	// reachable from a sideband in [-n, n].
	reach := n + kmax
	fp := numeric.NewSymmetric[float64](reach)
	fm := numeric.NewSymmetric[float64](reach)
	for p := -reach; p <= reach; p++ {
		vp := d.v0 + float64(p)*d.vph
		fp.Set(p, d.shotCurrent(vp+sIF, temp))
		fm.Set(p, d.shotCurrent(vp-sIF, temp))
	}

	scale := consts.CHARGE * d.Vn / d.Rn
	h := numeric.NewSymmetricMatrix[complex128](n)
	for m := -n; m <= n; m++ {
		for mp := m; mp <= n; mp++ {
			var sum complex128
			for p := max(m, mp) - kmax; p <= min(m, mp)+kmax; p++ {
				sum += d.ck.At(p-m) * cmplx.Conj(d.ck.At(p-mp)) * complex(fp.At(p), 0)
			}
			for q := max(-m, -mp) - kmax; q <= min(-m, -mp)+kmax; q++ {
				sum += d.ck.At(q+m) * cmplx.Conj(d.ck.At(q+mp)) * complex(fm.At(q), 0)
			}
			sum *= complex(scale, 0)
			if m == mp {
				h.Set(m, m, complex(real(sum), 0))
				continue
			}
			h.Set(m, mp, sum)
			h.Set(mp, m, cmplx.Conj(sum))
		}
	}
	return h, nil
}

// shotCurrent is the normalized Idc(v) coth(e v Vn / 2kT), the thermally
// smeared shot-noise current.
func (d *SISDevice) shotCurrent(v, temp float64) float64 {
	if temp == 0 {
		switch {
		case v > 0:
			return d.IV.Idc(v)
		case v < 0:
			return -d.IV.Idc(v)
		default:
			return 0
		}
	}
	x := consts.CHARGE * v * d.Vn / (2 * consts.BOLTZMANN * temp)
	switch {
	case math.Abs(x) < 1e-6:
		// Idc(v)/tanh(x) -> Idc'(v) v/x
		_, yp := d.IV.Iprime(v)
		return imag(yp) * 2 * consts.BOLTZMANN * temp / (consts.CHARGE * d.Vn)
	case x > 350:
		return d.IV.Idc(v)
	case x < -350:
		return -d.IV.Idc(v)
	default:
		return d.IV.Idc(v) / math.Tanh(x)
	}
}
