// Package ivcurve holds the normalized DC I-V curve of a tunnel junction and its
// Kramers-Kronig transform, and evaluates the complex response function
// I(v) = Ikk(v) + i*Idc(v) used by photon-assisted tunneling theory.
//
// Voltages and currents are normalized: v = V/Vn, i = I*Rn/Vn. Only the v >= 0
// half of each curve is kept; negative voltages are evaluated by symmetry, Idc
// odd and Ikk even.
package ivcurve

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/interp"

	"github.com/PaulKGrimes/supermix-sub001/pkg/statetag"
)

// MinPoints is the smallest number of v >= 0 points accepted per curve.
const MinPoints = 4

var (
	ErrNotLoaded    = errors.New("ivcurve: curve not loaded")
	ErrTooFewPoints = errors.New("ivcurve: too few points")
	ErrBadColumns   = errors.New("ivcurve: expected two numeric columns")
)

// IVCurve is a loaded pair of Idc and Ikk curves.
type IVCurve struct {
	idcV, idcI []float64
	idc        interp.NaturalCubic
	idcSlope   float64 // dIdc/dv at the last point

	ikkV, ikkI []float64
	ikk        interp.PiecewiseCubic
	tail       asymptote

	valid  bool
	tag    statetag.Tag
	logger *log.Logger
}

// Option configures an IVCurve.
type Option func(*IVCurve)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *IVCurve) {
		c.logger = l
	}
}

// New returns an empty curve. It must be loaded before use.
func New(opts ...Option) *IVCurve {
	c := &IVCurve{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *IVCurve) log() *log.Logger {
	if c.logger != nil {
		return c.logger
	}
	return log.Default()
}

// Valid reports whether both curves are loaded.
func (c *IVCurve) Valid() bool { return c.valid }

// Check returns ErrNotLoaded when the curve cannot be evaluated.
func (c *IVCurve) Check() error {
	if !c.valid {
		return ErrNotLoaded
	}
	return nil
}

// Tag identifies the currently loaded data. Every successful load mints a new tag.
func (c *IVCurve) Tag() statetag.Tag { return c.tag }

// Range returns the largest tabulated voltage of the Idc and Ikk curves.
func (c *IVCurve) Range() (idcMax, ikkMax float64) {
	if !c.valid {
		return math.NaN(), math.NaN()
	}
	return c.idcV[len(c.idcV)-1], c.ikkV[len(c.ikkV)-1]
}

// LoadFiles loads the Idc and Ikk curves from two text files.
func (c *IVCurve) LoadFiles(idcPath, ikkPath string) error {
	fi, err := os.Open(idcPath)
	if err != nil {
		return fmt.Errorf("open idc file: %w", err)
	}
	defer fi.Close()

	fk, err := os.Open(ikkPath)
	if err != nil {
		return fmt.Errorf("open ikk file: %w", err)
	}
	defer fk.Close()

	return c.Load(fi, fk)
}

// Load reads the Idc and Ikk curves, each as two numeric columns (v, i)
// separated by whitespace or commas. Blank lines and lines starting with '#'
// are skipped.
func (c *IVCurve) Load(idc, ikk io.Reader) error {
	iv, ii, err := readColumns(idc)
	if err != nil {
		return fmt.Errorf("idc: %w", err)
	}
	kv, ki, err := readColumns(ikk)
	if err != nil {
		return fmt.Errorf("ikk: %w", err)
	}
	return c.LoadPoints(iv, ii, kv, ki)
}

// LoadPoints loads the curves from point slices. Points with v < 0 are dropped,
// the rest are sorted by voltage. On error the previously loaded data, if any,
// is left untouched.
func (c *IVCurve) LoadPoints(idcV, idcI, ikkV, ikkI []float64) error {
	if len(idcV) != len(idcI) || len(ikkV) != len(ikkI) {
		return ErrBadColumns
	}

	dv, di := positiveHalf(idcV, idcI, 0)
	if len(dv) < MinPoints {
		return fmt.Errorf("idc: %w: %d usable points, need %d", ErrTooFewPoints, len(dv), MinPoints)
	}
	kv, ki := positiveHalf(ikkV, ikkI, math.NaN())
	if len(kv) < MinPoints {
		return fmt.Errorf("ikk: %w: %d usable points, need %d", ErrTooFewPoints, len(kv), MinPoints)
	}

	var idc interp.NaturalCubic
	if err := idc.Fit(dv, di); err != nil {
		return fmt.Errorf("idc spline: %w", err)
	}

	tail, err := fitAsymptote(kv, ki)
	if err != nil {
		return fmt.Errorf("ikk tail: %w", err)
	}
	var ikk interp.PiecewiseCubic
	if err := fitClamped(&ikk, kv, ki, 0, tail.slope(kv[len(kv)-1])); err != nil {
		return fmt.Errorf("ikk spline: %w", err)
	}

	c.idcV, c.idcI, c.idc = dv, di, idc
	c.idcSlope = idc.PredictDerivative(dv[len(dv)-1])
	c.ikkV, c.ikkI, c.ikk, c.tail = kv, ki, ikk, tail
	c.valid = true
	c.tag = statetag.New()

	c.log().Debug("ivcurve: loaded",
		"idc_points", len(dv), "ikk_points", len(kv),
		"io", tail.io, "c0", tail.c0, "c2", tail.c2, "c4", tail.c4)
	return nil
}

// Idc returns the normalized DC current at v.
func (c *IVCurve) Idc(v float64) float64 {
	if !c.valid {
		return math.NaN()
	}
	y, _ := c.idcAt(math.Abs(v))
	if v < 0 {
		return -y
	}
	return y
}

// Ikk returns the normalized Kramers-Kronig current at v.
func (c *IVCurve) Ikk(v float64) float64 {
	if !c.valid {
		return math.NaN()
	}
	y, _ := c.ikkAt(math.Abs(v))
	return y
}

// I returns the response function Ikk(v) + i*Idc(v).
func (c *IVCurve) I(v float64) complex128 {
	if !c.valid {
		return complex(math.NaN(), math.NaN())
	}
	return complex(c.Ikk(v), c.Idc(v))
}

// Iprime returns the response function and its derivative with respect to v.
func (c *IVCurve) Iprime(v float64) (y, yp complex128) {
	if !c.valid {
		nan := complex(math.NaN(), math.NaN())
		return nan, nan
	}
	av := math.Abs(v)
	d, dp := c.idcAt(av)
	k, kp := c.ikkAt(av)
	if v < 0 {
		// odd Idc keeps its slope, even Ikk flips it
		d, kp = -d, -kp
	}
	return complex(k, d), complex(kp, dp)
}

// idcAt evaluates Idc and its slope for v >= 0.
func (c *IVCurve) idcAt(v float64) (float64, float64) {
	last := len(c.idcV) - 1
	if v > c.idcV[last] {
		return c.idcI[last] + c.idcSlope*(v-c.idcV[last]), c.idcSlope
	}
	return c.idc.Predict(v), c.idc.PredictDerivative(v)
}

// ikkAt evaluates Ikk and its slope for v >= 0.
func (c *IVCurve) ikkAt(v float64) (float64, float64) {
	last := len(c.ikkV) - 1
	if v > c.ikkV[last] {
		return c.tail.value(v), c.tail.slope(v)
	}
	return c.ikk.Predict(v), c.ikk.PredictDerivative(v)
}

// positiveHalf keeps the v >= 0 points sorted by voltage with duplicate voltages
// removed. When the data does not reach v = 0 a point (0, atZero) is prepended;
// a NaN atZero repeats the first current instead.
func positiveHalf(v, i []float64, atZero float64) ([]float64, []float64) {
	type point struct{ v, i float64 }
	pts := make([]point, 0, len(v))
	for k := range v {
		if v[k] >= 0 && !math.IsNaN(i[k]) {
			pts = append(pts, point{v[k], i[k]})
		}
	}
	sort.SliceStable(pts, func(a, b int) bool { return pts[a].v < pts[b].v })

	outV := make([]float64, 0, len(pts)+1)
	outI := make([]float64, 0, len(pts)+1)
	for _, p := range pts {
		if n := len(outV); n > 0 && p.v == outV[n-1] {
			continue
		}
		outV = append(outV, p.v)
		outI = append(outI, p.i)
	}
	if len(outV) > 0 && outV[0] > 0 {
		if math.IsNaN(atZero) {
			atZero = outI[0]
		}
		outV = append([]float64{0}, outV...)
		outI = append([]float64{atZero}, outI...)
	}
	return outV, outI
}

func readColumns(r io.Reader) ([]float64, []float64, error) {
	var xs, ys []float64
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.FieldsFunc(text, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		if len(fields) != 2 {
			return nil, nil, fmt.Errorf("line %d: %w", line, ErrBadColumns)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w: %v", line, ErrBadColumns, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w: %v", line, ErrBadColumns, err)
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return xs, ys, nil
}
