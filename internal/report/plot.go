// Package report renders analysis results as plots and tables.
package report

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var ErrNoData = errors.New("no data to plot")

const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Series is one named curve. Non-finite points are skipped when drawn.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// Figure is a single plot with shared axes.
type Figure struct {
	Name   string
	Title  string
	XLabel string
	YLabel string
	Series []Series
}

func (f Figure) points(s Series) plotter.XYs {
	n := min(len(s.X), len(s.Y))
	xys := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if !finite(s.X[i]) || !finite(s.Y[i]) {
			continue
		}
		xys = append(xys, plotter.XY{X: s.X[i], Y: s.Y[i]})
	}
	return xys
}

// Plot builds the gonum plot for the figure.
func (f Figure) Plot() (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = f.Title
	p.X.Label.Text = f.XLabel
	p.Y.Label.Text = f.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	drawn := 0
	for i, s := range f.Series {
		xys := f.points(s)
		if len(xys) == 0 {
			continue
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		line.Dashes = plotutil.Dashes(i)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, fmt.Errorf("%s: %w", f.Name, ErrNoData)
	}
	return p, nil
}

// Save writes the figure to path. The format follows the file extension.
func (f Figure) Save(path string, width, height vg.Length) error {
	p, err := f.Plot()
	if err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// SaveAll writes every figure next to base, inserting the figure name
// before the extension: out.png becomes out_gain.png, out_noise.png.
// Figures without data are skipped. The written paths are returned.
func SaveAll(base string, figs []Figure) ([]string, error) {
	var paths []string
	for _, f := range figs {
		path := Suffixed(base, f.Name, ".png")
		err := f.Save(path, DefaultWidth, DefaultHeight)
		if errors.Is(err, ErrNoData) {
			continue
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Suffixed inserts _name before the extension of base, using ext when base
// has none.
func Suffixed(base, name, ext string) string {
	if e := filepath.Ext(base); e != "" {
		ext = e
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + "_" + name + ext
}

// IFSweepFigures plots conversion gain and noise temperature against IF
// from small-signal results (FREQ, GAIN_*_DB, TSSB, TDSB).
func IFSweepFigures(res map[string][]float64) []Figure {
	freq := res["FREQ"]
	if len(freq) == 0 {
		return nil
	}
	ghz := scaled(freq, 1e-9)
	return []Figure{
		{
			Name:   "gain",
			Title:  "Conversion gain",
			XLabel: "IF (GHz)",
			YLabel: "Gain (dB)",
			Series: []Series{
				{Name: "USB", X: ghz, Y: res["GAIN_USB_DB"]},
				{Name: "LSB", X: ghz, Y: res["GAIN_LSB_DB"]},
			},
		},
		{
			Name:   "noise",
			Title:  "Receiver noise temperature",
			XLabel: "IF (GHz)",
			YLabel: "Temperature (K)",
			Series: []Series{
				{Name: "SSB", X: ghz, Y: res["TSSB"]},
				{Name: "DSB", X: ghz, Y: res["TDSB"]},
			},
		},
	}
}

// BiasSweepFigures plots the pumped I-V curve, and the gain when the sweep
// carried an IF point.
func BiasSweepFigures(res map[string][]float64) []Figure {
	v0 := res["V0"]
	if len(v0) == 0 {
		return nil
	}
	mv := scaled(v0, 1e3)
	figs := []Figure{{
		Name:   "iv",
		Title:  "Pumped I-V",
		XLabel: "Bias (mV)",
		YLabel: "Current (uA)",
		Series: []Series{{Name: "I0", X: mv, Y: scaled(res["I0"], 1e6)}},
	}}
	if usb, ok := res["GAIN_USB"]; ok {
		figs = append(figs, Figure{
			Name:   "biasgain",
			Title:  "Conversion gain vs bias",
			XLabel: "Bias (mV)",
			YLabel: "Gain (dB)",
			Series: []Series{
				{Name: "USB", X: mv, Y: decibels(usb)},
				{Name: "LSB", X: mv, Y: decibels(res["GAIN_LSB"])},
			},
		})
	}
	return figs
}

func scaled(x []float64, k float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v * k
	}
	return out
}

func decibels(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = 10 * math.Log10(v)
	}
	return out
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
