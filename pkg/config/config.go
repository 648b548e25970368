// Package config reads the TOML description of a mixer run.
//
// Quantities may be written as numbers or as strings with SPICE suffixes:
//
//	[lo]
//	freq = "230G"
//	harmonics = 1
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
	"github.com/PaulKGrimes/supermix-sub001/pkg/netlist"
	"github.com/PaulKGrimes/supermix-sub001/pkg/newton"
)

var ErrInvalid = errors.New("invalid configuration")

// Quantity is a float that also decodes from a unit-suffixed string.
type Quantity float64

func (q *Quantity) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case string:
		f, err := netlist.ParseValue(x)
		if err != nil {
			return err
		}
		*q = Quantity(f)
	case int64:
		*q = Quantity(x)
	case float64:
		*q = Quantity(x)
	default:
		return fmt.Errorf("quantity: unsupported type %T", v)
	}
	return nil
}

func (q Quantity) Float() float64 { return float64(q) }

type Device struct {
	Vn      Quantity `toml:"vn"`       // gap voltage
	Rn      Quantity `toml:"rn"`       // normal resistance
	Cap     Quantity `toml:"cap"`      // junction capacitance
	Temp    Quantity `toml:"temp"`     // physical temperature (K)
	IdcFile string   `toml:"idc_file"` // normalized DC I-V table
	IkkFile string   `toml:"ikk_file"` // normalized Kramers-Kronig table
}

type LO struct {
	Freq      Quantity `toml:"freq"`
	Harmonics int      `toml:"harmonics"`
}

type Circuit struct {
	File    string   `toml:"file"`    // netlist path
	Netlist string   `toml:"netlist"` // inline netlist text
	Bias    string   `toml:"bias"`    // DC source swept by [biassweep]
	Gmin    Quantity `toml:"gmin"`
}

type Newton struct {
	MaxIter      int      `toml:"max_iter"`
	FTol         float64  `toml:"f_tol"`
	DxTol        float64  `toml:"dx_tol"`
	MaxStep      float64  `toml:"max_step"`
	Seed         int64    `toml:"seed"`
	Solver       string   `toml:"solver"` // "dense" or "sparse"
	VoltageScale Quantity `toml:"voltage_scale"`
}

type IFSweep struct {
	Start    Quantity `toml:"start"`
	Stop     Quantity `toml:"stop"`
	Points   int      `toml:"points"` // 0 disables the sweep
	Type     string   `toml:"type"`   // DEC, OCT, LIN
	TermTemp Quantity `toml:"term_temp"`
}

type BiasSweep struct {
	Enabled bool     `toml:"enabled"`
	Start   Quantity `toml:"start"`
	Stop    Quantity `toml:"stop"`
	Step    Quantity `toml:"step"`
	IFFreq  Quantity `toml:"if_freq"`
}

type Output struct {
	Plot  string `toml:"plot"`  // PNG/SVG/PDF path for sweep plots
	Table string `toml:"table"` // tab-separated results path
}

type Config struct {
	Device    Device    `toml:"device"`
	LO        LO        `toml:"lo"`
	Circuit   Circuit   `toml:"circuit"`
	Newton    Newton    `toml:"newton"`
	IFSweep   IFSweep   `toml:"ifsweep"`
	BiasSweep BiasSweep `toml:"biassweep"`
	Output    Output    `toml:"output"`
}

// Default returns a 230 GHz Nb mixer with a synthetic I-V curve and no
// embedding circuit.
func Default() *Config {
	return &Config{
		Device: Device{Vn: 2.8e-3, Rn: 20, Temp: 4.2},
		LO:     LO{Freq: 230e9, Harmonics: 1},
		Circuit: Circuit{
			Gmin: 1e-12,
		},
		Newton: Newton{
			MaxIter:      100,
			FTol:         1e-5,
			DxTol:        1e-8,
			Seed:         newton.DefaultSeed,
			Solver:       "dense",
			VoltageScale: 1e-3,
		},
		IFSweep: IFSweep{Start: 1e9, Stop: 10e9, Points: 10, Type: "LIN", TermTemp: 4.2},
	}
}

// Parse decodes TOML text over the defaults.
func Parse(text string) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return nil, err
	}
	if err := checkUndecoded(md); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// Load reads a TOML file over the defaults. Relative file names inside it are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := checkUndecoded(md); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.normalize()
	cfg.resolve(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func checkUndecoded(md toml.MetaData) error {
	if keys := md.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(names, ", "))
	}
	return nil
}

func (c *Config) normalize() {
	c.Newton.Solver = strings.ToLower(c.Newton.Solver)
	c.IFSweep.Type = strings.ToUpper(c.IFSweep.Type)
}

func (c *Config) resolve(dir string) {
	for _, p := range []*string{&c.Device.IdcFile, &c.Device.IkkFile, &c.Circuit.File, &c.Output.Plot, &c.Output.Table} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

// UseFakeCurve reports whether no I-V files were given.
func (c *Config) UseFakeCurve() bool {
	return c.Device.IdcFile == "" && c.Device.IkkFile == ""
}

// NetlistText returns the inline netlist or the contents of the netlist file.
func (c *Config) NetlistText() (string, error) {
	if c.Circuit.Netlist != "" {
		return c.Circuit.Netlist, nil
	}
	b, err := os.ReadFile(c.Circuit.File)
	if err != nil {
		return "", fmt.Errorf("reading netlist: %w", err)
	}
	return string(b), nil
}

// NewtonOptions converts the [newton] section to solver options.
func (c *Config) NewtonOptions() []newton.Option {
	opts := []newton.Option{
		newton.WithOptions(newton.Options{
			MaxIter: c.Newton.MaxIter,
			FTol:    c.Newton.FTol,
			DxTol:   c.Newton.DxTol,
			MaxStep: c.Newton.MaxStep,
		}),
		newton.WithSeed(c.Newton.Seed),
	}
	if c.Newton.Solver == "sparse" {
		opts = append(opts, newton.WithLinearSolver(&matrix.SparseSolver{}))
	}
	return opts
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate rejects inconsistent settings.
func (c *Config) Validate() error {
	d := c.Device
	switch {
	case !(d.Vn > 0):
		return invalid("device.vn must be positive")
	case !(d.Rn > 0):
		return invalid("device.rn must be positive")
	case d.Cap < 0:
		return invalid("device.cap must not be negative")
	case d.Temp < 0:
		return invalid("device.temp must not be negative")
	case (d.IdcFile == "") != (d.IkkFile == ""):
		return invalid("device.idc_file and device.ikk_file must be given together")
	}

	switch {
	case c.LO.Harmonics < 0:
		return invalid("lo.harmonics must not be negative")
	case c.LO.Harmonics > 0 && !(c.LO.Freq > 0):
		return invalid("lo.freq must be positive")
	}

	switch {
	case (c.Circuit.File == "") == (c.Circuit.Netlist == ""):
		return invalid("exactly one of circuit.file and circuit.netlist is required")
	case c.Circuit.Gmin < 0:
		return invalid("circuit.gmin must not be negative")
	}

	n := c.Newton
	switch {
	case n.MaxIter < 1:
		return invalid("newton.max_iter must be at least 1")
	case !(n.FTol > 0) || !(n.DxTol > 0):
		return invalid("newton tolerances must be positive")
	case n.MaxStep < 0:
		return invalid("newton.max_step must not be negative")
	case n.Solver != "dense" && n.Solver != "sparse":
		return invalid("newton.solver must be dense or sparse, got %q", n.Solver)
	case !(n.VoltageScale > 0):
		return invalid("newton.voltage_scale must be positive")
	}

	s := c.IFSweep
	if s.Points > 0 {
		switch {
		case s.Type != "DEC" && s.Type != "OCT" && s.Type != "LIN":
			return invalid("ifsweep.type must be DEC, OCT or LIN, got %q", s.Type)
		case s.Start < 0 || s.Stop < s.Start:
			return invalid("ifsweep range %g to %g", s.Start, s.Stop)
		case s.Type != "LIN" && !(s.Start > 0):
			return invalid("ifsweep.start must be positive for %s sweeps", s.Type)
		case s.TermTemp < 0:
			return invalid("ifsweep.term_temp must not be negative")
		}
	} else if s.Points < 0 {
		return invalid("ifsweep.points must not be negative")
	}

	b := c.BiasSweep
	if b.Enabled {
		switch {
		case c.Circuit.Bias == "":
			return invalid("biassweep needs circuit.bias")
		case b.Step == 0 || (b.Stop-b.Start)*b.Step < 0:
			return invalid("biassweep %g to %g step %g", b.Start, b.Stop, b.Step)
		case b.IFFreq < 0:
			return invalid("biassweep.if_freq must not be negative")
		}
	}
	return nil
}
