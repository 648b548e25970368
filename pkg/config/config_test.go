package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[device]
vn = "2.8m"
rn = 18.5
cap = "75f"
temp = 4.2

[lo]
freq = "230GHz"
harmonics = 2

[circuit]
bias = "VB"
netlist = """
test mixer
VB 1 0 DC 2.2m
RB 1 2 5
.junction 2 0
"""

[newton]
solver = "SPARSE"
f_tol = 1e-6

[ifsweep]
start = "1G"
stop = "8G"
points = 8
type = "lin"

[biassweep]
enabled = true
start = "1m"
stop = "3m"
step = "0.1m"
if_freq = "5G"
`

func TestParse(t *testing.T) {
	cfg, err := Parse(sample)
	require.NoError(t, err)

	assert.InEpsilon(t, 2.8e-3, cfg.Device.Vn.Float(), 1e-12)
	assert.Equal(t, 18.5, cfg.Device.Rn.Float())
	assert.InEpsilon(t, 75e-15, cfg.Device.Cap.Float(), 1e-12)
	assert.InEpsilon(t, 230e9, cfg.LO.Freq.Float(), 1e-12)
	assert.Equal(t, 2, cfg.LO.Harmonics)
	assert.Equal(t, "sparse", cfg.Newton.Solver)
	assert.Equal(t, 1e-6, cfg.Newton.FTol)
	assert.Equal(t, 100, cfg.Newton.MaxIter, "default kept")
	assert.Equal(t, "LIN", cfg.IFSweep.Type)
	assert.True(t, cfg.BiasSweep.Enabled)
	assert.InEpsilon(t, 0.1e-3, cfg.BiasSweep.Step.Float(), 1e-12)
	assert.True(t, cfg.UseFakeCurve())

	text, err := cfg.NetlistText()
	require.NoError(t, err)
	assert.Contains(t, text, ".junction 2 0")
	assert.Len(t, cfg.NewtonOptions(), 3)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"unknown key", "[device]\nvm = 1\n[circuit]\nfile = \"x.cir\"\n"},
		{"bad quantity", "[device]\nvn = \"2.8x\"\n[circuit]\nfile = \"x.cir\"\n"},
		{"no circuit", "[device]\nvn = 1\n"},
		{"two circuits", "[circuit]\nfile = \"x.cir\"\nnetlist = \"t\"\n"},
		{"negative rn", "[device]\nrn = -1\n[circuit]\nfile = \"x.cir\"\n"},
		{"one iv file", "[device]\nidc_file = \"idc.dat\"\n[circuit]\nfile = \"x.cir\"\n"},
		{"no lo", "[lo]\nfreq = 0\n[circuit]\nfile = \"x.cir\"\n"},
		{"solver", "[newton]\nsolver = \"qr\"\n[circuit]\nfile = \"x.cir\"\n"},
		{"sweep type", "[ifsweep]\ntype = \"LOG\"\n[circuit]\nfile = \"x.cir\"\n"},
		{"log from zero", "[ifsweep]\ntype = \"DEC\"\nstart = 0\n[circuit]\nfile = \"x.cir\"\n"},
		{"bias without source", "[biassweep]\nenabled = true\nstart = 0\nstop = 1\nstep = 0.1\n[circuit]\nfile = \"x.cir\"\n"},
		{"bias wrong step", "[biassweep]\nenabled = true\nstart = 0\nstop = 1\nstep = -0.1\n[circuit]\nfile = \"x.cir\"\nbias = \"VB\"\n"},
		{"quantity type", "[device]\nvn = true\n[circuit]\nfile = \"x.cir\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.toml)
			assert.Error(t, err)
		})
	}

	_, err := Parse("[device]\nrn = 0\n[circuit]\nfile = \"x.cir\"\n")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "embed.cir"), []byte("t\nR1 1 0 50\n.junction 1 0\n"), 0o644))
	path := filepath.Join(dir, "run.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[device]
idc_file = "idc.dat"
ikk_file = "/abs/ikk.dat"

[circuit]
file = "embed.cir"

[output]
plot = "out/sweep.png"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "idc.dat"), cfg.Device.IdcFile)
	assert.Equal(t, "/abs/ikk.dat", cfg.Device.IkkFile)
	assert.Equal(t, filepath.Join(dir, "out", "sweep.png"), cfg.Output.Plot)
	assert.False(t, cfg.UseFakeCurve())

	text, err := cfg.NetlistText()
	require.NoError(t, err)
	assert.Contains(t, text, "R1 1 0 50")

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}

func TestDefaultNeedsCircuit(t *testing.T) {
	cfg := Default()
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
	cfg.Circuit.Netlist = "t\nR1 1 0 50\n.junction 1 0\n"
	assert.NoError(t, cfg.Validate())
}
