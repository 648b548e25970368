package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

const mixerConfig = `
[device]
vn = "2.8m"
rn = 20
temp = 4.2

[lo]
freq = "230G"
harmonics = 1

[circuit]
bias = "VB"
netlist = """
pumped SIS
VB 1 0 DC 2.2m
RB 1 2 5
VLO 3 0 HARM 1 1m 0
RLO 3 2 20
.junction 2 0
"""

[ifsweep]
start = "1G"
stop = "2G"
points = 2

[biassweep]
enabled = true
start = "2.2m"
stop = "2.3m"
step = "0.05m"
if_freq = "1.5G"

[output]
plot = "mixer.png"
table = "mixer.tsv"
`

func TestRunMixer(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixer.toml")
	require.NoError(t, os.WriteFile(path, []byte(mixerConfig), 0o644))

	out, _, err := execute(t, "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Harmonic Balance")
	assert.Contains(t, out, "IF Analysis Results (2 frequency points)")
	assert.Contains(t, out, "Bias Sweep of VB (3 points)")

	for _, name := range []string{"mixer_gain.png", "mixer_noise.png", "mixer_iv.png", "mixer_if.tsv", "mixer_bias.tsv"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	table, err := os.ReadFile(filepath.Join(dir, "mixer_if.tsv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(table), "# FREQ\t"))
}

func TestRunMissingConfig(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, _, err = execute(t, "run")
	assert.Error(t, err)
}

func TestFakeIV(t *testing.T) {
	dir := t.TempDir()
	idc := filepath.Join(dir, "idc.dat")
	ikk := filepath.Join(dir, "ikk.dat")

	_, _, err := execute(t, "fakeiv", "--idc", idc, "--ikk", ikk, "--step", "0.01")
	require.NoError(t, err)
	assert.FileExists(t, idc)
	assert.FileExists(t, ikk)

	_, _, err = execute(t, "fakeiv", "--idc", idc, "--ikk", ikk, "--step", "0")
	assert.Error(t, err)
}

func TestBessel(t *testing.T) {
	out, _, err := execute(t, "bessel", "-n", "2", "0", "1")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"0", "1.000000e+00", "7.651977e-01"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"2", "0.000000e+00", "1.149035e-01"}, strings.Fields(lines[3]))

	_, _, err = execute(t, "bessel", "x")
	assert.Error(t, err)
	_, _, err = execute(t, "bessel", "-n", "-1", "1")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "supermix")
}
