package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ifResults() map[string][]float64 {
	return map[string][]float64{
		"FREQ":        {1e9, 2e9, 3e9},
		"GAIN_USB_DB": {-1, -1.5, -2},
		"GAIN_LSB_DB": {-2, -2.5, -3},
		"TSSB":        {40, 45, 50},
		"TDSB":        {20, 22, 25},
	}
}

func TestIFSweepFigures(t *testing.T) {
	figs := IFSweepFigures(ifResults())
	require.Len(t, figs, 2)
	assert.Equal(t, "gain", figs[0].Name)
	assert.Equal(t, []float64{1, 2, 3}, figs[0].Series[0].X)
	assert.Equal(t, "noise", figs[1].Name)

	assert.Nil(t, IFSweepFigures(map[string][]float64{}))
}

func TestBiasSweepFigures(t *testing.T) {
	res := map[string][]float64{
		"SWEEP1": {1e-3, 2e-3},
		"V0":     {1e-3, 2e-3},
		"I0":     {1e-6, 3e-6},
	}
	figs := BiasSweepFigures(res)
	require.Len(t, figs, 1)
	assert.InDeltaSlice(t, []float64{1, 2}, figs[0].Series[0].X, 1e-12)
	assert.InDeltaSlice(t, []float64{1, 3}, figs[0].Series[0].Y, 1e-12)

	res["GAIN_USB"] = []float64{0.5, math.NaN()}
	res["GAIN_LSB"] = []float64{0.25, math.NaN()}
	figs = BiasSweepFigures(res)
	require.Len(t, figs, 2)
	assert.Equal(t, "biasgain", figs[1].Name)
}

func TestNonFinitePointsSkipped(t *testing.T) {
	f := Figure{Name: "x"}
	xys := f.points(Series{X: []float64{1, 2, 3}, Y: []float64{1, math.NaN(), math.Inf(1)}})
	assert.Len(t, xys, 1)

	_, err := Figure{Name: "empty", Series: []Series{{X: []float64{1}, Y: []float64{math.NaN()}}}}.Plot()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSaveAll(t *testing.T) {
	base := filepath.Join(t.TempDir(), "mixer.png")
	paths, err := SaveAll(base, IFSweepFigures(ifResults()))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "mixer_gain.png"))
	for _, p := range paths {
		st, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, st.Size())
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, map[string][]float64{
		"FREQ": {1e9, 2e9},
		"TSSB": {40, 41.5},
		"GAIN": {0.5},
	}, "FREQ"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "# FREQ\tGAIN\tTSSB", lines[0])
	assert.Equal(t, "1000000000\t0.5\t40", lines[1])
	assert.Equal(t, "2000000000\tNaN\t41.5", lines[2])

	assert.ErrorIs(t, WriteTable(&buf, map[string][]float64{}, "FREQ"), ErrNoData)
}

func TestSuffixed(t *testing.T) {
	tests := []struct {
		base, name, ext, want string
	}{
		{"out.png", "gain", ".png", "out_gain.png"},
		{"out", "gain", ".png", "out_gain.png"},
		{"dir/run.svg", "iv", ".png", "dir/run_iv.svg"},
		{"res.tsv", "bias", ".tsv", "res_bias.tsv"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Suffixed(tt.base, tt.name, tt.ext))
	}
}
