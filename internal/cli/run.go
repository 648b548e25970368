package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/PaulKGrimes/supermix-sub001/internal/report"
	"github.com/PaulKGrimes/supermix-sub001/pkg/analysis"
	"github.com/PaulKGrimes/supermix-sub001/pkg/circuit"
	"github.com/PaulKGrimes/supermix-sub001/pkg/config"
	"github.com/PaulKGrimes/supermix-sub001/pkg/ivcurve"
	"github.com/PaulKGrimes/supermix-sub001/pkg/junction"
)

// runOpts holds command-line overrides of the [output] section.
type runOpts struct {
	plot  string
	table string
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run <config.toml>",
		Short: "Balance a pumped SIS mixer and compute its gain and noise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return err
			}
			if opts.plot != "" {
				cfg.Output.Plot = opts.plot
			}
			if opts.table != "" {
				cfg.Output.Table = opts.table
			}
			return runMixer(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVarP(&opts.plot, "plot", "p", "", "plot file (png, svg or pdf); figure names are appended")
	cmd.Flags().StringVarP(&opts.table, "table", "t", "", "tab-separated results file")
	return cmd
}

// mixer is a junction balanced against its embedding.
type mixer struct {
	cfg     *config.Config
	logger  *log.Logger
	emb     *circuit.Embedding
	balance *analysis.Balance
}

func newMixer(cfg *config.Config, logger *log.Logger) (*mixer, error) {
	iv, err := loadCurve(cfg, logger)
	if err != nil {
		return nil, err
	}
	sis := junction.NewSIS(cfg.Device.Vn.Float(), cfg.Device.Rn.Float(), cfg.Device.Cap.Float(), iv,
		junction.WithLogger(logger))

	text, err := cfg.NetlistText()
	if err != nil {
		return nil, err
	}
	emb, err := circuit.Parse(text, circuit.WithGmin(cfg.Circuit.Gmin.Float()), circuit.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("embedding circuit: %w", err)
	}

	b := analysis.NewBalance(sis, cfg.LO.Freq.Float(), cfg.LO.Harmonics, cfg.NewtonOptions()...)
	b.Logger = logger
	b.VoltageScale = cfg.Newton.VoltageScale.Float()
	if err := b.Setup(emb); err != nil {
		emb.Destroy()
		return nil, fmt.Errorf("harmonic balance setup error: %w", err)
	}
	return &mixer{cfg: cfg, logger: logger, emb: emb, balance: b}, nil
}

func loadCurve(cfg *config.Config, logger *log.Logger) (*ivcurve.IVCurve, error) {
	if cfg.UseFakeCurve() {
		logger.Debug("using synthetic I-V curve")
		return ivcurve.NewFake().Curve(ivcurve.WithLogger(logger))
	}
	iv := ivcurve.New(ivcurve.WithLogger(logger))
	if err := iv.LoadFiles(cfg.Device.IdcFile, cfg.Device.IkkFile); err != nil {
		return nil, err
	}
	return iv, nil
}

func (m *mixer) close() { m.emb.Destroy() }

func runMixer(ctx context.Context, w io.Writer, cfg *config.Config) error {
	logger := loggerFromContext(ctx)
	m, err := newMixer(cfg, logger)
	if err != nil {
		return err
	}
	defer m.close()

	prog := newProgress(logger)
	if err := m.balance.Execute(); err != nil {
		return fmt.Errorf("harmonic balance error: %w", err)
	}
	res := m.balance.Result()
	prog.done(fmt.Sprintf("Harmonic balance %s after %d iterations", res.Status, res.Iterations))
	printBalance(w, m.balance)
	if m.balance.NoSolution() {
		return fmt.Errorf("%w: %s", analysis.ErrNotConverged, res.Status)
	}

	var figs []report.Figure
	if cfg.IFSweep.Points > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, err := m.ifSweep(w)
		if err != nil {
			return err
		}
		figs = append(figs, report.IFSweepFigures(results)...)
		if err := m.saveTable(results, "FREQ", "if"); err != nil {
			return err
		}
	}
	if cfg.BiasSweep.Enabled {
		if err := ctx.Err(); err != nil {
			return err
		}
		results, err := m.biasSweep(w)
		if err != nil {
			return err
		}
		figs = append(figs, report.BiasSweepFigures(results)...)
		if err := m.saveTable(results, "SWEEP1", "bias"); err != nil {
			return err
		}
	}

	if cfg.Output.Plot != "" && len(figs) > 0 {
		paths, err := report.SaveAll(cfg.Output.Plot, figs)
		if err != nil {
			return err
		}
		for _, p := range paths {
			logger.Info("wrote plot", "path", p)
		}
	}
	return nil
}

func (m *mixer) ifSweep(w io.Writer) (map[string][]float64, error) {
	s := m.cfg.IFSweep
	ss := analysis.NewSmallSignal(m.balance, s.Start.Float(), s.Stop.Float(), s.Points, s.Type)
	ss.Logger = m.logger
	ss.Temp = m.cfg.Device.Temp.Float()
	ss.TermTemp = s.TermTemp.Float()

	prog := newProgress(m.logger)
	if err := ss.Setup(m.emb); err != nil {
		return nil, fmt.Errorf("small signal setup error: %w", err)
	}
	if err := ss.Execute(); err != nil {
		return nil, fmt.Errorf("small signal error: %w", err)
	}
	prog.done(fmt.Sprintf("IF sweep of %d points", len(ss.Points())))
	printIFSweep(w, ss.Points())
	return ss.GetResults(), nil
}

func (m *mixer) biasSweep(w io.Writer) (map[string][]float64, error) {
	s := m.cfg.BiasSweep
	bs := analysis.NewBiasSweep(m.balance, m.cfg.Circuit.Bias, s.Start.Float(), s.Stop.Float(), s.Step.Float())
	bs.Logger = m.logger
	bs.IFFreq = s.IFFreq.Float()
	bs.Temp = m.cfg.Device.Temp.Float()
	bs.TermTemp = m.cfg.IFSweep.TermTemp.Float()

	prog := newProgress(m.logger)
	if err := bs.Setup(m.emb); err != nil {
		return nil, fmt.Errorf("bias sweep setup error: %w", err)
	}
	if err := bs.Execute(); err != nil {
		return nil, fmt.Errorf("bias sweep error: %w", err)
	}
	results := bs.GetResults()
	prog.done(fmt.Sprintf("Bias sweep of %d points", len(results["SWEEP1"])))
	printBiasSweep(w, m.cfg.Circuit.Bias, results)
	return results, nil
}

func (m *mixer) saveTable(results map[string][]float64, key, name string) error {
	if m.cfg.Output.Table == "" {
		return nil
	}
	path := report.Suffixed(m.cfg.Output.Table, name, ".tsv")
	if err := report.SaveTable(path, results, key); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	m.logger.Info("wrote table", "path", path)
	return nil
}
