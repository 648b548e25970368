package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PaulKGrimes/supermix-sub001/pkg/ivcurve"
)

type fakeIVOpts struct {
	idc, ikk string
	fake     *ivcurve.Fake
}

func newFakeIVCmd() *cobra.Command {
	opts := fakeIVOpts{fake: ivcurve.NewFake()}

	cmd := &cobra.Command{
		Use:   "fakeiv",
		Short: "Write a synthetic normalized I-V curve and its Kramers-Kronig transform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			if err := writeFakeIV(opts); err != nil {
				return err
			}
			logger.Info("wrote I-V curve", "idc", opts.idc, "ikk", opts.ikk)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.idc, "idc", "idc.dat", "DC I-V output file")
	f.StringVar(&opts.ikk, "ikk", "ikk.dat", "Kramers-Kronig output file")
	f.Float64Var(&opts.fake.RSubgap, "rsubgap", opts.fake.RSubgap, "subgap resistance in units of Rn")
	f.Float64Var(&opts.fake.GapWidth, "width", opts.fake.GapWidth, "normalized width of the gap rise")
	f.Float64Var(&opts.fake.ILeakage, "leakage", opts.fake.ILeakage, "normalized leakage current")
	f.Float64Var(&opts.fake.IDefect, "excess", opts.fake.IDefect, "normalized excess current above the gap")
	f.Float64Var(&opts.fake.VMax, "vmax", opts.fake.VMax, "largest normalized voltage tabulated")
	f.Float64Var(&opts.fake.Step, "step", opts.fake.Step, "normalized voltage step")
	return cmd
}

func writeFakeIV(opts fakeIVOpts) error {
	idc, err := os.Create(opts.idc)
	if err != nil {
		return err
	}
	defer idc.Close()
	ikk, err := os.Create(opts.ikk)
	if err != nil {
		return err
	}
	defer ikk.Close()

	if err := opts.fake.Write(idc, ikk); err != nil {
		return fmt.Errorf("writing I-V curve: %w", err)
	}
	if err := idc.Close(); err != nil {
		return err
	}
	return ikk.Close()
}
