package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/PaulKGrimes/supermix-sub001/pkg/ckdata"
)

func newBesselCmd() *cobra.Command {
	var order int

	cmd := &cobra.Command{
		Use:   "bessel <x>...",
		Short: "Print Bessel functions J_0(x) .. J_n(x)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if order < 0 {
				return fmt.Errorf("order must not be negative, got %d", order)
			}
			xs := make([]float64, len(args))
			for i, a := range args {
				x, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("bad argument %q: %w", a, err)
				}
				xs[i] = x
			}
			return printBessel(cmd.OutOrStdout(), xs, order)
		},
	}
	cmd.Flags().IntVarP(&order, "order", "n", 5, "highest order")
	return cmd
}

func printBessel(w io.Writer, xs []float64, order int) error {
	if _, err := fmt.Fprintf(w, "%-8s", "n"); err != nil {
		return err
	}
	cols := make([][]float64, len(xs))
	for i, x := range xs {
		fmt.Fprintf(w, "  J_n(%-8g)", x)
		cols[i] = ckdata.Bessel(x, order)
	}
	fmt.Fprintln(w)
	for n := 0; n <= order; n++ {
		fmt.Fprintf(w, "%-8d", n)
		for _, c := range cols {
			fmt.Fprintf(w, "  %13.6e", c[n])
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
