package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  string
	date    string
)

// SetVersion sets the information printed by --version. The main package
// passes values injected with ldflags.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "supermix",
		Short:        "Harmonic balance and small-signal analysis of SIS mixers",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), level)))
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("supermix %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newFakeIVCmd())
	root.AddCommand(newBesselCmd())
	return root
}

// Execute runs the supermix command tree.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	root.SetErr(os.Stderr)
	return root.ExecuteContext(ctx)
}
