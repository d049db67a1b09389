package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/burnrate"
)

// newBurnrateCmd creates the 'burnrate' subcommand: compute the SLO error
// burn rate from a local log file. It makes no network calls, so it needs no
// connection configuration.
func newBurnrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "burnrate",
		Short:   "Compute the SLO error burn rate from a log file",
		Example: "  splunkq burnrate --log access.log",
		RunE:    runBurnrate,
	}

	cmd.Flags().String("log", "", "path to the log file")
	cmd.Flags().Float64("slo-target", burnrate.DefaultSLOTarget, "error budget, e.g. 0.001 for a 99.9% target")
	_ = cmd.MarkFlagRequired("log") //nolint:errcheck // flag exists

	return cmd
}

func runBurnrate(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("log")
	target, _ := cmd.Flags().GetFloat64("slo-target")

	f, err := os.Open(path)
	if err != nil {
		app.logger.Error("opening log file failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}
	defer func() {
		_ = f.Close() //nolint:errcheck // read-only file
	}()

	rep, err := burnrate.Calculate(f, target)
	if err != nil {
		app.logger.Error("burn rate calculation failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}

	app.logger.Debug("burn rate computed",
		zap.Int("lines", rep.Total),
		zap.Int("errors", rep.Errors),
		zap.Float64("error_rate", rep.ErrorRate),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "Burn rate: %.2f\n", rep.BurnRate)
	return nil
}
