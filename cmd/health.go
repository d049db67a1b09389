package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/health"
)

// newHealthCmd creates the 'health' subcommand: one-shot server health check.
func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "health",
		Short:   "Check server health",
		Example: "  splunkq health --host https://stack.splunkcloud.com",
		RunE:    runHealth,
	}
}

func runHealth(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	client, err := app.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	status, err := health.Check(cmd.Context(), client)
	if err != nil {
		app.logger.Error("health check failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "overall_status: %s\n", status.Overall)
	if !status.Healthy() {
		app.logger.Error("server unhealthy", zap.String("overall_status", status.Overall))
		return exitWith(exitFailure, fmt.Errorf("server reports status %q", status.Overall))
	}

	app.logger.Info("server healthy")
	return nil
}
