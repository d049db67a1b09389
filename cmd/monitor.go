package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opsverify/splunkq/internal/health"
	"github.com/opsverify/splunkq/internal/monitor"
)

// newMonitorCmd creates the 'monitor' subcommand: a long-running server that
// probes remote health on an interval and exposes readiness plus Prometheus
// metrics.
func newMonitorCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "monitor",
		Short:   "Serve /healthz, /readyz, and /metrics while probing server health",
		Example: "  splunkq monitor --port 8080",
		RunE:    runMonitor,
	}

	cmd.Flags().Int("port", 8080, "listen port")
	cmd.Flags().Int("probe-interval", 300, "seconds between health probes")

	mustBind(v, "monitor.port", cmd.Flags().Lookup("port"))
	mustBind(v, "monitor.interval_seconds", cmd.Flags().Lookup("probe-interval"))

	return cmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	client, err := app.newClient()
	if err != nil {
		return err
	}
	defer client.Close()

	prober := monitor.ProbeFunc(func(ctx context.Context) error {
		status, err := health.Check(ctx, client)
		if err != nil {
			return err
		}
		if !status.Healthy() {
			return fmt.Errorf("server reports status %q", status.Overall)
		}
		return nil
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := monitor.New(monitor.Config{
		Port:     app.cfg.Monitor.Port,
		Interval: app.cfg.MonitorInterval(),
	}, prober, app.logger)

	if err := srv.Run(ctx); err != nil {
		return exitWith(exitFailure, err)
	}
	return nil
}
