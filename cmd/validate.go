package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/splunk"
)

// newValidateCmd creates the 'validate' subcommand: check that events landed
// in an index during the requested window.
func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate event ingestion by counting recent events in an index",
		Example: `  splunkq validate --index main --earliest -15m@m --latest now
  splunkq validate --index main --filter 'sourcetype=syslog host=web01'`,
		RunE: runValidate,
	}

	cmd.Flags().String("index", "", "index to validate (e.g. main, _internal)")
	cmd.Flags().String("filter", "", "optional extra search terms, e.g. 'sourcetype=syslog host=web01'")
	cmd.Flags().String("earliest", "-15m@m", "earliest time for the search")
	cmd.Flags().String("latest", "now", "latest time for the search")
	cmd.Flags().Int("max-wait", 120, "maximum seconds to wait for job completion")
	_ = cmd.MarkFlagRequired("index") //nolint:errcheck // flag exists

	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	client, err := app.newClient()
	if err != nil {
		return err
	}

	index, _ := cmd.Flags().GetString("index")
	filter, _ := cmd.Flags().GetString("filter")
	earliest, _ := cmd.Flags().GetString("earliest")
	latest, _ := cmd.Flags().GetString("latest")

	search := fmt.Sprintf("search index=%q", index)
	if filter != "" {
		search += " " + filter
	}
	search += " | stats count as event_count"

	runner := splunk.NewRunner(client, pollConfigFromFlags(cmd, app.cfg), app.logger)

	outcome := runner.Run(cmd.Context(), splunk.Query{
		Search:   search,
		Earliest: earliest,
		Latest:   latest,
	}, splunk.FormatJSON)
	if !outcome.OK {
		return exitWith(outcome.ExitCode, fmt.Errorf("%s", outcome.Message))
	}

	// Interpreting the result set is deliberately separate from running the
	// job: a successful run with zero events is still a validation failure.
	count, err := splunk.EventCount(outcome.Results, "event_count")
	if err != nil {
		app.logger.Error("reading event count failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Event count: %d\n", count)
	if count == 0 {
		app.logger.Error("no events found in the requested window",
			zap.String("index", index),
			zap.String("earliest", earliest),
			zap.String("latest", latest),
		)
		return exitWith(exitFailure, fmt.Errorf("no events found in index %q", index))
	}

	app.logger.Info("ingestion OK", zap.String("index", index), zap.Int("events", count))
	return nil
}
