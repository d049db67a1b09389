package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/export"
	"github.com/opsverify/splunkq/internal/splunk"
)

// newSearchCmd creates the 'search' subcommand: run one search end to end and
// save the results as both JSON and CSV.
func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a search and save results to CSV and JSON",
		Long: `Submits the search as an asynchronous job, polls until the job completes
or the wait budget runs out, then downloads the results in both JSON and
CSV form and writes them to the output directory.`,
		Example: `  splunkq search --search 'search index=_internal | head 5'
  splunkq search --search 'search index=_internal sourcetype=splunkd' --earliest -15m@m --latest now`,
		RunE: runSearch,
	}

	cmd.Flags().String("search", "", "SPL to run, e.g. 'search index=_internal | head 5'")
	cmd.Flags().String("earliest", "", "earliest_time, e.g. -15m@m or 2025-10-26T00:00:00")
	cmd.Flags().String("latest", "", "latest_time, e.g. now or 2025-10-26T23:59:59")
	cmd.Flags().String("outdir", "", "directory to save results (default: today's UTC date folder)")
	cmd.Flags().Int("max-wait", 120, "maximum seconds to wait for job completion")
	cmd.Flags().Int("interval", 1500, "poll interval in milliseconds")
	_ = cmd.MarkFlagRequired("search") //nolint:errcheck // flag exists

	return cmd
}

func runSearch(cmd *cobra.Command, _ []string) error {
	app, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	client, err := app.newClient()
	if err != nil {
		return err
	}

	search, _ := cmd.Flags().GetString("search")
	earliest, _ := cmd.Flags().GetString("earliest")
	latest, _ := cmd.Flags().GetString("latest")
	outdir, _ := cmd.Flags().GetString("outdir")

	runner := splunk.NewRunner(client, pollConfigFromFlags(cmd, app.cfg), app.logger)

	outcome := runner.Run(cmd.Context(), splunk.Query{
		Search:   search,
		Earliest: earliest,
		Latest:   latest,
	}, splunk.FormatJSON, splunk.FormatCSV)
	if !outcome.OK {
		return exitWith(outcome.ExitCode, fmt.Errorf("%s", outcome.Message))
	}

	writer := export.NewWriter(outdir, time.Now, app.logger)
	jsonPath, err := writer.WriteJSON(outcome.Results)
	if err != nil {
		app.logger.Error("saving JSON results failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}
	csvPath, err := writer.WriteCSV(outcome.Results)
	if err != nil {
		app.logger.Error("saving CSV results failed", zap.Error(err))
		return exitWith(exitFailure, err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\nsaved %s\n", jsonPath, csvPath)
	return nil
}
