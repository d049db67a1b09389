// Package cmd defines and implements the CLI commands for the splunkq executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/config"
	"github.com/opsverify/splunkq/internal/logging"
	"github.com/opsverify/splunkq/internal/metrics"
	"github.com/opsverify/splunkq/internal/splunk"
)

// Exit codes: 0 success, 1 any submission/poll/fetch failure, 2 missing or
// invalid configuration (detected before any network call).
const (
	exitFailure = 1
	exitConfig  = 2
)

// appKeyType is the key for storing the appState in the command context.
type appKeyType struct{}

var appKey appKeyType

// appState holds the per-invocation configuration and logger, built once in
// PersistentPreRunE and shared by every subcommand.
type appState struct {
	cfg    config.Config
	logger *zap.Logger
}

// newClient builds the REST client for commands that talk to the server.
// Missing host or credentials fail here, before any request goes out.
func (a *appState) newClient() (*splunk.Client, error) {
	if err := a.cfg.ValidateConnection(); err != nil {
		a.logger.Error("missing connection configuration", zap.Error(err))
		return nil, exitWith(exitConfig, err)
	}
	client, err := splunk.NewClient(splunk.Config{
		BaseURL:  a.cfg.Connection.Host,
		Username: a.cfg.Connection.User,
		Password: a.cfg.Connection.Password,
		Insecure: a.cfg.Connection.Insecure,
		Timeout:  a.cfg.Timeout(),
	}, a.logger)
	if err != nil {
		return nil, exitWith(exitConfig, err)
	}
	return client, nil
}

// exitError carries a process exit code up through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func exitWith(code int, err error) error {
	return &exitError{code: code, err: err}
}

// newRootCmd creates the root command and wires persistent flags into a
// dedicated viper instance so concurrent tests never share state.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "splunkq",
		Short: "Run searches against a Splunk REST endpoint and work with the results.",
		Long: `splunkq submits searches to a Splunk-compatible REST endpoint, waits for
the server-side job to finish, and retrieves the results. Subcommands cover
result export, ingestion validation, server health, and SLO burn rates.

Connection settings come from flags or SPLUNKQ_* environment variables,
e.g. SPLUNKQ_CONNECTION_HOST, SPLUNKQ_CONNECTION_USER.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.Bind(v)

			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				return exitWith(exitConfig, err)
			}

			logger, err := logging.New(cfg.Logging.Development, verbose)
			if err != nil {
				return exitWith(exitConfig, fmt.Errorf("init logger: %w", err))
			}

			metrics.Init()

			ctx := context.WithValue(cmd.Context(), appKey, &appState{cfg: cfg, logger: logger})
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if app, ok := cmd.Context().Value(appKey).(*appState); ok && app != nil {
				_ = app.logger.Sync() //nolint:errcheck // best-effort flush
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: none)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.String("host", "", "server base URL, e.g. https://stack.splunkcloud.com (or $SPLUNKQ_CONNECTION_HOST)")
	flags.String("user", "", "username for basic auth (or $SPLUNKQ_CONNECTION_USER)")
	flags.String("password", "", "password or token (or $SPLUNKQ_CONNECTION_PASSWORD)")
	flags.Int("timeout", 20, "per-request HTTP timeout in seconds")
	flags.Bool("insecure", false, "skip TLS certificate verification (NOT recommended)")

	mustBind(v, "connection.host", flags.Lookup("host"))
	mustBind(v, "connection.user", flags.Lookup("user"))
	mustBind(v, "connection.password", flags.Lookup("password"))
	mustBind(v, "connection.insecure", flags.Lookup("insecure"))
	mustBind(v, "http.timeout_seconds", flags.Lookup("timeout"))

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newHealthCmd())
	cmd.AddCommand(newBurnrateCmd())
	cmd.AddCommand(newMonitorCmd(v))

	return cmd
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

// pollConfigFromFlags builds the poll budget for one run: config values,
// overridden by whichever flags were set on the executing command. The poll
// keys are deliberately not bound to viper, since binding the same key from
// two subcommands keeps only the last flag.
func pollConfigFromFlags(cmd *cobra.Command, cfg config.Config) splunk.PollConfig {
	p := splunk.PollConfig{MaxWait: cfg.MaxWait(), Interval: cfg.PollInterval()}
	if cmd.Flags().Changed("max-wait") {
		secs, _ := cmd.Flags().GetInt("max-wait")
		p.MaxWait = time.Duration(secs) * time.Second
	}
	if f := cmd.Flags().Lookup("interval"); f != nil && f.Changed {
		ms, _ := cmd.Flags().GetInt("interval")
		p.Interval = time.Duration(ms) * time.Millisecond
	}
	return p
}

// resolveApp retrieves the appState injected by PersistentPreRunE.
func resolveApp(ctx context.Context) (*appState, error) {
	app, ok := ctx.Value(appKey).(*appState)
	if !ok || app == nil {
		return nil, errors.New("application state not initialized")
	}
	return app, nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			fmt.Fprintf(os.Stderr, "splunkq: %v\n", ee.err)
			return ee.code
		}
		fmt.Fprintf(os.Stderr, "splunkq: %v\n", err)
		return exitFailure
	}
	return 0
}
