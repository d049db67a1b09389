package splunk

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/metrics"
)

// Format selects a result serialization to fetch after completion.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Outcome is the caller-visible result of one run. Results is nil unless OK:
// the contract is all-or-nothing, no partial results on failure.
type Outcome struct {
	OK       bool
	ExitCode int
	Message  string
	Results  *ResultSet
}

// Runner sequences submit, await-completion, and fetch for one query and maps
// stage failures onto an Outcome. It attaches no retry logic anywhere;
// retrying a run is the caller's call.
type Runner struct {
	client *Client
	poll   PollConfig
	logger *zap.Logger
}

// NewRunner builds a Runner around an already-configured client.
func NewRunner(client *Client, poll PollConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{client: client, poll: poll, logger: logger}
}

// Run executes the full lifecycle for q and fetches the requested formats.
// Any stage failure short-circuits the rest. The client's connections are
// released on exit regardless of which stage failed.
func (r *Runner) Run(ctx context.Context, q Query, formats ...Format) Outcome {
	defer r.client.Close()

	logger := r.logger.With(zap.String("run_id", uuid.NewString()))
	start := time.Now()
	if len(formats) == 0 {
		formats = []Format{FormatJSON}
	}

	logger.Info("creating search job")
	sid, err := r.client.CreateJob(ctx, q)
	if err != nil {
		metrics.ObserveJob("submit_failed")
		return r.failure(logger, "submission failed", err)
	}
	metrics.ObserveJob("submitted")
	logger = logger.With(zap.String("sid", sid))

	report := r.client.AwaitCompletion(ctx, sid, r.poll)
	metrics.ObserveJobWait(report.Elapsed)
	switch report.Outcome {
	case PollDone:
	case PollTimedOut:
		metrics.ObserveJob("timed_out")
		return r.failure(logger, "poll deadline exceeded", report.Err)
	default:
		metrics.ObserveJob("poll_failed")
		return r.failure(logger, "polling failed", report.Err)
	}

	rs := &ResultSet{SID: sid}
	for _, f := range formats {
		switch f {
		case FormatJSON:
			structured, err := r.client.FetchResults(ctx, sid)
			if err != nil {
				metrics.ObserveJob("fetch_failed")
				return r.failure(logger, "fetching results failed", err)
			}
			rs.Fields = structured.Fields
			rs.Records = structured.Records
		case FormatCSV:
			raw, err := r.client.FetchResultsCSV(ctx, sid)
			if err != nil {
				metrics.ObserveJob("fetch_failed")
				return r.failure(logger, "fetching results failed", err)
			}
			rs.RawCSV = raw
		default:
			return r.failure(logger, "bad request", fmt.Errorf("unknown result format %q", f))
		}
	}

	metrics.ObserveJob("succeeded")
	elapsed := time.Since(start).Round(time.Millisecond)
	logger.Info("run complete", zap.Int("records", rs.Len()), zap.Duration("elapsed", elapsed))
	return Outcome{
		OK:      true,
		Message: fmt.Sprintf("job %s finished in %s with %d records", sid, elapsed, rs.Len()),
		Results: rs,
	}
}

func (r *Runner) failure(logger *zap.Logger, stage string, err error) Outcome {
	logger.Error(stage, zap.Error(err))
	return Outcome{
		OK:       false,
		ExitCode: 1,
		Message:  fmt.Sprintf("%s: %v", stage, err),
	}
}
