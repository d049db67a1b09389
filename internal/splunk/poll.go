package splunk

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/metrics"
)

// Poll loop defaults; completion times are typically seconds, so a fixed
// interval beats backoff here. The deadline bounds total cost when the
// service degrades.
const (
	DefaultMaxWait      = 120 * time.Second
	DefaultPollInterval = 1500 * time.Millisecond
)

// PollConfig bounds one wait for job completion. Zero values take the
// package defaults; a negative MaxWait means the deadline has already
// passed, which still permits exactly one status check.
type PollConfig struct {
	MaxWait  time.Duration
	Interval time.Duration
}

func (p PollConfig) withDefaults() PollConfig {
	if p.MaxWait == 0 {
		p.MaxWait = DefaultMaxWait
	}
	if p.Interval == 0 {
		p.Interval = DefaultPollInterval
	}
	return p
}

// PollOutcome is the terminal state of a poll loop.
type PollOutcome string

const (
	// PollDone means the job reported isDone=true.
	PollDone PollOutcome = "done"
	// PollTimedOut means the deadline elapsed before the job finished.
	PollTimedOut PollOutcome = "timed_out"
	// PollFailed means a transport, HTTP, or payload error ended the loop.
	PollFailed PollOutcome = "failed"
)

// PollReport describes how a poll loop terminated. Err is set for
// PollTimedOut (a *TimeoutError) and PollFailed; it is nil for PollDone.
type PollReport struct {
	Outcome PollOutcome
	Polls   int
	Elapsed time.Duration
	Err     error
}

// AwaitCompletion polls the job identified by sid until it reports done, cfg's
// deadline elapses, or a fatal error occurs. Errors are never retried here;
// whether to retry a whole run is the caller's decision. Cancellation is
// honored at each iteration boundary.
func (c *Client) AwaitCompletion(ctx context.Context, sid string, cfg PollConfig) PollReport {
	cfg = cfg.withDefaults()
	start := time.Now()
	deadline := start.Add(cfg.MaxWait)
	report := PollReport{}

	for {
		done, err := c.jobDone(ctx, sid)
		report.Polls++
		report.Elapsed = time.Since(start)
		metrics.ObservePoll()

		if err != nil {
			report.Outcome = PollFailed
			report.Err = err
			return report
		}
		if done {
			c.logger.Info("search job done",
				zap.String("sid", sid),
				zap.Int("polls", report.Polls),
				zap.Duration("elapsed", report.Elapsed),
			)
			report.Outcome = PollDone
			return report
		}
		// The deadline check follows the status check on purpose: an
		// already-expired deadline still gets one look at the job.
		if time.Now().After(deadline) {
			report.Outcome = PollTimedOut
			report.Err = &TimeoutError{SID: sid, Elapsed: report.Elapsed, Polls: report.Polls}
			return report
		}

		c.logger.Debug("search job still running", zap.String("sid", sid))
		timer := time.NewTimer(cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			report.Outcome = PollFailed
			report.Err = ctx.Err()
			return report
		case <-timer.C:
		}
	}
}

// jobDone performs one status check. A missing or malformed isDone field is a
// ProtocolError, never a default of either true or false.
func (c *Client) jobDone(ctx context.Context, sid string) (bool, error) {
	resp, err := c.Get(ctx, jobsPath+"/"+url.PathEscape(sid), url.Values{"output_mode": {"json"}})
	if err != nil {
		return false, err
	}

	var payload struct {
		Entry []struct {
			Content struct {
				IsDone *bool `json:"isDone"`
			} `json:"content"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return false, &ProtocolError{Field: "entry[0].content.isDone", Preview: Preview(resp.Body)}
	}
	if len(payload.Entry) == 0 || payload.Entry[0].Content.IsDone == nil {
		return false, &ProtocolError{Field: "entry[0].content.isDone", Preview: Preview(resp.Body)}
	}
	return *payload.Entry[0].Content.IsDone, nil
}
