package splunk

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// previewLimit bounds how much of a response body error messages carry.
const previewLimit = 300

// Preview returns a bounded, printable slice of a response body for
// inclusion in error messages. The cut backs off to a rune boundary so a
// multi-byte character is never split.
func Preview(body []byte) string {
	if len(body) == 0 {
		return "(empty)"
	}
	if len(body) <= previewLimit {
		return string(body)
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}

// TransportKind classifies low-level transport failures.
type TransportKind string

const (
	// TransportTLS covers certificate and handshake failures.
	TransportTLS TransportKind = "tls"
	// TransportTimeout covers per-request timeouts.
	TransportTimeout TransportKind = "timeout"
	// TransportConnection covers DNS, refused-connection, and reset failures.
	TransportConnection TransportKind = "connection"
)

// TransportError wraps a connection-level failure with an actionable hint.
type TransportError struct {
	Kind TransportKind
	Op   string
	Hint string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v (%s)", e.Op, e.Kind, e.Err, e.Hint)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response from the REST API. Preview holds a
// bounded slice of the response body.
type StatusError struct {
	Op         string
	StatusCode int
	Preview    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d from server, body: %s", e.Op, e.StatusCode, e.Preview)
}

// ProtocolError reports a response body that parsed (or failed to parse) but
// does not carry the expected field. It is always fatal; callers must never
// substitute a default value for the missing field.
type ProtocolError struct {
	Field   string
	Preview string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("unexpected payload: missing or malformed %q, body: %s", e.Field, e.Preview)
}

// SubmissionError reports a failed job creation. Submission failures are
// terminal for the run; there are no retries at this layer.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("create search job: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// FetchError reports a failed result retrieval for a completed job.
type FetchError struct {
	SID    string
	Format string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s results for job %s: %v", e.Format, e.SID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// TimeoutError reports a poll loop that gave up before the job finished.
// Elapsed and Polls are kept for follow-up diagnostics.
type TimeoutError struct {
	SID     string
	Elapsed time.Duration
	Polls   int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("search job %s not done after %s (%d polls)", e.SID, e.Elapsed.Round(time.Millisecond), e.Polls)
}
