package splunk

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitCompletionDoneOnFirstPoll(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 1 })

	c := newTestClient(t, f.URL())
	start := time.Now()
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Second, 500*time.Millisecond))

	assert.Equal(t, PollDone, report.Outcome)
	assert.NoError(t, report.Err)
	assert.Equal(t, 1, report.Polls)
	// Done on the first check means zero suspensions.
	assert.Less(t, time.Since(start), 400*time.Millisecond)

	_, polls, _ := f.counts()
	assert.Equal(t, 1, polls)
}

func TestAwaitCompletionDoneAfterSeveralPolls(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 3 })

	c := newTestClient(t, f.URL())
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Second, 10*time.Millisecond))

	assert.Equal(t, PollDone, report.Outcome)
	assert.Equal(t, 3, report.Polls)
}

func TestAwaitCompletionTimesOut(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 0 }) // never done

	c := newTestClient(t, f.URL())
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(30*time.Millisecond, 10*time.Millisecond))

	assert.Equal(t, PollTimedOut, report.Outcome)
	var timeoutErr *TimeoutError
	require.ErrorAs(t, report.Err, &timeoutErr)
	assert.Equal(t, f.sid, timeoutErr.SID)
	assert.GreaterOrEqual(t, timeoutErr.Elapsed, 30*time.Millisecond)
	// Roughly max_wait / interval status checks, give or take one.
	assert.GreaterOrEqual(t, report.Polls, 3)
	assert.LessOrEqual(t, report.Polls, 5)
}

func TestAwaitCompletionExpiredDeadlineStillChecksOnce(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 0 })

	c := newTestClient(t, f.URL())
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Nanosecond, 10*time.Millisecond))

	assert.Equal(t, PollTimedOut, report.Outcome)
	assert.Equal(t, 1, report.Polls, "an already-expired deadline still allows exactly one status check")
}

func TestAwaitCompletionExpiredDeadlineObservesDone(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 1 })

	c := newTestClient(t, f.URL())
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Nanosecond, 10*time.Millisecond))

	// The status check precedes the deadline check, so an immediately done
	// job succeeds even with no wait budget left.
	assert.Equal(t, PollDone, report.Outcome)
}

func TestAwaitCompletionMalformedPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing isDone", body: `{"entry":[{"content":{}}]}`},
		{name: "empty entry", body: `{"entry":[]}`},
		{name: "not json", body: `<xml/>`},
		{name: "wrong shape", body: `{"entry":[{"content":{"isDone":"soon"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFakeServer()
			defer f.Close()
			f.configure(func(f *fakeServer) { f.statusBody = tt.body })

			c := newTestClient(t, f.URL())
			report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Second, 10*time.Millisecond))

			assert.Equal(t, PollFailed, report.Outcome)
			var protoErr *ProtocolError
			require.ErrorAs(t, report.Err, &protoErr)

			_, polls, _ := f.counts()
			assert.Equal(t, 1, polls, "malformed payload must stop the loop")
		})
	}
}

func TestAwaitCompletionHTTPErrorStopsLoop(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.statusStatus = http.StatusInternalServerError })

	c := newTestClient(t, f.URL())
	report := c.AwaitCompletion(context.Background(), f.sid, fastPoll(time.Second, 10*time.Millisecond))

	assert.Equal(t, PollFailed, report.Outcome)
	var statusErr *StatusError
	require.ErrorAs(t, report.Err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	_, polls, _ := f.counts()
	assert.Equal(t, 1, polls, "a failed status check must not be retried")
}

func TestAwaitCompletionCancelledDuringWait(t *testing.T) {
	t.Parallel()

	f := newFakeServer()
	defer f.Close()
	f.configure(func(f *fakeServer) { f.pollsUntilDone = 0 })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	c := newTestClient(t, f.URL())
	start := time.Now()
	report := c.AwaitCompletion(ctx, f.sid, fastPoll(time.Minute, 10*time.Second))

	assert.Equal(t, PollFailed, report.Outcome)
	require.ErrorIs(t, report.Err, context.Canceled)
	// Cancellation takes effect at the suspension point, not after the full
	// poll interval.
	assert.Less(t, time.Since(start), 5*time.Second)
}
