package splunk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeServer emulates the job-collection REST surface: submit, status, and
// results endpoints with scriptable behavior.
type fakeServer struct {
	mu sync.Mutex

	sid            string
	submitStatus   int
	submitBody     string // overrides the default {"sid": ...} payload when set
	statusStatus   int
	statusBody     string // overrides the isDone payload when set
	pollsUntilDone int    // job reports done on the Nth status check; 0 means never
	resultsJSON    string
	resultsCSV     string

	submits int
	polls   int
	fetches int

	srv *httptest.Server
}

func newFakeServer() *fakeServer {
	f := &fakeServer{
		sid:            "1694358205.12345",
		pollsUntilDone: 1,
		resultsJSON:    `{"fields":[{"name":"count"}],"results":[{"count":"5"}]}`,
		resultsCSV:     "count\n5\n",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /services/search/jobs", f.handleSubmit)
	mux.HandleFunc("GET /services/search/jobs/{sid}", f.handleStatus)
	mux.HandleFunc("GET /services/search/jobs/{sid}/results", f.handleResults)
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeServer) Close() { f.srv.Close() }

func (f *fakeServer) URL() string { return f.srv.URL }

// configure mutates server behavior under the lock so handler goroutines
// never race with test setup.
func (f *fakeServer) configure(fn func(*fakeServer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeServer) counts() (submits, polls, fetches int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits, f.polls, f.fetches
}

func (f *fakeServer) handleSubmit(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.submits++
	status, body, sid := f.submitStatus, f.submitBody, f.sid
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, body)
		return
	}
	if body != "" {
		fmt.Fprint(w, body)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"sid": sid}) //nolint:errcheck // test server
}

func (f *fakeServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	f.polls++
	polls := f.polls
	status, body, until := f.statusStatus, f.statusBody, f.pollsUntilDone
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		fmt.Fprint(w, "internal error")
		return
	}
	if body != "" {
		fmt.Fprint(w, body)
		return
	}
	done := until > 0 && polls >= until
	fmt.Fprintf(w, `{"entry":[{"content":{"isDone":%t}}]}`, done)
}

func (f *fakeServer) handleResults(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.fetches++
	jsonBody, csvBody := f.resultsJSON, f.resultsCSV
	f.mu.Unlock()

	if r.URL.Query().Get("count") != "0" {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, "expected count=0")
		return
	}
	switch r.URL.Query().Get("output_mode") {
	case "csv":
		fmt.Fprint(w, csvBody)
	default:
		fmt.Fprint(w, jsonBody)
	}
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:  baseURL,
		Username: "admin",
		Password: "changeme",
		Timeout:  2 * time.Second,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// fastPoll keeps poll tests quick while preserving several loop iterations.
func fastPoll(maxWait, interval time.Duration) PollConfig {
	return PollConfig{MaxWait: maxWait, Interval: interval}
}

func countLines(s string) int {
	return len(strings.Split(strings.TrimRight(s, "\n"), "\n"))
}
