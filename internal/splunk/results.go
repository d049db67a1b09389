package splunk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Record is one result row, keyed by field name. Values are whatever the
// server serialized; stats output is typically strings.
type Record map[string]any

// String returns the value of field rendered as a string, or "" when absent.
func (r Record) String(field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ResultSet is the finalized output of a completed job. It is read-only once
// fetched; the structured and raw forms describe the same records.
type ResultSet struct {
	SID     string
	Fields  []string
	Records []Record
	RawCSV  []byte
}

// Len reports the number of structured records.
func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

// EventCount reads field from the first record as an integer. It backs the
// ingestion check ("did any events land") and is a pure interpretation of a
// fetched ResultSet, independent of the job lifecycle.
func EventCount(rs *ResultSet, field string) (int, error) {
	if rs.Len() == 0 {
		return 0, nil
	}
	raw := rs.Records[0].String(field)
	if raw == "" {
		return 0, fmt.Errorf("field %q absent from first record", field)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("field %q is not an integer: %q", field, raw)
	}
	return n, nil
}

func resultsParams(mode string) url.Values {
	// count=0 asks for the full result set in one round trip.
	return url.Values{"output_mode": {mode}, "count": {"0"}}
}

func resultsPath(sid string) string {
	return jobsPath + "/" + url.PathEscape(sid) + "/results"
}

// FetchResults retrieves the structured (JSON) results of a completed job.
// Call it only after AwaitCompletion reports done.
func (c *Client) FetchResults(ctx context.Context, sid string) (*ResultSet, error) {
	resp, err := c.Get(ctx, resultsPath(sid), resultsParams("json"))
	if err != nil {
		return nil, &FetchError{SID: sid, Format: "json", Err: err}
	}

	var payload struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
		Results []Record `json:"results"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return nil, &FetchError{SID: sid, Format: "json", Err: &ProtocolError{Field: "results", Preview: Preview(resp.Body)}}
	}

	rs := &ResultSet{SID: sid, Records: payload.Results}
	for _, f := range payload.Fields {
		rs.Fields = append(rs.Fields, f.Name)
	}
	return rs, nil
}

// FetchResultsCSV retrieves the raw delimited form of the same result set.
// The job's output is immutable once done, so this need not be atomic with
// FetchResults.
func (c *Client) FetchResultsCSV(ctx context.Context, sid string) ([]byte, error) {
	resp, err := c.Get(ctx, resultsPath(sid), resultsParams("csv"))
	if err != nil {
		return nil, &FetchError{SID: sid, Format: "csv", Err: err}
	}
	return resp.Body, nil
}
