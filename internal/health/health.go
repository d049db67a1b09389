// Package health checks overall server health via the REST API.
package health

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/opsverify/splunkq/internal/splunk"
)

const healthPath = "services/server/health"

// Status is the server-reported health snapshot.
type Status struct {
	Overall string
}

// Healthy reports whether the server considers itself green.
func (s Status) Healthy() bool {
	return strings.EqualFold(s.Overall, "green")
}

// Check fetches the server health endpoint and extracts the overall status.
// A missing overall_status field is a protocol error, never assumed healthy.
func Check(ctx context.Context, c *splunk.Client) (Status, error) {
	resp, err := c.Get(ctx, healthPath, url.Values{"output_mode": {"json"}})
	if err != nil {
		return Status{}, err
	}

	var payload struct {
		Entry []struct {
			Content struct {
				OverallStatus string `json:"overall_status"`
			} `json:"content"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return Status{}, &splunk.ProtocolError{Field: "entry[0].content.overall_status", Preview: splunk.Preview(resp.Body)}
	}
	if len(payload.Entry) == 0 || payload.Entry[0].Content.OverallStatus == "" {
		return Status{}, &splunk.ProtocolError{Field: "entry[0].content.overall_status", Preview: splunk.Preview(resp.Body)}
	}
	return Status{Overall: payload.Entry[0].Content.OverallStatus}, nil
}
