package splunk

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

const jobsPath = "services/search/jobs"

// Query describes one search submission. Earliest and Latest are forwarded
// verbatim when set; the server applies its own default range otherwise.
type Query struct {
	Search   string
	Earliest string
	Latest   string
}

// CreateJob submits q as an asynchronous search job and returns the
// server-assigned search id. A failure here is terminal for the run.
func (c *Client) CreateJob(ctx context.Context, q Query) (string, error) {
	if strings.TrimSpace(q.Search) == "" {
		return "", &SubmissionError{Err: errors.New("search string is empty")}
	}

	form := url.Values{"search": {q.Search}}
	if q.Earliest != "" {
		form.Set("earliest_time", q.Earliest)
	}
	if q.Latest != "" {
		form.Set("latest_time", q.Latest)
	}

	resp, err := c.PostForm(ctx, jobsPath, form, url.Values{"output_mode": {"json"}})
	if err != nil {
		return "", &SubmissionError{Err: err}
	}

	var payload struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return "", &SubmissionError{Err: &ProtocolError{Field: "sid", Preview: Preview(resp.Body)}}
	}
	if payload.SID == "" {
		return "", &SubmissionError{Err: &ProtocolError{Field: "sid", Preview: Preview(resp.Body)}}
	}

	c.logger.Info("search job created", zap.String("sid", payload.SID))
	return payload.SID, nil
}
