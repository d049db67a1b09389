package health

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/splunk"
)

func newHealthServer(t *testing.T, status int, body string) *splunk.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/services/server/health", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("output_mode"))
		if status != 0 {
			w.WriteHeader(status)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)

	c, err := splunk.NewClient(splunk.Config{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCheckGreen(t *testing.T) {
	t.Parallel()

	c := newHealthServer(t, 0, `{"entry":[{"content":{"overall_status":"green"}}]}`)
	status, err := Check(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "green", status.Overall)
	assert.True(t, status.Healthy())
}

func TestCheckUnhealthyStatus(t *testing.T) {
	t.Parallel()

	c := newHealthServer(t, 0, `{"entry":[{"content":{"overall_status":"red"}}]}`)
	status, err := Check(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "red", status.Overall)
	assert.False(t, status.Healthy())
}

func TestCheckHealthyIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	assert.True(t, Status{Overall: "Green"}.Healthy())
	assert.False(t, Status{Overall: ""}.Healthy())
}

func TestCheckMissingStatusField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "empty entry", body: `{"entry":[]}`},
		{name: "missing field", body: `{"entry":[{"content":{}}]}`},
		{name: "not json", body: `<html/>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := newHealthServer(t, 0, tt.body)
			_, err := Check(context.Background(), c)

			var protoErr *splunk.ProtocolError
			require.ErrorAs(t, err, &protoErr)
		})
	}
}

func TestCheckHTTPError(t *testing.T) {
	t.Parallel()

	c := newHealthServer(t, http.StatusUnauthorized, "login required")
	_, err := Check(context.Background(), c)

	var statusErr *splunk.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
}
