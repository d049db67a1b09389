// Package splunk implements the REST client and the search job lifecycle:
// submit a search, poll the job until it completes or a deadline passes,
// and fetch the finished result set.
package splunk

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/opsverify/splunkq/internal/metrics"
)

// DefaultTimeout bounds a single HTTP request when Config.Timeout is unset.
const DefaultTimeout = 20 * time.Second

// Config holds the connection parameters for one Client.
type Config struct {
	// BaseURL is the server root, e.g. https://stack.splunkcloud.com.
	BaseURL string
	// Username and Password enable HTTP basic auth when both are set.
	Username string
	Password string
	// Insecure disables TLS certificate verification. Only for trusted
	// self-signed endpoints.
	Insecure bool
	// Timeout bounds each individual request, not the whole run.
	Timeout time.Duration
}

// Response is the outcome of a single HTTP exchange.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is a thin REST transport with basic auth and per-request timeouts.
// It carries no job state; the same Client serves every stage of a run.
type Client struct {
	cfg    Config
	base   string
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a Client from cfg. The base URL must be non-empty;
// credential validation is the config layer's job and happens before this.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402 -- operator opt-in
		logger.Warn("TLS verification disabled; use only with trusted servers")
	}

	return &Client{
		cfg:    cfg,
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		http:   &http.Client{Transport: transport},
		logger: logger,
	}, nil
}

// Get issues a GET to path with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, params, nil)
}

// PostForm issues a POST to path with a form-encoded body and query parameters.
func (c *Client) PostForm(ctx context.Context, path string, form, params url.Values) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, params, form)
}

// Close releases idle connections. Callers defer it once per run so the
// transport never outlives the run that opened it.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, params, form url.Values) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	endpoint := c.base + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	op := method + " " + path

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(op, err)
	}

	metrics.ObserveHTTPRequest(method, resp.StatusCode, time.Since(start))
	c.logger.Debug("http exchange",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(payload)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Preview: Preview(payload)}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

// classifyTransportError maps low-level failures onto the TransportError
// taxonomy so callers get a hint instead of a bare connection string.
func classifyTransportError(op string, err error) error {
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return &TransportError{
			Kind: TransportTLS,
			Op:   op,
			Hint: "if the server uses a trusted self-signed certificate, retry with TLS verification disabled",
			Err:  err,
		}
	}
	var netErr net.Error
	if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{
			Kind: TransportTimeout,
			Op:   op,
			Hint: "increase the request timeout or narrow the search",
			Err:  err,
		}
	}
	return &TransportError{
		Kind: TransportConnection,
		Op:   op,
		Hint: "verify the host URL and network reachability",
		Err:  err,
	}
}
