// http_transport.go delivers events as JSON over HTTP.

package xrayradar

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// AuthTokenHeader carries the collector auth token.
const AuthTokenHeader = "X-Xrayradar-Token"

// maxErrorBodySnippet bounds how much of an error response is kept.
const maxErrorBodySnippet = 512

// HTTPTransport posts one JSON document per event to the DSN's store URL.
// It is safe for concurrent use.
type HTTPTransport struct {
	endpoint       string
	redactedDSN    string
	client         *http.Client
	headers        map[string]string
	maxPayloadSize int
	compress       bool
	metrics        *Metrics
	closed         atomic.Bool
}

type httpTransportConfig struct {
	timeout        time.Duration
	maxPayloadSize int
	authToken      string
	verifySSL      bool
	compress       bool
	client         *http.Client
	metrics        *Metrics
}

// HTTPOption configures an HTTPTransport.
type HTTPOption func(*httpTransportConfig)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *httpTransportConfig) {
		c.timeout = d
	}
}

// WithMaxPayloadSize sets the size in bytes above which payloads are truncated.
func WithMaxPayloadSize(n int) HTTPOption {
	return func(c *httpTransportConfig) {
		c.maxPayloadSize = n
	}
}

// WithAuthToken sets the X-Xrayradar-Token value. When empty, the
// XRAYRADAR_AUTH_TOKEN environment variable is used.
func WithAuthToken(token string) HTTPOption {
	return func(c *httpTransportConfig) {
		c.authToken = token
	}
}

// WithVerifySSL toggles TLS certificate verification. Ignored when a custom
// client is supplied.
func WithVerifySSL(verify bool) HTTPOption {
	return func(c *httpTransportConfig) {
		c.verifySSL = verify
	}
}

// WithCompression gzip-compresses request bodies.
func WithCompression(enabled bool) HTTPOption {
	return func(c *httpTransportConfig) {
		c.compress = enabled
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *httpTransportConfig) {
		c.client = client
	}
}

// WithTransportMetrics records payload sizes, truncations, and send latency.
func WithTransportMetrics(m *Metrics) HTTPOption {
	return func(c *httpTransportConfig) {
		c.metrics = m
	}
}

// NewHTTPTransport creates a transport for dsn. An unparseable or malformed
// dsn returns an *InvalidDsnError.
func NewHTTPTransport(dsn string, opts ...HTTPOption) (*HTTPTransport, error) {
	parsed, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	cfg := httpTransportConfig{
		timeout:        defaults.Timeout,
		maxPayloadSize: defaults.MaxPayloadSize,
		verifySSL:      true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.authToken == "" {
		cfg.authToken = os.Getenv(AuthTokenEnv)
	}

	client := cfg.client
	if client == nil {
		base := http.DefaultTransport.(*http.Transport).Clone()
		if !cfg.verifySSL {
			base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in
		}
		client = &http.Client{Timeout: cfg.timeout, Transport: base}
	}

	headers := map[string]string{
		"Content-Type": "application/json",
		"User-Agent":   SDKName + "/" + SDKVersion,
	}
	if cfg.authToken != "" {
		headers[AuthTokenHeader] = cfg.authToken
	}
	if cfg.compress {
		headers["Content-Encoding"] = "gzip"
	}

	return &HTTPTransport{
		endpoint:       parsed.StoreURL(),
		redactedDSN:    RedactDSN(dsn),
		client:         client,
		headers:        headers,
		maxPayloadSize: cfg.maxPayloadSize,
		compress:       cfg.compress,
		metrics:        cfg.metrics,
	}, nil
}

// Endpoint is the URL events are posted to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Headers returns a copy of the headers sent with every request.
func (t *HTTPTransport) Headers() map[string]string {
	return maps.Clone(t.headers)
}

// SendEvent encodes, truncates if oversized, and posts the event once.
func (t *HTTPTransport) SendEvent(ctx context.Context, event Event) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}

	body, err := t.encode(event)
	if err != nil {
		return err
	}

	if t.compress {
		body, err = gzipBody(body)
		if err != nil {
			return &TransportError{Op: "compress", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "request", Err: err}
	}
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	t.metrics.recordSend(time.Since(start))
	if err != nil {
		return &TransportError{Op: "send", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySnippet))
		return &TransportError{
			Op:         "status",
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
			Err:        ErrNonSuccessStatus,
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// encode serializes the event and applies truncation when it exceeds the
// payload limit.
func (t *HTTPTransport) encode(event Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, &TransportError{Op: "encode", Err: fmt.Errorf("%w: %v", ErrEncode, err)}
	}
	if len(body) <= t.maxPayloadSize {
		t.metrics.recordPayload(len(body), false)
		return body, nil
	}
	truncated, err := truncatePayload(body)
	if err != nil {
		return nil, &TransportError{Op: "truncate", Err: err}
	}
	t.metrics.recordPayload(len(truncated), true)
	return truncated, nil
}

func gzipBody(body []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Flush is a no-op: every send completes before SendEvent returns.
func (t *HTTPTransport) Flush(context.Context) error {
	return nil
}

// Close releases idle connections. Later sends return ErrTransportClosed.
func (t *HTTPTransport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.client.CloseIdleConnections()
	return nil
}

// String renders the transport with credentials redacted.
func (t *HTTPTransport) String() string {
	return "xrayradar.HTTPTransport(" + t.redactedDSN + ")"
}
