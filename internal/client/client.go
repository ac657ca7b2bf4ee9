// Package client talks to the remote cleaning service over HTTP.
//
// A Client implements core.Cleaner: it uploads the selected file as a
// multipart form under the field "file", with the mode's options encoded in
// the query string, and decodes the JSON answer into a core.Result.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/aibox/internal/core"
)

const (
	// DefaultTimeout bounds one cleaning call end to end.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxResponseSize caps how much of a response body is read.
	DefaultMaxResponseSize int64 = 4 << 20

	// RequestIDHeader carries a per-call id the service can log.
	RequestIDHeader = "X-Request-ID"
)

// Client is an HTTP client for the cleaning service.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *core.SubmitLimiter
	maxBody int64
	logger  *slog.Logger
	newID   func() string
}

var _ core.Cleaner = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLimiter caps concurrent calls through l.
func WithLimiter(l *core.SubmitLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithMaxResponseSize caps how many response bytes are read.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the service at baseURL. An empty baseURL is a
// deployment problem and returns an error matching core.ErrMisconfigured.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("client: %w", core.ErrMisconfigured)
	}

	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: DefaultTimeout},
		maxBody: DefaultMaxResponseSize,
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Clean uploads req.File to req.Path and decodes the service's answer.
//
// Errors are *core.TransportError for network failures, a full limiter and
// non-2xx statuses (carrying the response text), or
// *core.MalformedResponseError for a 2xx body that is not a result.
func (c *Client) Clean(ctx context.Context, req core.CleanRequest) (core.Result, error) {
	if req.File == nil {
		return core.Result{}, core.ErrNoFileSelected
	}

	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return core.Result{}, core.NewNetworkError(err)
		}
		defer c.limiter.Release()
	}

	body, contentType, err := encodeMultipart(req.File)
	if err != nil {
		return core.Result{}, fmt.Errorf("encode upload: %w", err)
	}

	target := c.baseURL + req.Path
	if q := req.Query.Encode(); q != "" {
		target += "?" + q
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return core.Result{}, core.NewNetworkError(err)
	}
	reqID := c.newID()
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, reqID)

	logger := c.logger.With("call_id", reqID, "path", req.Path)
	start := time.Now()

	resp, err := c.http.Do(httpReq)
	if err != nil {
		logger.Warn("cleaning call failed", "error", err)
		return core.Result{}, core.NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, truncated, err := c.readBody(resp.Body)
	if err != nil {
		logger.Warn("reading cleaning response failed", "status", resp.StatusCode, "error", err)
		return core.Result{}, core.NewNetworkError(err)
	}

	logger.Debug("cleaning call answered",
		"status", resp.StatusCode,
		"bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.Result{}, core.NewStatusError(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if truncated {
		return core.Result{}, &core.MalformedResponseError{
			Err: fmt.Errorf("response exceeds %d bytes", c.maxBody),
		}
	}

	return core.DecodeResult(data)
}

// Ping checks that the service answers its health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return core.NewNetworkError(err)
	}
	req.Header.Set(RequestIDHeader, c.newID())

	resp, err := c.http.Do(req)
	if err != nil {
		return core.NewNetworkError(err)
	}
	defer resp.Body.Close()

	data, _, err := c.readBody(resp.Body)
	if err != nil {
		return core.NewNetworkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return core.NewStatusError(resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return nil
}

// readBody reads at most maxBody bytes and reports whether more were sent.
func (c *Client) readBody(r io.Reader) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBody+1))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, err
	}
	if int64(len(data)) > c.maxBody {
		return data[:c.maxBody], true, nil
	}
	return data, false, nil
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// encodeMultipart writes f as the "file" part of a multipart form.
func encodeMultipart(f *core.SelectedFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
