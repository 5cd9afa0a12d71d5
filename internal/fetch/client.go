package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

const maxResponseBodySize = 10 << 20 // 10MB

// connection pooling limits; one loop per feed keeps at most one request in
// flight per feed
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 8
	defaultIdleConnTimeout     = 90 * time.Second
)

// ErrBodyTooLarge is returned when a decoded body exceeds the size limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// StatusError reports a response whose status code is outside 2xx.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("unexpected status: %s", e.Status)
	}
	return fmt.Sprintf("unexpected status: %d", e.StatusCode)
}

// Response holds the result of a request made by [Client].
type Response struct {
	// Body is the decoded response body, limited to 10MB.
	Body []byte

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request, body included.
	Latency time.Duration

	// Error is nil only for a 2xx response whose body was read and decoded.
	Error error
}

// OK reports whether the response succeeded.
func (r Response) OK() bool {
	return r.Error == nil
}

// Client is an HTTP client wrapper for polling feeds.
type Client struct {
	httpClient *http.Client
	maxBody    int64
}

// NewClient creates a new [Client] with a pooled transport.
//
// Timeouts are applied per request via [Client.Fetch], not globally.
// Transparent decompression is disabled on the transport; the client decodes
// Content-Encoding itself because callers set Accept-Encoding explicitly.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableCompression:  true,
			},
		},
		maxBody: maxResponseBodySize,
	}
}

// Fetch performs a GET request and returns a structured [Response].
//
// The timeout is applied via context; a non-positive timeout means the
// request is bounded only by ctx. A non-2xx status sets Error to a
// [*StatusError] while still returning the body.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) Response {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("failed to create request: %w", err),
		}
	}

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("request failed: %w", err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := c.readBody(resp)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("failed to read response body: %w", err),
		}
	}

	out := Response{
		Body:       body,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out.Error = &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return out
}

// readBody reads and decodes the response body within the size limit.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	raw, err := readLimited(resp.Body, c.maxBody)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" || len(raw) == 0 {
		return raw, nil
	}

	decoder, err := newDecoder(encoding, raw)
	if err != nil {
		return nil, err
	}
	defer func() { _ = decoder.Close() }()

	return readLimited(decoder, c.maxBody)
}

// newDecoder returns a reader decoding raw according to encoding.
func newDecoder(encoding string, raw []byte) (io.ReadCloser, error) {
	switch encoding {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	case "deflate":
		// RFC 9110 deflate is zlib-wrapped, but some servers send raw deflate
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err == nil {
			return zr, nil
		}
		return flate.NewReader(bytes.NewReader(raw)), nil
	case "br":
		return io.NopCloser(brotli.NewReader(bytes.NewReader(raw))), nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

// readLimited reads r fully, failing if it holds more than limit bytes.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil client. The client remains usable
// afterwards.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
