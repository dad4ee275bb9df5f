// Package elastic implements the search backend against any
// Elasticsearch-compatible REST API.
package elastic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/time/rate"
)

// Client talks to an Elasticsearch-compatible server over HTTP.
//
// The client performs no retries: the engine is deterministic and idempotent
// given an idempotent backend, and error handling belongs to the caller.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	gzipBody   bool
	username   string
	password   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBasicAuth sets credentials sent with every request.
func WithBasicAuth(username, password string) ClientOption {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithRateLimit caps outgoing searches at n requests per second with the
// given burst. n <= 0 disables limiting.
func WithRateLimit(n float64, burst int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(n), burst)
		}
	}
}

// WithGzip compresses request bodies and advertises gzip response encoding.
func WithGzip(enabled bool) ClientOption {
	return func(c *Client) {
		c.gzipBody = enabled
	}
}

// NewClient creates a client for the server at baseURL
// (e.g. "http://localhost:9200").
func NewClient(baseURL string, optFns ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(c)
		}
	}
	return c
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search returned status %d: %s", e.StatusCode, e.Body)
}

// Search submits the query body to POST {baseURL}/{index}/_search and
// returns the raw response document.
func (c *Client) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var reader io.Reader = bytes.NewReader(body)
	if c.gzipBody {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+index+"/_search", reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.gzipBody {
		req.Header.Set("Content-Encoding", "gzip")
		req.Header.Set("Accept-Encoding", "gzip")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var responseReader io.Reader = res.Body
	if res.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		responseReader = zr
	}

	data, err := io.ReadAll(responseReader)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{StatusCode: res.StatusCode, Body: string(data)}
	}
	return data, nil
}
