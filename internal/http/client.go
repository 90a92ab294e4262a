package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNetwork      = errors.New("http: network error")
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrBadRequest   = errors.New("http: bad request")
	ErrServerError  = errors.New("http: server error")
)

// Options configures the HTTP client.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 10
	MaxIdleConnsPerHost int

	// SnippetLength is the maximum number of bytes of an error response
	// body kept in StatusError.Snippet. Zero drops the body.
	// Default: 100
	SnippetLength int

	// UserAgent is sent with every request when set.
	UserAgent string
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 10,
		SnippetLength:       100,
		UserAgent:           "downlog",
	}
}

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	Code    int
	Status  string
	Snippet string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d", e.Code)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Snippet != "" {
		msg += ": " + e.Snippet
	}
	return msg
}

// Unwrap maps the status code to one of the package sentinels.
func (e *StatusError) Unwrap() error {
	return checkStatusCode(e.Code)
}

// Response is a successful response whose body the caller must close.
type Response struct {
	Body               io.ReadCloser
	StatusCode         int
	ContentType        string
	ContentDisposition string
	ContentLength      int64
}

// Client posts JSON jobs to archive nodes.
//
// The client has no overall timeout and never retries: callers bound a
// request with the context they pass in.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // Archives are already compressed
	}

	return &Client{
		client: &http.Client{Transport: transport},
		opts:   opts,
	}
}

// PostJSON sends body as JSON to url. A non-2xx response is returned as
// *StatusError; transport failures wrap ErrNetwork and the underlying error,
// so context cancellation stays visible through errors.Is.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/zip, application/octet-stream")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if err := checkStatusCode(resp.StatusCode); err != nil {
		defer resp.Body.Close()
		return nil, &StatusError{
			Code:    resp.StatusCode,
			Status:  http.StatusText(resp.StatusCode),
			Snippet: readSnippet(resp.Body, c.opts.SnippetLength),
		}
	}

	return &Response{
		Body:               resp.Body,
		StatusCode:         resp.StatusCode,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
		ContentLength:      resp.ContentLength,
	}, nil
}

// readSnippet reads at most n bytes of r as trimmed text. A rune cut in half
// by the limit is dropped.
func readSnippet(r io.Reader, n int) string {
	if n <= 0 {
		return ""
	}
	data, _ := io.ReadAll(io.LimitReader(r, int64(n)))
	return strings.TrimSpace(strings.ToValidUTF8(string(data), ""))
}

// IsArchiveType reports whether a Content-Type value declares a ZIP or
// generic binary payload.
func IsArchiveType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "zip") || strings.Contains(ct, "application/octet-stream")
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return ErrServerError
	case code >= 400:
		return ErrBadRequest
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
