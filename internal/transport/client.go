// Package transport implements the prism.HTTPClient collaborator: one
// authenticated request per call, with transient-failure retry on reads.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prismtools/prism/internal/retry"
	"github.com/prismtools/prism/pkg/prism"
)

// Client performs HTTP exchanges against the service. Every request
// carries a bearer token from the TokenSource; GET requests are retried
// on transient failures, mutating requests are attempted exactly once
// because uploads and bucket operations are not idempotent.
type Client struct {
	httpClient *http.Client
	tokens     prism.TokenSource
	logger     prism.Logger
	retrier    *retry.Executor
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Used by tests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) {
		t.httpClient = c
	}
}

// WithRetrier replaces the retry executor used for GET requests.
func WithRetrier(r *retry.Executor) Option {
	return func(t *Client) {
		t.retrier = r
	}
}

// New creates a transport client.
// Panics if tokens or logger is nil.
func New(tokens prism.TokenSource, logger prism.Logger, opts ...Option) *Client {
	if tokens == nil {
		panic("tokens cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: prism.DefaultHTTPTimeout},
		tokens:     tokens,
		logger:     logger,
		retrier: retry.NewExecutor(
			retry.NewHTTPErrorClassifier(),
			retry.NewExponentialBackoff(prism.DefaultRetryMaxAttempts,
				retry.WithInitialDelay(prism.DefaultRetryInitialDelay),
				retry.WithMaxDelay(prism.DefaultRetryMaxDelay),
			),
		),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get performs a GET request. Transient failures (429, 5xx, network) are
// retried with backoff; the final response, whatever its status, is
// returned to the caller for policy decisions.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*prism.Response, error) {
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + query.Encode()
	}

	var resp *prism.Response
	err := c.retrier.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		c.logger.Verbose("get %s: transient failure (%v), retry %d in %s", rawURL, err, attempt+1, delay)
	}).Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = c.do(ctx, http.MethodGet, rawURL, "", nil)
		if err != nil {
			return err
		}
		if isTransientStatus(resp.StatusCode) {
			return &retry.StatusError{StatusCode: resp.StatusCode, Reason: resp.Reason}
		}
		return nil
	})

	// A StatusError after exhausted retries still carries a usable
	// response; hand it back so list operations can apply their
	// never-fails policy.
	if err != nil && resp != nil {
		return resp, nil
	}
	return resp, err
}

// PostJSON performs a POST request with a JSON body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body any) (*prism.Response, error) {
	data, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, rawURL, "application/json", data)
}

// PostForm performs a POST request with a form-encoded body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*prism.Response, error) {
	return c.do(ctx, http.MethodPost, rawURL, "application/x-www-form-urlencoded",
		[]byte(form.Encode()))
}

// PostFile performs a multipart POST uploading a single file part named
// "file".
func (c *Client) PostFile(ctx context.Context, rawURL, filename string, content io.Reader) (*prism.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("creating multipart body: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("writing file %q into request: %w", filename, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart body: %w", err)
	}

	return c.do(ctx, http.MethodPost, rawURL, writer.FormDataContentType(), buf.Bytes())
}

// PutJSON performs a PUT request with a JSON body.
func (c *Client) PutJSON(ctx context.Context, rawURL string, body any) (*prism.Response, error) {
	data, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPut, rawURL, "application/json", data)
}

// PatchJSON performs a PATCH request with a JSON body.
func (c *Client) PatchJSON(ctx context.Context, rawURL string, body any) (*prism.Response, error) {
	data, err := encodeJSON(body)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPatch, rawURL, "application/json", data)
}

func (c *Client) do(ctx context.Context, method, rawURL, contentType string, body []byte) (*prism.Response, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("%s: missing URL: %w", strings.ToLower(method), prism.ErrTransport)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("building %s request: %w", method, err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), rawURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Verbose("%s %s: %d, elapsed %.5fs", strings.ToLower(method), rawURL,
		resp.StatusCode, time.Since(start).Seconds())

	if resp.StatusCode >= 300 {
		c.logger.Verbose("invalid HTTP status %d: %s", resp.StatusCode, string(respBody))
	}

	return &prism.Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Reason:     resp.Status,
	}, nil
}

func encodeJSON(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return data, nil
}

func isTransientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Verify Client implements the HTTPClient interface at compile time
var _ prism.HTTPClient = (*Client)(nil)
