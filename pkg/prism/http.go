package prism

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// Response is the uniform result of one HTTP exchange with the service.
// The transport performs exactly one logical request per call; protocol
// sequencing, pagination and error policy live in the services built on
// top of it.
type Response struct {
	StatusCode int
	Body       []byte
	Reason     string
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// StatusError wraps a non-success response into an ErrTransport error
// carrying the status code and reason for terminal messages.
func (r *Response) StatusError() error {
	return fmt.Errorf("status %d (%s): %w", r.StatusCode, r.Reason, ErrTransport)
}

// HTTPClient is the transport collaborator consumed by every service.
// Each call performs one request and reports the status and body; it
// injects the authorization header from its TokenSource. An error return
// means the exchange itself failed (network, cancellation), not that the
// service answered with a non-2xx status.
type HTTPClient interface {
	Get(ctx context.Context, url string, query url.Values) (*Response, error)
	PostJSON(ctx context.Context, url string, body any) (*Response, error)
	PostForm(ctx context.Context, url string, form url.Values) (*Response, error)
	PostFile(ctx context.Context, url, filename string, content io.Reader) (*Response, error)
	PutJSON(ctx context.Context, url string, body any) (*Response, error)
	PatchJSON(ctx context.Context, url string, body any) (*Response, error)
}

// TokenSource supplies a bearer token on demand. Implementations decide
// when a cached token is stale and must be re-acquired; callers never
// manage token freshness themselves.
type TokenSource interface {
	// Token returns the current bearer token, acquiring or refreshing it
	// if necessary. An empty string with a nil error means acquisition
	// failed; the request proceeds unauthenticated and the service
	// answers accordingly.
	Token(ctx context.Context) (string, error)

	// Reset discards the cached token so the next call acquires a new one.
	Reset()
}
