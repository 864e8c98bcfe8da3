// Package auth implements the prism.TokenSource boundary: exchanging a
// long-lived refresh token for short-lived bearer tokens and caching them
// for the freshness window.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prismtools/prism/pkg/prism"
)

// RefreshTokenSource acquires bearer tokens with the OAuth2 refresh-token
// grant against the tenant token endpoint. A cached token is reused until
// it is older than prism.TokenLifetime, then exchanged again before the
// next request.
//
// Acquisition failures are logged and yield an empty token rather than an
// error: the request proceeds unauthenticated and the service's 401 is
// the caller-visible signal.
type RefreshTokenSource struct {
	endpoint     string
	clientID     string
	clientSecret string
	refreshToken string

	httpClient *http.Client
	logger     prism.Logger

	mu        sync.Mutex
	token     string
	fetchedAt time.Time

	// now is a test hook for the freshness clock.
	now func() time.Time
}

// NewRefreshTokenSource creates a token source for the given credentials.
// Panics if logger is nil.
func NewRefreshTokenSource(endpoint, clientID, clientSecret, refreshToken string, logger prism.Logger) *RefreshTokenSource {
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &RefreshTokenSource{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		httpClient:   &http.Client{Timeout: prism.DefaultHTTPTimeout},
		logger:       logger,
		now:          time.Now,
	}
}

// WithHTTPClient replaces the HTTP client used for the token exchange.
// Used by tests.
func (s *RefreshTokenSource) WithHTTPClient(c *http.Client) *RefreshTokenSource {
	s.httpClient = c
	return s
}

// WithClock replaces the freshness clock. Used by tests.
func (s *RefreshTokenSource) WithClock(now func() time.Time) *RefreshTokenSource {
	s.now = now
	return s
}

// Token returns the current bearer token, exchanging the refresh token
// when no token is cached or the cached one has aged out.
func (s *RefreshTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Sub(s.fetchedAt) <= prism.TokenLifetime {
		return s.token, nil
	}

	token, err := s.exchange(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		// Fail soft: the unauthenticated request surfaces the problem.
		s.logger.Error("bearer token acquisition failed: %v", err)
		s.token = ""
		s.fetchedAt = time.Time{}
		return "", nil
	}

	s.token = token
	s.fetchedAt = s.now()
	s.logger.Verbose("successfully obtained bearer token")

	return s.token, nil
}

// Reset discards the cached token to force a new exchange on the next call.
func (s *RefreshTokenSource) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.fetchedAt = time.Time{}
}

func (s *RefreshTokenSource) exchange(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", s.refreshToken)
	form.Set("client_id", s.clientID)
	form.Set("client_secret", s.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint status %d: %w", resp.StatusCode, prism.ErrTransport)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token: %w", prism.ErrTransport)
	}

	return payload.AccessToken, nil
}

// Verify RefreshTokenSource implements the TokenSource interface at compile time
var _ prism.TokenSource = (*RefreshTokenSource)(nil)
