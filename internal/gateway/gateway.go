package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/golang/glog"

	apperrors "devblog/internal/errors"
)

const (
	defaultTimeout        = 10 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultTLSTimeout     = 5 * time.Second
)

// TokenSource is the slice of the session the gateway needs.
type TokenSource interface {
	Token(ctx context.Context) string
	ClearToken(ctx context.Context) error
}

// Options control a single call.
type Options struct {
	// Auth attaches the bearer token when one is held.
	Auth bool
}

// Gateway performs JSON calls against the blog API.
type Gateway struct {
	baseURL        string
	timeout        time.Duration
	client         *http.Client
	session        TokenSource
	onUnauthorized func()
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithHTTPClient replaces the default client. The gateway timeout is still
// applied per request through the context.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.client = client
	}
}

// WithUnauthorizedHandler sets the hook run after any 401, once the
// session has been cleared. It is how the UI is told to go to login.
func WithUnauthorizedHandler(fn func()) Option {
	return func(g *Gateway) {
		g.onUnauthorized = fn
	}
}

// New creates a gateway for baseURL. A zero timeout means the default of 10s.
func New(baseURL string, timeout time.Duration, session TokenSource, opts ...Option) *Gateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	g := &Gateway{
		baseURL: baseURL,
		timeout: timeout,
		session: session,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.client == nil {
		g.client = defaultClient(timeout)
	}
	return g
}

// BaseURL returns the API root requests are sent to.
func (g *Gateway) BaseURL() string {
	return g.baseURL
}

func defaultClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout: defaultConnectTimeout,
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: defaultTLSTimeout,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Do issues method against path with body encoded as JSON. A 2xx response
// returns the raw body (nil when empty). Any other outcome returns an
// *errors.HTTPError; no call is ever retried.
func (g *Gateway) Do(ctx context.Context, method, path string, body any, opts Options) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if opts.Auth {
		if token := g.session.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		glog.Warningf("gateway: %s %s: %v", method, path, err)
		return nil, networkError(err, g.timeout)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		glog.Warningf("gateway: %s %s: read body: %v", method, path, err)
		return nil, networkError(err, g.timeout)
	}
	glog.V(1).Infof("gateway: %s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		g.unauthorized(ctx)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewHTTPError(resp.StatusCode, data)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return json.RawMessage(data), nil
}

func (g *Gateway) unauthorized(ctx context.Context) {
	// the request context may be about to expire; clearing must not depend on it
	if err := g.session.ClearToken(context.WithoutCancel(ctx)); err != nil {
		glog.Warningf("gateway: clear session after 401: %v", err)
	}
	if g.onUnauthorized != nil {
		g.onUnauthorized()
	}
}

func networkError(err error, timeout time.Duration) *apperrors.HTTPError {
	httpErr := apperrors.NewNetworkError(err)
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		httpErr.Message = fmt.Sprintf("request timed out after %s", timeout)
	}
	return httpErr
}

// Decode unmarshals a response body into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, errors.New("empty response body")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
