// Package api is the gateway to the waste-reporting backend. Every call goes
// through one pipeline that attaches credentials and turns a 401 into a
// session-wide auth-error signal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/wastewatch/wastewatch/internal/observability"
	"github.com/wastewatch/wastewatch/internal/platform/httpx"
)

const (
	// DefaultTimeout bounds every request.
	DefaultTimeout = 15 * time.Second
	// DefaultCSRFCookie is the cookie the CSRF header is copied from.
	DefaultCSRFCookie = "csrftoken"

	csrfHeader   = "X-CSRFToken"
	maxBodyBytes = 8 << 20
)

// DefaultAuthFreePaths never carry a bearer token.
var DefaultAuthFreePaths = []string{"/user/login/", "/user/register/"}

// TokenSource supplies the bearer token and forgets the session on 401.
type TokenSource interface {
	AccessToken(ctx context.Context) string
	Clear(ctx context.Context)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// CSRFCookie names the cookie echoed in X-CSRFToken. Cookies live in an
	// in-memory jar scoped to the Client, so a new process starts without
	// one and sends no CSRF header until the backend sets the cookie again.
	CSRFCookie    string
	AuthFreePaths []string
	UserAgent     string
}

// Client issues authenticated calls to the backend.
type Client struct {
	base       *url.URL
	http       *http.Client
	tokens     TokenSource
	signals    *Signals
	metrics    *observability.Metrics
	logger     *slog.Logger
	csrfCookie string
	authFree   []string
	userAgent  string
	reads      singleflight.Group
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records call outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithSignals shares an existing auth-error channel.
func WithSignals(signals *Signals) Option {
	return func(c *Client) {
		if signals != nil {
			c.signals = signals
		}
	}
}

// WithTransport replaces the HTTP transport, keeping the timeout and cookie jar.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

// NewClient constructs a Client. tokens may be nil for anonymous use.
func NewClient(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api: base url %q must be absolute", cfg.BaseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("api: cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: timeout, Jar: jar},
		tokens:     tokens,
		signals:    NewSignals(),
		logger:     slog.Default(),
		csrfCookie: cfg.CSRFCookie,
		authFree:   cfg.AuthFreePaths,
		userAgent:  cfg.UserAgent,
	}
	if c.csrfCookie == "" {
		c.csrfCookie = DefaultCSRFCookie
	}
	if c.authFree == nil {
		c.authFree = DefaultAuthFreePaths
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Signals exposes the auth-error channel.
func (c *Client) Signals() *Signals {
	return c.signals
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type call struct {
	method      string
	path        string
	body        []byte
	contentType string
}

func (c *Client) url(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	return u.String()
}

func (c *Client) isAuthFree(path string) bool {
	for _, prefix := range c.authFree {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (c *Client) csrfToken() string {
	for _, cookie := range c.http.Jar.Cookies(c.base) {
		if cookie.Name == c.csrfCookie {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) prepare(ctx context.Context, req *http.Request, path string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := c.csrfToken(); token != "" {
		req.Header.Set(csrfHeader, token)
	}
	if c.tokens == nil || c.isAuthFree(path) {
		return
	}
	if token := c.tokens.AccessToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) reject(ctx context.Context, method, path string, status int, body []byte) error {
	apiErr := &Error{
		Kind:    kindForStatus(status),
		Status:  status,
		Method:  method,
		Path:    path,
		Payload: httpx.DecodePayload(body),
	}
	if status != http.StatusUnauthorized {
		return apiErr
	}
	// The caller may already be giving up; the session still has to go.
	ctx = context.WithoutCancel(ctx)
	if c.tokens != nil {
		c.tokens.Clear(ctx)
	}
	c.metrics.AuthErrorRaised()
	c.logger.Warn("backend rejected session", slog.String("method", method), slog.String("path", path))
	c.signals.Publish(AuthErrorEvent{Status: status, Method: method, Path: path, At: time.Now()})
	return apiErr
}

func (c *Client) send(ctx context.Context, in call) ([]byte, error) {
	start := time.Now()
	endpoint := endpointLabel(in.path)

	var body io.Reader
	if in.body != nil {
		body = bytes.NewReader(in.body)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, c.url(in.path), body)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}
	c.prepare(ctx, req, in.path)

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := transportError(in.method, in.path, err)
		c.metrics.ObserveRequest(in.method, endpoint, apiErr.Kind.outcome(0), time.Since(start))
		c.logger.Debug("backend unreachable", slog.String("path", in.path), slog.Any("error", err))
		return nil, apiErr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		apiErr := transportError(in.method, in.path, err)
		c.metrics.ObserveRequest(in.method, endpoint, apiErr.Kind.outcome(0), time.Since(start))
		return nil, apiErr
	}
	if len(data) > maxBodyBytes {
		c.metrics.ObserveRequest(in.method, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
		return nil, fmt.Errorf("api: %s %s: %w (over %d bytes)", in.method, in.path, ErrResponseTooLarge, maxBodyBytes)
	}
	c.metrics.ObserveRequest(in.method, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.reject(ctx, in.method, in.path, resp.StatusCode, data)
	}
	return data, nil
}

// get collapses concurrent identical reads into one request. Reads are only
// shared between callers presenting the same bearer token. The shared request
// is detached from every caller's cancellation and bounded by the client
// timeout alone; each caller stops waiting when its own context ends.
func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	key := path
	if c.tokens != nil {
		key += "\x00" + c.tokens.AccessToken(ctx)
	}
	shared := context.WithoutCancel(ctx)
	ch := c.reads.DoChan(key, func() (any, error) {
		return c.send(shared, call{method: http.MethodGet, path: path})
	})
	select {
	case <-ctx.Done():
		return nil, transportError(http.MethodGet, path, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (c *Client) sendJSON(ctx context.Context, method, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("api: encode %s %s: %w", method, path, err)
	}
	return c.send(ctx, call{method: method, path: path, body: body, contentType: "application/json"})
}

func decodeInto[T any](data []byte, what string) (T, error) {
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("api: decode %s: %w", what, err)
	}
	return out, nil
}

func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// IsAuthError reports whether err invalidated the session.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
