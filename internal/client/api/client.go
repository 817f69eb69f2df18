// Package api is the HTTP client shared by the taskctl stores. It carries the
// session cookies on every request and recovers from an expired access token
// with a single silent refresh.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
)

const (
	refreshPath = "/auth/refresh"

	defaultTimeout          = 15 * time.Second
	defaultRedirectCooldown = 2 * time.Second
)

// authPaths never trigger a refresh on 401
var authPaths = []string{
	"/auth/login",
	"/auth/register",
	refreshPath,
	"/auth/logout",
	"/auth/me",
}

// Client talks to the REST API under a base URL such as http://host/api/v1
type Client struct {
	baseURL *url.URL
	http    *http.Client
	jar     *sessionJar
	logger  *logger.Logger

	group      singleflight.Group
	refreshing atomic.Bool
	// generation increments after every successful refresh
	generation atomic.Uint64

	cooldown     time.Duration
	lastRedirect atomic.Int64

	mu               sync.RWMutex
	onUnauthorized   func()
	onCookiesChanged func([]*http.Cookie)
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = rt }
}

// WithLogger sets the client logger
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent("api-client") }
}

// WithRedirectCooldown sets the window in which repeated login redirects are suppressed
func WithRedirectCooldown(d time.Duration) Option {
	return func(c *Client) { c.cooldown = d }
}

// WithOnUnauthorized registers the redirect-to-login callback
func WithOnUnauthorized(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithCookieObserver registers a callback receiving the session cookies
// whenever the server changes them or the session is cleared.
func WithCookieObserver(fn func([]*http.Cookie)) Option {
	return func(c *Client) { c.onCookiesChanged = fn }
}

// New creates a client for baseURL
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	jar := newSessionJar()
	c := &Client{
		baseURL:  u,
		jar:      jar,
		http:     &http.Client{Jar: jar, Timeout: defaultTimeout},
		logger:   logger.NewNop(),
		cooldown: defaultRedirectCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetOnUnauthorized replaces the redirect-to-login callback
func (c *Client) SetOnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// Refreshing reports whether a silent refresh is in flight
func (c *Client) Refreshing() bool {
	return c.refreshing.Load()
}

// Cookies returns the session cookies the client would send
func (c *Client) Cookies() []*http.Cookie {
	return c.jar.Cookies(c.baseURL)
}

// RestoreCookies loads previously persisted session cookies
func (c *Client) RestoreCookies(cookies []*http.Cookie) {
	root := *c.baseURL
	root.Path = "/"
	scoped := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		cp := *ck
		cp.Path = "/"
		scoped = append(scoped, &cp)
	}
	c.jar.SetCookies(&root, scoped)
}

// ClearSession drops every session cookie
func (c *Client) ClearSession() {
	c.jar.reset()
	c.notifyCookies()
}

// Response describes a completed request
type Response struct {
	StatusCode int
	Header     http.Header
}

// Total returns the X-Total-Count header, or -1 when absent
func (r *Response) Total() int {
	if r == nil {
		return -1
	}
	n, err := strconv.Atoi(r.Header.Get("X-Total-Count"))
	if err != nil {
		return -1
	}
	return n
}

// Get decodes the JSON response into out
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, body, out interface{}) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, body, out)
}

// Do sends one request. A 401 on a non-auth path is retried once after a
// silent refresh; when the refresh fails the session is cleared, the
// unauthorized callback fires, and ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
	}

	gen := c.generation.Load()
	resp, data, err := c.send(ctx, method, path, query, payload)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !isAuthPath(path) {
		if err := c.recover(ctx, gen); err != nil {
			return &Response{StatusCode: resp.StatusCode, Header: resp.Header}, err
		}
		if resp, data, err = c.send(ctx, method, path, query, payload); err != nil {
			return nil, err
		}
	}

	return c.decode(resp, data, out)
}

// recover makes sure a refresh has happened since the failed request was
// sent. Requests that lost a race with an already-finished refresh only retry.
func (c *Client) recover(ctx context.Context, gen uint64) error {
	if c.generation.Load() != gen {
		return nil
	}

	if err := c.refresh(ctx); err != nil {
		c.logger.Warnw("Silent refresh failed", "error", err)
		c.expire()
		return fmt.Errorf("%w: %v", ErrSessionExpired, err)
	}
	return nil
}

// refresh coalesces concurrent callers onto one POST /auth/refresh
func (c *Client) refresh(ctx context.Context) error {
	ch := c.group.DoChan("refresh", func() (interface{}, error) {
		c.refreshing.Store(true)
		defer c.refreshing.Store(false)

		// the shared call must outlive whichever caller started it
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.http.Timeout)
		defer cancel()

		resp, data, err := c.send(rctx, http.MethodPost, refreshPath, nil, nil)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, parseError(resp.StatusCode, data)
		}

		c.generation.Add(1)
		c.logger.Debugw("Session refreshed")
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// expire clears the session and redirects to login at most once per cooldown
func (c *Client) expire() {
	c.ClearSession()

	now := time.Now().UnixNano()
	last := c.lastRedirect.Load()
	if last != 0 && time.Duration(now-last) < c.cooldown {
		return
	}
	if !c.lastRedirect.CompareAndSwap(last, now) {
		return
	}

	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (*http.Response, []byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debugw("API request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"latency_ms", float64(time.Since(start).Microseconds())/1000,
	)

	if len(resp.Header.Values("Set-Cookie")) > 0 {
		c.notifyCookies()
	}

	return resp, data, nil
}

func (c *Client) decode(resp *http.Response, data []byte, out interface{}) (*Response, error) {
	r := &Response{StatusCode: resp.StatusCode, Header: resp.Header}

	if resp.StatusCode >= http.StatusBadRequest {
		return r, parseError(resp.StatusCode, data)
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return r, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return r, nil
}

func (c *Client) notifyCookies() {
	c.mu.RLock()
	fn := c.onCookiesChanged
	c.mu.RUnlock()
	if fn != nil {
		fn(c.Cookies())
	}
}

func isAuthPath(path string) bool {
	for _, p := range authPaths {
		if path == p {
			return true
		}
	}
	return false
}
