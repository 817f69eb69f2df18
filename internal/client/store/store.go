// Package store holds the client-side state for taskctl. Each store wraps
// one REST resource, caches what the server returned, and records the last
// failure as a display message.
package store

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/taskmaster/autotasks/internal/client/api"
)

// Client is the subset of api.Client the resource stores need
type Client interface {
	Get(ctx context.Context, path string, query url.Values, out interface{}) (*api.Response, error)
	Post(ctx context.Context, path string, body, out interface{}) (*api.Response, error)
	Put(ctx context.Context, path string, body, out interface{}) (*api.Response, error)
	Delete(ctx context.Context, path string, body, out interface{}) (*api.Response, error)
}

// SessionClient additionally exposes the cookie jar to the auth store
type SessionClient interface {
	Client
	Cookies() []*http.Cookie
	RestoreCookies(cookies []*http.Cookie)
	ClearSession()
}

// status tracks the loading flag and last error shared by every store
type status struct {
	mu      sync.RWMutex
	loading bool
	err     string
}

func (s *status) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// end clears loading and records err's display message
func (s *status) end(err error) error {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = api.Message(err)
	}
	s.mu.Unlock()
	return err
}

// Loading reports whether an action is in flight
func (s *status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error returns the message of the last failed action
func (s *status) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// ClearError resets the stored message
func (s *status) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
}

// Page is the skip/limit pair passed straight to list endpoints
type Page struct {
	Skip  int
	Limit int
}

func (p Page) apply(q url.Values) {
	if p.Skip > 0 {
		q.Set("skip", strconv.Itoa(p.Skip))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
}
