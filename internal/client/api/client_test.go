package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeAPI answers /tasks with 200 only for the "fresh" access token
type fakeAPI struct {
	refreshCalls atomic.Int32
	taskCalls    atomic.Int32
	refreshOK    bool
	refreshDelay time.Duration
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/auth/refresh":
		f.refreshCalls.Add(1)
		time.Sleep(f.refreshDelay)
		if !f.refreshOK {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Invalid refresh token"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", Path: "/", HttpOnly: true})
		w.Write([]byte(`{"success":true}`))
	case "/api/v1/auth/me":
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"message":"Not authenticated"}`))
	case "/api/v1/tasks":
		f.taskCalls.Add(1)
		if ck, err := r.Cookie("access_token"); err != nil || ck.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"message":"Token expired"}`))
			return
		}
		w.Header().Set("X-Total-Count", "1")
		w.Write([]byte(`[{"id":1,"title":"Call back"}]`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api *fakeAPI, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api/v1", opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	c.RestoreCookies([]*http.Cookie{{Name: "access_token", Value: "stale"}, {Name: "refresh_token", Value: "r1"}})
	return c
}

func TestSilentRefreshRetriesOnce(t *testing.T) {
	api := &fakeAPI{refreshOK: true}
	c := newTestClient(t, api)

	var tasks []struct {
		ID    int    `json:"id"`
		Title string `json:"title"`
	}
	resp, err := c.Get(context.Background(), "/tasks", nil, &tasks)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Call back" {
		t.Errorf("tasks = %+v", tasks)
	}
	if resp.Total() != 1 {
		t.Errorf("Total() = %d, want 1", resp.Total())
	}
	if got := api.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}
	if got := api.taskCalls.Load(); got != 2 {
		t.Errorf("task calls = %d, want 2", got)
	}
	if c.Refreshing() {
		t.Error("Refreshing() should be false after the refresh settles")
	}
}

func TestConcurrentUnauthorizedSharesOneRefresh(t *testing.T) {
	api := &fakeAPI{refreshOK: true, refreshDelay: 50 * time.Millisecond}
	c := newTestClient(t, api)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "/tasks", nil, nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Get() error = %v", err)
		}
	}
	if got := api.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want exactly 1", got)
	}
}

func TestRetryHappensOnlyOnce(t *testing.T) {
	api := &fakeAPI{refreshOK: true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/refresh" {
			api.refreshCalls.Add(1)
			return
		}
		api.taskCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(srv.URL + "/api/v1")
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.Get(context.Background(), "/tasks", nil, nil)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v, want a 401 APIError", err)
	}
	if api.refreshCalls.Load() != 1 || api.taskCalls.Load() != 2 {
		t.Errorf("refresh=%d tasks=%d, want 1 and 2", api.refreshCalls.Load(), api.taskCalls.Load())
	}
}

func TestRefreshFailureClearsSessionAndRedirects(t *testing.T) {
	api := &fakeAPI{refreshOK: false}

	var redirects atomic.Int32
	var lastCookies []*http.Cookie
	var mu sync.Mutex
	c := newTestClient(t, api,
		WithOnUnauthorized(func() { redirects.Add(1) }),
		WithCookieObserver(func(cookies []*http.Cookie) {
			mu.Lock()
			lastCookies = cookies
			mu.Unlock()
		}),
		WithRedirectCooldown(time.Minute),
	)

	_, err := c.Get(context.Background(), "/tasks", nil, nil)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if got := redirects.Load(); got != 1 {
		t.Errorf("redirects = %d, want 1", got)
	}
	if len(c.Cookies()) != 0 {
		t.Errorf("cookies should be cleared, got %v", c.Cookies())
	}
	mu.Lock()
	if len(lastCookies) != 0 {
		t.Errorf("observer should see an empty jar, got %v", lastCookies)
	}
	mu.Unlock()

	// a second expiry inside the cooldown does not redirect again
	c.RestoreCookies([]*http.Cookie{{Name: "access_token", Value: "stale"}})
	if _, err := c.Get(context.Background(), "/tasks", nil, nil); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("second err = %v", err)
	}
	if got := redirects.Load(); got != 1 {
		t.Errorf("redirects after cooldown hit = %d, want 1", got)
	}
}

func TestAuthPathsDoNotRefresh(t *testing.T) {
	api := &fakeAPI{refreshOK: true}
	c := newTestClient(t, api)

	_, err := c.Get(context.Background(), "/auth/me", nil, nil)
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("err = %v, want 401", err)
	}
	if Message(err) != "Not authenticated" {
		t.Errorf("Message() = %q", Message(err))
	}
	if got := api.refreshCalls.Load(); got != 0 {
		t.Errorf("refresh calls = %d, want 0", got)
	}
}

func TestRestoreCookiesLeavesInputUntouched(t *testing.T) {
	c, err := New("http://localhost:8080/api/v1")
	if err != nil {
		t.Fatal(err)
	}

	saved := []*http.Cookie{{Name: "access_token", Value: "a1", Path: "/api/v1/auth"}}
	c.RestoreCookies(saved)

	if saved[0].Path != "/api/v1/auth" {
		t.Errorf("caller cookie Path = %q, want it unchanged", saved[0].Path)
	}
	if got := c.Cookies(); len(got) != 1 || got[0].Value != "a1" {
		t.Errorf("Cookies() = %v, want the restored access token", got)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("/api/v1"); err == nil {
		t.Error("New() with a relative URL should fail")
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{
			name:   "detail string",
			status: 400,
			body:   `{"detail":"Task not found"}`,
			want:   "Task not found",
		},
		{
			name:   "message string",
			status: 409,
			body:   `{"success":false,"message":"Email already registered"}`,
			want:   "Email already registered",
		},
		{
			name:   "details errors",
			status: 422,
			body:   `{"success":false,"message":"Validation failed","details":{"errors":[{"field":"title","message":"too short","type":"min"},{"field":"contact_ids","message":"required","type":"required"}]}}`,
			want:   "title: too short; contact_ids: required",
		},
		{
			name:   "detail array with loc",
			status: 422,
			body:   `{"detail":[{"loc":["body","email"],"msg":"invalid email"}]}`,
			want:   "email: invalid email",
		},
		{
			name:   "plain text body",
			status: 502,
			body:   `Bad Gateway from proxy`,
			want:   "Bad Gateway from proxy",
		},
		{
			name:   "empty json",
			status: 500,
			body:   `{}`,
			want:   "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(tt.status, []byte(tt.body))
			if err.Message != tt.want {
				t.Errorf("Message = %q, want %q", err.Message, tt.want)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}
