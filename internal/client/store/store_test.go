package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/client/api"
	"github.com/taskmaster/autotasks/internal/client/session"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// MockAPI is a tiny in-memory backend keyed by "METHOD /path"
type MockAPI struct {
	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests atomic.Int32
	calls    map[string]int
}

func NewMockAPI() *MockAPI {
	return &MockAPI{routes: map[string]http.HandlerFunc{}, calls: map[string]int{}}
}

func (m *MockAPI) Handle(route string, h http.HandlerFunc) {
	m.routes[route] = h
}

func (m *MockAPI) Calls(route string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[route]
}

func (m *MockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.requests.Add(1)
	route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api/v1")

	m.mu.Lock()
	m.calls[route]++
	m.mu.Unlock()

	h, ok := m.routes[route]
	if !ok {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, m *MockAPI) *api.Client {
	t.Helper()
	srv := httptest.NewServer(m)
	t.Cleanup(srv.Close)

	c, err := api.New(srv.URL + "/api/v1")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLoginSetsUserAndPersistsSession(t *testing.T) {
	user := &entities.User{ID: uuid.New(), Username: "ana", Email: "ana@example.com", Role: entities.UserRoleUser, IsActive: true}

	m := NewMockAPI()
	m.Handle("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req ports.LoginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.UsernameOrEmail != "ana" || req.Password != "secret-pass" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "a1", Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, ports.AuthResponse{TokenType: "bearer", User: user})
	})

	sessions := &session.MemoryStore{}
	s := NewAuthStore(newClient(t, m), sessions, logger.NewNop())

	err := s.Login(context.Background(), "ana", "wrong")
	if err == nil || s.Error() != "Invalid credentials" {
		t.Fatalf("Login() with a bad password err=%v Error()=%q", err, s.Error())
	}
	if s.IsAuthenticated() {
		t.Fatal("failed login must not authenticate")
	}

	if err := s.Login(context.Background(), "ana", "secret-pass"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !s.IsAuthenticated() || s.User().ID != user.ID {
		t.Errorf("store user = %+v authenticated=%v", s.User(), s.IsAuthenticated())
	}
	if s.Error() != "" || s.Loading() {
		t.Errorf("Error()=%q Loading()=%v after success", s.Error(), s.Loading())
	}

	saved, _ := sessions.Load()
	if !saved.Authenticated || saved.User.Username != "ana" {
		t.Errorf("persisted session = %+v", saved)
	}
	if len(saved.Cookies) != 1 || saved.Cookies[0].Value != "a1" {
		t.Errorf("persisted cookies = %+v", saved.Cookies)
	}
}

func TestCheckAuthFailureClearsSession(t *testing.T) {
	m := NewMockAPI()
	m.Handle("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "Not authenticated"})
	})

	sessions := &session.MemoryStore{}
	sessions.Save(&session.Session{User: &entities.User{Username: "ana"}, Authenticated: true})

	s := NewAuthStore(newClient(t, m), sessions, logger.NewNop())
	if err := s.Restore(); err != nil {
		t.Fatal(err)
	}
	if !s.IsAuthenticated() {
		t.Fatal("Restore() should load the persisted flag")
	}

	if err := s.CheckAuth(context.Background()); err == nil {
		t.Fatal("CheckAuth() should fail")
	}
	if s.IsAuthenticated() || s.User() != nil {
		t.Error("CheckAuth() failure should clear the user")
	}
	if sessions.Clears != 1 {
		t.Errorf("session clears = %d, want 1", sessions.Clears)
	}
}

func TestLogoutClearsLocalStateOnServerError(t *testing.T) {
	m := NewMockAPI()
	m.Handle("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "boom"})
	})

	sessions := &session.MemoryStore{}
	sessions.Save(&session.Session{User: &entities.User{Username: "ana"}, Authenticated: true})
	s := NewAuthStore(newClient(t, m), sessions, logger.NewNop())
	s.Restore()

	if err := s.Logout(context.Background()); err == nil {
		t.Error("Logout() should surface the server error")
	}
	if s.IsAuthenticated() {
		t.Error("Logout() should clear local state anyway")
	}
	if sessions.Clears != 1 {
		t.Errorf("session clears = %d, want 1", sessions.Clears)
	}
}

func TestCreateTaskWithoutContactsMakesNoRequest(t *testing.T) {
	m := NewMockAPI()
	s := NewTaskStore(newClient(t, m), logger.NewNop())

	_, err := s.Create(context.Background(), ports.CreateTaskRequest{
		Title:             "Call supplier",
		ScheduledDatetime: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, entities.ErrNoContacts) {
		t.Fatalf("Create() err = %v, want ErrNoContacts", err)
	}
	if s.Error() == "" {
		t.Error("Error() should carry a display message")
	}
	if got := m.requests.Load(); got != 0 {
		t.Errorf("requests = %d, want 0", got)
	}
}

func TestTaskMutationsMergeIntoCache(t *testing.T) {
	m := NewMockAPI()
	m.Handle("GET /tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "pendiente" || r.URL.Query().Get("limit") != "20" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("X-Total-Count", "42")
		writeJSON(w, http.StatusOK, []entities.Task{
			{ID: 1, Title: "One", Status: entities.TaskStatusPending},
			{ID: 2, Title: "Two", Status: entities.TaskStatusPending},
		})
	})
	m.Handle("POST /tasks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, entities.Task{ID: 3, Title: "Three", Status: entities.TaskStatusPending})
	})
	m.Handle("PUT /tasks/2/status", func(w http.ResponseWriter, r *http.Request) {
		var req ports.UpdateTaskStatusRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, entities.Task{ID: 2, Title: "Two", Status: req.Status})
	})
	m.Handle("DELETE /tasks/1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ports.MessageResponse{Message: "Task cancelled"})
	})

	s := NewTaskStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	pending := entities.TaskStatusPending
	if err := s.Fetch(ctx, TaskQuery{Page: Page{Limit: 20}, Status: &pending}); err != nil {
		t.Fatal(err)
	}
	if s.Total() != 42 || len(s.Tasks()) != 2 {
		t.Fatalf("Total()=%d len=%d", s.Total(), len(s.Tasks()))
	}

	if _, err := s.Create(ctx, ports.CreateTaskRequest{Title: "Three", ContactIDs: []int64{7}}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.UpdateStatus(ctx, 2, entities.TaskStatusInProgress); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 1); err != nil {
		t.Fatal(err)
	}

	tasks := s.Tasks()
	if len(tasks) != 2 || tasks[0].ID != 2 || tasks[1].ID != 3 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].Status != entities.TaskStatusInProgress {
		t.Errorf("status of task 2 = %s", tasks[0].Status)
	}
	if s.Total() != 42 {
		t.Errorf("Total() = %d, want 42 after one create and one delete", s.Total())
	}
}

func TestTaskErrorMessageFromValidation(t *testing.T) {
	m := NewMockAPI()
	m.Handle("PUT /tasks/5", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, ports.ErrorResponse{
			Message: "Validation failed",
			Details: map[string]interface{}{"errors": []ports.FieldError{
				{Field: "title", Message: "title must be at least 3 characters", Type: "min"},
				{Field: "scheduled_datetime", Message: "scheduled_datetime must be in the future", Type: "future"},
			}},
		})
	})

	s := NewTaskStore(newClient(t, m), logger.NewNop())
	title := "ab"
	if _, err := s.Update(context.Background(), 5, ports.UpdateTaskRequest{Title: &title}); err == nil {
		t.Fatal("Update() should fail")
	}

	want := "title: title must be at least 3 characters; scheduled_datetime: scheduled_datetime must be in the future"
	if s.Error() != want {
		t.Errorf("Error() = %q, want %q", s.Error(), want)
	}
}

func TestDeleteContactRemovesItFromCache(t *testing.T) {
	var deleted atomic.Bool

	m := NewMockAPI()
	m.Handle("GET /contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("is_active") != "true" {
			t.Errorf("contacts should be listed active-only, query = %s", r.URL.RawQuery)
		}
		contacts := []entities.Contact{{ID: 1, Name: "Ana", IsActive: true}}
		if !deleted.Load() {
			contacts = append(contacts, entities.Contact{ID: 2, Name: "Luis", IsActive: true})
		}
		writeJSON(w, http.StatusOK, contacts)
	})
	m.Handle("DELETE /contacts/2", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		writeJSON(w, http.StatusOK, ports.MessageResponse{Message: "Contact deactivated"})
	})

	s := NewContactStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	if err := s.Fetch(ctx, ContactQuery{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Find(2); !ok {
		t.Fatal("contact 2 should be cached before delete")
	}

	if err := s.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Find(2); ok {
		t.Error("contact 2 should be gone after delete")
	}
	if len(s.Contacts()) != 1 || s.Total() != 1 {
		t.Errorf("contacts = %+v", s.Contacts())
	}
	if m.Calls("GET /contacts") != 2 {
		t.Errorf("list calls = %d, want 2", m.Calls("GET /contacts"))
	}
}

func TestDeleteContactWithInactiveListed(t *testing.T) {
	var deleted atomic.Bool

	m := NewMockAPI()
	m.Handle("GET /contacts", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("is_active") {
			t.Errorf("inactive contacts were requested, query = %s", r.URL.RawQuery)
		}
		writeJSON(w, http.StatusOK, []entities.Contact{
			{ID: 1, Name: "Ana", IsActive: true},
			{ID: 2, Name: "Luis", IsActive: !deleted.Load()},
		})
	})
	m.Handle("DELETE /contacts/2", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		writeJSON(w, http.StatusOK, ports.MessageResponse{Message: "Contact deactivated"})
	})

	s := NewContactStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	if err := s.Fetch(ctx, ContactQuery{IncludeInactive: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if c, ok := s.Find(2); ok {
		t.Errorf("contact 2 still cached after delete: %+v", *c)
	}
	if len(s.Contacts()) != 1 {
		t.Errorf("contacts = %+v", s.Contacts())
	}
}

func TestDeleteContactSurvivesRefetchFailure(t *testing.T) {
	var deleted atomic.Bool

	m := NewMockAPI()
	m.Handle("GET /contacts", func(w http.ResponseWriter, r *http.Request) {
		if deleted.Load() {
			writeJSON(w, http.StatusServiceUnavailable, ports.ErrorResponse{Message: "db down"})
			return
		}
		writeJSON(w, http.StatusOK, []entities.Contact{
			{ID: 1, Name: "Ana", IsActive: true},
			{ID: 2, Name: "Luis", IsActive: true},
		})
	})
	m.Handle("DELETE /contacts/2/permanent", func(w http.ResponseWriter, r *http.Request) {
		deleted.Store(true)
		writeJSON(w, http.StatusOK, ports.MessageResponse{Message: "Contact deleted"})
	})

	s := NewContactStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	if err := s.Fetch(ctx, ContactQuery{}); err != nil {
		t.Fatal(err)
	}
	if err := s.DeletePermanent(ctx, 2); err != nil {
		t.Fatalf("DeletePermanent() error = %v, want nil after a successful delete", err)
	}
	if _, ok := s.Find(2); ok {
		t.Error("contact 2 still cached after delete")
	}
	if s.Total() != 1 {
		t.Errorf("Total() = %d, want 1", s.Total())
	}
	if m.Calls("GET /contacts") != 2 {
		t.Errorf("list calls = %d, want 2", m.Calls("GET /contacts"))
	}
}

func TestDeleteContactFailureKeepsCache(t *testing.T) {
	m := NewMockAPI()
	m.Handle("GET /contacts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []entities.Contact{{ID: 2, Name: "Luis", IsActive: true}})
	})
	m.Handle("DELETE /contacts/2", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ports.ErrorResponse{Message: "Contact not found"})
	})

	s := NewContactStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	if err := s.Fetch(ctx, ContactQuery{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, 2); err == nil {
		t.Fatal("Delete() should report the server error")
	}
	if _, ok := s.Find(2); !ok {
		t.Error("contact 2 should stay cached when the delete fails")
	}
	if m.Calls("GET /contacts") != 1 {
		t.Errorf("list calls = %d, want no refetch", m.Calls("GET /contacts"))
	}
}

func TestAIInterpretAndConfirm(t *testing.T) {
	m := NewMockAPI()
	m.Handle("POST /ai/interpret", func(w http.ResponseWriter, r *http.Request) {
		var req ports.InterpretRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.InputType != entities.InputAudio {
			t.Errorf("input_type = %q", req.InputType)
		}
		writeJSON(w, http.StatusCreated, entities.AIRequest{ID: 4, InputText: req.InputText, InputType: req.InputType})
	})
	m.Handle("POST /ai/confirm/4", func(w http.ResponseWriter, r *http.Request) {
		var req ports.ConfirmAIRequest
		json.NewDecoder(r.Body).Decode(&req)
		writeJSON(w, http.StatusOK, entities.AIRequest{ID: 4, WasConfirmed: true, TasksCreatedList: req.TaskIDs})
	})
	m.Handle("GET /ai/requests", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("was_confirmed") != "false" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		w.Header().Set("X-Total-Count", "9")
		writeJSON(w, http.StatusOK, []entities.AIRequest{{ID: 4}, {ID: 3}})
	})

	s := NewAIStore(newClient(t, m), logger.NewNop())
	ctx := context.Background()

	pending := false
	if err := s.Fetch(ctx, AIQuery{WasConfirmed: &pending}); err != nil {
		t.Fatal(err)
	}
	if s.Total() != 9 || len(s.Requests()) != 2 {
		t.Fatalf("Total()=%d len=%d", s.Total(), len(s.Requests()))
	}

	if _, err := s.Interpret(ctx, "Llamar a Beto el viernes", entities.InputAudio); err != nil {
		t.Fatal(err)
	}
	if s.Current() == nil || s.Current().ID != 4 {
		t.Fatalf("Current() = %+v", s.Current())
	}

	if _, err := s.Confirm(ctx, 4, nil); !errors.Is(err, entities.ErrInvalidTasks) {
		t.Errorf("Confirm() without tasks err = %v", err)
	}
	if m.Calls("POST /ai/confirm/4") != 0 {
		t.Error("empty confirm should not reach the server")
	}

	if _, err := s.Confirm(ctx, 4, []int64{21, 22}); err != nil {
		t.Fatal(err)
	}
	if got := s.Requests()[0]; !got.WasConfirmed || len(got.TasksCreatedList) != 2 {
		t.Errorf("cached request not refreshed: %+v", got)
	}
}

func TestDashboardFetchAll(t *testing.T) {
	m := NewMockAPI()
	ok := func(data interface{}) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": data})
		}
	}
	m.Handle("GET /dashboard/stats", ok(ports.DashboardStats{TotalTasks: 4, CompletionRate: 25}))
	m.Handle("GET /dashboard/tasks-by-status", ok([]ports.StatusBucket{{Status: "Pendiente", Count: 3, Color: "#fbbf24"}}))
	m.Handle("GET /dashboard/tasks-by-month", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("months") != "6" {
			t.Errorf("months = %q", r.URL.Query().Get("months"))
		}
		ok([]ports.MonthBucket{{Month: "2026-10", Count: 4}})(w, r)
	})
	m.Handle("GET /dashboard/recent-tasks", ok([]ports.TaskSummary{{ID: 1}}))
	m.Handle("GET /dashboard/today-tasks", ok([]ports.TaskSummary{
		{ID: 1, Status: entities.TaskStatusPending, IsOverdue: true},
		{ID: 2, Status: entities.TaskStatusPending},
		{ID: 3, Status: entities.TaskStatusDone},
	}))

	s := NewDashboardStore(newClient(t, m), logger.NewNop())
	if err := s.FetchAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	if s.Stats().TotalTasks != 4 || len(s.ByStatus()) != 1 || len(s.ByMonth()) != 1 || len(s.Recent()) != 1 {
		t.Errorf("dashboard not populated: %+v", s.Stats())
	}
	if s.OverdueBadge() != 1 || s.PendingBadge() != 2 {
		t.Errorf("badges overdue=%d pending=%d", s.OverdueBadge(), s.PendingBadge())
	}
}

func TestDashboardFetchAllKeepsOldDataOnFailure(t *testing.T) {
	m := NewMockAPI()
	s := NewDashboardStore(newClient(t, m), logger.NewNop())

	if err := s.FetchAll(context.Background()); err == nil {
		t.Fatal("FetchAll() should fail when endpoints are missing")
	}
	if s.Stats() != nil {
		t.Error("Stats() should stay nil")
	}
	if s.Error() == "" {
		t.Error("Error() should be set")
	}
}
