package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// TaskQuery mirrors the /tasks list filters
type TaskQuery struct {
	Page
	Status   *entities.TaskStatus
	IsSent   *bool
	Tags     string
	DateFrom *time.Time
	DateTo   *time.Time
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	q.Page.apply(v)
	if q.Status != nil {
		v.Set("status", string(*q.Status))
	}
	if q.IsSent != nil {
		v.Set("is_sent", strconv.FormatBool(*q.IsSent))
	}
	if q.Tags != "" {
		v.Set("tags", q.Tags)
	}
	if q.DateFrom != nil {
		v.Set("date_from", q.DateFrom.Format(time.RFC3339))
	}
	if q.DateTo != nil {
		v.Set("date_to", q.DateTo.Format(time.RFC3339))
	}
	return v
}

// TaskStore caches the task list and the selected task. Mutations merge the
// server's answer into the cached list instead of refetching.
type TaskStore struct {
	status

	client Client
	logger *logger.Logger

	tasks    []entities.Task
	selected *entities.Task
	history  []entities.TaskHistory
	total    int
}

func NewTaskStore(client Client, appLogger *logger.Logger) *TaskStore {
	return &TaskStore{client: client, logger: appLogger.WithComponent("task-store")}
}

// Tasks returns a copy of the cached list
func (s *TaskStore) Tasks() []entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Task(nil), s.tasks...)
}

func (s *TaskStore) Selected() *entities.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Total is the server-side count behind the last list fetch
func (s *TaskStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

func (s *TaskStore) History() []entities.TaskHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.TaskHistory(nil), s.history...)
}

// Fetch replaces the cached list
func (s *TaskStore) Fetch(ctx context.Context, q TaskQuery) error {
	return s.fetchList(ctx, "/tasks", q.values())
}

// Search replaces the cached list with tasks matching text
func (s *TaskStore) Search(ctx context.Context, text string, q TaskQuery) error {
	v := q.values()
	v.Set("q", text)
	return s.fetchList(ctx, "/tasks/search", v)
}

func (s *TaskStore) fetchList(ctx context.Context, path string, query url.Values) error {
	s.begin()

	var tasks []entities.Task
	resp, err := s.client.Get(ctx, path, query, &tasks)
	if err != nil {
		return s.end(err)
	}

	total := resp.Total()
	if total < 0 {
		total = len(tasks)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.total = total
	s.mu.Unlock()
	return s.end(nil)
}

// FetchOne loads a task into Selected and refreshes its cached copy
func (s *TaskStore) FetchOne(ctx context.Context, id int64) (*entities.Task, error) {
	return s.mutate(func(task *entities.Task) error {
		_, err := s.client.Get(ctx, taskPath(id), nil, task)
		return err
	})
}

// Create rejects a task without contacts before contacting the server
func (s *TaskStore) Create(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if len(req.ContactIDs) == 0 {
		s.begin()
		return nil, s.end(entities.ErrNoContacts)
	}

	task, err := s.mutate(func(task *entities.Task) error {
		_, err := s.client.Post(ctx, "/tasks", req, task)
		return err
	})
	if err == nil {
		s.logger.Infow("Task created", "task_id", task.ID, "contacts", len(req.ContactIDs))
	}
	return task, err
}

func (s *TaskStore) Update(ctx context.Context, id int64, req ports.UpdateTaskRequest) (*entities.Task, error) {
	return s.mutate(func(task *entities.Task) error {
		_, err := s.client.Put(ctx, taskPath(id), req, task)
		return err
	})
}

// UpdateStatus issues exactly one status change request
func (s *TaskStore) UpdateStatus(ctx context.Context, id int64, st entities.TaskStatus) (*entities.Task, error) {
	return s.mutate(func(task *entities.Task) error {
		_, err := s.client.Put(ctx, taskPath(id)+"/status", ports.UpdateTaskStatusRequest{Status: st}, task)
		return err
	})
}

func (s *TaskStore) AddContacts(ctx context.Context, id int64, contactIDs []int64) (*entities.Task, error) {
	return s.mutate(func(task *entities.Task) error {
		_, err := s.client.Post(ctx, taskPath(id)+"/contacts", ports.TaskContactsRequest{ContactIDs: contactIDs}, task)
		return err
	})
}

func (s *TaskStore) RemoveContacts(ctx context.Context, id int64, contactIDs []int64) (*entities.Task, error) {
	return s.mutate(func(task *entities.Task) error {
		_, err := s.client.Delete(ctx, taskPath(id)+"/contacts", ports.TaskContactsRequest{ContactIDs: contactIDs}, task)
		return err
	})
}

// Delete cancels the task on the server and drops it from the cache
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	s.begin()

	if _, err := s.client.Delete(ctx, taskPath(id), nil, nil); err != nil {
		return s.end(err)
	}

	s.mu.Lock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			if s.total > 0 {
				s.total--
			}
			break
		}
	}
	if s.selected != nil && s.selected.ID == id {
		s.selected = nil
	}
	s.mu.Unlock()
	return s.end(nil)
}

// FetchHistory loads the audit trail of a task
func (s *TaskStore) FetchHistory(ctx context.Context, id int64, page Page) error {
	s.begin()

	v := url.Values{}
	page.apply(v)

	var entries []entities.TaskHistory
	if _, err := s.client.Get(ctx, taskPath(id)+"/history", v, &entries); err != nil {
		return s.end(err)
	}

	s.mu.Lock()
	s.history = entries
	s.mu.Unlock()
	return s.end(nil)
}

// mutate runs call and merges the returned task: replace by id or append
func (s *TaskStore) mutate(call func(*entities.Task) error) (*entities.Task, error) {
	s.begin()

	var task entities.Task
	if err := call(&task); err != nil {
		return nil, s.end(err)
	}

	s.mu.Lock()
	s.merge(task)
	s.selected = &task
	s.mu.Unlock()
	return &task, s.end(nil)
}

// merge must be called with mu held
func (s *TaskStore) merge(task entities.Task) {
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			return
		}
	}
	s.tasks = append(s.tasks, task)
	s.total++
}

func taskPath(id int64) string {
	return fmt.Sprintf("/tasks/%d", id)
}
