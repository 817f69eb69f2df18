package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

// AIQuery mirrors the /ai/requests list filters
type AIQuery struct {
	Page
	WasConfirmed *bool
}

func (q AIQuery) values() url.Values {
	v := url.Values{}
	q.Page.apply(v)
	if q.WasConfirmed != nil {
		v.Set("was_confirmed", strconv.FormatBool(*q.WasConfirmed))
	}
	return v
}

// AIStore caches the request history and the request being worked on
type AIStore struct {
	status

	client Client
	logger *logger.Logger

	requests []entities.AIRequest
	current  *entities.AIRequest
	total    int
}

func NewAIStore(client Client, appLogger *logger.Logger) *AIStore {
	return &AIStore{client: client, logger: appLogger.WithComponent("ai-store")}
}

func (s *AIStore) Requests() []entities.AIRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.AIRequest(nil), s.requests...)
}

// Current is the last interpreted or confirmed request
func (s *AIStore) Current() *entities.AIRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *AIStore) Total() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Find looks a request up in the cached history
func (s *AIStore) Find(id int64) (*entities.AIRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.requests {
		if s.requests[i].ID == id {
			r := s.requests[i]
			return &r, true
		}
	}
	return nil, false
}

// Interpret sends text for interpretation and keeps the result as Current
func (s *AIStore) Interpret(ctx context.Context, text string, inputType entities.InputType) (*entities.AIRequest, error) {
	s.begin()

	var req entities.AIRequest
	body := ports.InterpretRequest{InputText: text, InputType: inputType}
	if _, err := s.client.Post(ctx, "/ai/interpret", body, &req); err != nil {
		return nil, s.end(err)
	}

	s.setCurrent(&req)
	return &req, s.end(nil)
}

// Confirm links taskIDs to the request. At least one id is required.
func (s *AIStore) Confirm(ctx context.Context, id int64, taskIDs []int64) (*entities.AIRequest, error) {
	s.begin()
	if len(taskIDs) == 0 {
		return nil, s.end(entities.ErrInvalidTasks)
	}

	var req entities.AIRequest
	body := ports.ConfirmAIRequest{TaskIDs: taskIDs}
	if _, err := s.client.Post(ctx, fmt.Sprintf("/ai/confirm/%d", id), body, &req); err != nil {
		return nil, s.end(err)
	}

	s.setCurrent(&req)
	s.logger.Infow("AI request confirmed", "request_id", id, "tasks", taskIDs)
	return &req, s.end(nil)
}

// Fetch replaces the cached history
func (s *AIStore) Fetch(ctx context.Context, q AIQuery) error {
	s.begin()

	var requests []entities.AIRequest
	resp, err := s.client.Get(ctx, "/ai/requests", q.values(), &requests)
	if err != nil {
		return s.end(err)
	}

	total := resp.Total()
	if total < 0 {
		total = len(requests)
	}

	s.mu.Lock()
	s.requests = requests
	s.total = total
	s.mu.Unlock()
	return s.end(nil)
}

// setCurrent stores req and refreshes its copy in the cached history
func (s *AIStore) setCurrent(req *entities.AIRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = req
	for i := range s.requests {
		if s.requests[i].ID == req.ID {
			s.requests[i] = *req
			return
		}
	}
}
