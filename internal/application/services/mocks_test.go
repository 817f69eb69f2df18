package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

type MockUserRepository struct {
	users map[uuid.UUID]*entities.User
}

func NewMockUserRepository(users ...*entities.User) *MockUserRepository {
	m := &MockUserRepository{users: map[uuid.UUID]*entities.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *MockUserRepository) Create(_ context.Context, user *entities.User) error {
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(_ context.Context, id uuid.UUID) (*entities.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, entities.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(_ context.Context, username string) (*entities.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, entities.ErrUserNotFound
}

func (m *MockUserRepository) Update(_ context.Context, user *entities.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) Delete(_ context.Context, id uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return entities.ErrUserNotFound
	}
	u.IsActive = false
	return nil
}

func (m *MockUserRepository) List(context.Context, ports.UserFilter) ([]*entities.User, error) {
	out := make([]*entities.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *MockUserRepository) Count(context.Context, ports.UserFilter) (int64, error) {
	return int64(len(m.users)), nil
}

type MockAuthRepository struct {
	tokens map[string]*ports.RefreshToken
}

func NewMockAuthRepository() *MockAuthRepository {
	return &MockAuthRepository{tokens: map[string]*ports.RefreshToken{}}
}

func (m *MockAuthRepository) CreateRefreshToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	m.tokens[tokenHash] = &ports.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (m *MockAuthRepository) GetRefreshToken(_ context.Context, tokenHash string) (*ports.RefreshToken, error) {
	if t, ok := m.tokens[tokenHash]; ok {
		return t, nil
	}
	return nil, entities.ErrUnauthorized
}

func (m *MockAuthRepository) RevokeRefreshToken(_ context.Context, tokenHash string) error {
	if t, ok := m.tokens[tokenHash]; ok {
		now := time.Now()
		t.RevokedAt = &now
	}
	return nil
}

func (m *MockAuthRepository) RevokeAllUserTokens(_ context.Context, userID uuid.UUID) error {
	now := time.Now()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.RevokedAt = &now
		}
	}
	return nil
}

func (m *MockAuthRepository) CleanupExpiredTokens(context.Context) (int64, error) {
	return 0, nil
}

// MockContactRepository keeps contacts in memory; unset func fields fall back to the map.
type MockContactRepository struct {
	contacts map[int64]*entities.Contact
	nextID   int64

	GetActiveByIDsFunc func(ctx context.Context, userID uuid.UUID, ids []int64) ([]entities.Contact, error)
}

func NewMockContactRepository(contacts ...*entities.Contact) *MockContactRepository {
	m := &MockContactRepository{contacts: map[int64]*entities.Contact{}}
	for _, c := range contacts {
		m.contacts[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *MockContactRepository) Create(_ context.Context, contact *entities.Contact) error {
	m.nextID++
	contact.ID = m.nextID
	m.contacts[contact.ID] = contact
	return nil
}

func (m *MockContactRepository) GetByID(_ context.Context, userID uuid.UUID, id int64) (*entities.Contact, error) {
	c, ok := m.contacts[id]
	if !ok || c.UserID != userID {
		return nil, entities.ErrContactNotFound
	}
	return c, nil
}

func (m *MockContactRepository) Update(_ context.Context, contact *entities.Contact) error {
	m.contacts[contact.ID] = contact
	return nil
}

func (m *MockContactRepository) Delete(ctx context.Context, userID uuid.UUID, id int64) error {
	c, err := m.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	return nil
}

func (m *MockContactRepository) DeletePermanent(ctx context.Context, userID uuid.UUID, id int64) error {
	if _, err := m.GetByID(ctx, userID, id); err != nil {
		return err
	}
	delete(m.contacts, id)
	return nil
}

func (m *MockContactRepository) List(_ context.Context, filter ports.ContactFilter) ([]*entities.Contact, error) {
	out := []*entities.Contact{}
	for _, c := range m.contacts {
		if c.UserID == filter.UserID && (filter.IsActive == nil || c.IsActive == *filter.IsActive) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MockContactRepository) Count(ctx context.Context, filter ports.ContactFilter) (int64, error) {
	list, _ := m.List(ctx, filter)
	return int64(len(list)), nil
}

func (m *MockContactRepository) GetActiveByIDs(ctx context.Context, userID uuid.UUID, ids []int64) ([]entities.Contact, error) {
	if m.GetActiveByIDsFunc != nil {
		return m.GetActiveByIDsFunc(ctx, userID, ids)
	}
	out := []entities.Contact{}
	for _, id := range ids {
		if c, ok := m.contacts[id]; ok && c.UserID == userID && c.IsActive {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockContactRepository) CountByChannel(_ context.Context, userID uuid.UUID) (map[entities.ChannelType]int64, error) {
	counts := map[entities.ChannelType]int64{
		entities.ChannelWhatsApp: 0,
		entities.ChannelEmail:    0,
		entities.ChannelTelegram: 0,
	}
	for _, c := range m.contacts {
		if c.UserID == userID && c.IsActive {
			counts[c.ChannelType]++
		}
	}
	return counts, nil
}

// MockTaskRepository records writes so tests can assert on history entries.
type MockTaskRepository struct {
	tasks    map[int64]*entities.Task
	links    map[int64][]int64
	contacts *MockContactRepository
	nextID   int64

	History  []*entities.TaskHistory
	Updates  int
	Applies  int
	ApplyErr error
}

func NewMockTaskRepository(contacts *MockContactRepository) *MockTaskRepository {
	return &MockTaskRepository{
		tasks:    map[int64]*entities.Task{},
		links:    map[int64][]int64{},
		contacts: contacts,
	}
}

func (m *MockTaskRepository) Create(_ context.Context, task *entities.Task, contactIDs []int64, history ...*entities.TaskHistory) error {
	m.nextID++
	task.ID = m.nextID
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	stored := *task
	m.tasks[task.ID] = &stored
	m.links[task.ID] = append([]int64(nil), contactIDs...)
	m.record(task.ID, history)
	return nil
}

func (m *MockTaskRepository) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.Task, error) {
	t, ok := m.tasks[id]
	if !ok || t.UserID != userID || !t.IsActive {
		return nil, entities.ErrTaskNotFound
	}
	out := *t
	out.Contacts, _ = m.GetContacts(ctx, id)
	return &out, nil
}

func (m *MockTaskRepository) Update(_ context.Context, task *entities.Task, history ...*entities.TaskHistory) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return entities.ErrTaskNotFound
	}
	stored := *task
	stored.Contacts = nil
	m.tasks[task.ID] = &stored
	m.Updates++
	m.record(task.ID, history)
	return nil
}

func (m *MockTaskRepository) List(_ context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	out := []*entities.Task{}
	for _, t := range m.tasks {
		if t.UserID == filter.UserID && t.IsActive {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockTaskRepository) Count(ctx context.Context, filter ports.TaskFilter) (int64, error) {
	list, _ := m.List(ctx, filter)
	return int64(len(list)), nil
}

func (m *MockTaskRepository) AddContacts(_ context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error {
	m.links[taskID] = append(m.links[taskID], contactIDs...)
	m.record(taskID, history)
	return nil
}

func (m *MockTaskRepository) RemoveContacts(_ context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error {
	drop := map[int64]bool{}
	for _, id := range contactIDs {
		drop[id] = true
	}
	kept := []int64{}
	for _, id := range m.links[taskID] {
		if !drop[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return entities.ErrNoContacts
	}
	m.links[taskID] = kept
	m.record(taskID, history)
	return nil
}

// Apply stores nothing unless every part of the change succeeds.
func (m *MockTaskRepository) Apply(_ context.Context, change ports.TaskChange) error {
	m.Applies++
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	task := change.Task
	if _, ok := m.tasks[task.ID]; !ok {
		return entities.ErrTaskNotFound
	}

	drop := map[int64]bool{}
	for _, id := range change.RemoveContactIDs {
		drop[id] = true
	}
	links := []int64{}
	for _, id := range append(append([]int64(nil), m.links[task.ID]...), change.AddContactIDs...) {
		if !drop[id] {
			links = append(links, id)
		}
	}
	if len(links) == 0 {
		return entities.ErrNoContacts
	}

	if change.Fields {
		stored := *task
		stored.Contacts = nil
		m.tasks[task.ID] = &stored
	}
	m.links[task.ID] = links
	m.record(task.ID, change.History)
	return nil
}

func (m *MockTaskRepository) GetContacts(_ context.Context, taskID int64) ([]entities.Contact, error) {
	out := []entities.Contact{}
	for _, id := range m.links[taskID] {
		if c, ok := m.contacts.contacts[id]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *MockTaskRepository) record(taskID int64, history []*entities.TaskHistory) {
	for _, h := range history {
		h.TaskID = taskID
		m.History = append(m.History, h)
	}
}

func (m *MockTaskRepository) ListByTask(_ context.Context, taskID int64, limit, offset int) ([]*entities.TaskHistory, error) {
	out := []*entities.TaskHistory{}
	for _, h := range m.History {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	if offset > len(out) {
		return []*entities.TaskHistory{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockTaskRepository) CountByTask(ctx context.Context, taskID int64) (int64, error) {
	list, _ := m.ListByTask(ctx, taskID, len(m.History), 0)
	return int64(len(list)), nil
}

type MockDashboardRepository struct {
	StatusCountsFunc     func() map[entities.TaskStatus]int64
	ScheduledCount       int64
	Overdue              int64
	CompletedSince       int64
	Months               []ports.MonthCount
	RecentTasks          []*entities.Task
	ScheduledTasks       []*entities.Task
	Calls                int
	LastCompletedSince   time.Time
	LastScheduledBetween [2]time.Time
}

func (m *MockDashboardRepository) StatusCounts(context.Context, uuid.UUID) (map[entities.TaskStatus]int64, error) {
	m.Calls++
	if m.StatusCountsFunc == nil {
		return map[entities.TaskStatus]int64{}, nil
	}
	return m.StatusCountsFunc(), nil
}

func (m *MockDashboardRepository) CountScheduledBetween(_ context.Context, _ uuid.UUID, from, to time.Time) (int64, error) {
	m.LastScheduledBetween = [2]time.Time{from, to}
	return m.ScheduledCount, nil
}

func (m *MockDashboardRepository) CountOverdue(context.Context, uuid.UUID, time.Time) (int64, error) {
	return m.Overdue, nil
}

func (m *MockDashboardRepository) CountCompletedSince(_ context.Context, _ uuid.UUID, since time.Time) (int64, error) {
	m.LastCompletedSince = since
	return m.CompletedSince, nil
}

func (m *MockDashboardRepository) MonthlyCounts(context.Context, uuid.UUID, time.Time) ([]ports.MonthCount, error) {
	return m.Months, nil
}

func (m *MockDashboardRepository) Recent(_ context.Context, _ uuid.UUID, limit int) ([]*entities.Task, error) {
	if limit < len(m.RecentTasks) {
		return m.RecentTasks[:limit], nil
	}
	return m.RecentTasks, nil
}

func (m *MockDashboardRepository) ScheduledBetween(_ context.Context, _ uuid.UUID, from, to time.Time) ([]*entities.Task, error) {
	m.LastScheduledBetween = [2]time.Time{from, to}
	return m.ScheduledTasks, nil
}

// MockCache stores JSON-free values by key; Get copies through a type switch on dest.
type MockCache struct {
	Deleted []string
	store   map[string]interface{}
}

func NewMockCache() *MockCache {
	return &MockCache{store: map[string]interface{}{}}
}

func (m *MockCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	m.store[key] = value
	return nil
}

func (m *MockCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := m.store[key]
	if !ok {
		return ports.ErrCacheMiss
	}
	switch d := dest.(type) {
	case *ports.DashboardStats:
		*d = v.(ports.DashboardStats)
	case *[]ports.StatusBucket:
		*d = v.([]ports.StatusBucket)
	case *[]ports.MonthBucket:
		*d = v.([]ports.MonthBucket)
	case *[]ports.TaskSummary:
		*d = v.([]ports.TaskSummary)
	default:
		return ports.ErrCacheMiss
	}
	return nil
}

func (m *MockCache) Delete(_ context.Context, key string) error {
	delete(m.store, key)
	return nil
}

func (m *MockCache) DeletePattern(_ context.Context, pattern string) error {
	m.Deleted = append(m.Deleted, pattern)
	prefix := pattern
	if n := len(prefix); n > 0 && prefix[n-1] == '*' {
		prefix = prefix[:n-1]
	}
	for k := range m.store {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.store, k)
		}
	}
	return nil
}

func (m *MockCache) Ping(context.Context) error { return nil }

// MockAIRequestRepository checks confirmed task ids against a MockTaskRepository.
type MockAIRequestRepository struct {
	requests map[int64]*entities.AIRequest
	tasks    *MockTaskRepository
	nextID   int64
}

func NewMockAIRequestRepository(tasks *MockTaskRepository) *MockAIRequestRepository {
	return &MockAIRequestRepository{requests: map[int64]*entities.AIRequest{}, tasks: tasks}
}

func (m *MockAIRequestRepository) Create(_ context.Context, req *entities.AIRequest) error {
	m.nextID++
	req.ID = m.nextID
	req.CreatedAt = time.Now()
	stored := *req
	m.requests[req.ID] = &stored
	return nil
}

func (m *MockAIRequestRepository) GetByID(_ context.Context, userID uuid.UUID, id int64) (*entities.AIRequest, error) {
	r, ok := m.requests[id]
	if !ok || r.UserID != userID {
		return nil, entities.ErrAIRequestNotFound
	}
	out := *r
	return &out, nil
}

func (m *MockAIRequestRepository) List(_ context.Context, filter ports.AIRequestFilter) ([]*entities.AIRequest, error) {
	out := []*entities.AIRequest{}
	for id := m.nextID; id > 0; id-- {
		r, ok := m.requests[id]
		if !ok || r.UserID != filter.UserID {
			continue
		}
		if filter.WasConfirmed != nil && r.WasConfirmed != *filter.WasConfirmed {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockAIRequestRepository) Count(ctx context.Context, filter ports.AIRequestFilter) (int64, error) {
	list, _ := m.List(ctx, filter)
	return int64(len(list)), nil
}

func (m *MockAIRequestRepository) Confirm(_ context.Context, req *entities.AIRequest, taskIDs []int64) error {
	for _, id := range taskIDs {
		t, ok := m.tasks.tasks[id]
		if !ok || t.UserID != req.UserID || !t.IsActive {
			return entities.ErrInvalidTasks
		}
	}
	stored := m.requests[req.ID]
	if stored.WasConfirmed {
		return entities.ErrAlreadyConfirmed
	}

	for _, id := range taskIDs {
		m.tasks.tasks[id].CreatedByAI = true
	}
	created := entities.JoinIDs(taskIDs)
	stored.WasConfirmed = true
	stored.TasksCreated = &created
	req.WasConfirmed = true
	req.TasksCreated = &created
	return nil
}
