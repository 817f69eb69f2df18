package store

import (
	"context"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

const (
	defaultDashboardMonths = 6
	defaultRecentLimit     = 10
)

// DashboardStore holds the server-computed dashboard figures
type DashboardStore struct {
	status

	client Client
	logger *logger.Logger

	Months      int
	RecentLimit int

	stats    *ports.DashboardStats
	byStatus []ports.StatusBucket
	byMonth  []ports.MonthBucket
	recent   []ports.TaskSummary
	today    []ports.TaskSummary
}

func NewDashboardStore(client Client, appLogger *logger.Logger) *DashboardStore {
	return &DashboardStore{
		client:      client,
		logger:      appLogger.WithComponent("dashboard-store"),
		Months:      defaultDashboardMonths,
		RecentLimit: defaultRecentLimit,
	}
}

// FetchAll loads the five dashboard endpoints concurrently. Nothing is
// replaced unless all of them succeed.
func (s *DashboardStore) FetchAll(ctx context.Context) error {
	s.begin()

	var (
		stats    ports.DataResponse[ports.DashboardStats]
		byStatus ports.DataResponse[[]ports.StatusBucket]
		byMonth  ports.DataResponse[[]ports.MonthBucket]
		recent   ports.DataResponse[[]ports.TaskSummary]
		today    ports.DataResponse[[]ports.TaskSummary]
	)

	g, gctx := errgroup.WithContext(ctx)
	get := func(path string, query url.Values, out interface{}) {
		g.Go(func() error {
			_, err := s.client.Get(gctx, path, query, out)
			return err
		})
	}

	get("/dashboard/stats", nil, &stats)
	get("/dashboard/tasks-by-status", nil, &byStatus)
	get("/dashboard/tasks-by-month", url.Values{"months": {strconv.Itoa(s.Months)}}, &byMonth)
	get("/dashboard/recent-tasks", url.Values{"limit": {strconv.Itoa(s.RecentLimit)}}, &recent)
	get("/dashboard/today-tasks", nil, &today)

	if err := g.Wait(); err != nil {
		s.logger.Warnw("Dashboard fetch failed", "error", err)
		return s.end(err)
	}

	s.mu.Lock()
	s.stats = &stats.Data
	s.byStatus = byStatus.Data
	s.byMonth = byMonth.Data
	s.recent = recent.Data
	s.today = today.Data
	s.mu.Unlock()
	return s.end(nil)
}

func (s *DashboardStore) Stats() *ports.DashboardStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *DashboardStore) ByStatus() []ports.StatusBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.StatusBucket(nil), s.byStatus...)
}

func (s *DashboardStore) ByMonth() []ports.MonthBucket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.MonthBucket(nil), s.byMonth...)
}

func (s *DashboardStore) Recent() []ports.TaskSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.TaskSummary(nil), s.recent...)
}

func (s *DashboardStore) Today() []ports.TaskSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.TaskSummary(nil), s.today...)
}

// OverdueBadge counts overdue tasks among today's tasks
func (s *DashboardStore) OverdueBadge() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.today {
		if t.IsOverdue {
			n++
		}
	}
	return n
}

// PendingBadge counts today's tasks still waiting to start
func (s *DashboardStore) PendingBadge() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.today {
		if t.Status == entities.TaskStatusPending {
			n++
		}
	}
	return n
}
