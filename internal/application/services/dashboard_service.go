package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

const (
	DefaultDashboardMonths = 6
	MaxDashboardMonths     = 12
	DefaultRecentLimit     = 10
	MaxRecentLimit         = 50
)

var monthAbbr = [...]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// DashboardService computes per-user aggregates, cached for a short TTL
type DashboardService struct {
	repo   ports.DashboardRepository
	cache  ports.CacheRepository
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repo ports.DashboardRepository, cache ports.CacheRepository, ttl time.Duration, logger *logger.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithComponent("dashboard"),
		now:    time.Now,
	}
}

func dashboardKey(userID uuid.UUID, name string) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, name)
}

func dashboardPattern(userID uuid.UUID) string {
	return dashboardKey(userID, "*")
}

// cached returns the value stored under key, computing and storing it on a miss.
// Cache failures are logged and never fail the request.
func cached[T any](ctx context.Context, s *DashboardService, key string, compute func() (T, error)) (T, error) {
	var value T
	err := s.cache.Get(ctx, key, &value)
	if err == nil {
		return value, nil
	}
	if !errors.Is(err, ports.ErrCacheMiss) {
		s.logger.Warnw("Dashboard cache read failed", "key", key, "error", err)
	}

	value, err = compute()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warnw("Dashboard cache write failed", "key", key, "error", err)
	}
	return value, nil
}

// Stats returns the headline counters
func (s *DashboardService) Stats(ctx context.Context, userID uuid.UUID) (*ports.DashboardStats, error) {
	stats, err := cached(ctx, s, dashboardKey(userID, "stats"), func() (ports.DashboardStats, error) {
		return s.computeStats(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *DashboardService) computeStats(ctx context.Context, userID uuid.UUID) (ports.DashboardStats, error) {
	var stats ports.DashboardStats
	now := s.now()

	counts, err := s.repo.StatusCounts(ctx, userID)
	if err != nil {
		return stats, fmt.Errorf("failed to count tasks by status: %w", err)
	}
	for _, n := range counts {
		stats.TotalTasks += n
	}
	stats.PendingCount = counts[entities.TaskStatusPending]
	stats.InProgressCount = counts[entities.TaskStatusInProgress]
	stats.CompletedCount = counts[entities.TaskStatusDone]

	dayStart := startOfDay(now)
	if stats.TodayTasks, err = s.repo.CountScheduledBetween(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1)); err != nil {
		return stats, fmt.Errorf("failed to count today's tasks: %w", err)
	}

	if stats.OverdueCount, err = s.repo.CountOverdue(ctx, userID, now); err != nil {
		return stats, fmt.Errorf("failed to count overdue tasks: %w", err)
	}

	if stats.WeekCompleted, err = s.repo.CountCompletedSince(ctx, userID, startOfWeek(now)); err != nil {
		return stats, fmt.Errorf("failed to count completed tasks: %w", err)
	}

	stats.CompletionRate = CompletionRate(stats.CompletedCount, stats.TotalTasks)
	return stats, nil
}

// TasksByStatus returns one labelled, coloured bucket per status present
func (s *DashboardService) TasksByStatus(ctx context.Context, userID uuid.UUID) ([]ports.StatusBucket, error) {
	return cached(ctx, s, dashboardKey(userID, "by-status"), func() ([]ports.StatusBucket, error) {
		counts, err := s.repo.StatusCounts(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks by status: %w", err)
		}

		buckets := []ports.StatusBucket{}
		for _, status := range entities.TaskStatuses {
			if n := counts[status]; n > 0 {
				buckets = append(buckets, ports.StatusBucket{Status: status.Label(), Count: n, Color: status.Color()})
			}
		}
		return buckets, nil
	})
}

// TasksByMonth returns task creation counts for the last months, clamped to 1..12
func (s *DashboardService) TasksByMonth(ctx context.Context, userID uuid.UUID, months int) ([]ports.MonthBucket, error) {
	months = clamp(months, DefaultDashboardMonths, MaxDashboardMonths)

	key := dashboardKey(userID, fmt.Sprintf("by-month:%d", months))
	return cached(ctx, s, key, func() ([]ports.MonthBucket, error) {
		since := s.now().AddDate(0, 0, -months*30)
		rows, err := s.repo.MonthlyCounts(ctx, userID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks by month: %w", err)
		}

		buckets := make([]ports.MonthBucket, 0, len(rows))
		for _, row := range rows {
			buckets = append(buckets, ports.MonthBucket{Month: MonthLabel(row.Month), Count: row.Count})
		}
		return buckets, nil
	})
}

// RecentTasks returns the most recently created tasks
func (s *DashboardService) RecentTasks(ctx context.Context, userID uuid.UUID, limit int) ([]ports.TaskSummary, error) {
	limit = clamp(limit, DefaultRecentLimit, MaxRecentLimit)

	key := dashboardKey(userID, fmt.Sprintf("recent:%d", limit))
	return cached(ctx, s, key, func() ([]ports.TaskSummary, error) {
		tasks, err := s.repo.Recent(ctx, userID, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load recent tasks: %w", err)
		}
		return s.summarize(tasks, true), nil
	})
}

// TodayTasks returns tasks scheduled for the current day in schedule order
func (s *DashboardService) TodayTasks(ctx context.Context, userID uuid.UUID) ([]ports.TaskSummary, error) {
	return cached(ctx, s, dashboardKey(userID, "today"), func() ([]ports.TaskSummary, error) {
		dayStart := startOfDay(s.now())
		tasks, err := s.repo.ScheduledBetween(ctx, userID, dayStart, dayStart.AddDate(0, 0, 1))
		if err != nil {
			return nil, fmt.Errorf("failed to load today's tasks: %w", err)
		}
		return s.summarize(tasks, false), nil
	})
}

// Invalidate drops every cached aggregate of a user
func (s *DashboardService) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.DeletePattern(ctx, dashboardPattern(userID)); err != nil {
		s.logger.Warnw("Failed to invalidate dashboard cache", "user_id", userID, "error", err)
	}
}

func (s *DashboardService) summarize(tasks []*entities.Task, withCreated bool) []ports.TaskSummary {
	now := s.now()
	out := make([]ports.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		summary := ports.TaskSummary{
			ID:                t.ID,
			Title:             t.Title,
			Status:            t.Status,
			ScheduledDatetime: t.ScheduledDatetime,
			IsOverdue:         t.OverdueAt(now),
		}
		if withCreated {
			created := t.CreatedAt
			summary.CreatedAt = &created
		}
		out = append(out, summary)
	}
	return out
}

// CompletionRate is completed/total as a percentage rounded to one decimal
func CompletionRate(completed, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// MonthLabel formats a 1-based month number as "<n> <abbr>"
func MonthLabel(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", month)
	}
	return fmt.Sprintf("%d %s", month, monthAbbr[month-1])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// startOfWeek returns Monday 00:00 of the week containing t
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
