package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

// DashboardRepositoryImpl runs aggregate queries over a user's tasks.
// Soft-deleted tasks are included, so cancelled tasks still count.
type DashboardRepositoryImpl struct {
	db *sqlx.DB
}

// NewDashboardRepository creates a new dashboard repository
func NewDashboardRepository(db *sqlx.DB) ports.DashboardRepository {
	return &DashboardRepositoryImpl{db: db}
}

func (r *DashboardRepositoryImpl) StatusCounts(ctx context.Context, userID uuid.UUID) (map[entities.TaskStatus]int64, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM tasks
		WHERE user_id = $1
		GROUP BY status`

	var rows []struct {
		Status entities.TaskStatus `db:"status"`
		Count  int64               `db:"count"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("count tasks by status: %w", err)
	}

	counts := make(map[entities.TaskStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}

	return counts, nil
}

func (r *DashboardRepositoryImpl) CountScheduledBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE user_id = $1 AND scheduled_datetime >= $2 AND scheduled_datetime < $3`

	return r.count(ctx, "count scheduled tasks", query, userID, from, to)
}

func (r *DashboardRepositoryImpl) CountOverdue(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE user_id = $1 AND status = $2 AND scheduled_datetime < $3`

	return r.count(ctx, "count overdue tasks", query, userID, entities.TaskStatusPending, now)
}

func (r *DashboardRepositoryImpl) CountCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE user_id = $1 AND status = $2 AND completed_at >= $3`

	return r.count(ctx, "count completed tasks", query, userID, entities.TaskStatusDone, since)
}

func (r *DashboardRepositoryImpl) count(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (r *DashboardRepositoryImpl) MonthlyCounts(ctx context.Context, userID uuid.UUID, since time.Time) ([]ports.MonthCount, error) {
	query := `
		SELECT EXTRACT(YEAR FROM created_at)::INT AS year,
			EXTRACT(MONTH FROM created_at)::INT AS month,
			COUNT(*) AS count
		FROM tasks
		WHERE user_id = $1 AND created_at >= $2
		GROUP BY 1, 2
		ORDER BY 1, 2`

	counts := []ports.MonthCount{}
	if err := r.db.SelectContext(ctx, &counts, query, userID, since); err != nil {
		return nil, fmt.Errorf("count tasks by month: %w", err)
	}

	return counts, nil
}

func (r *DashboardRepositoryImpl) Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Task, error) {
	query := taskSelect + ` WHERE t.user_id = $1 ORDER BY t.created_at DESC LIMIT $2`

	tasks := []*entities.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, userID, limit); err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}

	return tasks, nil
}

func (r *DashboardRepositoryImpl) ScheduledBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Task, error) {
	query := taskSelect + `
		WHERE t.user_id = $1 AND t.scheduled_datetime >= $2 AND t.scheduled_datetime < $3
		ORDER BY t.scheduled_datetime`

	tasks := []*entities.Task{}
	if err := r.db.SelectContext(ctx, &tasks, query, userID, from, to); err != nil {
		return nil, fmt.Errorf("tasks scheduled between: %w", err)
	}

	return tasks, nil
}
