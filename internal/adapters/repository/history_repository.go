package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

// TaskHistoryRepositoryImpl reads task audit records
type TaskHistoryRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskHistoryRepository creates a new task history repository
func NewTaskHistoryRepository(db *sqlx.DB) ports.TaskHistoryRepository {
	return &TaskHistoryRepositoryImpl{db: db}
}

func (r *TaskHistoryRepositoryImpl) ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]*entities.TaskHistory, error) {
	query := `
		SELECT id, task_id, user_id, action, field_changed, old_value, new_value, notes, created_at
		FROM task_history
		WHERE task_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	entries := []*entities.TaskHistory{}
	if err := r.db.SelectContext(ctx, &entries, query, taskID, limit, offset); err != nil {
		return nil, fmt.Errorf("list task history: %w", err)
	}

	return entries, nil
}

func (r *TaskHistoryRepositoryImpl) CountByTask(ctx context.Context, taskID int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM task_history WHERE task_id = $1`, taskID); err != nil {
		return 0, fmt.Errorf("count task history: %w", err)
	}

	return count, nil
}

func insertHistory(ctx context.Context, tx *sqlx.Tx, taskID int64, entries []*entities.TaskHistory) error {
	query := `
		INSERT INTO task_history (task_id, user_id, action, field_changed, old_value, new_value, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	for _, e := range entries {
		e.TaskID = taskID
		err := tx.QueryRowContext(ctx, query,
			e.TaskID, e.UserID, e.Action, e.FieldChanged, e.OldValue, e.NewValue, e.Notes,
		).Scan(&e.ID, &e.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert task history: %w", err)
		}
	}

	return nil
}
