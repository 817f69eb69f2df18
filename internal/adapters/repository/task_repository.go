package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/database"
	"github.com/taskmaster/autotasks/internal/ports"
)

const taskSelect = `
	SELECT t.id, t.user_id, t.title, t.description, t.scheduled_datetime, t.status,
		t.tags, t.is_sent, t.sent_at, t.is_active, t.created_by_ai, t.completed_at,
		t.created_at, t.updated_at,
		(SELECT COUNT(*) FROM task_history h WHERE h.task_id = t.id) AS history_count
	FROM tasks t`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *database.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *database.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task, contactIDs []int64, history ...*entities.TaskHistory) error {
	query := `
		INSERT INTO tasks (user_id, title, description, scheduled_datetime, status, tags,
			is_sent, sent_at, is_active, created_by_ai, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		err := tx.QueryRowContext(ctx, query,
			task.UserID, task.Title, task.Description, task.ScheduledDatetime, task.Status,
			task.Tags, task.IsSent, task.SentAt, task.IsActive, task.CreatedByAI, task.CompletedAt,
		).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		if err := linkContacts(ctx, tx, task.ID, contactIDs); err != nil {
			return err
		}

		if err := insertHistory(ctx, tx, task.ID, history); err != nil {
			return err
		}
		task.HistoryCount = len(history)
		return nil
	})
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.Task, error) {
	query := taskSelect + ` WHERE t.id = $1 AND t.user_id = $2 AND t.is_active = TRUE`

	var task entities.Task
	if err := r.db.DB.GetContext(ctx, &task, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	contacts, err := r.GetContacts(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	task.Contacts = contacts

	return &task, nil
}

func (r *TaskRepositoryImpl) Update(ctx context.Context, task *entities.Task, history ...*entities.TaskHistory) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := updateTask(ctx, tx, task); err != nil {
			return err
		}

		if err := insertHistory(ctx, tx, task.ID, history); err != nil {
			return err
		}
		task.HistoryCount += len(history)
		return nil
	})
}

func (r *TaskRepositoryImpl) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	conds := taskConditions(filter)
	paging, args := conds.page(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`%s %s ORDER BY t.scheduled_datetime %s`, taskSelect, conds.where(), paging)

	tasks := []*entities.Task{}
	if err := r.db.DB.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) Count(ctx context.Context, filter ports.TaskFilter) (int64, error) {
	conds := taskConditions(filter)
	query := `SELECT COUNT(*) FROM tasks t ` + conds.where()

	var count int64
	if err := r.db.DB.GetContext(ctx, &count, query, conds.args...); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}

	return count, nil
}

func (r *TaskRepositoryImpl) AddContacts(ctx context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := linkContacts(ctx, tx, taskID, contactIDs); err != nil {
			return err
		}
		if err := touchTask(ctx, tx, taskID); err != nil {
			return err
		}
		return insertHistory(ctx, tx, taskID, history)
	})
}

// RemoveContacts unlinks contacts and fails with ErrNoContacts if none would remain
func (r *TaskRepositoryImpl) RemoveContacts(ctx context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error {
	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := unlinkContacts(ctx, tx, taskID, contactIDs); err != nil {
			return err
		}
		if err := touchTask(ctx, tx, taskID); err != nil {
			return err
		}
		return insertHistory(ctx, tx, taskID, history)
	})
}

// Apply writes the task fields, contact links and history of one edit
// together; any failure rolls back the whole change.
func (r *TaskRepositoryImpl) Apply(ctx context.Context, change ports.TaskChange) error {
	task := change.Task

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if change.Fields {
			if err := updateTask(ctx, tx, task); err != nil {
				return err
			}
		} else if err := touchTask(ctx, tx, task.ID); err != nil {
			return err
		}

		if len(change.AddContactIDs) > 0 {
			if err := linkContacts(ctx, tx, task.ID, change.AddContactIDs); err != nil {
				return err
			}
		}
		if len(change.RemoveContactIDs) > 0 {
			if err := unlinkContacts(ctx, tx, task.ID, change.RemoveContactIDs); err != nil {
				return err
			}
		}

		if err := insertHistory(ctx, tx, task.ID, change.History); err != nil {
			return err
		}
		task.HistoryCount += len(change.History)
		return nil
	})
}

func (r *TaskRepositoryImpl) GetContacts(ctx context.Context, taskID int64) ([]entities.Contact, error) {
	query := `
		SELECT c.id, c.user_id, c.name, c.channel_type, c.channel_value, c.notes,
			c.is_active, c.created_at, c.updated_at
		FROM contacts c
		JOIN task_contacts tc ON tc.contact_id = c.id
		WHERE tc.task_id = $1
		ORDER BY c.name`

	contacts := []entities.Contact{}
	if err := r.db.DB.SelectContext(ctx, &contacts, query, taskID); err != nil {
		return nil, fmt.Errorf("get task contacts: %w", err)
	}

	return contacts, nil
}

func taskConditions(filter ports.TaskFilter) *conditions {
	conds := &conditions{}
	conds.add("t.user_id = $%d", filter.UserID)
	conds.add("t.is_active = $%d", true)

	if filter.Status != nil {
		conds.add("t.status = $%d", *filter.Status)
	}
	if filter.IsSent != nil {
		conds.add("t.is_sent = $%d", *filter.IsSent)
	}
	if filter.Tags != nil {
		for _, tag := range entities.SplitTags(*filter.Tags) {
			conds.add("t.tags ILIKE $%d", likePattern(tag))
		}
	}
	if filter.DateFrom != nil {
		conds.add("t.scheduled_datetime >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conds.add("t.scheduled_datetime <= $%d", *filter.DateTo)
	}
	if filter.Search != nil && *filter.Search != "" {
		conds.add("(t.title ILIKE $%[1]d OR t.description ILIKE $%[1]d)", likePattern(*filter.Search))
	}
	return conds
}

func linkContacts(ctx context.Context, tx *sqlx.Tx, taskID int64, contactIDs []int64) error {
	query := `
		INSERT INTO task_contacts (task_id, contact_id)
		SELECT $1, UNNEST($2::BIGINT[])
		ON CONFLICT DO NOTHING`

	if _, err := tx.ExecContext(ctx, query, taskID, pq.Array(contactIDs)); err != nil {
		return fmt.Errorf("link task contacts: %w", err)
	}
	return nil
}

func updateTask(ctx context.Context, tx *sqlx.Tx, task *entities.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, scheduled_datetime = $5, status = $6, tags = $7,
			is_sent = $8, sent_at = $9, is_active = $10, completed_at = $11, created_by_ai = $12,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`

	err := tx.QueryRowContext(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.ScheduledDatetime,
		task.Status, task.Tags, task.IsSent, task.SentAt, task.IsActive, task.CompletedAt, task.CreatedByAI,
	).Scan(&task.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrTaskNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// unlinkContacts fails with ErrNoContacts when the task would be left without contacts
func unlinkContacts(ctx context.Context, tx *sqlx.Tx, taskID int64, contactIDs []int64) error {
	query := `DELETE FROM task_contacts WHERE task_id = $1 AND contact_id = ANY($2)`
	if _, err := tx.ExecContext(ctx, query, taskID, pq.Array(contactIDs)); err != nil {
		return fmt.Errorf("remove task contacts: %w", err)
	}

	var remaining int64
	if err := tx.GetContext(ctx, &remaining, `SELECT COUNT(*) FROM task_contacts WHERE task_id = $1`, taskID); err != nil {
		return fmt.Errorf("count task contacts: %w", err)
	}
	if remaining == 0 {
		return entities.ErrNoContacts
	}
	return nil
}

func touchTask(ctx context.Context, tx *sqlx.Tx, taskID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE tasks SET updated_at = CURRENT_TIMESTAMP WHERE id = $1`, taskID); err != nil {
		return fmt.Errorf("touch task: %w", err)
	}
	return nil
}
