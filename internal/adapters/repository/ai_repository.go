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

const aiRequestColumns = `id, user_id, input_text, input_type, ai_response, interpreted_data,
	was_confirmed, tasks_created, created_at`

// AIRequestRepositoryImpl implements the AIRequestRepository interface
type AIRequestRepositoryImpl struct {
	db *database.DB
}

// NewAIRequestRepository creates a new AI request repository
func NewAIRequestRepository(db *database.DB) ports.AIRequestRepository {
	return &AIRequestRepositoryImpl{db: db}
}

func (r *AIRequestRepositoryImpl) Create(ctx context.Context, req *entities.AIRequest) error {
	query := `
		INSERT INTO ai_requests (user_id, input_text, input_type, ai_response, interpreted_data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.DB.QueryRowContext(ctx, query,
		req.UserID, req.InputText, req.InputType, req.AIResponse, req.InterpretedData,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return fmt.Errorf("create ai request: %w", err)
	}

	return nil
}

func (r *AIRequestRepositoryImpl) GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.AIRequest, error) {
	query := `SELECT ` + aiRequestColumns + ` FROM ai_requests WHERE id = $1 AND user_id = $2`

	var req entities.AIRequest
	if err := r.db.DB.GetContext(ctx, &req, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrAIRequestNotFound
		}
		return nil, fmt.Errorf("get ai request by id: %w", err)
	}

	return &req, nil
}

func (r *AIRequestRepositoryImpl) List(ctx context.Context, filter ports.AIRequestFilter) ([]*entities.AIRequest, error) {
	conds := aiRequestConditions(filter)
	paging, args := conds.page(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM ai_requests %s ORDER BY created_at DESC, id DESC %s`,
		aiRequestColumns, conds.where(), paging)

	requests := []*entities.AIRequest{}
	if err := r.db.DB.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("list ai requests: %w", err)
	}

	return requests, nil
}

func (r *AIRequestRepositoryImpl) Count(ctx context.Context, filter ports.AIRequestFilter) (int64, error) {
	conds := aiRequestConditions(filter)

	var count int64
	if err := r.db.DB.GetContext(ctx, &count, `SELECT COUNT(*) FROM ai_requests `+conds.where(), conds.args...); err != nil {
		return 0, fmt.Errorf("count ai requests: %w", err)
	}

	return count, nil
}

// Confirm flags taskIDs as AI-created and records them on the request.
// Every id must name an active task of the request's owner.
func (r *AIRequestRepositoryImpl) Confirm(ctx context.Context, req *entities.AIRequest, taskIDs []int64) error {
	created := entities.JoinIDs(taskIDs)

	return r.db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tasks SET created_by_ai = TRUE, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND is_active = TRUE AND id = ANY($2)`,
			req.UserID, pq.Array(taskIDs))
		if err != nil {
			return fmt.Errorf("flag ai tasks: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("flag ai tasks: %w", err)
		} else if n != int64(len(taskIDs)) {
			return entities.ErrInvalidTasks
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE ai_requests SET was_confirmed = TRUE, tasks_created = $3
			WHERE id = $1 AND user_id = $2 AND was_confirmed = FALSE`,
			req.ID, req.UserID, created)
		if err != nil {
			return fmt.Errorf("confirm ai request: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("confirm ai request: %w", err)
		} else if n == 0 {
			return entities.ErrAlreadyConfirmed
		}

		req.WasConfirmed = true
		req.TasksCreated = &created
		return nil
	})
}

func aiRequestConditions(filter ports.AIRequestFilter) *conditions {
	conds := &conditions{}
	conds.add("user_id = $%d", filter.UserID)
	if filter.WasConfirmed != nil {
		conds.add("was_confirmed = $%d", *filter.WasConfirmed)
	}
	return conds
}
