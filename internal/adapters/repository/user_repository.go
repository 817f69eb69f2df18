package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

const userColumns = `id, email, username, full_name, password_hash, role, is_active, created_at, updated_at`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) ports.UserRepository {
	return &UserRepositoryImpl{db: db}
}

func (r *UserRepositoryImpl) Create(ctx context.Context, user *entities.User) error {
	query := `
		INSERT INTO users (id, email, username, full_name, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Username, user.FullName,
		user.PasswordHash, user.Role, user.IsActive,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapUserWriteError("create user", err)
	}

	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return r.getOne(ctx, "get user by id", `id = $1`, id)
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return r.getOne(ctx, "get user by email", `LOWER(email) = LOWER($1)`, email)
}

func (r *UserRepositoryImpl) GetByUsername(ctx context.Context, username string) (*entities.User, error) {
	return r.getOne(ctx, "get user by username", `username = $1`, username)
}

func (r *UserRepositoryImpl) getOne(ctx context.Context, op, cond string, arg interface{}) (*entities.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + cond

	var user entities.User
	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &user, nil
}

func (r *UserRepositoryImpl) Update(ctx context.Context, user *entities.User) error {
	query := `
		UPDATE users
		SET email = $2, username = $3, full_name = $4, password_hash = $5, role = $6,
			is_active = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Username, user.FullName,
		user.PasswordHash, user.Role, user.IsActive,
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entities.ErrUserNotFound
		}
		return mapUserWriteError("update user", err)
	}

	return nil
}

// Delete deactivates the user; rows are never removed
func (r *UserRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrUserNotFound
	}

	return nil
}

func (r *UserRepositoryImpl) List(ctx context.Context, filter ports.UserFilter) ([]*entities.User, error) {
	conds := userConditions(filter)
	paging, args := conds.page(filter.Limit, filter.Offset)

	query := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY created_at DESC %s`,
		userColumns, conds.where(), paging)

	users := []*entities.User{}
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *UserRepositoryImpl) Count(ctx context.Context, filter ports.UserFilter) (int64, error) {
	conds := userConditions(filter)
	query := `SELECT COUNT(*) FROM users ` + conds.where()

	var count int64
	if err := r.db.GetContext(ctx, &count, query, conds.args...); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

func userConditions(filter ports.UserFilter) *conditions {
	conds := &conditions{}
	if filter.IsActive != nil {
		conds.add("is_active = $%d", *filter.IsActive)
	}
	if filter.Search != nil && *filter.Search != "" {
		conds.add("(username ILIKE $%[1]d OR email ILIKE $%[1]d OR full_name ILIKE $%[1]d)", likePattern(*filter.Search))
	}
	return conds
}

func mapUserWriteError(op string, err error) error {
	switch {
	case isUniqueViolation(err, "users_email_key"):
		return entities.ErrEmailTaken
	case isUniqueViolation(err, "users_username_key"):
		return entities.ErrUsernameTaken
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
