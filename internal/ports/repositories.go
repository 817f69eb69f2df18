package ports

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// ErrCacheMiss is returned by CacheRepository.Get when the key is absent
var ErrCacheMiss = errors.New("cache miss")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	Update(ctx context.Context, user *entities.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter UserFilter) ([]*entities.User, error)
	Count(ctx context.Context, filter UserFilter) (int64, error)
}

// ContactRepository defines the interface for contact data operations.
// Every lookup is scoped to the owning user.
type ContactRepository interface {
	Create(ctx context.Context, contact *entities.Contact) error
	GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.Contact, error)
	Update(ctx context.Context, contact *entities.Contact) error
	Delete(ctx context.Context, userID uuid.UUID, id int64) error
	DeletePermanent(ctx context.Context, userID uuid.UUID, id int64) error
	List(ctx context.Context, filter ContactFilter) ([]*entities.Contact, error)
	Count(ctx context.Context, filter ContactFilter) (int64, error)
	GetActiveByIDs(ctx context.Context, userID uuid.UUID, ids []int64) ([]entities.Contact, error)
	CountByChannel(ctx context.Context, userID uuid.UUID) (map[entities.ChannelType]int64, error)
}

// TaskRepository defines the interface for task data operations.
// Writes persist the given history entries in the same transaction.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task, contactIDs []int64, history ...*entities.TaskHistory) error
	GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.Task, error)
	Update(ctx context.Context, task *entities.Task, history ...*entities.TaskHistory) error
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	Count(ctx context.Context, filter TaskFilter) (int64, error)
	AddContacts(ctx context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error
	RemoveContacts(ctx context.Context, taskID int64, contactIDs []int64, history ...*entities.TaskHistory) error
	Apply(ctx context.Context, change TaskChange) error
	GetContacts(ctx context.Context, taskID int64) ([]entities.Contact, error)
}

// TaskHistoryRepository defines the interface for task audit records
type TaskHistoryRepository interface {
	ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]*entities.TaskHistory, error)
	CountByTask(ctx context.Context, taskID int64) (int64, error)
}

// AIRequestRepository stores interpretation requests. Confirm marks the
// request and flags the tasks as AI-created in one transaction.
type AIRequestRepository interface {
	Create(ctx context.Context, req *entities.AIRequest) error
	GetByID(ctx context.Context, userID uuid.UUID, id int64) (*entities.AIRequest, error)
	List(ctx context.Context, filter AIRequestFilter) ([]*entities.AIRequest, error)
	Count(ctx context.Context, filter AIRequestFilter) (int64, error)
	Confirm(ctx context.Context, req *entities.AIRequest, taskIDs []int64) error
}

// DashboardRepository runs the aggregate queries behind the dashboard
type DashboardRepository interface {
	StatusCounts(ctx context.Context, userID uuid.UUID) (map[entities.TaskStatus]int64, error)
	CountScheduledBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int64, error)
	CountOverdue(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	CountCompletedSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error)
	MonthlyCounts(ctx context.Context, userID uuid.UUID, since time.Time) ([]MonthCount, error)
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]*entities.Task, error)
	ScheduledBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*entities.Task, error)
}

// AuthRepository defines the interface for authentication operations
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Ping(ctx context.Context) error
}

// Filter types for repository queries
type UserFilter struct {
	IsActive *bool
	Search   *string
	Limit    int
	Offset   int
}

type ContactFilter struct {
	UserID      uuid.UUID
	IsActive    *bool
	ChannelType *entities.ChannelType
	Search      *string
	Limit       int
	Offset      int
}

type TaskFilter struct {
	UserID   uuid.UUID
	Status   *entities.TaskStatus
	IsSent   *bool
	Tags     *string
	DateFrom *time.Time
	DateTo   *time.Time
	Search   *string
	Limit    int
	Offset   int
}

type AIRequestFilter struct {
	UserID       uuid.UUID
	WasConfirmed *bool
	Limit        int
	Offset       int
}

// TaskChange is one edit of a task applied in a single transaction.
// The task row is written only when Fields is set.
type TaskChange struct {
	Task             *entities.Task
	Fields           bool
	AddContactIDs    []int64
	RemoveContactIDs []int64
	History          []*entities.TaskHistory
}

// MonthCount is the number of tasks created in one calendar month
type MonthCount struct {
	Year  int   `db:"year"`
	Month int   `db:"month"`
	Count int64 `db:"count"`
}

// RefreshToken represents a refresh token record
type RefreshToken struct {
	ID        int64      `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
