package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// AuthService interface for authentication operations
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*entities.User, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
}

// UserService interface for user management operations
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*entities.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*entities.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*entities.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, filter UserFilter) ([]*entities.User, int, error)
}

// ContactService interface for contact management operations
type ContactService interface {
	CreateContact(ctx context.Context, userID uuid.UUID, req CreateContactRequest) (*entities.Contact, error)
	GetContact(ctx context.Context, userID uuid.UUID, id int64) (*entities.Contact, error)
	UpdateContact(ctx context.Context, userID uuid.UUID, id int64, req UpdateContactRequest) (*entities.Contact, error)
	DeleteContact(ctx context.Context, userID uuid.UUID, id int64) error
	DeleteContactPermanent(ctx context.Context, userID uuid.UUID, id int64) error
	ListContacts(ctx context.Context, filter ContactFilter) ([]*entities.Contact, int, error)
	ContactStats(ctx context.Context, userID uuid.UUID) (*ContactStats, error)
}

// TaskService interface for task management operations
type TaskService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, req CreateTaskRequest) (*entities.Task, error)
	GetTask(ctx context.Context, userID uuid.UUID, id int64) (*entities.Task, error)
	UpdateTask(ctx context.Context, userID uuid.UUID, id int64, req UpdateTaskRequest) (*entities.Task, error)
	UpdateTaskStatus(ctx context.Context, userID uuid.UUID, id int64, status entities.TaskStatus) (*entities.Task, error)
	DeleteTask(ctx context.Context, userID uuid.UUID, id int64) error
	ListTasks(ctx context.Context, filter TaskFilter) ([]*entities.Task, int, error)
	AddContacts(ctx context.Context, userID uuid.UUID, id int64, contactIDs []int64) (*entities.Task, error)
	RemoveContacts(ctx context.Context, userID uuid.UUID, id int64, contactIDs []int64) (*entities.Task, error)
	GetHistory(ctx context.Context, userID uuid.UUID, id int64, limit, offset int) ([]*entities.TaskHistory, error)
}

// DashboardService interface for dashboard aggregates
type DashboardService interface {
	Stats(ctx context.Context, userID uuid.UUID) (*DashboardStats, error)
	TasksByStatus(ctx context.Context, userID uuid.UUID) ([]StatusBucket, error)
	TasksByMonth(ctx context.Context, userID uuid.UUID, months int) ([]MonthBucket, error)
	RecentTasks(ctx context.Context, userID uuid.UUID, limit int) ([]TaskSummary, error)
	TodayTasks(ctx context.Context, userID uuid.UUID) ([]TaskSummary, error)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

// AIService interface for turning free text into draft tasks
type AIService interface {
	Interpret(ctx context.Context, userID uuid.UUID, req InterpretRequest) (*entities.AIRequest, error)
	Confirm(ctx context.Context, userID uuid.UUID, id int64, taskIDs []int64) (*entities.AIRequest, error)
	ListRequests(ctx context.Context, filter AIRequestFilter) ([]*entities.AIRequest, int, error)
}

// Interpreter extracts draft tasks from text. It returns the structured
// result and a human-readable summary.
type Interpreter interface {
	Interpret(ctx context.Context, text string, inputType entities.InputType, now time.Time) (*entities.AIInterpretation, string, error)
}

// Request/Response Types

// Auth related types
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=8,max=100"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// AuthResponse carries the issued tokens; they travel as cookies, not in the body.
type AuthResponse struct {
	AccessToken  string         `json:"-"`
	RefreshToken string         `json:"-"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

type Claims struct {
	UserID string            `json:"user_id"`
	Email  string            `json:"email"`
	Role   entities.UserRole `json:"role"`
}

// User related types
type CreateUserRequest struct {
	Email    string            `json:"email" validate:"required,email"`
	Username string            `json:"username" validate:"required,min=3,max=50"`
	Password string            `json:"password" validate:"required,min=8,max=100"`
	FullName *string           `json:"full_name" validate:"omitempty,max=200"`
	Role     entities.UserRole `json:"role" validate:"required,oneof=admin user"`
	IsActive bool              `json:"is_active"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Username *string `json:"username" validate:"omitempty,min=3,max=50"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Password *string `json:"password" validate:"omitempty,min=8,max=100"`
}

// Contact related types
type CreateContactRequest struct {
	Name         string               `json:"name" validate:"required,min=2,max=100"`
	ChannelType  entities.ChannelType `json:"channel_type" validate:"required,oneof=whatsapp email telegram"`
	ChannelValue string               `json:"channel_value" validate:"required,min=3,max=255,channel_value=ChannelType"`
	Notes        *string              `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateContactRequest struct {
	Name         *string               `json:"name" validate:"omitempty,min=2,max=100"`
	ChannelType  *entities.ChannelType `json:"channel_type" validate:"omitempty,oneof=whatsapp email telegram"`
	ChannelValue *string               `json:"channel_value" validate:"omitempty,min=3,max=255"`
	Notes        *string               `json:"notes" validate:"omitempty,max=1000"`
	IsActive     *bool                 `json:"is_active"`
}

type ContactStats struct {
	TotalContacts int64                          `json:"total_contacts"`
	ByChannel     map[entities.ChannelType]int64 `json:"by_channel"`
}

// Task related types
type CreateTaskRequest struct {
	Title             string    `json:"title" validate:"required,min=3,max=200"`
	Description       *string   `json:"description" validate:"omitempty,max=2000"`
	ScheduledDatetime time.Time `json:"scheduled_datetime" validate:"required,future"`
	Tags              []string  `json:"tags" validate:"omitempty,tags"`
	ContactIDs        []int64   `json:"contact_ids" validate:"required,min=1,dive,gt=0"`
	CreatedByAI       bool      `json:"created_by_ai"`
}

// UpdateTaskRequest leaves nil fields untouched; an empty Tags slice clears tags.
type UpdateTaskRequest struct {
	Title             *string              `json:"title" validate:"omitempty,min=3,max=200"`
	Description       *string              `json:"description" validate:"omitempty,max=2000"`
	ScheduledDatetime *time.Time           `json:"scheduled_datetime" validate:"omitempty,future"`
	Tags              []string             `json:"tags" validate:"omitempty,tags"`
	Status            *entities.TaskStatus `json:"status" validate:"omitempty,task_status"`
	IsSent            *bool                `json:"is_sent"`
	SentAt            *time.Time           `json:"sent_at"`
	AddContactIDs     []int64              `json:"add_contact_ids" validate:"omitempty,dive,gt=0"`
	RemoveContactIDs  []int64              `json:"remove_contact_ids" validate:"omitempty,dive,gt=0"`
}

type UpdateTaskStatusRequest struct {
	Status entities.TaskStatus `json:"status" validate:"required,task_status"`
}

type TaskContactsRequest struct {
	ContactIDs []int64 `json:"contact_ids" validate:"required,min=1,dive,gt=0"`
}

// AI request types
type InterpretRequest struct {
	InputText string             `json:"input_text" validate:"required,min=1,max=5000"`
	InputType entities.InputType `json:"input_type" validate:"required,oneof=text audio"`
}

type ConfirmAIRequest struct {
	TaskIDs []int64 `json:"tasks_created_ids" validate:"required,min=1,dive,gt=0"`
}

// Dashboard related types
type DashboardStats struct {
	TotalTasks      int64   `json:"total_tasks"`
	PendingCount    int64   `json:"pending_count"`
	InProgressCount int64   `json:"in_progress_count"`
	CompletedCount  int64   `json:"completed_count"`
	TodayTasks      int64   `json:"today_tasks"`
	OverdueCount    int64   `json:"overdue_count"`
	WeekCompleted   int64   `json:"week_completed"`
	CompletionRate  float64 `json:"completion_rate"`
}

type StatusBucket struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
	Color  string `json:"color"`
}

type MonthBucket struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

type TaskSummary struct {
	ID                int64               `json:"id"`
	Title             string              `json:"title"`
	Status            entities.TaskStatus `json:"status"`
	ScheduledDatetime time.Time           `json:"scheduled_datetime"`
	CreatedAt         *time.Time          `json:"created_at,omitempty"`
	IsOverdue         bool                `json:"is_overdue"`
}

// Response types for envelopes and common structures
type DataResponse[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

type PaginatedResponse[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// FieldError is one entry of a validation failure
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Detail  interface{}            `json:"detail,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
