package entities

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrContactNotFound   = errors.New("contact not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidChannel    = errors.New("invalid channel type")
	ErrInvalidChannelVal = errors.New("invalid channel value")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrNoContacts        = errors.New("task must have at least one contact")
	ErrInvalidContacts   = errors.New("some contacts do not exist or do not belong to the user")
	ErrScheduleInPast    = errors.New("scheduled datetime must be in the future")
	ErrInvalidTags       = errors.New("invalid tags")
	ErrEmailTaken        = errors.New("email is already registered")
	ErrUsernameTaken     = errors.New("username is already registered")
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrInactiveUser      = errors.New("account is inactive")
	ErrAIRequestNotFound = errors.New("ai request not found")
	ErrAlreadyConfirmed  = errors.New("ai request was already confirmed")
	ErrInvalidTasks      = errors.New("some tasks do not exist or do not belong to the user")
	ErrInvalidInputType  = errors.New("invalid input type")
)

// Enums and types
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type ChannelType string

const (
	ChannelWhatsApp ChannelType = "whatsapp"
	ChannelEmail    ChannelType = "email"
	ChannelTelegram ChannelType = "telegram"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pendiente"
	TaskStatusInProgress TaskStatus = "en_progreso"
	TaskStatusDone       TaskStatus = "finalizado"
	TaskStatusSent       TaskStatus = "enviada"
	TaskStatusCancelled  TaskStatus = "cancelada"
)

// TaskStatuses lists every status in board order.
var TaskStatuses = []TaskStatus{
	TaskStatusPending,
	TaskStatusInProgress,
	TaskStatusDone,
	TaskStatusSent,
	TaskStatusCancelled,
}

// InputType is how the text of an AI request was captured
type InputType string

const (
	InputText  InputType = "text"
	InputAudio InputType = "audio"
)

// History actions
const (
	ActionCreated        = "creada"
	ActionUpdated        = "modificada"
	ActionStatusChanged  = "estado_cambiado"
	ActionContactAdded   = "contacto_agregado"
	ActionContactRemoved = "contacto_eliminado"
	ActionCancelled      = "cancelada"
	ActionSent           = "enviada"
)

const (
	MaxTags         = 10
	MaxTagLength    = 30
	tagSeparator    = ","
	minTelegramName = 5
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	FullName     *string   `json:"full_name" db:"full_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Contact is a recipient reachable through a single channel
type Contact struct {
	ID           int64       `json:"id" db:"id"`
	UserID       uuid.UUID   `json:"user_id" db:"user_id"`
	Name         string      `json:"name" db:"name"`
	ChannelType  ChannelType `json:"channel_type" db:"channel_type"`
	ChannelValue string      `json:"channel_value" db:"channel_value"`
	Notes        *string     `json:"notes" db:"notes"`
	IsActive     bool        `json:"is_active" db:"is_active"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// Task is a scheduled message addressed to one or more contacts
type Task struct {
	ID                int64      `json:"id" db:"id"`
	UserID            uuid.UUID  `json:"user_id" db:"user_id"`
	Title             string     `json:"title" db:"title"`
	Description       *string    `json:"description" db:"description"`
	ScheduledDatetime time.Time  `json:"scheduled_datetime" db:"scheduled_datetime"`
	Status            TaskStatus `json:"status" db:"status"`
	Tags              string     `json:"tags" db:"tags"`
	TagsList          []string   `json:"tags_list" db:"-"`
	IsSent            bool       `json:"is_sent" db:"is_sent"`
	SentAt            *time.Time `json:"sent_at" db:"sent_at"`
	IsActive          bool       `json:"is_active" db:"is_active"`
	CreatedByAI       bool       `json:"created_by_ai" db:"created_by_ai"`
	CompletedAt       *time.Time `json:"completed_at" db:"completed_at"`
	HistoryCount      int        `json:"history_count" db:"history_count"`
	IsOverdue         bool       `json:"is_overdue" db:"-"`
	Contacts          []Contact  `json:"contacts,omitempty" db:"-"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// TaskHistory is an audit record for a task change
type TaskHistory struct {
	ID           int64      `json:"id" db:"id"`
	TaskID       int64      `json:"task_id" db:"task_id"`
	UserID       *uuid.UUID `json:"user_id" db:"user_id"`
	Action       string     `json:"action" db:"action"`
	FieldChanged *string    `json:"field_changed" db:"field_changed"`
	OldValue     *string    `json:"old_value" db:"old_value"`
	NewValue     *string    `json:"new_value" db:"new_value"`
	Notes        *string    `json:"notes" db:"notes"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// AIRequest records one interpretation of free text into draft tasks and,
// once confirmed, the tasks created from it.
type AIRequest struct {
	ID               int64             `json:"id" db:"id"`
	UserID           uuid.UUID         `json:"user_id" db:"user_id"`
	InputText        string            `json:"input_text" db:"input_text"`
	InputType        InputType         `json:"input_type" db:"input_type"`
	AIResponse       *string           `json:"ai_response" db:"ai_response"`
	InterpretedData  *string           `json:"interpreted_data" db:"interpreted_data"`
	Interpretation   *AIInterpretation `json:"interpretation,omitempty" db:"-"`
	WasConfirmed     bool              `json:"was_confirmed" db:"was_confirmed"`
	TasksCreated     *string           `json:"tasks_created" db:"tasks_created"`
	TasksCreatedList []int64           `json:"tasks_created_list" db:"-"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
}

// AIInterpretation is the structured form stored in InterpretedData
type AIInterpretation struct {
	Tasks []DraftTask `json:"tasks"`
}

// DraftTask is a task proposed by an interpretation, not yet created
type DraftTask struct {
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	ScheduledDatetime time.Time `json:"scheduled_datetime"`
	Tags              []string  `json:"tags,omitempty"`
	ContactIDs        []int64   `json:"contacts"`
}

// Business logic methods for User
func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) CanView(other uuid.UUID) bool {
	return u.ID == other || u.IsAdmin()
}

// Business logic methods for Task

// Overdue is derived, never stored: a pending task whose schedule has passed.
func (t *Task) OverdueAt(now time.Time) bool {
	return t.Status == TaskStatusPending && t.ScheduledDatetime.Before(now)
}

// Decorate fills the derived, non-persisted fields.
func (t *Task) Decorate(now time.Time) {
	t.TagsList = SplitTags(t.Tags)
	t.IsOverdue = t.OverdueAt(now)
}

// ApplyStatus moves the task to status and stamps the fields that go with it.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}

	t.Status = status
	switch status {
	case TaskStatusDone:
		t.CompletedAt = &now
	case TaskStatusSent:
		t.IsSent = true
		t.SentAt = &now
	}
	return nil
}

// Cancel soft-deletes the task.
func (t *Task) Cancel() {
	t.Status = TaskStatusCancelled
	t.IsActive = false
}

func (t *Task) ContactIDs() []int64 {
	ids := make([]int64, 0, len(t.Contacts))
	for _, c := range t.Contacts {
		ids = append(ids, c.ID)
	}
	return ids
}

// Decorate fills TasksCreatedList and Interpretation from the stored columns.
func (r *AIRequest) Decorate() {
	r.TasksCreatedList = SplitIDs(deref(r.TasksCreated))
	r.Interpretation = nil
	if r.InterpretedData != nil {
		var in AIInterpretation
		if json.Unmarshal([]byte(*r.InterpretedData), &in) == nil {
			r.Interpretation = &in
		}
	}
}

// SplitIDs parses a comma-delimited id list, skipping malformed entries.
func SplitIDs(raw string) []int64 {
	ids := []int64{}
	for _, part := range strings.Split(raw, tagSeparator) {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// JoinIDs is the stored form of an id list.
func JoinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, tagSeparator)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// SplitTags converts the stored comma-delimited form to a list.
func SplitTags(raw string) []string {
	tags := []string{}
	if raw == "" {
		return tags
	}
	for _, tag := range strings.Split(raw, tagSeparator) {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// JoinTags converts a list of tags to the stored form.
func JoinTags(tags []string) string {
	return strings.Join(tags, tagSeparator)
}

// NormalizeTags trims tags and enforces count and length limits.
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) > MaxTags {
		return nil, ErrInvalidTags
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || len(tag) > MaxTagLength || strings.Contains(tag, tagSeparator) {
			return nil, ErrInvalidTags
		}
		out = append(out, tag)
	}
	return out, nil
}

// NormalizeChannelValue validates value against the channel's format and
// returns its canonical form.
func NormalizeChannelValue(ct ChannelType, value string) (string, error) {
	value = strings.TrimSpace(value)

	switch ct {
	case ChannelWhatsApp:
		if !strings.HasPrefix(value, "+") {
			return "", ErrInvalidChannelVal
		}
		digits := strings.NewReplacer(" ", "", "-", "").Replace(value[1:])
		if len(digits) < 10 || len(digits) > 15 || !isDigits(digits) {
			return "", ErrInvalidChannelVal
		}
		return value, nil
	case ChannelEmail:
		value = strings.ToLower(value)
		at := strings.Index(value, "@")
		if at <= 0 || strings.Contains(value, " ") || !strings.Contains(value[at+1:], ".") {
			return "", ErrInvalidChannelVal
		}
		return value, nil
	case ChannelTelegram:
		if !strings.HasPrefix(value, "@") {
			return "", ErrInvalidChannelVal
		}
		name := value[1:]
		if len(name) < minTelegramName || !isWord(name) {
			return "", ErrInvalidChannelVal
		}
		return value, nil
	default:
		return "", ErrInvalidChannel
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isWord(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// Utility methods
func (ur UserRole) IsValid() bool {
	switch ur {
	case UserRoleAdmin, UserRoleUser:
		return true
	default:
		return false
	}
}

func (ct ChannelType) IsValid() bool {
	switch ct {
	case ChannelWhatsApp, ChannelEmail, ChannelTelegram:
		return true
	default:
		return false
	}
}

func (it InputType) IsValid() bool {
	return it == InputText || it == InputAudio
}

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusSent, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Label is the human-readable status name used by charts.
func (ts TaskStatus) Label() string {
	switch ts {
	case TaskStatusPending:
		return "Pendiente"
	case TaskStatusInProgress:
		return "En Progreso"
	case TaskStatusDone:
		return "Finalizado"
	case TaskStatusSent:
		return "Enviada"
	case TaskStatusCancelled:
		return "Cancelada"
	default:
		return string(ts)
	}
}

// Color is the chart color for a status.
func (ts TaskStatus) Color() string {
	switch ts {
	case TaskStatusPending:
		return "#6B7280"
	case TaskStatusInProgress:
		return "#3B82F6"
	case TaskStatusDone:
		return "#10B981"
	default:
		return "#9CA3AF"
	}
}
