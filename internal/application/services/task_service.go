package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// TaskService handles task scheduling, contacts and audit history
type TaskService struct {
	taskRepo    ports.TaskRepository
	contactRepo ports.ContactRepository
	historyRepo ports.TaskHistoryRepository
	cache       ports.CacheRepository
	logger      *logger.Logger
	now         func() time.Time
}

// NewTaskService creates a new task service
func NewTaskService(
	taskRepo ports.TaskRepository,
	contactRepo ports.ContactRepository,
	historyRepo ports.TaskHistoryRepository,
	cache ports.CacheRepository,
	logger *logger.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		contactRepo: contactRepo,
		historyRepo: historyRepo,
		cache:       cache,
		logger:      logger.WithComponent("tasks"),
		now:         time.Now,
	}
}

// CreateTask schedules a new task for the given contacts
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	now := s.now()

	if !req.ScheduledDatetime.After(now) {
		return nil, entities.ErrScheduleInPast
	}

	tags, err := entities.NormalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	contactIDs := uniqueIDs(req.ContactIDs)
	contacts, err := s.resolveContacts(ctx, userID, contactIDs)
	if err != nil {
		return nil, err
	}

	task := &entities.Task{
		UserID:            userID,
		Title:             strings.TrimSpace(req.Title),
		Description:       req.Description,
		ScheduledDatetime: req.ScheduledDatetime,
		Status:            entities.TaskStatusPending,
		Tags:              entities.JoinTags(tags),
		IsActive:          true,
		CreatedByAI:       req.CreatedByAI,
	}

	created := s.history(userID, entities.ActionCreated, "", "", "", "")
	if err := s.taskRepo.Create(ctx, task, contactIDs, created); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	task.Contacts = contacts
	task.Decorate(now)
	s.invalidate(ctx, userID)

	s.logger.LogUserAction(userID.String(), "task_created", map[string]interface{}{
		"task_id":  task.ID,
		"contacts": len(contactIDs),
	})

	return task, nil
}

// GetTask retrieves an active task with its contacts
func (s *TaskService) GetTask(ctx context.Context, userID uuid.UUID, id int64) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	task.Decorate(s.now())
	return task, nil
}

// UpdateTask applies a partial update and records one history entry per changed field
func (s *TaskService) UpdateTask(ctx context.Context, userID uuid.UUID, id int64, req ports.UpdateTaskRequest) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var changes []*entities.TaskHistory

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title != task.Title {
			changes = append(changes, s.history(userID, entities.ActionUpdated, "title", task.Title, title, ""))
			task.Title = title
		}
	}

	if req.Description != nil && deref(req.Description) != deref(task.Description) {
		changes = append(changes, s.history(userID, entities.ActionUpdated, "description",
			deref(task.Description), *req.Description, ""))
		task.Description = req.Description
	}

	if req.ScheduledDatetime != nil && !req.ScheduledDatetime.Equal(task.ScheduledDatetime) {
		if !req.ScheduledDatetime.After(now) {
			return nil, entities.ErrScheduleInPast
		}
		changes = append(changes, s.history(userID, entities.ActionUpdated, "scheduled_datetime",
			task.ScheduledDatetime.Format(time.RFC3339), req.ScheduledDatetime.Format(time.RFC3339), ""))
		task.ScheduledDatetime = *req.ScheduledDatetime
	}

	if req.Tags != nil {
		tags, err := entities.NormalizeTags(req.Tags)
		if err != nil {
			return nil, err
		}
		joined := entities.JoinTags(tags)
		if joined != task.Tags {
			changes = append(changes, s.history(userID, entities.ActionUpdated, "tags", task.Tags, joined, ""))
			task.Tags = joined
		}
	}

	if req.IsSent != nil && *req.IsSent != task.IsSent {
		changes = append(changes, s.history(userID, entities.ActionUpdated, "is_sent",
			strconv.FormatBool(task.IsSent), strconv.FormatBool(*req.IsSent), ""))
		task.IsSent = *req.IsSent
		if task.IsSent {
			sentAt := now
			if req.SentAt != nil {
				sentAt = *req.SentAt
			}
			task.SentAt = &sentAt
		} else {
			task.SentAt = nil
		}
	}

	if req.Status != nil && *req.Status != task.Status {
		entry, err := s.changeStatus(userID, task, *req.Status, now)
		if err != nil {
			return nil, err
		}
		changes = append(changes, entry)
	}

	addIDs, removeIDs, err := s.planContactChanges(ctx, userID, task, req.AddContactIDs, req.RemoveContactIDs)
	if err != nil {
		return nil, err
	}

	if len(changes) == 0 && len(addIDs) == 0 && len(removeIDs) == 0 {
		return s.GetTask(ctx, userID, task.ID)
	}

	history := append(changes, s.contactHistory(userID, entities.ActionContactAdded, addIDs)...)
	history = append(history, s.contactHistory(userID, entities.ActionContactRemoved, removeIDs)...)

	err = s.taskRepo.Apply(ctx, ports.TaskChange{
		Task:             task,
		Fields:           len(changes) > 0,
		AddContactIDs:    addIDs,
		RemoveContactIDs: removeIDs,
		History:          history,
	})
	if err != nil {
		if errors.Is(err, entities.ErrNoContacts) || errors.Is(err, entities.ErrTaskNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.invalidate(ctx, userID)

	s.logger.LogUserAction(userID.String(), "task_updated", map[string]interface{}{
		"task_id": task.ID,
		"changes": len(changes),
	})

	return s.GetTask(ctx, userID, task.ID)
}

// UpdateTaskStatus moves a task to a new status
func (s *TaskService) UpdateTaskStatus(ctx context.Context, userID uuid.UUID, id int64, status entities.TaskStatus) (*entities.Task, error) {
	if !status.IsValid() {
		return nil, entities.ErrInvalidStatus
	}

	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if task.Status != status {
		entry, err := s.changeStatus(userID, task, status, now)
		if err != nil {
			return nil, err
		}

		if err := s.taskRepo.Update(ctx, task, entry); err != nil {
			return nil, fmt.Errorf("failed to update task status: %w", err)
		}

		s.invalidate(ctx, userID)
		s.logger.LogUserAction(userID.String(), "task_status_changed", map[string]interface{}{
			"task_id": task.ID,
			"status":  status,
		})
	}

	task.Decorate(now)
	return task, nil
}

// DeleteTask cancels the task and hides it from listings
func (s *TaskService) DeleteTask(ctx context.Context, userID uuid.UUID, id int64) error {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	old := task.Status
	task.Cancel()

	entry := s.history(userID, entities.ActionCancelled, "status", string(old), string(task.Status), "")
	if err := s.taskRepo.Update(ctx, task, entry); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.LogUserAction(userID.String(), "task_cancelled", map[string]interface{}{"task_id": id})

	return nil
}

// ListTasks retrieves a page of active tasks ordered by schedule
func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, int, error) {
	tasks, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	total, err := s.taskRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	now := s.now()
	for _, t := range tasks {
		t.Decorate(now)
	}

	return tasks, int(total), nil
}

// AddContacts links more of the user's active contacts to a task
func (s *TaskService) AddContacts(ctx context.Context, userID uuid.UUID, id int64, contactIDs []int64) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	addIDs, _, err := s.planContactChanges(ctx, userID, task, contactIDs, nil)
	if err != nil {
		return nil, err
	}

	if len(addIDs) > 0 {
		if err := s.taskRepo.AddContacts(ctx, task.ID, addIDs, s.contactHistory(userID, entities.ActionContactAdded, addIDs)...); err != nil {
			return nil, fmt.Errorf("failed to add task contacts: %w", err)
		}
		s.invalidate(ctx, userID)
	}

	return s.GetTask(ctx, userID, id)
}

// RemoveContacts unlinks contacts from a task; at least one must remain
func (s *TaskService) RemoveContacts(ctx context.Context, userID uuid.UUID, id int64, contactIDs []int64) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	_, removeIDs, err := s.planContactChanges(ctx, userID, task, nil, contactIDs)
	if err != nil {
		return nil, err
	}

	if len(removeIDs) > 0 {
		if err := s.taskRepo.RemoveContacts(ctx, task.ID, removeIDs, s.contactHistory(userID, entities.ActionContactRemoved, removeIDs)...); err != nil {
			if errors.Is(err, entities.ErrNoContacts) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to remove task contacts: %w", err)
		}
		s.invalidate(ctx, userID)
	}

	return s.GetTask(ctx, userID, id)
}

// GetHistory lists the audit trail of a task, newest first
func (s *TaskService) GetHistory(ctx context.Context, userID uuid.UUID, id int64, limit, offset int) ([]*entities.TaskHistory, error) {
	if _, err := s.taskRepo.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.historyRepo.ListByTask(ctx, id, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list task history: %w", err)
	}

	return entries, nil
}

// resolveContacts checks that every id names an active contact owned by userID
func (s *TaskService) resolveContacts(ctx context.Context, userID uuid.UUID, ids []int64) ([]entities.Contact, error) {
	if len(ids) == 0 {
		return nil, entities.ErrNoContacts
	}

	contacts, err := s.contactRepo.GetActiveByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}
	if len(contacts) != len(ids) {
		return nil, entities.ErrInvalidContacts
	}

	return contacts, nil
}

// planContactChanges returns the ids that actually need linking and unlinking.
// The resulting contact set may not be empty.
func (s *TaskService) planContactChanges(ctx context.Context, userID uuid.UUID, task *entities.Task, add, remove []int64) ([]int64, []int64, error) {
	linked := make(map[int64]bool, len(task.Contacts))
	for _, c := range task.Contacts {
		linked[c.ID] = true
	}

	var addIDs []int64
	for _, id := range uniqueIDs(add) {
		if !linked[id] {
			addIDs = append(addIDs, id)
		}
	}
	if len(addIDs) > 0 {
		if _, err := s.resolveContacts(ctx, userID, addIDs); err != nil {
			return nil, nil, err
		}
	}

	var removeIDs []int64
	for _, id := range uniqueIDs(remove) {
		if linked[id] {
			removeIDs = append(removeIDs, id)
		}
	}

	if len(linked)+len(addIDs)-len(removeIDs) <= 0 {
		return nil, nil, entities.ErrNoContacts
	}

	return addIDs, removeIDs, nil
}

func (s *TaskService) changeStatus(userID uuid.UUID, task *entities.Task, status entities.TaskStatus, now time.Time) (*entities.TaskHistory, error) {
	old := task.Status
	if err := task.ApplyStatus(status, now); err != nil {
		return nil, err
	}

	action := entities.ActionStatusChanged
	if status == entities.TaskStatusSent {
		action = entities.ActionSent
	}
	return s.history(userID, action, "status", string(old), string(status), ""), nil
}

func (s *TaskService) contactHistory(userID uuid.UUID, action string, ids []int64) []*entities.TaskHistory {
	entries := make([]*entities.TaskHistory, 0, len(ids))
	for _, id := range ids {
		value := strconv.FormatInt(id, 10)
		if action == entities.ActionContactRemoved {
			entries = append(entries, s.history(userID, action, "contact_id", value, "", ""))
		} else {
			entries = append(entries, s.history(userID, action, "contact_id", "", value, ""))
		}
	}
	return entries
}

func (s *TaskService) history(userID uuid.UUID, action, field, oldValue, newValue, notes string) *entities.TaskHistory {
	actor := userID
	return &entities.TaskHistory{
		UserID:       &actor,
		Action:       action,
		FieldChanged: optional(field),
		OldValue:     optional(oldValue),
		NewValue:     optional(newValue),
		Notes:        optional(notes),
	}
}

func (s *TaskService) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.DeletePattern(ctx, dashboardPattern(userID)); err != nil {
		s.logger.Warnw("Failed to invalidate dashboard cache", "user_id", userID, "error", err)
	}
}

// uniqueIDs drops duplicates while keeping first-seen order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
