package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/infrastructure/logger"
	"github.com/taskmaster/autotasks/internal/ports"
)

var fixedNow = time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

type taskFixture struct {
	svc      *TaskService
	tasks    *MockTaskRepository
	contacts *MockContactRepository
	cache    *MockCache
	owner    uuid.UUID
	stranger uuid.UUID
}

func newTaskFixture() *taskFixture {
	owner, stranger := uuid.New(), uuid.New()

	contacts := NewMockContactRepository(
		&entities.Contact{ID: 1, UserID: owner, Name: "Ana", ChannelType: entities.ChannelEmail, ChannelValue: "ana@example.com", IsActive: true},
		&entities.Contact{ID: 2, UserID: owner, Name: "Beto", ChannelType: entities.ChannelWhatsApp, ChannelValue: "+5215512345678", IsActive: true},
		&entities.Contact{ID: 3, UserID: owner, Name: "Old", ChannelType: entities.ChannelTelegram, ChannelValue: "@oldfriend", IsActive: false},
		&entities.Contact{ID: 4, UserID: stranger, Name: "Eve", ChannelType: entities.ChannelEmail, ChannelValue: "eve@example.com", IsActive: true},
	)
	tasks := NewMockTaskRepository(contacts)
	cache := NewMockCache()

	svc := NewTaskService(tasks, contacts, tasks, cache, logger.NewNop())
	svc.now = func() time.Time { return fixedNow }

	return &taskFixture{svc: svc, tasks: tasks, contacts: contacts, cache: cache, owner: owner, stranger: stranger}
}

func (f *taskFixture) create(t *testing.T, contactIDs ...int64) *entities.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
		Title:             "Send invoice",
		ScheduledDatetime: fixedNow.Add(24 * time.Hour),
		Tags:              []string{" Billing ", "urgent"},
		ContactIDs:        contactIDs,
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	return task
}

func TestCreateTask(t *testing.T) {
	f := newTaskFixture()

	task := f.create(t, 1, 2, 1)

	if task.Status != entities.TaskStatusPending || !task.IsActive {
		t.Errorf("new task status/active = %s/%v", task.Status, task.IsActive)
	}
	if task.Tags != "Billing,urgent" {
		t.Errorf("Tags = %q, want trimmed comma list", task.Tags)
	}
	if len(task.TagsList) != 2 {
		t.Errorf("TagsList = %v", task.TagsList)
	}
	if len(task.Contacts) != 2 {
		t.Errorf("Contacts = %d, want duplicates collapsed to 2", len(task.Contacts))
	}
	if len(f.tasks.History) != 1 || f.tasks.History[0].Action != entities.ActionCreated {
		t.Errorf("history = %+v, want one creada entry", f.tasks.History)
	}
	if len(f.cache.Deleted) == 0 {
		t.Error("dashboard cache was not invalidated")
	}
}

func TestCreateTaskRejections(t *testing.T) {
	tests := []struct {
		name       string
		contactIDs []int64
		scheduled  time.Time
		wantErr    error
	}{
		{"no contacts", nil, fixedNow.Add(time.Hour), entities.ErrNoContacts},
		{"inactive contact", []int64{1, 3}, fixedNow.Add(time.Hour), entities.ErrInvalidContacts},
		{"foreign contact", []int64{4}, fixedNow.Add(time.Hour), entities.ErrInvalidContacts},
		{"missing contact", []int64{99}, fixedNow.Add(time.Hour), entities.ErrInvalidContacts},
		{"schedule in past", []int64{1}, fixedNow.Add(-time.Minute), entities.ErrScheduleInPast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTaskFixture()
			_, err := f.svc.CreateTask(context.Background(), f.owner, ports.CreateTaskRequest{
				Title:             "Call back",
				ScheduledDatetime: tt.scheduled,
				ContactIDs:        tt.contactIDs,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTask() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.tasks.tasks) != 0 {
				t.Error("task was persisted despite rejection")
			}
		})
	}
}

func TestGetTaskIsScopedToOwner(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)

	if _, err := f.svc.GetTask(context.Background(), f.stranger, task.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("GetTask(stranger) error = %v, want ErrTaskNotFound", err)
	}
}

func TestUpdateTaskRecordsChanges(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)
	f.tasks.History = nil

	title := "Send final invoice"
	status := entities.TaskStatusDone
	updated, err := f.svc.UpdateTask(context.Background(), f.owner, task.ID, ports.UpdateTaskRequest{
		Title:         &title,
		Status:        &status,
		AddContactIDs: []int64{2},
	})
	if err != nil {
		t.Fatalf("UpdateTask() error = %v", err)
	}

	if updated.Title != title || updated.Status != entities.TaskStatusDone {
		t.Errorf("updated = %q/%s", updated.Title, updated.Status)
	}
	if updated.CompletedAt == nil {
		t.Error("CompletedAt not set on finalizado")
	}
	if len(updated.Contacts) != 2 {
		t.Errorf("Contacts = %d, want 2", len(updated.Contacts))
	}

	actions := map[string]int{}
	for _, h := range f.tasks.History {
		actions[h.Action]++
	}
	if actions[entities.ActionUpdated] != 1 || actions[entities.ActionStatusChanged] != 1 || actions[entities.ActionContactAdded] != 1 {
		t.Errorf("history actions = %v", actions)
	}
}

func TestUpdateTaskWritesFieldsAndContactsTogether(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)
	f.tasks.History = nil
	f.tasks.ApplyErr = errors.New("contact 2 vanished")

	title := "Send final invoice"
	_, err := f.svc.UpdateTask(context.Background(), f.owner, task.ID, ports.UpdateTaskRequest{
		Title:            &title,
		AddContactIDs:    []int64{2},
		RemoveContactIDs: []int64{1},
	})
	if err == nil {
		t.Fatal("UpdateTask() should fail when the write fails")
	}

	if f.tasks.Applies != 1 || f.tasks.Updates != 0 {
		t.Errorf("writes: applies=%d updates=%d, want one combined write", f.tasks.Applies, f.tasks.Updates)
	}
	stored, _ := f.tasks.GetByID(context.Background(), f.owner, task.ID)
	if stored.Title != "Send invoice" {
		t.Errorf("title = %q, field edit must not outlive the failed contact change", stored.Title)
	}
	if len(stored.Contacts) != 1 || stored.Contacts[0].ID != 1 {
		t.Errorf("contacts = %+v, want unchanged", stored.Contacts)
	}
	if len(f.tasks.History) != 0 {
		t.Errorf("history = %d entries, want none", len(f.tasks.History))
	}
}

func TestUpdateTaskCannotRemoveLastContact(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)

	_, err := f.svc.UpdateTask(context.Background(), f.owner, task.ID, ports.UpdateTaskRequest{
		RemoveContactIDs: []int64{1},
	})
	if !errors.Is(err, entities.ErrNoContacts) {
		t.Errorf("UpdateTask() error = %v, want ErrNoContacts", err)
	}
}

func TestUpdateTaskStatusSent(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)

	updated, err := f.svc.UpdateTaskStatus(context.Background(), f.owner, task.ID, entities.TaskStatusSent)
	if err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	if !updated.IsSent || updated.SentAt == nil {
		t.Errorf("enviada did not mark task sent: %+v", updated)
	}

	last := f.tasks.History[len(f.tasks.History)-1]
	if last.Action != entities.ActionSent {
		t.Errorf("last history action = %s, want %s", last.Action, entities.ActionSent)
	}

	if _, err := f.svc.UpdateTaskStatus(context.Background(), f.owner, task.ID, "archived"); !errors.Is(err, entities.ErrInvalidStatus) {
		t.Errorf("invalid status error = %v", err)
	}
}

func TestUpdateTaskStatusSameStatusIsNoop(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)

	if _, err := f.svc.UpdateTaskStatus(context.Background(), f.owner, task.ID, entities.TaskStatusPending); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}
	if f.tasks.Updates != 0 {
		t.Errorf("Updates = %d, want 0", f.tasks.Updates)
	}
}

func TestDeleteTaskCancels(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)
	ctx := context.Background()

	if err := f.svc.DeleteTask(ctx, f.owner, task.ID); err != nil {
		t.Fatalf("DeleteTask() error = %v", err)
	}

	stored := f.tasks.tasks[task.ID]
	if stored.IsActive || stored.Status != entities.TaskStatusCancelled {
		t.Errorf("stored task = active %v status %s", stored.IsActive, stored.Status)
	}
	if _, err := f.svc.GetTask(ctx, f.owner, task.ID); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("GetTask() after delete error = %v", err)
	}
}

func TestAddAndRemoveContacts(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)
	ctx := context.Background()

	if _, err := f.svc.AddContacts(ctx, f.owner, task.ID, []int64{4}); !errors.Is(err, entities.ErrInvalidContacts) {
		t.Errorf("AddContacts(foreign) error = %v", err)
	}

	got, err := f.svc.AddContacts(ctx, f.owner, task.ID, []int64{2})
	if err != nil {
		t.Fatalf("AddContacts() error = %v", err)
	}
	if len(got.Contacts) != 2 {
		t.Fatalf("Contacts = %d, want 2", len(got.Contacts))
	}

	got, err = f.svc.RemoveContacts(ctx, f.owner, task.ID, []int64{1})
	if err != nil {
		t.Fatalf("RemoveContacts() error = %v", err)
	}
	if len(got.Contacts) != 1 || got.Contacts[0].ID != 2 {
		t.Errorf("Contacts after remove = %+v", got.Contacts)
	}

	if _, err := f.svc.RemoveContacts(ctx, f.owner, task.ID, []int64{2}); !errors.Is(err, entities.ErrNoContacts) {
		t.Errorf("RemoveContacts(last) error = %v, want ErrNoContacts", err)
	}
}

func TestListTasksDecoratesOverdue(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)

	f.svc.now = func() time.Time { return fixedNow.Add(48 * time.Hour) }

	tasks, total, err := f.svc.ListTasks(context.Background(), ports.TaskFilter{UserID: f.owner})
	if err != nil {
		t.Fatalf("ListTasks() error = %v", err)
	}
	if total != 1 || len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("ListTasks() = %d tasks, total %d", len(tasks), total)
	}
	if !tasks[0].IsOverdue {
		t.Error("pending task past its schedule is not overdue")
	}
}

func TestGetHistory(t *testing.T) {
	f := newTaskFixture()
	task := f.create(t, 1)
	ctx := context.Background()

	if _, err := f.svc.UpdateTaskStatus(ctx, f.owner, task.ID, entities.TaskStatusInProgress); err != nil {
		t.Fatalf("UpdateTaskStatus() error = %v", err)
	}

	entries, err := f.svc.GetHistory(ctx, f.owner, task.ID, 0, 0)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("GetHistory() = %d entries, want 2", len(entries))
	}

	if _, err := f.svc.GetHistory(ctx, f.stranger, task.ID, 10, 0); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("GetHistory(stranger) error = %v", err)
	}
}
