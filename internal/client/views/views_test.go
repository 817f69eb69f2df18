package views

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

type MockUpdater struct {
	Calls []entities.TaskStatus
	Err   error
}

func (m *MockUpdater) UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus) (*entities.Task, error) {
	m.Calls = append(m.Calls, status)
	if m.Err != nil {
		return nil, m.Err
	}
	return &entities.Task{ID: id, Title: "moved", Status: status}, nil
}

func sampleTasks() []entities.Task {
	return []entities.Task{
		{ID: 1, Title: "Call Ana", Status: entities.TaskStatusPending},
		{ID: 2, Title: "Email Luis", Status: entities.TaskStatusPending},
		{ID: 3, Title: "Ping team", Status: entities.TaskStatusInProgress},
	}
}

func TestBoardMoveIssuesOneUpdate(t *testing.T) {
	board := NewBoard(sampleTasks())
	updater := &MockUpdater{}

	if err := board.Move(context.Background(), updater, 1, entities.TaskStatusDone); err != nil {
		t.Fatalf("Move() error = %v", err)
	}
	if len(updater.Calls) != 1 || updater.Calls[0] != entities.TaskStatusDone {
		t.Fatalf("update calls = %v, want exactly one", updater.Calls)
	}

	if got := len(board.column(entities.TaskStatusPending).Tasks); got != 1 {
		t.Errorf("pending column has %d tasks, want 1", got)
	}
	done := board.column(entities.TaskStatusDone).Tasks
	if len(done) != 1 || done[0].ID != 1 {
		t.Errorf("done column = %+v", done)
	}
}

func TestBoardMoveSameColumnIsNoop(t *testing.T) {
	board := NewBoard(sampleTasks())
	updater := &MockUpdater{}

	if err := board.Move(context.Background(), updater, 3, entities.TaskStatusInProgress); err != nil {
		t.Fatal(err)
	}
	if len(updater.Calls) != 0 {
		t.Errorf("update calls = %v, want none", updater.Calls)
	}
}

func TestBoardMoveFailureKeepsTask(t *testing.T) {
	board := NewBoard(sampleTasks())
	updater := &MockUpdater{Err: errors.New("network down")}

	if err := board.Move(context.Background(), updater, 2, entities.TaskStatusSent); err == nil {
		t.Fatal("Move() should fail")
	}
	if len(updater.Calls) != 1 {
		t.Errorf("update calls = %d, want 1", len(updater.Calls))
	}
	if got := len(board.column(entities.TaskStatusPending).Tasks); got != 2 {
		t.Errorf("pending column has %d tasks, want 2", got)
	}
}

func TestBoardMoveRejectsUnknownTaskAndStatus(t *testing.T) {
	board := NewBoard(sampleTasks())
	updater := &MockUpdater{}

	if err := board.Move(context.Background(), updater, 99, entities.TaskStatusDone); !errors.Is(err, entities.ErrTaskNotFound) {
		t.Errorf("unknown task err = %v", err)
	}
	if err := board.Move(context.Background(), updater, 1, "archived"); !errors.Is(err, entities.ErrInvalidStatus) {
		t.Errorf("unknown status err = %v", err)
	}
	if len(updater.Calls) != 0 {
		t.Errorf("update calls = %v, want none", updater.Calls)
	}
}

func TestBoardRender(t *testing.T) {
	var buf bytes.Buffer
	if err := NewBoard(sampleTasks()).Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Pendiente (2)", "En Progreso (1)", "#3 Ping team", "Cancelada (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("board output missing %q:\n%s", want, out)
		}
	}
}

func TestCalendarGroupsByDay(t *testing.T) {
	loc := time.UTC
	tasks := []entities.Task{
		{ID: 1, Title: "Late", ScheduledDatetime: time.Date(2026, 10, 5, 18, 0, 0, 0, loc)},
		{ID: 2, Title: "Early", ScheduledDatetime: time.Date(2026, 10, 5, 9, 0, 0, 0, loc)},
		{ID: 3, Title: "Other month", ScheduledDatetime: time.Date(2026, 11, 1, 9, 0, 0, 0, loc)},
	}

	cal := NewCalendar(2026, time.October, loc, tasks)
	day := cal.Day(5)
	if len(day) != 2 || day[0].ID != 2 {
		t.Fatalf("day 5 = %+v", day)
	}

	from, to := cal.Range()
	if !from.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, loc)) || !to.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, loc)) {
		t.Errorf("Range() = %v, %v", from, to)
	}

	var buf bytes.Buffer
	if err := cal.Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "5(2)") || !strings.Contains(out, "09:00  #2 Early") {
		t.Errorf("calendar output:\n%s", out)
	}
	if strings.Contains(out, "Other month") {
		t.Error("tasks outside the month must not render")
	}
}

func TestTasksAndDashboardRender(t *testing.T) {
	var buf bytes.Buffer
	tasks := sampleTasks()
	tasks[0].IsOverdue = true
	tasks[0].TagsList = []string{"urgent"}
	if err := Tasks(&buf, tasks, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Pendiente (overdue)") || !strings.Contains(buf.String(), "3 of 10 tasks") {
		t.Errorf("task list output:\n%s", buf.String())
	}

	buf.Reset()
	err := Dashboard(&buf, DashboardData{
		Stats:    &ports.DashboardStats{TotalTasks: 8, CompletionRate: 37.5},
		ByStatus: []ports.StatusBucket{{Status: "Pendiente", Count: 3}},
		Overdue:  1,
		Pending:  2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "37.5%") || !strings.Contains(buf.String(), "(2 pending, 1 overdue)") {
		t.Errorf("dashboard output:\n%s", buf.String())
	}
}
