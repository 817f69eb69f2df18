package views

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// StatusUpdater persists a kanban move
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id int64, status entities.TaskStatus) (*entities.Task, error)
}

// Column is one status lane of the board
type Column struct {
	Status entities.TaskStatus
	Tasks  []entities.Task
}

// Board groups tasks by status in board order
type Board struct {
	Columns []Column
}

func NewBoard(tasks []entities.Task) *Board {
	b := &Board{Columns: make([]Column, len(entities.TaskStatuses))}
	for i, st := range entities.TaskStatuses {
		b.Columns[i].Status = st
	}
	for _, t := range tasks {
		if col := b.column(t.Status); col != nil {
			col.Tasks = append(col.Tasks, t)
		}
	}
	return b
}

// Move drops a task onto another column. It issues one status update per
// completed drop and none when the task already sits in that column.
func (b *Board) Move(ctx context.Context, updater StatusUpdater, taskID int64, to entities.TaskStatus) error {
	if !to.IsValid() {
		return entities.ErrInvalidStatus
	}

	from, idx := b.find(taskID)
	if from == nil {
		return entities.ErrTaskNotFound
	}
	if from.Status == to {
		return nil
	}

	updated, err := updater.UpdateStatus(ctx, taskID, to)
	if err != nil {
		return err
	}

	from.Tasks = append(from.Tasks[:idx], from.Tasks[idx+1:]...)
	if dest := b.column(updated.Status); dest != nil {
		dest.Tasks = append(dest.Tasks, *updated)
	}
	return nil
}

// Render prints the board as side-by-side columns
func (b *Board) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)

	headers := make([]string, len(b.Columns))
	rows := 0
	for i, col := range b.Columns {
		headers[i] = fmt.Sprintf("%s (%d)", col.Status.Label(), len(col.Tasks))
		if len(col.Tasks) > rows {
			rows = len(col.Tasks)
		}
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t")+"\t")

	for r := 0; r < rows; r++ {
		cells := make([]string, len(b.Columns))
		for i, col := range b.Columns {
			if r < len(col.Tasks) {
				t := col.Tasks[r]
				cells[i] = fmt.Sprintf("#%d %s", t.ID, truncate(t.Title, 24))
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
	}
	return tw.Flush()
}

func (b *Board) column(st entities.TaskStatus) *Column {
	for i := range b.Columns {
		if b.Columns[i].Status == st {
			return &b.Columns[i]
		}
	}
	return nil
}

func (b *Board) find(taskID int64) (*Column, int) {
	for i := range b.Columns {
		for j, t := range b.Columns[i].Tasks {
			if t.ID == taskID {
				return &b.Columns[i], j
			}
		}
	}
	return nil, -1
}
