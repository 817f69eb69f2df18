// Package views renders store state as terminal tables.
package views

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// Tasks renders a task list with its total
func Tasks(w io.Writer, tasks []entities.Task, total int) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tSCHEDULED\tCONTACTS\tTAGS\t")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t\n",
			t.ID, truncate(t.Title, 40), statusCell(t), t.ScheduledDatetime.Local().Format(timeLayout),
			len(t.Contacts), strings.Join(t.TagsList, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d tasks\n", len(tasks), total)
	return err
}

// Task renders one task with its contacts
func Task(w io.Writer, t *entities.Task) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", t.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", t.Title)
	if t.Description != nil && *t.Description != "" {
		fmt.Fprintf(tw, "Description:\t%s\n", *t.Description)
	}
	fmt.Fprintf(tw, "Status:\t%s\n", statusCell(*t))
	fmt.Fprintf(tw, "Scheduled:\t%s\n", t.ScheduledDatetime.Local().Format(timeLayout))
	if len(t.TagsList) > 0 {
		fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(t.TagsList, ", "))
	}
	if t.SentAt != nil {
		fmt.Fprintf(tw, "Sent at:\t%s\n", t.SentAt.Local().Format(timeLayout))
	}
	if t.CompletedAt != nil {
		fmt.Fprintf(tw, "Completed at:\t%s\n", t.CompletedAt.Local().Format(timeLayout))
	}
	fmt.Fprintf(tw, "History entries:\t%d\n", t.HistoryCount)
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(t.Contacts) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nContacts:")
	return Contacts(w, t.Contacts)
}

// Contacts renders a contact list
func Contacts(w io.Writer, contacts []entities.Contact) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCHANNEL\tVALUE\tACTIVE\t")
	for _, c := range contacts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", c.ID, truncate(c.Name, 30), c.ChannelType, c.ChannelValue, yesNo(c.IsActive))
	}
	return tw.Flush()
}

// ContactStats renders per-channel counts
func ContactStats(w io.Writer, stats *ports.ContactStats) error {
	tw := newTable(w)
	for _, ct := range []entities.ChannelType{entities.ChannelWhatsApp, entities.ChannelEmail, entities.ChannelTelegram} {
		fmt.Fprintf(tw, "%s\t%d\n", ct, stats.ByChannel[ct])
	}
	fmt.Fprintf(tw, "total\t%d\n", stats.TotalContacts)
	return tw.Flush()
}

// History renders a task's audit trail
func History(w io.Writer, entries []entities.TaskHistory) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "WHEN\tACTION\tFIELD\tOLD\tNEW\t")
	for _, h := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			h.CreatedAt.Local().Format(timeLayout), h.Action, deref(h.FieldChanged),
			truncate(deref(h.OldValue), 30), truncate(deref(h.NewValue), 30))
	}
	return tw.Flush()
}

// DashboardData is everything the dashboard view shows
type DashboardData struct {
	Stats    *ports.DashboardStats
	ByStatus []ports.StatusBucket
	ByMonth  []ports.MonthBucket
	Recent   []ports.TaskSummary
	Today    []ports.TaskSummary
	Overdue  int
	Pending  int
}

// Dashboard renders the summary figures with today's badges
func Dashboard(w io.Writer, d DashboardData) error {
	tw := newTable(w)
	if s := d.Stats; s != nil {
		fmt.Fprintf(tw, "Total tasks:\t%d\n", s.TotalTasks)
		fmt.Fprintf(tw, "Pending:\t%d\n", s.PendingCount)
		fmt.Fprintf(tw, "In progress:\t%d\n", s.InProgressCount)
		fmt.Fprintf(tw, "Completed:\t%d\n", s.CompletedCount)
		fmt.Fprintf(tw, "Today:\t%d\t(%d pending, %d overdue)\n", s.TodayTasks, d.Pending, d.Overdue)
		fmt.Fprintf(tw, "Overdue:\t%d\n", s.OverdueCount)
		fmt.Fprintf(tw, "Completed this week:\t%d\n", s.WeekCompleted)
		fmt.Fprintf(tw, "Completion rate:\t%.1f%%\n", s.CompletionRate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(d.ByStatus) > 0 {
		fmt.Fprintln(w, "\nBy status:")
		for _, b := range d.ByStatus {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", b.Status, b.Count, bar(b.Count))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.ByMonth) > 0 {
		fmt.Fprintln(w, "\nBy month:")
		for _, b := range d.ByMonth {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", b.Month, b.Count, bar(b.Count))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(d.Today) > 0 {
		fmt.Fprintln(w, "\nToday:")
		if err := summaries(w, d.Today); err != nil {
			return err
		}
	}
	if len(d.Recent) > 0 {
		fmt.Fprintln(w, "\nRecent:")
		return summaries(w, d.Recent)
	}
	return nil
}

func summaries(w io.Writer, items []ports.TaskSummary) error {
	tw := newTable(w)
	for _, t := range items {
		flag := ""
		if t.IsOverdue {
			flag = "overdue"
		}
		fmt.Fprintf(tw, "  #%d\t%s\t%s\t%s\t%s\n",
			t.ID, truncate(t.Title, 40), t.Status.Label(), t.ScheduledDatetime.Local().Format(timeLayout), flag)
	}
	return tw.Flush()
}

func statusCell(t entities.Task) string {
	if t.IsOverdue {
		return t.Status.Label() + " (overdue)"
	}
	return t.Status.Label()
}

func bar(n int64) string {
	if n > 40 {
		n = 40
	}
	return strings.Repeat("#", int(n))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
