package views

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// Calendar places tasks on the days of one month
type Calendar struct {
	Year     int
	Month    time.Month
	Location *time.Location

	days map[int][]entities.Task
}

func NewCalendar(year int, month time.Month, loc *time.Location, tasks []entities.Task) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	c := &Calendar{Year: year, Month: month, Location: loc, days: map[int][]entities.Task{}}
	for _, t := range tasks {
		at := t.ScheduledDatetime.In(loc)
		if at.Year() != year || at.Month() != month {
			continue
		}
		c.days[at.Day()] = append(c.days[at.Day()], t)
	}
	for _, list := range c.days {
		sort.Slice(list, func(i, j int) bool {
			return list[i].ScheduledDatetime.Before(list[j].ScheduledDatetime)
		})
	}
	return c
}

// Range returns the [from, to) bounds used to fetch the month
func (c *Calendar) Range() (time.Time, time.Time) {
	from := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, c.Location)
	return from, from.AddDate(0, 1, 0)
}

// Day returns the tasks scheduled on day, ordered by time
func (c *Calendar) Day(day int) []entities.Task {
	return c.days[day]
}

// Render prints a Monday-first month grid with task counts, then the agenda
func (c *Calendar) Render(w io.Writer) error {
	from, to := c.Range()
	fmt.Fprintf(w, "%s %d\n\n", c.Month, c.Year)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Mo\tTu\tWe\tTh\tFr\tSa\tSu\t")

	offset := (int(from.Weekday()) + 6) % 7
	cells := make([]string, 0, 42)
	for i := 0; i < offset; i++ {
		cells = append(cells, "")
	}
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		cell := fmt.Sprint(d.Day())
		if n := len(c.days[d.Day()]); n > 0 {
			cell += fmt.Sprintf("(%d)", n)
		}
		cells = append(cells, cell)
	}
	for len(cells)%7 != 0 {
		cells = append(cells, "")
	}
	for i := 0; i < len(cells); i += 7 {
		fmt.Fprintln(tw, strings.Join(cells[i:i+7], "\t")+"\t")
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	days := make([]int, 0, len(c.days))
	for d := range c.days {
		days = append(days, d)
	}
	sort.Ints(days)

	for _, d := range days {
		fmt.Fprintf(w, "\n%s\n", time.Date(c.Year, c.Month, d, 0, 0, 0, 0, c.Location).Format("Mon 02 Jan"))
		for _, t := range c.days[d] {
			fmt.Fprintf(w, "  %s  #%d %s [%s]\n",
				t.ScheduledDatetime.In(c.Location).Format("15:04"), t.ID, truncate(t.Title, 40), statusCell(t))
		}
	}
	return nil
}
