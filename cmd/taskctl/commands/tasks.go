package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/client/store"
	"github.com/taskmaster/autotasks/internal/client/views"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

// boardLimit is the page size used to load every task onto the board or calendar
const boardLimit = 1000

func (c *cli) tasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Manage scheduled tasks",
	}

	cmd.AddCommand(c.tasksListCommand())
	cmd.AddCommand(c.tasksSearchCommand())
	cmd.AddCommand(c.tasksShowCommand())
	cmd.AddCommand(c.tasksCreateCommand())
	cmd.AddCommand(c.tasksUpdateCommand())
	cmd.AddCommand(c.tasksStatusCommand())
	cmd.AddCommand(c.tasksDeleteCommand())
	cmd.AddCommand(c.tasksHistoryCommand())
	cmd.AddCommand(c.tasksContactsCommand("add-contacts", "Link contacts to a task"))
	cmd.AddCommand(c.tasksContactsCommand("remove-contacts", "Unlink contacts from a task"))
	cmd.AddCommand(c.tasksKanbanCommand())
	cmd.AddCommand(c.tasksMoveCommand())
	cmd.AddCommand(c.tasksCalendarCommand())
	return cmd
}

// taskFilterFlags binds the list filters shared by list and search
type taskFilterFlags struct {
	skip, limit int
	status      string
	sent        string
	tags        string
	from, to    string
}

func (f *taskFilterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.skip, "skip", 0, "number of tasks to skip")
	cmd.Flags().IntVar(&f.limit, "limit", 100, "maximum tasks to return")
	cmd.Flags().StringVar(&f.status, "status", "", "pendiente, en_progreso, finalizado, enviada or cancelada")
	cmd.Flags().StringVar(&f.sent, "sent", "", "true or false")
	cmd.Flags().StringVar(&f.tags, "tags", "", "tag substring")
	cmd.Flags().StringVar(&f.from, "from", "", "scheduled on or after")
	cmd.Flags().StringVar(&f.to, "to", "", "scheduled on or before")
}

func (f *taskFilterFlags) query() (store.TaskQuery, error) {
	q := store.TaskQuery{Page: store.Page{Skip: f.skip, Limit: f.limit}, Tags: f.tags}

	if f.status != "" {
		st := entities.TaskStatus(f.status)
		if !st.IsValid() {
			return q, entities.ErrInvalidStatus
		}
		q.Status = &st
	}
	switch f.sent {
	case "":
	case "true", "false":
		sent := f.sent == "true"
		q.IsSent = &sent
	default:
		return q, fmt.Errorf("--sent must be true or false")
	}
	if f.from != "" {
		t, err := parseWhen(f.from)
		if err != nil {
			return q, err
		}
		q.DateFrom = &t
	}
	if f.to != "" {
		t, err := parseWhen(f.to)
		if err != nil {
			return q, err
		}
		q.DateTo = &t
	}
	return q, nil
}

func (c *cli) tasksListCommand() *cobra.Command {
	var flags taskFilterFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			tasks := c.app.Tasks
			if err := tasks.Fetch(cmd.Context(), q); err != nil {
				return fmt.Errorf("%s", tasks.Error())
			}
			return views.Tasks(cmd.OutOrStdout(), tasks.Tasks(), tasks.Total())
		}),
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) tasksSearchCommand() *cobra.Command {
	var flags taskFilterFlags
	cmd := &cobra.Command{
		Use:   "search TEXT",
		Short: "Search task titles and descriptions",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			q, err := flags.query()
			if err != nil {
				return err
			}
			tasks := c.app.Tasks
			if err := tasks.Search(cmd.Context(), args[0], q); err != nil {
				return fmt.Errorf("%s", tasks.Error())
			}
			return views.Tasks(cmd.OutOrStdout(), tasks.Tasks(), tasks.Total())
		}),
	}
	flags.bind(cmd)
	return cmd
}

func (c *cli) tasksShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task with its contacts",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			task, err := c.app.Tasks.FetchOne(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			return views.Task(cmd.OutOrStdout(), task)
		}),
	}
}

func (c *cli) tasksCreateCommand() *cobra.Command {
	var (
		title, description, at string
		tags                   []string
		contactIDs             []int64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Schedule a task for one or more contacts",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(at)
			if err != nil {
				return err
			}
			if err := c.checkContacts(cmd, contactIDs); err != nil {
				return err
			}

			req := ports.CreateTaskRequest{
				Title:             title,
				ScheduledDatetime: when,
				Tags:              tags,
				ContactIDs:        contactIDs,
			}
			if description != "" {
				req.Description = &description
			}

			task, err := c.app.Tasks.Create(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d\n\n", task.ID)
			return views.Task(cmd.OutOrStdout(), task)
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "task title, 3 to 200 characters")
	cmd.Flags().StringVar(&description, "description", "", "message body")
	cmd.Flags().StringVar(&at, "at", "", "when to send, YYYY-MM-DD HH:MM or RFC 3339")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag, repeatable")
	cmd.Flags().Int64SliceVar(&contactIDs, "contact", nil, "contact id, repeatable")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

// checkContacts validates ids against the live active contact list. An empty
// list is left to the task store, which rejects it without a request.
func (c *cli) checkContacts(cmd *cobra.Command, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	contacts := c.app.Contacts
	if err := contacts.Fetch(cmd.Context(), store.ContactQuery{Page: store.Page{Limit: boardLimit}}); err != nil {
		return fmt.Errorf("failed to load contacts: %s", contacts.Error())
	}
	for _, id := range ids {
		if _, ok := contacts.Find(id); !ok {
			return fmt.Errorf("contact %d does not exist or is inactive", id)
		}
	}
	return nil
}

func (c *cli) tasksUpdateCommand() *cobra.Command {
	var (
		title, description, at string
		tags                   []string
		clearTags              bool
	)

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a task's fields",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var req ports.UpdateTaskRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("at") {
				when, err := parseWhen(at)
				if err != nil {
					return err
				}
				req.ScheduledDatetime = &when
			}
			switch {
			case clearTags:
				req.Tags = []string{}
			case flags.Changed("tag"):
				req.Tags = tags
			}

			task, err := c.app.Tasks.Update(cmd.Context(), id, req)
			if err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			return views.Task(cmd.OutOrStdout(), task)
		}),
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new message body")
	cmd.Flags().StringVar(&at, "at", "", "new schedule")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags, repeatable")
	cmd.Flags().BoolVar(&clearTags, "clear-tags", false, "remove all tags")
	return cmd
}

func (c *cli) tasksStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Set a task's status",
		Args:  cobra.ExactArgs(2),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st := entities.TaskStatus(args[1])
			if !st.IsValid() {
				return entities.ErrInvalidStatus
			}
			task, err := c.app.Tasks.UpdateStatus(cmd.Context(), id, st)
			if err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task #%d is now %s\n", task.ID, task.Status.Label())
			return nil
		}),
	}
}

func (c *cli) tasksDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Cancel a task",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.Tasks.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task #%d cancelled\n", id)
			return nil
		}),
	}
}

func (c *cli) tasksHistoryCommand() *cobra.Command {
	var page store.Page
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show a task's change history",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.Tasks.FetchHistory(cmd.Context(), id, page); err != nil {
				return fmt.Errorf("%s", c.app.Tasks.Error())
			}
			return views.History(cmd.OutOrStdout(), c.app.Tasks.History())
		}),
	}
	cmd.Flags().IntVar(&page.Skip, "skip", 0, "entries to skip")
	cmd.Flags().IntVar(&page.Limit, "limit", 100, "maximum entries")
	return cmd
}

func (c *cli) tasksContactsCommand(use, short string) *cobra.Command {
	var contactIDs []int64
	cmd := &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if len(contactIDs) == 0 {
				return entities.ErrNoContacts
			}

			tasks := c.app.Tasks
			var task *entities.Task
			if use == "add-contacts" {
				if err := c.checkContacts(cmd, contactIDs); err != nil {
					return err
				}
				task, err = tasks.AddContacts(cmd.Context(), id, contactIDs)
			} else {
				task, err = tasks.RemoveContacts(cmd.Context(), id, contactIDs)
			}
			if err != nil {
				return fmt.Errorf("%s", tasks.Error())
			}
			return views.Task(cmd.OutOrStdout(), task)
		}),
	}
	cmd.Flags().Int64SliceVar(&contactIDs, "contact", nil, "contact id, repeatable")
	return cmd
}

func (c *cli) loadBoard(cmd *cobra.Command) (*views.Board, error) {
	tasks := c.app.Tasks
	if err := tasks.Fetch(cmd.Context(), store.TaskQuery{Page: store.Page{Limit: boardLimit}}); err != nil {
		return nil, fmt.Errorf("%s", tasks.Error())
	}
	return views.NewBoard(tasks.Tasks()), nil
}

func (c *cli) tasksKanbanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kanban",
		Short: "Show tasks as a board grouped by status",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			board, err := c.loadBoard(cmd)
			if err != nil {
				return err
			}
			return board.Render(cmd.OutOrStdout())
		}),
	}
}

func (c *cli) tasksMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move ID STATUS",
		Short: "Move a task to another board column",
		Args:  cobra.ExactArgs(2),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			board, err := c.loadBoard(cmd)
			if err != nil {
				return err
			}
			if err := board.Move(cmd.Context(), c.app.Tasks, id, entities.TaskStatus(args[1])); err != nil {
				if msg := c.app.Tasks.Error(); msg != "" {
					return fmt.Errorf("%s", msg)
				}
				return err
			}
			return board.Render(cmd.OutOrStdout())
		}),
	}
}

func (c *cli) tasksCalendarCommand() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show a month of scheduled tasks",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if month != "" {
				t, err := time.ParseInLocation("2006-01", month, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --month %q, use YYYY-MM", month)
				}
				ref = t
			}

			cal := views.NewCalendar(ref.Year(), ref.Month(), time.Local, nil)
			from, to := cal.Range()
			to = to.Add(-time.Second)

			tasks := c.app.Tasks
			q := store.TaskQuery{Page: store.Page{Limit: boardLimit}, DateFrom: &from, DateTo: &to}
			if err := tasks.Fetch(cmd.Context(), q); err != nil {
				return fmt.Errorf("%s", tasks.Error())
			}
			return views.NewCalendar(ref.Year(), ref.Month(), time.Local, tasks.Tasks()).Render(cmd.OutOrStdout())
		}),
	}
	cmd.Flags().StringVar(&month, "month", "", "month to show, YYYY-MM (default current)")
	return cmd
}
