package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskmaster/autotasks/internal/client/store"
	"github.com/taskmaster/autotasks/internal/client/views"
	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

// aiPageLimit is the largest page the requests endpoint serves
const aiPageLimit = 100

func (c *cli) aiCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai",
		Short: "Turn free text into draft tasks",
	}

	cmd.AddCommand(c.aiInterpretCommand())
	cmd.AddCommand(c.aiConfirmCommand())
	cmd.AddCommand(c.aiListCommand())
	return cmd
}

func (c *cli) aiInterpretCommand() *cobra.Command {
	var audio bool

	cmd := &cobra.Command{
		Use:   "interpret TEXT",
		Short: "Interpret text into draft tasks",
		Args:  cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			inputType := entities.InputText
			if audio {
				inputType = entities.InputAudio
			}

			req, err := c.app.AI.Interpret(cmd.Context(), args[0], inputType)
			if err != nil {
				return fmt.Errorf("%s", c.app.AI.Error())
			}
			if err := views.AIRequest(cmd.OutOrStdout(), req); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "\nRun `taskctl ai confirm %d --contact ID` to create the drafts.\n", req.ID)
			return err
		}),
	}

	cmd.Flags().BoolVar(&audio, "audio", false, "the text is an audio transcript")
	return cmd
}

func (c *cli) aiConfirmCommand() *cobra.Command {
	var taskIDs, contactIDs []int64

	cmd := &cobra.Command{
		Use:   "confirm REQUEST_ID",
		Short: "Create the drafts of a request and link the tasks to it",
		Long: `With --contact every draft of the request is created as a task for those
contacts. Tasks given with --task are linked as well. At least one task must
end up linked.`,
		Args: cobra.ExactArgs(1),
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if len(taskIDs) == 0 && len(contactIDs) == 0 {
				return fmt.Errorf("give --contact to create the drafts or --task to link existing tasks")
			}

			linked := append([]int64(nil), taskIDs...)
			if len(contactIDs) > 0 {
				created, err := c.createDrafts(cmd, id, contactIDs)
				if err != nil {
					return err
				}
				linked = append(linked, created...)
			}

			req, err := c.app.AI.Confirm(cmd.Context(), id, linked)
			if err != nil {
				return fmt.Errorf("%s", c.app.AI.Error())
			}
			return views.AIRequest(cmd.OutOrStdout(), req)
		}),
	}

	cmd.Flags().Int64SliceVar(&taskIDs, "task", nil, "existing task id, repeatable")
	cmd.Flags().Int64SliceVar(&contactIDs, "contact", nil, "contact id for the created tasks, repeatable")
	return cmd
}

// createDrafts creates one task per draft of the pending request id
func (c *cli) createDrafts(cmd *cobra.Command, id int64, contactIDs []int64) ([]int64, error) {
	ai := c.app.AI
	pending := false
	if err := ai.Fetch(cmd.Context(), store.AIQuery{Page: store.Page{Limit: aiPageLimit}, WasConfirmed: &pending}); err != nil {
		return nil, fmt.Errorf("failed to load requests: %s", ai.Error())
	}
	req, ok := ai.Find(id)
	if !ok {
		return nil, fmt.Errorf("request %d does not exist or is already confirmed", id)
	}
	if req.Interpretation == nil || len(req.Interpretation.Tasks) == 0 {
		return nil, fmt.Errorf("request %d has no drafts", id)
	}
	if err := c.checkContacts(cmd, contactIDs); err != nil {
		return nil, err
	}

	created := make([]int64, 0, len(req.Interpretation.Tasks))
	for _, d := range req.Interpretation.Tasks {
		task, err := c.app.Tasks.Create(cmd.Context(), ports.CreateTaskRequest{
			Title:             d.Title,
			Description:       d.Description,
			ScheduledDatetime: d.ScheduledDatetime,
			Tags:              d.Tags,
			ContactIDs:        contactIDs,
			CreatedByAI:       true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %q: %s", d.Title, c.app.Tasks.Error())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created task #%d %s\n", task.ID, task.Title)
		created = append(created, task.ID)
	}
	return created, nil
}

func (c *cli) aiListCommand() *cobra.Command {
	var (
		skip, limit        int
		pending, confirmed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List interpretation requests, newest first",
		RunE: c.authed(func(cmd *cobra.Command, args []string) error {
			if pending && confirmed {
				return fmt.Errorf("--pending and --confirmed are exclusive")
			}

			q := store.AIQuery{Page: store.Page{Skip: skip, Limit: limit}}
			if pending || confirmed {
				q.WasConfirmed = &confirmed
			}

			ai := c.app.AI
			if err := ai.Fetch(cmd.Context(), q); err != nil {
				return fmt.Errorf("%s", ai.Error())
			}
			return views.AIRequests(cmd.OutOrStdout(), ai.Requests(), ai.Total())
		}),
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "number of requests to skip")
	cmd.Flags().IntVar(&limit, "limit", aiPageLimit, "maximum requests to return")
	cmd.Flags().BoolVar(&pending, "pending", false, "only unconfirmed requests")
	cmd.Flags().BoolVar(&confirmed, "confirmed", false, "only confirmed requests")
	return cmd
}
