package views

import (
	"fmt"
	"io"
	"strings"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// AIRequests renders the request history with its total
func AIRequests(w io.Writer, requests []entities.AIRequest, total int) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCREATED\tTYPE\tINPUT\tCONFIRMED\tTASKS\t")
	for _, r := range requests {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n",
			r.ID, r.CreatedAt.Local().Format(timeLayout), r.InputType, truncate(r.InputText, 40),
			yesNo(r.WasConfirmed), idList(r.TasksCreatedList))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d of %d requests\n", len(requests), total)
	return err
}

// AIRequest renders one request with its draft tasks
func AIRequest(w io.Writer, r *entities.AIRequest) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Request:\t%d\n", r.ID)
	fmt.Fprintf(tw, "Input:\t%s\n", r.InputText)
	if r.AIResponse != nil {
		fmt.Fprintf(tw, "Summary:\t%s\n", *r.AIResponse)
	}
	fmt.Fprintf(tw, "Confirmed:\t%s\n", yesNo(r.WasConfirmed))
	if len(r.TasksCreatedList) > 0 {
		fmt.Fprintf(tw, "Tasks:\t%s\n", idList(r.TasksCreatedList))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Interpretation == nil || len(r.Interpretation.Tasks) == 0 {
		return nil
	}
	fmt.Fprintln(w, "\nDrafts:")
	for i, d := range r.Interpretation.Tasks {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n",
			i+1, truncate(d.Title, 40), d.ScheduledDatetime.Local().Format(timeLayout), strings.Join(d.Tags, ","))
	}
	return tw.Flush()
}

func idList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ")
}
