package cli

import (
	"fmt"
	"time"

	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/store"
	"github.com/spf13/cobra"
)

type seedTask struct {
	title  string
	typ    model.TaskType
	status model.TaskStatus
	spouse bool
}

var demoTasks = []seedTask{
	{title: "Onboard new client", typ: model.TypeClientOnboarding},
	{title: "Collect 2025 W-2 and 1099 forms", typ: model.TypeDocumentCollection, status: model.StatusInProgress},
	{title: "Upload prior-year return", typ: model.TypeDocumentRequest, status: model.StatusSubmitted},
	{title: "Sign engagement letter", typ: model.TypeSignatureRequest, status: model.StatusSubmitted, spouse: true},
	{title: "Review brokerage statements", typ: model.TypeDocumentReview},
	{title: "File amended 1040-X", typ: model.TypeAmendmentFiling},
	{title: "Partner review of return", typ: model.TypeInternalReview},
}

// seed writes demo tasks assigned to user and a few appointment requests.
func seed(s *store.Store, user string, now time.Time) ([]model.Task, []model.Appointment, error) {
	folder := "folder-demo"
	var tasks []model.Task
	for _, d := range demoTasks {
		t := model.Task{
			Title:      d.title,
			TaskType:   d.typ,
			SpouseSign: d.spouse,
			AssigneeID: &user,
			ClientIDs:  []string{"client-demo"},
		}
		if d.typ.RequiresFolder() {
			t.FolderID = &folder
		}
		created, err := s.CreateTask(t)
		if err != nil {
			return nil, nil, fmt.Errorf("create task %q: %w", d.title, err)
		}
		if d.status != "" {
			if created, err = s.UpdateTaskStatus(created.ID, d.status); err != nil {
				return nil, nil, fmt.Errorf("set status of %q: %w", d.title, err)
			}
		}
		tasks = append(tasks, *created)
	}

	meetings := []model.MeetingType{model.MeetingZoom, model.MeetingInPerson, model.MeetingOnCall}
	var appts []model.Appointment
	for i, m := range meetings {
		day := now.AddDate(0, 0, i+1)
		a, err := s.CreateAppointment(model.Appointment{
			Date:        day.Format("2006-01-02"),
			Time:        fmt.Sprintf("%02d:00", 9+2*i),
			ClientID:    "client-demo",
			MeetingType: m,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create appointment: %w", err)
		}
		appts = append(appts, *a)
	}
	return tasks, appts, nil
}

func seedCmd(o *options) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the server database with demo tasks and appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, path, err := o.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tasks, appts, err := seed(s, user, time.Now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %s with %d tasks and %d appointments for %s.\n", path, len(tasks), len(appts), user)
			for _, t := range tasks {
				fmt.Fprintf(out, "  %s  %-11s %s\n", t.ID, t.Status.Label(), t.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "preparer-1", "assignee of the demo tasks")
	return cmd
}
