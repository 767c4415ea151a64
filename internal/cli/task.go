package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
	"github.com/sadopc/preptrack/internal/workflow"
	"github.com/spf13/cobra"
)

func taskCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with tasks",
	}
	cmd.AddCommand(
		taskListCmd(o),
		taskShowCmd(o),
		trackingCmd(o, "start", "Start tracking time on a task"),
		trackingCmd(o, "pause", "Pause time tracking on a task"),
		taskResetCmd(o),
		taskStatusCmd(o),
		taskApproveCmd(o),
		taskReRequestCmd(o),
		taskCommentsCmd(o),
	)
	return cmd
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(headers...)
}

func taskListCmd(o *options) *cobra.Command {
	var (
		mine   bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := taskFilter(mine, status)
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			tasks, err := c.ListTasks(commandContext(cmd), filter)
			if err != nil {
				return fmt.Errorf("list tasks: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks.")
				return nil
			}
			t := newTable("ID", "Title", "Type", "Status", "Time")
			for _, task := range tasks {
				t.Row(task.ID, task.Title, string(task.TaskType), task.Status.Label(), timespan.Clock(task.TotalTimeSeconds))
			}
			fmt.Fprintln(out, t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only tasks assigned to you")
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	return cmd
}

func taskShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show a task with its tracking status and sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			task, err := c.GetTask(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			st, err := c.TrackingStatus(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get tracking status: %w", err)
			}
			sessions, err := c.ListSessions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", task.Title)
			fmt.Fprintf(out, "  id:      %s\n", task.ID)
			fmt.Fprintf(out, "  type:    %s\n", task.TaskType)
			fmt.Fprintf(out, "  status:  %s\n", task.Status.Label())
			if task.FolderID != nil {
				fmt.Fprintf(out, "  folder:  %s\n", *task.FolderID)
			}
			printTracking(out, st, time.Now())
			if task.AwaitingApproval() {
				fmt.Fprintln(out, "  awaiting approval: run 'task approve' or 'task rerequest'")
			}
			if len(sessions) > 0 {
				t := newTable("#", "Started", "Ended", "Duration")
				for i, s := range sessions {
					ended := "running"
					if s.EndedAt != nil {
						ended = s.EndedAt.Local().Format("2006-01-02 15:04:05")
					}
					t.Row(fmt.Sprint(i+1), s.StartedAt.Local().Format("2006-01-02 15:04:05"), ended, timespan.Clock(s.DurationSeconds))
				}
				fmt.Fprintln(out, t.String())
			}
			return nil
		},
	}
}

func printTracking(out io.Writer, st *model.TrackingStatus, now time.Time) {
	state := "idle"
	if st.IsTrackingActive {
		state = "tracking"
	}
	elapsed := workflow.LiveElapsedSeconds(st, now)
	fmt.Fprintf(out, "  time:    %s (%s, %s) across %d sessions\n",
		timespan.Clock(elapsed), timespan.Hours(elapsed), state, st.TotalSessions)
}

func trackingCmd(o *options, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " TASK_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, e, err := o.engine()
			if err != nil {
				return err
			}
			run := e.Tracker.Start
			if verb == "pause" {
				run = e.Tracker.Pause
			}
			st, err := run(commandContext(cmd), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if verb == "pause" {
				fmt.Fprintln(out, "Tracking paused.")
			} else {
				fmt.Fprintln(out, "Tracking started.")
			}
			printTracking(out, st, time.Now())
			return nil
		},
	}
}

var errNothingToReset = errors.New("no recorded time to reset")

func taskResetCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset TASK_ID",
		Short: "Discard all tracked time on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, e, err := o.engine()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			st, err := c.TrackingStatus(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get tracking status: %w", err)
			}
			if !st.CanReset() {
				return errNothingToReset
			}
			out := cmd.OutOrStdout()
			st, err = e.Tracker.Reset(ctx, args[0], promptConfirm(cmd.InOrStdin(), out, yes))
			if errors.Is(err, workflow.ErrNotConfirmed) {
				fmt.Fprintln(out, "Reset cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "Tracked time reset.")
			printTracking(out, st, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func taskStatusCmd(o *options) *cobra.Command {
	var names []string
	for _, s := range model.TaskStatuses() {
		names = append(names, string(s))
	}
	return &cobra.Command{
		Use:       "status TASK_ID STATUS",
		Short:     "Move a task to another status",
		Long:      "Move a task to another status. STATUS is one of: " + strings.Join(names, ", "),
		Args:      cobra.ExactArgs(2),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, e, err := o.engine()
			if err != nil {
				return err
			}
			task, err := e.Status.SetStatus(commandContext(cmd), args[0], model.TaskStatus(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", task.ID, task.Status.Label())
			return nil
		},
	}
}

func taskApproveCmd(o *options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "approve TASK_ID",
		Short: "Approve a submitted document or signature request and complete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, e, err := o.engine()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			task, err := c.GetTask(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			out := cmd.OutOrStdout()
			task, err = e.Approval.Approve(ctx, task, promptConfirm(cmd.InOrStdin(), out, yes))
			if errors.Is(err, workflow.ErrNotConfirmed) {
				fmt.Fprintln(out, "Approval cancelled.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s approved and %s.\n", task.ID, strings.ToLower(task.Status.Label()))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func taskReRequestCmd(o *options) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "rerequest TASK_ID",
		Short: "Send a submitted request back to the client with a reason",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, e, err := o.engine()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			task, err := c.GetTask(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			updated, err := e.Approval.ReRequest(ctx, task, reason)
			if updated != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", updated.ID, updated.Status.Label())
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "why the documents are needed again (required)")
	return cmd
}

func taskCommentsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "comments TASK_ID",
		Short: "List comments on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := o.client()
			if err != nil {
				return err
			}
			comments, err := c.ListComments(commandContext(cmd), args[0])
			if err != nil {
				return fmt.Errorf("list comments: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(comments) == 0 {
				fmt.Fprintln(out, "No comments.")
				return nil
			}
			for _, cm := range comments {
				fmt.Fprintf(out, "%s  %s\n", cm.CreatedAt.Local().Format("2006-01-02 15:04"), cm.Content)
			}
			return nil
		},
	}
}
