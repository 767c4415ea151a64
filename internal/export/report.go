// Package export writes the task time report as CSV or JSON.
package export

import (
	"context"
	"fmt"
	"time"

	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
	"github.com/sadopc/preptrack/internal/workflow"
)

// Source is where the report data comes from; *api.Client satisfies it.
type Source interface {
	ListTasks(ctx context.Context, f model.TaskFilter) ([]model.Task, error)
	TrackingStatus(ctx context.Context, taskID string) (*model.TrackingStatus, error)
}

// Collect fetches the tasks matching f together with their tracking status.
func Collect(ctx context.Context, src Source, f model.TaskFilter) ([]workflow.TaskView, error) {
	tasks, err := src.ListTasks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	views := make([]workflow.TaskView, 0, len(tasks))
	for i := range tasks {
		st, err := src.TrackingStatus(ctx, tasks[i].ID)
		if err != nil {
			return nil, fmt.Errorf("tracking status %s: %w", tasks[i].ID, err)
		}
		views = append(views, workflow.TaskView{Task: &tasks[i], Tracking: st})
	}
	return views, nil
}

// row is one task of the report. Active sessions count up to the report
// time.
type row struct {
	ID       string
	Title    string
	Type     string
	Status   string
	Active   bool
	Sessions int64
	Seconds  int64
}

func rows(views []workflow.TaskView, now time.Time) []row {
	out := make([]row, 0, len(views))
	for _, v := range views {
		if v.Task == nil {
			continue
		}
		r := row{
			ID:      v.Task.ID,
			Title:   v.Task.Title,
			Type:    string(v.Task.TaskType),
			Status:  string(v.Task.Status),
			Seconds: v.Task.TotalTimeSeconds,
		}
		if v.Tracking != nil {
			r.Active = v.Tracking.IsTrackingActive
			r.Sessions = v.Tracking.TotalSessions
			r.Seconds = workflow.LiveElapsedSeconds(v.Tracking, now)
		}
		out = append(out, r)
	}
	return out
}

func (r row) clock() string { return timespan.Clock(r.Seconds) }
func (r row) hours() string { return timespan.Decimal(r.Seconds) }
