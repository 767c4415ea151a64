package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/preptrack/internal/workflow"
)

type jsonReport struct {
	ExportedAt   string     `json:"exported_at"`
	Count        int        `json:"count"`
	TotalSeconds int64      `json:"total_seconds"`
	Tasks        []jsonTask `json:"tasks"`
}

type jsonTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Type     string `json:"task_type"`
	Status   string `json:"status"`
	Active   bool   `json:"is_tracking_active"`
	Sessions int64  `json:"total_sessions"`
	Seconds  int64  `json:"total_time_seconds"`
	Time     string `json:"time"`
}

func ToJSON(views []workflow.TaskView, now time.Time, path string) error {
	report := jsonReport{
		ExportedAt: now.UTC().Format(time.RFC3339),
		Tasks:      []jsonTask{},
	}
	for _, r := range rows(views, now) {
		report.Tasks = append(report.Tasks, jsonTask{
			ID:       r.ID,
			Title:    r.Title,
			Type:     r.Type,
			Status:   r.Status,
			Active:   r.Active,
			Sessions: r.Sessions,
			Seconds:  r.Seconds,
			Time:     r.clock(),
		})
		report.TotalSeconds += r.Seconds
	}
	report.Count = len(report.Tasks)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
