package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/preptrack/internal/workflow"
)

func ToCSV(views []workflow.TaskView, now time.Time, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Task ID", "Title", "Type", "Status", "Tracking", "Sessions", "Time (s)", "Time", "Hours"}); err != nil {
		return err
	}

	for _, r := range rows(views, now) {
		tracking := "idle"
		if r.Active {
			tracking = "active"
		}
		record := []string{
			r.ID,
			r.Title,
			r.Type,
			r.Status,
			tracking,
			strconv.FormatInt(r.Sessions, 10),
			strconv.FormatInt(r.Seconds, 10),
			r.clock(),
			r.hours(),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
