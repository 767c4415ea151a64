package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/sadopc/preptrack/internal/export"
	"github.com/spf13/cobra"
)

func exportCmd(o *options) *cobra.Command {
	var (
		format string
		out    string
		mine   bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a time report of tasks as CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
			c, err := o.client()
			if err != nil {
				return err
			}
			views, err := export.Collect(commandContext(cmd), c, taskFilter(mine, status))
			if err != nil {
				return err
			}

			now := time.Now()
			if out == "" {
				out = filepath.Join(o.cfg.ExportDir, fmt.Sprintf("preptrack-report-%s.%s", now.Format("2006-01-02"), format))
			}
			if format == "csv" {
				err = export.ToCSV(views, now, out)
			} else {
				err = export.ToJSON(views, now, out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d tasks to %s\n", len(views), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <export_dir>/preptrack-report-<date>.<format>)")
	cmd.Flags().BoolVar(&mine, "mine", false, "only tasks assigned to you")
	cmd.Flags().StringVar(&status, "status", "", "only tasks with this status")
	return cmd
}
