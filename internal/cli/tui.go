package cli

import (
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/tui"
	"github.com/spf13/cobra"
)

func tuiCmd(o *options) *cobra.Command {
	var (
		mine   bool
		status string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI(taskFilter(mine, status))
		},
	}
	cmd.Flags().BoolVar(&mine, "mine", false, "only show tasks assigned to you")
	cmd.Flags().StringVar(&status, "status", "", "only show tasks with this status")
	cmd.Flags().StringVar(&o.logFile, "log", "", "write background errors to this file")
	return cmd
}

func (o *options) runTUI(filter model.TaskFilter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return fmt.Errorf("unknown status %q", filter.Status)
	}
	c, err := o.client()
	if err != nil {
		return err
	}

	// Log lines would corrupt the alt screen.
	if o.logFile != "" {
		f, err := tea.LogToFile(o.logFile, "preptrack")
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	app := tui.NewApp(c, tui.Options{
		PollInterval: o.cfg.PollInterval,
		ExportDir:    o.cfg.ExportDir,
		Filter:       filter,
	})
	p := tea.NewProgram(app, tea.WithAltScreen())

	final, err := p.Run()
	if a, ok := final.(tui.App); ok {
		a.Close()
	} else {
		app.Close()
	}
	return err
}
