// Package cli holds the preptrack command tree.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sadopc/preptrack/internal/api"
	"github.com/sadopc/preptrack/internal/config"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/workflow"
	"github.com/spf13/cobra"
)

var errNoToken = errors.New("no API token configured: set token in the config file or PREPTRACK_TOKEN (see 'preptrack token')")

// options is shared by every command of one invocation.
type options struct {
	configPath string
	cfg        *config.Config
	logFile    string
}

func (o *options) load() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	o.cfg = cfg
	return nil
}

func (o *options) client() (*api.Client, error) {
	if o.cfg.Token == "" {
		return nil, errNoToken
	}
	return api.NewWithToken(o.cfg.ServerURL, o.cfg.Token, o.cfg.RequestTimeout), nil
}

// engine returns the workflow engine over the configured server.
func (o *options) engine() (*api.Client, *workflow.Engine, error) {
	c, err := o.client()
	if err != nil {
		return nil, nil, err
	}
	return c, workflow.NewEngine(c), nil
}

func NewRootCmd(version string) *cobra.Command {
	o := &options{}
	var mine bool

	root := &cobra.Command{
		Use:   "preptrack",
		Short: "Task time tracking and approvals for tax preparers",
		Long: `preptrack is a terminal client for the tax-preparation portal.

It tracks time on tasks, moves tasks through their status lifecycle,
approves or re-requests submitted documents and handles appointment
requests. Without a subcommand it opens the interactive UI.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.runTUI(taskFilter(mine, ""))
		},
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "config file (default "+config.DefaultPath()+")")
	root.Flags().BoolVar(&mine, "mine", false, "only show tasks assigned to you")

	root.AddCommand(
		tuiCmd(o),
		taskCmd(o),
		apptCmd(o),
		exportCmd(o),
		serveCmd(o),
		tokenCmd(o),
		seedCmd(o),
		configCmd(o),
	)
	return root
}

// Execute runs the command tree and reports any error on stderr.
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func taskFilter(mine bool, status string) model.TaskFilter {
	f := model.TaskFilter{Status: model.TaskStatus(status)}
	if mine {
		f.AssigneeID = "me"
	}
	return f
}

// promptConfirm asks on in and reads a y/N answer. yes skips the question.
func promptConfirm(in io.Reader, out io.Writer, yes bool) workflow.ConfirmFunc {
	if yes {
		return workflow.Confirmed
	}
	return func(prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		}
		return false
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
