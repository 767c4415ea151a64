package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/preptrack/internal/export"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
	"github.com/sadopc/preptrack/internal/workflow"
)

type Options struct {
	PollInterval time.Duration
	// TickInterval paces the running clock. Zero means once per second.
	TickInterval time.Duration
	ExportDir    string
	// Filter selects the tasks shown in the task list.
	Filter model.TaskFilter
}

// App is the root Bubble Tea model.
type App struct {
	backend Backend
	engine  *workflow.Engine
	taskHub *workflow.Hub[workflow.TaskView]
	apptHub *workflow.Hub[[]model.Appointment]
	opts    Options
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	tasks        tasksModel
	detail       detailModel
	appointments appointmentsModel

	help      help.Model
	status    string
	statusErr bool
}

func NewApp(b Backend, opts Options) App {
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	h := help.New()
	h.ShowAll = false

	engine := workflow.NewEngine(b)
	taskHub := workflow.NewHub(workflow.FetchTaskView(b), opts.PollInterval)
	apptHub := workflow.NewHub(func(ctx context.Context, _ string) ([]model.Appointment, error) {
		return b.ListAppointments(ctx, "")
	}, opts.PollInterval)
	engine.OnTaskChange(taskHub.Refresh)
	engine.OnAppointmentChange(func(string) { apptHub.Refresh(allAppointments) })

	return App{
		backend:      b,
		engine:       engine,
		taskHub:      taskHub,
		apptHub:      apptHub,
		opts:         opts,
		activeView:   viewTasks,
		tasks:        newTasksModel(b, opts.Filter),
		detail:       newDetailModel(b, engine, taskHub, opts),
		appointments: newAppointmentsModel(engine, apptHub),
		help:         h,
	}
}

func (a App) Init() tea.Cmd {
	return a.tasks.refresh()
}

// Close stops polling and the live clock. It is safe to call more than once.
func (a App) Close() {
	a.detail.close()
	a.appointments.close()
	a.taskHub.Close()
	a.apptHub.Close()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tasks.setSize(a.width, contentHeight)
		a.detail.setSize(a.width, contentHeight)
		a.appointments.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child view capturing input (a dialog) gets keys first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Quit):
			a.detail = a.detail.close()
			a.appointments = a.appointments.close()
			return a, tea.Quit
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewTasks)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewDetail)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewAppointments)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		case key.Matches(msg, keys.Back):
			if a.activeView == viewDetail {
				return a.switchView(viewTasks)
			}
		}

	case openTaskMsg:
		var cmd tea.Cmd
		a.detail, cmd = a.detail.open(msg.id)
		a.activeView = viewDetail
		return a, cmd

	case taskSnapshotMsg, clockTickMsg, commentsMsg, trackingDoneMsg, taskDoneMsg:
		var cmd tea.Cmd
		a.detail, cmd = a.detail.update(msg)
		return a, cmd

	case appointmentsSnapshotMsg, appointmentDoneMsg:
		var cmd tea.Cmd
		a.appointments, cmd = a.appointments.update(msg)
		return a, cmd

	case tasksDataMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd

	case spinner.TickMsg:
		var c1, c2 tea.Cmd
		a.detail, c1 = a.detail.update(msg)
		a.appointments, c2 = a.appointments.update(msg)
		return a, tea.Batch(c1, c2)

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	switch v {
	case viewTasks:
		return a, a.tasks.refresh()
	case viewDetail:
		if a.detail.taskID == "" {
			if t := a.tasks.selected(); t != nil {
				var cmd tea.Cmd
				a.detail, cmd = a.detail.open(t.ID)
				return a, cmd
			}
		}
		return a, nil
	case viewAppointments:
		var cmd tea.Cmd
		a.appointments, cmd = a.appointments.watch()
		return a, cmd
	}
	return a, nil
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewDetail:
		a.detail, cmd = a.detail.update(msg)
	case viewAppointments:
		a.appointments, cmd = a.appointments.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewDetail:
		return a.detail.formActive
	case viewAppointments:
		return a.appointments.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewTasks:
		content = a.tasks.view()
	case viewDetail:
		content = a.detail.view()
	case viewAppointments:
		content = a.appointments.view()
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("preptrack")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Live clock of the open task, visible from every view.
	clockInfo := ""
	if st := a.detail.tracking(); st != nil && st.IsTrackingActive {
		clockInfo = successStyle.Render(" ● " + timespan.Clock(a.detail.clock.elapsed(st)))
	}

	left := footerStyle.Render(helpView)
	right := clockInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"CSV", "JSON"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export Time Report"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	dir, filter := a.opts.ExportDir, a.opts.Filter
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		views, err := export.Collect(ctx, a.backend, filter)
		if err != nil {
			return errorStatus("Export error", err)
		}

		now := time.Now()
		base := filepath.Join(dir, fmt.Sprintf("preptrack-report-%s", now.Format("2006-01-02")))
		var path string
		if format == 0 {
			path = base + ".csv"
			err = export.ToCSV(views, now, path)
		} else {
			path = base + ".json"
			err = export.ToJSON(views, now, path)
		}
		if err != nil {
			return errorStatus("Export error", err)
		}
		return exportDoneMsg{path: path}
	}
}
