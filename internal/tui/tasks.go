package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
)

// chartTasks is how many of the most-tracked tasks the chart shows.
const chartTasks = 8

type tasksModel struct {
	backend Backend
	filter  model.TaskFilter
	width   int
	height  int

	tasks  []model.Task
	cursor int
	loaded bool
	err    error

	chart barchart.Model
}

type tasksDataMsg struct {
	tasks []model.Task
	err   error
}

func newTasksModel(b Backend, filter model.TaskFilter) tasksModel {
	return tasksModel{
		backend: b,
		filter:  filter,
		chart:   barchart.New(60, 10),
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.buildChart()
}

func (m tasksModel) refresh() tea.Cmd {
	filter := m.filter
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		tasks, err := m.backend.ListTasks(ctx, filter)
		return tasksDataMsg{tasks: tasks, err: err}
	}
}

func (m tasksModel) selected() *model.Task {
	if m.cursor < 0 || m.cursor >= len(m.tasks) {
		return nil
	}
	return &m.tasks[m.cursor]
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tasksDataMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.tasks = msg.tasks
		}
		if m.cursor >= len(m.tasks) {
			m.cursor = max(0, len(m.tasks)-1)
		}
		m.buildChart()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Enter):
			if t := m.selected(); t != nil {
				id := t.ID
				return m, func() tea.Msg { return openTaskMsg{id: id} }
			}
		case key.Matches(msg, keys.Refresh):
			return m, m.refresh()
		}
	}
	return m, nil
}

// topTracked returns up to n tasks with recorded time, most time first.
func topTracked(tasks []model.Task, n int) []model.Task {
	var tracked []model.Task
	for _, t := range tasks {
		if t.TotalTimeSeconds > 0 {
			tracked = append(tracked, t)
		}
	}
	sort.SliceStable(tracked, func(i, j int) bool {
		return tracked[i].TotalTimeSeconds > tracked[j].TotalTimeSeconds
	})
	if len(tracked) > n {
		tracked = tracked[:n]
	}
	return tracked
}

func (m *tasksModel) buildChart() {
	chartWidth := m.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 8
	if m.height > 30 {
		chartHeight = 12
	}
	m.chart = barchart.New(chartWidth, chartHeight)

	var bars []barchart.BarData
	for _, t := range topTracked(m.tasks, chartTasks) {
		bars = append(bars, barchart.BarData{
			Label: truncate(t.Title, 8),
			Values: []barchart.BarValue{{
				Name:  t.Title,
				Value: float64(t.TotalTimeSeconds) / 3600.0,
				Style: barStyle,
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m tasksModel) view() string {
	w := m.width - 4
	title := titleStyle.Render("Tasks")

	switch {
	case !m.loaded:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("Loading tasks..."),
		))
	case m.err != nil && len(m.tasks) == 0:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", errorStyle.Render("Could not load tasks: "+describe(m.err)),
		))
	case len(m.tasks) == 0:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No tasks assigned."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %-11s %-20s %-10s %s", "Status", "Type", "Time", "Title")))

	titleWidth := max(10, w-52)
	for i, t := range m.tasks {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := fmt.Sprintf("%s%s %-20s %-10s %s",
			cursor,
			statusBadge(t.Status),
			truncate(string(t.TaskType), 20),
			timespan.Clock(t.TotalTimeSeconds),
			style.Render(truncate(t.Title, titleWidth)),
		)
		rows = append(rows, row)
	}
	rows = append(rows, "", mutedStyle.Render("  enter: open  ctrl+r: refresh  e: export"))
	list := panelStyle.Width(w).Render(strings.Join(rows, "\n"))

	if len(topTracked(m.tasks, chartTasks)) == 0 {
		return list
	}
	chart := panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Hours tracked"), "", m.chart.View(),
	))
	return lipgloss.JoinVertical(lipgloss.Left, list, chart)
}
