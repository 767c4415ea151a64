package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/workflow"
)

// allAppointments is the hub key of the appointment list.
const allAppointments = "all"

type appointmentsModel struct {
	engine *workflow.Engine
	hub    *workflow.Hub[[]model.Appointment]
	width  int
	height int

	sub    *workflow.Subscription[[]model.Appointment]
	seq    uint64
	appts  []model.Appointment
	cursor int
	loaded bool
	err    error

	// busy holds appointments with a command started from this list.
	busy    map[string]bool
	spinner spinner.Model

	formActive bool
	form       *huh.Form
	formTarget model.Appointment
	formReason *string
}

type appointmentsSnapshotMsg struct {
	sub  *workflow.Subscription[[]model.Appointment]
	snap workflow.Snapshot[[]model.Appointment]
}

type appointmentDoneMsg struct {
	id     string
	action model.AppointmentAction
	appt   *model.Appointment
	err    error
}

func newAppointmentsModel(e *workflow.Engine, hub *workflow.Hub[[]model.Appointment]) appointmentsModel {
	reason := ""
	return appointmentsModel{
		engine:     e,
		hub:        hub,
		busy:       make(map[string]bool),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		formReason: &reason,
	}
}

func (m *appointmentsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// watch subscribes to the appointment list once.
func (m appointmentsModel) watch() (appointmentsModel, tea.Cmd) {
	if m.sub != nil {
		m.hub.Refresh(allAppointments)
		return m, nil
	}
	m.sub = m.hub.Subscribe(allAppointments)
	return m, waitForAppointments(m.sub)
}

func (m appointmentsModel) close() appointmentsModel {
	if m.sub != nil {
		m.sub.Close()
		m.sub = nil
	}
	return m
}

func waitForAppointments(sub *workflow.Subscription[[]model.Appointment]) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub.C
		if !ok {
			return nil
		}
		return appointmentsSnapshotMsg{sub: sub, snap: snap}
	}
}

func (m appointmentsModel) selected() *model.Appointment {
	if m.cursor < 0 || m.cursor >= len(m.appts) {
		return nil
	}
	return &m.appts[m.cursor]
}

func (m appointmentsModel) update(msg tea.Msg) (appointmentsModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return m.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case appointmentsSnapshotMsg:
		if msg.sub != m.sub {
			return m, nil
		}
		next := waitForAppointments(m.sub)
		if msg.snap.Seq <= m.seq {
			return m, next
		}
		m.seq = msg.snap.Seq
		m.loaded = true
		m.err = msg.snap.Err
		if msg.snap.Err == nil {
			m.appts = msg.snap.Value
		}
		if m.cursor >= len(m.appts) {
			m.cursor = max(0, len(m.appts)-1)
		}
		return m, next

	case appointmentDoneMsg:
		delete(m.busy, msg.id)
		if errors.Is(msg.err, workflow.ErrBusy) {
			return m, nil
		}
		if msg.err != nil {
			return m, func() tea.Msg { return errorStatus("Could not "+string(msg.action)+" appointment", msg.err) }
		}
		for i := range m.appts {
			if m.appts[i].ID == msg.appt.ID {
				m.appts[i] = *msg.appt
			}
		}
		text := "Appointment confirmed"
		if msg.action == model.ActionCancel {
			text = "Appointment cancelled"
		}
		return m, statusCmd(text, false)

	case spinner.TickMsg:
		if !m.anyUpdating() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m appointmentsModel) updateKeys(msg tea.KeyMsg) (appointmentsModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.appts)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Refresh):
		m.hub.Refresh(allAppointments)
	case key.Matches(msg, keys.Approve):
		a := m.selected()
		if a == nil {
			return m, nil
		}
		if m.updating(a.ID) {
			return m, nil
		}
		if !a.Actionable() {
			return m, statusCmd("Only pending appointments can be confirmed", true)
		}
		appt := *a
		return m.run(appt.ID, model.ActionApprove, func() (*model.Appointment, error) {
			ctx, cancel := commandContext()
			defer cancel()
			return m.engine.Appointments.Approve(ctx, &appt)
		})
	case key.Matches(msg, keys.Cancel):
		a := m.selected()
		if a == nil {
			return m, nil
		}
		if m.updating(a.ID) {
			return m, nil
		}
		if !a.Actionable() {
			return m, statusCmd("Only pending appointments can be cancelled", true)
		}
		return m.showCancelForm(*a)
	}
	return m, nil
}

func (m appointmentsModel) run(id string, action model.AppointmentAction, call func() (*model.Appointment, error)) (appointmentsModel, tea.Cmd) {
	m.busy[id] = true
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		appt, err := call()
		return appointmentDoneMsg{id: id, action: action, appt: appt, err: err}
	})
}

// updating reports whether a command for the appointment is in flight, from
// this list or anywhere else sharing the engine.
func (m appointmentsModel) updating(id string) bool {
	return m.busy[id] || m.engine.Appointments.Updating(id)
}

func (m appointmentsModel) anyUpdating() bool {
	if len(m.busy) > 0 {
		return true
	}
	for _, a := range m.appts {
		if m.engine.Appointments.Updating(a.ID) {
			return true
		}
	}
	return false
}

func (m appointmentsModel) showCancelForm(a model.Appointment) (appointmentsModel, tea.Cmd) {
	*m.formReason = ""
	m.formTarget = a
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cancellation reason").
				Description("Optional. Leave empty to cancel without a reason.").
				Value(m.formReason),
		),
	).WithShowHelp(true)
	m.formActive = true
	return m, m.form.Init()
}

func (m appointmentsModel) updateForm(msg tea.Msg) (appointmentsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		m.formActive = false
		m.form = nil
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.formActive = false
	m.form = nil
	appt, reason := m.formTarget, *m.formReason
	if m.updating(appt.ID) {
		return m, statusCmd("Another update for this appointment is still running", true)
	}
	return m.run(appt.ID, model.ActionCancel, func() (*model.Appointment, error) {
		ctx, cancel := commandContext()
		defer cancel()
		return m.engine.Appointments.Cancel(ctx, &appt, reason)
	})
}

func (m appointmentsModel) view() string {
	w := m.width - 4
	title := titleStyle.Render("Appointments")

	if m.formActive && m.form != nil {
		heading := titleStyle.Render(fmt.Sprintf("Cancel appointment on %s at %s", m.formTarget.Date, m.formTarget.Time))
		return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, heading, "", m.form.View()))
	}

	switch {
	case !m.loaded:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("Loading appointments..."),
		))
	case m.err != nil && len(m.appts) == 0:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", errorStyle.Render("Could not load appointments: "+describe(m.err)),
		))
	case len(m.appts) == 0:
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No appointments."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %-10s %-5s  %-11s %-12s %s", "Date", "Time", "Meeting", "Status", "Client")))
	for i, a := range m.appts {
		cursor := "  "
		style := normalItemStyle
		if i == m.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		statusStyle, ok := appointmentStyles[a.Status]
		if !ok {
			statusStyle = mutedStyle
		}
		row := fmt.Sprintf("%s%s  %-11s %s %s",
			cursor,
			style.Render(fmt.Sprintf("%-10s %-5s", a.Date, a.Time)),
			a.MeetingType,
			statusStyle.Render(fmt.Sprintf("%-12s", a.Status)),
			a.ClientID,
		)
		if a.CancelReason != nil {
			row += mutedStyle.Render("  (" + truncate(*a.CancelReason, 30) + ")")
		}
		if m.updating(a.ID) {
			row += "  " + m.spinner.View() + mutedStyle.Render(" updating")
		}
		rows = append(rows, row)
	}
	if m.err != nil {
		rows = append(rows, "", errorStyle.Render("Last refresh failed: "+describe(m.err)))
	}
	rows = append(rows, "", mutedStyle.Render("  a: confirm  c: cancel  ctrl+r: refresh"))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
