package tui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
	"github.com/sadopc/preptrack/internal/workflow"
)

const (
	formReset     = "reset"
	formApprove   = "approve"
	formReRequest = "rerequest"
	formStatus    = "status"
)

// detailModel shows one task, its live tracking clock and the approval
// controls. Its state is always the last server snapshot.
type detailModel struct {
	backend Backend
	engine  *workflow.Engine
	hub     *workflow.Hub[workflow.TaskView]
	width   int
	height  int

	taskID   string
	sub      *workflow.Subscription[workflow.TaskView]
	seq      uint64
	snap     workflow.TaskView
	pollErr  error
	comments []model.Comment
	clock    clockModel

	// Snapshots fetched before the last command finished are older than
	// what that command returned.
	freshAfter time.Time

	busy    bool
	spinner spinner.Model

	formActive bool
	form       *huh.Form
	formType   string

	// Form field pointers (survive value copies)
	formConfirm *bool
	formText    *string
	formStatus  *model.TaskStatus
}

type taskSnapshotMsg struct {
	sub  *workflow.Subscription[workflow.TaskView]
	snap workflow.Snapshot[workflow.TaskView]
}

type commentsMsg struct {
	taskID   string
	comments []model.Comment
}

type trackingDoneMsg struct {
	taskID string
	verb   string
	status *model.TrackingStatus
	err    error
	at     time.Time
}

type taskDoneMsg struct {
	taskID string
	text   string
	task   *model.Task
	err    error
	at     time.Time
}

func newDetailModel(b Backend, e *workflow.Engine, hub *workflow.Hub[workflow.TaskView], opts Options) detailModel {
	confirm, text, status := false, "", model.StatusToDo
	return detailModel{
		backend:     b,
		engine:      e,
		hub:         hub,
		clock:       newClockModel(opts.TickInterval),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		formConfirm: &confirm,
		formText:    &text,
		formStatus:  &status,
	}
}

func (d *detailModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d detailModel) tracking() *model.TrackingStatus { return d.snap.Tracking }

// open switches the view to task id, dropping the previous subscription
// and clock.
func (d detailModel) open(id string) (detailModel, tea.Cmd) {
	if id == d.taskID && d.sub != nil {
		return d, nil
	}
	d = d.close()
	d.taskID = id
	d.sub = d.hub.Subscribe(id)
	return d, tea.Batch(waitForSnapshot(d.sub), d.loadComments())
}

// close releases the subscription and stops the clock.
func (d detailModel) close() detailModel {
	if d.sub != nil {
		d.sub.Close()
		d.sub = nil
	}
	if d.clock.running() {
		d.clock = d.clock.stop()
	}
	d.taskID = ""
	d.seq = 0
	d.freshAfter = time.Time{}
	d.snap = workflow.TaskView{}
	d.pollErr = nil
	d.comments = nil
	d.busy = false
	d.formActive = false
	d.form = nil
	return d
}

func waitForSnapshot(sub *workflow.Subscription[workflow.TaskView]) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-sub.C
		if !ok {
			return nil
		}
		return taskSnapshotMsg{sub: sub, snap: snap}
	}
}

func (d detailModel) loadComments() tea.Cmd {
	id := d.taskID
	return func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		comments, err := d.backend.ListComments(ctx, id)
		if err != nil {
			log.Printf("tui: list comments for %s: %v", id, err)
		}
		return commentsMsg{taskID: id, comments: comments}
	}
}

func (d detailModel) update(msg tea.Msg) (detailModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		if _, ok := msg.(tea.KeyMsg); ok {
			return d.updateForm(msg)
		}
	}

	switch msg := msg.(type) {
	case taskSnapshotMsg:
		return d.applySnapshot(msg)

	case clockTickMsg:
		var cmd tea.Cmd
		d.clock, cmd = d.clock.update(msg)
		return d, cmd

	case commentsMsg:
		if msg.taskID == d.taskID {
			d.comments = msg.comments
		}
		return d, nil

	case trackingDoneMsg:
		return d.applyTracking(msg)

	case taskDoneMsg:
		return d.applyTask(msg)

	case spinner.TickMsg:
		if !d.updating() {
			return d, nil
		}
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd

	case tea.KeyMsg:
		if d.taskID == "" {
			return d, nil
		}
		return d.updateKeys(msg)
	}

	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}
	return d, nil
}

func (d detailModel) applySnapshot(msg taskSnapshotMsg) (detailModel, tea.Cmd) {
	if msg.sub != d.sub {
		return d, nil
	}
	next := waitForSnapshot(d.sub)
	if msg.snap.Seq <= d.seq {
		return d, next
	}
	d.seq = msg.snap.Seq
	if msg.snap.FetchedAt.Before(d.freshAfter) {
		return d, next
	}
	if msg.snap.Err != nil {
		d.pollErr = msg.snap.Err
		if d.clock.running() {
			d.clock = d.clock.stop()
		}
		return d, next
	}
	d.pollErr = nil
	d.snap = msg.snap.Value
	var cmd tea.Cmd
	d.clock, cmd = d.clock.sync(d.snap.Tracking)
	return d, tea.Batch(next, cmd)
}

func (d detailModel) applyTracking(msg trackingDoneMsg) (detailModel, tea.Cmd) {
	if msg.taskID != d.taskID {
		return d, nil
	}
	d.busy = false
	// ErrBusy means this command never ran. Controls stay disabled through
	// the guard until the other command finishes.
	if errors.Is(msg.err, workflow.ErrBusy) {
		return d, nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, workflow.ErrNotConfirmed) {
			return d, statusCmd("Reset cancelled", false)
		}
		if d.clock.running() {
			d.clock = d.clock.stop()
		}
		d.hub.Refresh(d.taskID)
		return d, func() tea.Msg { return errorStatus("Could not "+msg.verb, msg.err) }
	}
	d.snap.Tracking = msg.status
	d.freshAfter = msg.at
	var cmd tea.Cmd
	d.clock, cmd = d.clock.sync(msg.status)
	text := map[string]string{
		"start": "Tracking started",
		"pause": "Tracking paused",
		"reset": "Tracked time reset",
	}[msg.verb]
	return d, tea.Batch(cmd, statusCmd(text, false))
}

func (d detailModel) applyTask(msg taskDoneMsg) (detailModel, tea.Cmd) {
	if msg.taskID != d.taskID {
		return d, nil
	}
	d.busy = false
	// ErrBusy means this command never ran. Controls stay disabled through
	// the guard until the other command finishes.
	if errors.Is(msg.err, workflow.ErrBusy) {
		return d, nil
	}
	if msg.task != nil {
		d.snap.Task = msg.task
		d.freshAfter = msg.at
	}
	switch {
	case errors.Is(msg.err, workflow.ErrNotConfirmed):
		return d, statusCmd("Approval cancelled", false)
	case workflow.IsPartial(msg.err):
		return d, tea.Batch(d.loadComments(), statusCmd("Re-requested, but "+describe(msg.err), true))
	case msg.err != nil:
		return d, func() tea.Msg { return errorStatus("Update failed", msg.err) }
	}
	return d, tea.Batch(d.loadComments(), statusCmd(msg.text, false))
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

func (d detailModel) updateKeys(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	st, task := d.snap.Tracking, d.snap.Task
	if d.updating() && !key.Matches(msg, keys.Refresh) {
		return d, nil
	}
	switch {
	case key.Matches(msg, keys.Start):
		if st == nil || !st.CanStart() {
			return d, statusCmd("Tracking is already running", true)
		}
		return d.runTracking("start", d.engine.Tracker.Start)

	case key.Matches(msg, keys.Pause):
		if st == nil || !st.CanPause() {
			return d, statusCmd("Tracking is not running", true)
		}
		return d.runTracking("pause", d.engine.Tracker.Pause)

	case key.Matches(msg, keys.Reset):
		if st == nil || !st.CanReset() {
			return d, statusCmd("No recorded time to reset", true)
		}
		return d.showConfirm(formReset, workflow.ResetPrompt)

	case key.Matches(msg, keys.Approve):
		if task == nil || !task.AwaitingApproval() {
			return d, statusCmd("Only submitted document or signature requests can be approved", true)
		}
		return d.showConfirm(formApprove, workflow.ApprovePrompt)

	case key.Matches(msg, keys.ReRequest):
		if task == nil || !task.AwaitingApproval() {
			return d, statusCmd("Only submitted document or signature requests can be re-requested", true)
		}
		return d.showReRequestForm()

	case key.Matches(msg, keys.Status):
		if task == nil {
			return d, nil
		}
		return d.showStatusForm(task.Status)

	case key.Matches(msg, keys.Refresh):
		d.hub.Refresh(d.taskID)
		return d, d.loadComments()
	}
	return d, nil
}

// updating reports whether a command for the open task is outstanding,
// either dispatched from this view or still holding the task's guard.
func (d detailModel) updating() bool {
	return d.busy || d.engine.Tracker.Updating(d.taskID)
}

func (d detailModel) startBusy() (detailModel, tea.Cmd) {
	d.busy = true
	return d, d.spinner.Tick
}

func (d detailModel) runTracking(verb string, call func(ctx context.Context, id string) (*model.TrackingStatus, error)) (detailModel, tea.Cmd) {
	id := d.taskID
	d, spin := d.startBusy()
	return d, tea.Batch(spin, func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		st, err := call(ctx, id)
		return trackingDoneMsg{taskID: id, verb: verb, status: st, err: err, at: time.Now()}
	})
}

func (d detailModel) showConfirm(formType, prompt string) (detailModel, tea.Cmd) {
	*d.formConfirm = false
	d.formType = formType
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Affirmative("Yes").
				Negative("No").
				Value(d.formConfirm),
		),
	).WithShowHelp(true)
	d.formActive = true
	return d, d.form.Init()
}

func (d detailModel) showReRequestForm() (detailModel, tea.Cmd) {
	*d.formText = ""
	d.formType = formReRequest
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Reason for re-request").
				Description("Recorded as a comment on the task.").
				Value(d.formText).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return workflow.ErrReasonRequired
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)
	d.formActive = true
	return d, d.form.Init()
}

func (d detailModel) showStatusForm(current model.TaskStatus) (detailModel, tea.Cmd) {
	*d.formStatus = current
	d.formType = formStatus
	var opts []huh.Option[model.TaskStatus]
	for _, s := range model.TaskStatuses() {
		opts = append(opts, huh.NewOption(s.Label(), s))
	}
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[model.TaskStatus]().
				Title("Move task to").
				Options(opts...).
				Value(d.formStatus),
		),
	).WithShowHelp(true)
	d.formActive = true
	return d, d.form.Init()
}

func (d detailModel) updateForm(msg tea.Msg) (detailModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		d.formActive = false
		d.form = nil
		return d, nil
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}
	if d.form.State != huh.StateCompleted {
		return d, cmd
	}

	d.formActive = false
	d.form = nil
	return d.submitForm()
}

func (d detailModel) submitForm() (detailModel, tea.Cmd) {
	if d.updating() {
		return d, statusCmd("Another update for this task is still running", true)
	}
	id := d.taskID
	ok := *d.formConfirm
	confirm := func(string) bool { return ok }

	switch d.formType {
	case formReset:
		return d.runTracking("reset", func(ctx context.Context, id string) (*model.TrackingStatus, error) {
			return d.engine.Tracker.Reset(ctx, id, confirm)
		})

	case formApprove:
		if d.snap.Task == nil {
			return d, nil
		}
		task := *d.snap.Task
		return d.runTask("Approved and completed", func(ctx context.Context) (*model.Task, error) {
			return d.engine.Approval.Approve(ctx, &task, confirm)
		})

	case formReRequest:
		if d.snap.Task == nil {
			return d, nil
		}
		task, reason := *d.snap.Task, *d.formText
		return d.runTask("Documents re-requested", func(ctx context.Context) (*model.Task, error) {
			return d.engine.Approval.ReRequest(ctx, &task, reason)
		})

	case formStatus:
		status := *d.formStatus
		return d.runTask("Status set to "+status.Label(), func(ctx context.Context) (*model.Task, error) {
			return d.engine.Status.SetStatus(ctx, id, status)
		})
	}
	return d, nil
}

func (d detailModel) runTask(text string, call func(ctx context.Context) (*model.Task, error)) (detailModel, tea.Cmd) {
	id := d.taskID
	d, spin := d.startBusy()
	return d, tea.Batch(spin, func() tea.Msg {
		ctx, cancel := commandContext()
		defer cancel()
		task, err := call(ctx)
		return taskDoneMsg{taskID: id, text: text, task: task, err: err, at: time.Now()}
	})
}

func (d detailModel) view() string {
	w := d.width - 4
	if w < 20 {
		return "Terminal too small"
	}

	if d.taskID == "" {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Task"),
			"",
			mutedStyle.Render("No task selected. Press 1 and choose a task."),
		))
	}

	if d.formActive && d.form != nil {
		title := map[string]string{
			formReset:     "Reset Time",
			formApprove:   "Approve Request",
			formReRequest: "Re-request Documents",
			formStatus:    "Change Status",
		}[d.formType]
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", d.form.View()),
		)
	}

	if d.snap.Task == nil {
		msg := d.spinner.View() + " Loading task..."
		if d.pollErr != nil {
			msg = errorStyle.Render("Could not load task: " + describe(d.pollErr))
		}
		return panelStyle.Width(w).Render(msg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTaskPanel(w),
		d.renderClockPanel(w),
		d.renderCommentsPanel(w),
	)
}

func (d detailModel) renderTaskPanel(w int) string {
	t := d.snap.Task
	title := titleStyle.Render(t.Title)
	if t.Title == "" {
		title = titleStyle.Render(t.ID)
	}
	rows := []string{
		title,
		fmt.Sprintf("%s  %s", statusBadge(t.Status), mutedStyle.Render(string(t.TaskType))),
	}
	if t.FolderID != nil {
		rows = append(rows, mutedStyle.Render("Folder: "+*t.FolderID))
	}
	if t.AwaitingApproval() {
		rows = append(rows, "", warningStyle.Render("Awaiting approval  a: approve & complete  r: re-request"))
	}
	if d.pollErr != nil {
		rows = append(rows, errorStyle.Render("Last refresh failed: "+describe(d.pollErr)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d detailModel) renderClockPanel(w int) string {
	st := d.snap.Tracking
	if st == nil {
		return panelStyle.Width(w).Render(mutedStyle.Render("Tracking status unavailable"))
	}
	clock := timespan.Clock(d.clock.elapsed(st))

	var display, indicator string
	style := panelStyle
	if st.IsTrackingActive {
		display = clockActiveStyle.Width(w - 6).Render(clock)
		indicator = successStyle.Render("●  TRACKING")
		style = activePanelStyle
	} else {
		display = clockIdleStyle.Width(w - 6).Render(clock)
		indicator = mutedStyle.Render("■  IDLE")
	}
	if d.updating() {
		indicator += "  " + d.spinner.View() + mutedStyle.Render(" updating")
	}

	var actions []string
	if st.CanStart() {
		actions = append(actions, "s: start")
	}
	if st.CanPause() {
		actions = append(actions, "p: pause")
	}
	if st.CanReset() {
		actions = append(actions, "x: reset")
	}
	actions = append(actions, "m: status")

	summary := mutedStyle.Render(fmt.Sprintf("%d sessions  %s total",
		st.TotalSessions, timespan.Hours(st.TotalTimeSeconds)))

	return style.Width(w).Render(lipgloss.JoinVertical(lipgloss.Center,
		display,
		indicator,
		summary,
		mutedStyle.Render(strings.Join(actions, "  ")),
	))
}

func (d detailModel) renderCommentsPanel(w int) string {
	title := titleStyle.Render("Comments")
	if len(d.comments) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, mutedStyle.Render("No comments"),
		))
	}
	rows := []string{title}
	for i, c := range d.comments {
		if i == 5 {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  … %d more", len(d.comments)-5)))
			break
		}
		rows = append(rows, fmt.Sprintf("  %s  %s",
			mutedStyle.Render(c.CreatedAt.Local().Format("Jan 02 15:04")),
			truncate(c.Content, w-20)))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
