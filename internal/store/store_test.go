package store

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/preptrack/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeClock is a settable time source shared by the store under test.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func withClock(s *Store) *fakeClock {
	c := &fakeClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	s.SetClock(c.now)
	return c
}

func folder(id string) *string { return &id }

func createTask(t *testing.T, s *Store, typ model.TaskType) *model.Task {
	t.Helper()
	task := model.Task{Title: "Collect W-2", TaskType: typ}
	if typ.RequiresFolder() {
		task.FolderID = folder("folder-1")
	}
	created, err := s.CreateTask(task)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return created
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/preptrack.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen, should not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	s2.Close()
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	assignee := "prep-7"
	created, err := s.CreateTask(model.Task{
		Title:      "Signature packet",
		TaskType:   model.TypeSignatureRequest,
		FolderID:   folder("f-9"),
		SpouseSign: true,
		AssigneeID: &assignee,
		ClientIDs:  []string{"c1", "c2"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.Status != model.StatusToDo {
		t.Fatalf("default status = %s, want to_do", created.Status)
	}
	if !created.SpouseSign || created.FolderID == nil || *created.FolderID != "f-9" {
		t.Fatalf("fields not persisted: %+v", created)
	}
	if len(created.ClientIDs) != 2 || created.ClientIDs[1] != "c2" {
		t.Fatalf("client ids = %v", created.ClientIDs)
	}
	if created.AssigneeID == nil || *created.AssigneeID != "prep-7" {
		t.Fatal("assignee not persisted")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	got, err := s.GetTask(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Signature packet" || got.TaskType != model.TypeSignatureRequest {
		t.Fatalf("unexpected task: %+v", got)
	}
}

func TestCreateTaskRequiresFolder(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateTask(model.Task{TaskType: model.TypeDocumentCollection})
	if !errors.Is(err, model.ErrFolderRequired) {
		t.Fatalf("expected ErrFolderRequired, got %v", err)
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasksFilter(t *testing.T) {
	s := newTestStore(t)
	a, b := "prep-1", "prep-2"
	s.CreateTask(model.Task{TaskType: model.TypeOther, AssigneeID: &a})
	s.CreateTask(model.Task{TaskType: model.TypeOther, AssigneeID: &a, Status: model.StatusInProgress})
	s.CreateTask(model.Task{TaskType: model.TypeOther, AssigneeID: &b})

	all, err := s.ListTasks(model.TaskFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(all))
	}

	mine, _ := s.ListTasks(model.TaskFilter{AssigneeID: "prep-1"})
	if len(mine) != 2 {
		t.Fatalf("expected 2 tasks for prep-1, got %d", len(mine))
	}

	active, _ := s.ListTasks(model.TaskFilter{AssigneeID: "prep-1", Status: model.StatusInProgress})
	if len(active) != 1 {
		t.Fatalf("expected 1 in-progress task, got %d", len(active))
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeInternalReview)

	for _, st := range []model.TaskStatus{model.StatusInProgress, model.StatusCompleted, model.StatusToDo, model.StatusCancelled} {
		got, err := s.UpdateTaskStatus(task.ID, st)
		if err != nil {
			t.Fatalf("set %s: %v", st, err)
		}
		if got.Status != st {
			t.Fatalf("status = %s, want %s", got.Status, st)
		}
		if got.TaskType != model.TypeInternalReview {
			t.Fatal("status change must not alter task type")
		}
	}
}

func TestUpdateTaskStatusInvalid(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeOther)
	if _, err := s.UpdateTaskStatus(task.ID, "archived"); !errors.Is(err, model.ErrInvalidTaskStatus) {
		t.Fatalf("expected ErrInvalidTaskStatus, got %v", err)
	}
	if _, err := s.UpdateTaskStatus("nope", model.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestApprovableCompletesOnlyFromSubmitted(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeDocumentRequest)

	_, err := s.UpdateTaskStatus(task.ID, model.StatusCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := s.GetTask(task.ID)
	if got.Status != model.StatusToDo {
		t.Fatalf("rejected transition changed status to %s", got.Status)
	}

	s.UpdateTaskStatus(task.ID, model.StatusSubmitted)
	got, err = s.UpdateTaskStatus(task.ID, model.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.StatusCompleted {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestCompletionRaceWithReopen(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeSignatureRequest)

	for i := 0; i < 20; i++ {
		if _, err := s.UpdateTaskStatus(task.ID, model.StatusSubmitted); err != nil {
			t.Fatal(err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.UpdateTaskStatus(task.ID, model.StatusPending)
		}()
		go func() {
			defer wg.Done()
			s.UpdateTaskStatus(task.ID, model.StatusCompleted)
		}()
		wg.Wait()

		// Completing after the reopen must be refused, so the task is either
		// completed then reopened or reopened and left pending.
		got, err := s.GetTask(task.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.StatusPending {
			t.Fatalf("round %d: status = %s, want pending", i, got.Status)
		}
	}
}

func TestUpdateTaskStatusMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.UpdateTaskStatus("nope", model.StatusPending); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Time tracking
// ============================================================

func TestTrackingStatusFresh(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeOther)

	st, err := s.TrackingStatus(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.IsTrackingActive || st.TotalSessions != 0 || st.TotalTimeSeconds != 0 {
		t.Fatalf("unexpected fresh status: %+v", st)
	}
	if st.ActiveSessionStartedAt != nil {
		t.Fatal("no session should be active")
	}
}

func TestStartPauseAccumulates(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeOther)

	st, err := s.StartTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsTrackingActive || st.ActiveSessionStartedAt == nil {
		t.Fatalf("expected active session: %+v", st)
	}
	if !st.ActiveSessionStartedAt.Equal(clock.t) {
		t.Fatalf("started_at = %v, want %v", st.ActiveSessionStartedAt, clock.t)
	}

	clock.advance(5*time.Second + 700*time.Millisecond)
	st, err = s.PauseTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.IsTrackingActive {
		t.Fatal("session should be closed")
	}
	if st.TotalSessions != 1 {
		t.Fatalf("total_sessions = %d, want 1", st.TotalSessions)
	}
	if st.TotalTimeSeconds != 5 {
		t.Fatalf("total_time_seconds = %d, want 5 (floored)", st.TotalTimeSeconds)
	}

	clock.advance(time.Hour)
	s.StartTracking(task.ID)
	clock.advance(90 * time.Second)
	st, _ = s.PauseTracking(task.ID)
	if st.TotalTimeSeconds != 95 || st.TotalSessions != 2 {
		t.Fatalf("after second session: %+v", st)
	}

	got, _ := s.GetTask(task.ID)
	if got.TotalTimeSeconds != 95 {
		t.Fatalf("task total = %d, want 95", got.TotalTimeSeconds)
	}
}

func TestStartTwiceRejected(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeOther)

	if _, err := s.StartTracking(task.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartTracking(task.ID); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	sessions, _ := s.ListSessions(task.ID)
	active := 0
	for _, ss := range sessions {
		if ss.EndedAt == nil {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected exactly one active session, got %d", active)
	}
}

func TestOneActiveIndexBackstop(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeOther)
	s.StartTracking(task.ID)

	_, err := s.db.Exec(`INSERT INTO time_sessions (task_id, started_at) VALUES (?, ?)`,
		task.ID, formatTime(time.Now()))
	if err == nil {
		t.Fatal("unique index should reject a second open session")
	}
}

func TestPauseWhenNotActive(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeOther)

	s.StartTracking(task.ID)
	clock.advance(42 * time.Second)
	s.PauseTracking(task.ID)

	_, err := s.PauseTracking(task.ID)
	if !errors.Is(err, ErrNotActive) {
		t.Fatalf("expected ErrNotActive, got %v", err)
	}
	st, _ := s.TrackingStatus(task.ID)
	if st.TotalTimeSeconds != 42 || st.TotalSessions != 1 {
		t.Fatalf("pause on idle task changed totals: %+v", st)
	}
}

func TestStartThenImmediatePause(t *testing.T) {
	s := newTestStore(t)
	task := createTask(t, s, model.TypeOther)

	s.StartTracking(task.ID)
	st, err := s.PauseTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalTimeSeconds > 1 {
		t.Fatalf("immediate pause added %d seconds", st.TotalTimeSeconds)
	}
	if st.TotalSessions != 1 {
		t.Fatalf("total_sessions = %d, want 1", st.TotalSessions)
	}
}

func TestPauseWithClockSkew(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeOther)

	s.StartTracking(task.ID)
	clock.advance(-10 * time.Second)
	st, err := s.PauseTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalTimeSeconds != 0 {
		t.Fatalf("negative session contributed %d seconds", st.TotalTimeSeconds)
	}
}

func TestResetClearsTotals(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeOther)

	s.StartTracking(task.ID)
	clock.advance(time.Minute)
	s.PauseTracking(task.ID)

	st, err := s.ResetTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalTimeSeconds != 0 || st.TotalSessions != 0 {
		t.Fatalf("reset left totals: %+v", st)
	}
	if st.CanReset() {
		t.Fatal("reset should be gated again after reset")
	}
	sessions, _ := s.ListSessions(task.ID)
	if len(sessions) != 0 {
		t.Fatalf("expected sessions cleared, got %d", len(sessions))
	}
}

func TestResetWhileActiveClosesSession(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeOther)

	s.StartTracking(task.ID)
	clock.advance(30 * time.Second)
	s.PauseTracking(task.ID)
	s.StartTracking(task.ID)
	clock.advance(30 * time.Second)

	st, err := s.ResetTracking(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if st.IsTrackingActive {
		t.Fatal("reset should close the active session")
	}
	if st.TotalTimeSeconds != 0 || st.TotalSessions != 0 {
		t.Fatalf("reset left totals: %+v", st)
	}

	// A new session can be started afterwards.
	if _, err := s.StartTracking(task.ID); err != nil {
		t.Fatalf("start after reset: %v", err)
	}
}

func TestTrackingUnknownTask(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.StartTracking("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("start: expected ErrNotFound, got %v", err)
	}
	if _, err := s.PauseTracking("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("pause: expected ErrNotFound, got %v", err)
	}
	if _, err := s.ResetTracking("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("reset: expected ErrNotFound, got %v", err)
	}
	if _, err := s.TrackingStatus("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("status: expected ErrNotFound, got %v", err)
	}
}

func TestTrackingIndependentPerTask(t *testing.T) {
	s := newTestStore(t)
	a := createTask(t, s, model.TypeOther)
	b := createTask(t, s, model.TypeOther)

	if _, err := s.StartTracking(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartTracking(b.ID); err != nil {
		t.Fatalf("second task should track independently: %v", err)
	}
}

// ============================================================
// Comments
// ============================================================

func TestAddAndListComments(t *testing.T) {
	s := newTestStore(t)
	clock := withClock(s)
	task := createTask(t, s, model.TypeDocumentRequest)

	if _, err := s.AddComment(task.ID, "first"); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Second)
	c, err := s.AddComment(task.ID, "Document Re-request: blurry scan")
	if err != nil {
		t.Fatal(err)
	}
	if c.ID == "" || c.TaskID != task.ID {
		t.Fatalf("unexpected comment: %+v", c)
	}

	comments, err := s.ListComments(task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[1].Content != "Document Re-request: blurry scan" {
		t.Fatalf("order wrong: %+v", comments)
	}
}

func TestAddCommentUnknownTask(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.AddComment("ghost", "hello"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// ============================================================
// Appointments
// ============================================================

func createAppointment(t *testing.T, s *Store) *model.Appointment {
	t.Helper()
	a, err := s.CreateAppointment(model.Appointment{
		Date:        "2026-04-10",
		Time:        "14:30",
		ClientID:    "client-1",
		MeetingType: model.MeetingZoom,
	})
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestCreateAppointment(t *testing.T) {
	s := newTestStore(t)
	a := createAppointment(t, s)
	if a.Status != model.AppointmentPending {
		t.Fatalf("status = %s, want pending", a.Status)
	}
	if a.CancelReason != nil {
		t.Fatal("new appointment should have no reason")
	}

	_, err := s.CreateAppointment(model.Appointment{MeetingType: "carrier_pigeon"})
	if err == nil {
		t.Fatal("expected error for invalid meeting type")
	}
}

func TestApproveAppointment(t *testing.T) {
	s := newTestStore(t)
	a := createAppointment(t, s)

	got, err := s.UpdateAppointmentStatus(a.ID, model.ActionApprove, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.AppointmentConfirmed {
		t.Fatalf("status = %s, want confirmed", got.Status)
	}
}

func TestCancelAppointmentReason(t *testing.T) {
	s := newTestStore(t)

	blank := "   "
	a := createAppointment(t, s)
	got, err := s.UpdateAppointmentStatus(a.ID, model.ActionCancel, &blank)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.AppointmentCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.CancelReason != nil {
		t.Fatalf("blank reason should be stored as null, got %q", *got.CancelReason)
	}

	reason := "client travelling"
	b := createAppointment(t, s)
	got, _ = s.UpdateAppointmentStatus(b.ID, model.ActionCancel, &reason)
	if got.CancelReason == nil || *got.CancelReason != reason {
		t.Fatal("reason not recorded")
	}
}

func TestAppointmentOnlyFromPending(t *testing.T) {
	s := newTestStore(t)
	a := createAppointment(t, s)
	s.UpdateAppointmentStatus(a.ID, model.ActionApprove, nil)

	_, err := s.UpdateAppointmentStatus(a.ID, model.ActionCancel, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	got, _ := s.GetAppointment(a.ID)
	if got.Status != model.AppointmentConfirmed {
		t.Fatalf("rejected transition changed status to %s", got.Status)
	}

	if _, err := s.UpdateAppointmentStatus("ghost", model.ActionApprove, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListAppointments(t *testing.T) {
	s := newTestStore(t)
	a := createAppointment(t, s)
	createAppointment(t, s)
	s.UpdateAppointmentStatus(a.ID, model.ActionApprove, nil)

	all, _ := s.ListAppointments("")
	if len(all) != 2 {
		t.Fatalf("expected 2, got %d", len(all))
	}
	pending, _ := s.ListAppointments(model.AppointmentPending)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettings(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetSetting("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetSetting("theme", "dark"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("theme", "light"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSetting("theme")
	if err != nil || got != "light" {
		t.Fatalf("GetSetting = %q, %v", got, err)
	}
}

func TestJWTSecretStable(t *testing.T) {
	s := newTestStore(t)

	first, err := s.JWTSecret()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 64 {
		t.Fatalf("secret length = %d, want 64 hex chars", len(first))
	}
	second, err := s.JWTSecret()
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("secret changed between calls")
	}
}
