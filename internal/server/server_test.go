package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/store"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	srv   *Server
	store *store.Store
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	token, err := MintToken(testSecret, "prep-1", "preparer", time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return &testServer{srv: New(s, testSecret), store: s, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.token)
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func (ts *testServer) createTask(t *testing.T, typ model.TaskType) model.Task {
	t.Helper()
	body := map[string]any{"title": "Upload 1099s", "task_type": typ}
	if typ.RequiresFolder() {
		body["folder_id"] = "folder-1"
	}
	w := ts.do(t, http.MethodPost, "/api/tasks", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: %d %s", w.Code, w.Body.String())
	}
	return decode[model.Task](t, w)
}

// ============================================================
// Auth
// ============================================================

func TestMissingToken(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestBadToken(t *testing.T) {
	ts := newTestServer(t)
	other, _ := MintToken("another-secret", "prep-1", "preparer", time.Hour)
	ts.token = other
	w := ts.do(t, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	expired, _ := MintToken(testSecret, "prep-1", "preparer", -time.Minute)
	ts.token = expired
	w := ts.do(t, http.MethodGet, "/api/tasks", nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateTaskValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/tasks", map[string]any{"task_type": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid type: expected 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, "/api/tasks", map[string]any{"task_type": "document_request"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing folder: expected 400, got %d", w.Code)
	}
}

func TestGetTask(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, model.TypeDocumentRequest)

	w := ts.do(t, http.MethodGet, "/api/tasks/"+task.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[model.Task](t, w)
	if got.ID != task.ID || got.Status != model.StatusToDo {
		t.Fatalf("unexpected task: %+v", got)
	}

	w = ts.do(t, http.MethodGet, "/api/tasks/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListTasksAssignedToMe(t *testing.T) {
	ts := newTestServer(t)
	me, other := "prep-1", "prep-2"
	ts.store.CreateTask(model.Task{TaskType: model.TypeOther, AssigneeID: &me})
	ts.store.CreateTask(model.Task{TaskType: model.TypeOther, AssigneeID: &other})

	w := ts.do(t, http.MethodGet, "/api/tasks?assignee=me", nil)
	tasks := decode[[]model.Task](t, w)
	if len(tasks) != 1 || *tasks[0].AssigneeID != "prep-1" {
		t.Fatalf("expected only my task, got %+v", tasks)
	}
}

func TestUpdateTaskStatusRejected(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, model.TypeSignatureRequest)

	w := ts.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "completed"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["error"] == "" {
		t.Fatal("rejection should carry a reason")
	}

	w = ts.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "done"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", map[string]string{"status": "submitted"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if decode[model.Task](t, w).Status != model.StatusSubmitted {
		t.Fatal("status not applied")
	}
}

// ============================================================
// Time tracking
// ============================================================

func TestTrackingLifecycle(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, model.TypeOther)
	base := "/api/tasks/" + task.ID + "/time-tracking"

	w := ts.do(t, http.MethodPost, base+"/start", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start: %d %s", w.Code, w.Body.String())
	}
	st := decode[model.TrackingStatus](t, w)
	if !st.IsTrackingActive || st.ActiveSessionStartedAt == nil {
		t.Fatalf("expected active: %+v", st)
	}

	w = ts.do(t, http.MethodPost, base+"/start", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second start: expected 409, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, base+"/pause", nil)
	st = decode[model.TrackingStatus](t, w)
	if st.IsTrackingActive || st.TotalSessions != 1 {
		t.Fatalf("after pause: %+v", st)
	}

	w = ts.do(t, http.MethodPost, base+"/pause", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second pause: expected 409, got %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, base+"/sessions", nil)
	sessions := decode[[]model.Session](t, w)
	if len(sessions) != 1 || sessions[0].EndedAt == nil {
		t.Fatalf("sessions = %+v", sessions)
	}

	w = ts.do(t, http.MethodPost, base+"/reset", nil)
	st = decode[model.TrackingStatus](t, w)
	if st.TotalSessions != 0 || st.TotalTimeSeconds != 0 {
		t.Fatalf("after reset: %+v", st)
	}
}

func TestTrackingUnknownTask(t *testing.T) {
	ts := newTestServer(t)
	for _, path := range []string{"/start", "/pause", "/reset"} {
		w := ts.do(t, http.MethodPost, "/api/tasks/ghost/time-tracking"+path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, w.Code)
		}
	}
}

// ============================================================
// Comments
// ============================================================

func TestComments(t *testing.T) {
	ts := newTestServer(t)
	task := ts.createTask(t, model.TypeDocumentRequest)
	path := "/api/tasks/" + task.ID + "/comments"

	w := ts.do(t, http.MethodPost, path, map[string]string{"content": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty comment: expected 400, got %d", w.Code)
	}

	w = ts.do(t, http.MethodPost, path, map[string]string{"content": "Document Re-request: blurry scan"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add comment: %d", w.Code)
	}

	w = ts.do(t, http.MethodGet, path, nil)
	comments := decode[[]model.Comment](t, w)
	if len(comments) != 1 || comments[0].Content != "Document Re-request: blurry scan" {
		t.Fatalf("comments = %+v", comments)
	}
}

// ============================================================
// Appointments
// ============================================================

func (ts *testServer) createAppointment(t *testing.T) model.Appointment {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/appointments", map[string]string{
		"appointment_date": "2026-04-15",
		"appointment_time": "09:30",
		"client_id":        "client-9",
		"meeting_type":     "in_person",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create appointment: %d %s", w.Code, w.Body.String())
	}
	return decode[model.Appointment](t, w)
}

func TestAppointmentApprove(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createAppointment(t)

	w := ts.do(t, http.MethodPost, "/api/appointments/"+a.ID+"/status", map[string]string{"action": "approve"})
	if w.Code != http.StatusOK {
		t.Fatalf("approve: %d", w.Code)
	}
	if decode[model.Appointment](t, w).Status != model.AppointmentConfirmed {
		t.Fatal("expected confirmed")
	}

	w = ts.do(t, http.MethodPost, "/api/appointments/"+a.ID+"/status", map[string]string{"action": "cancel"})
	if w.Code != http.StatusConflict {
		t.Fatalf("cancel confirmed: expected 409, got %d", w.Code)
	}
}

func TestAppointmentCancelWithoutReason(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createAppointment(t)

	w := ts.do(t, http.MethodPost, "/api/appointments/"+a.ID+"/status", map[string]any{"action": "cancel", "reason": nil})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel: %d", w.Code)
	}
	got := decode[model.Appointment](t, w)
	if got.Status != model.AppointmentCancelled || got.CancelReason != nil {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestAppointmentBadAction(t *testing.T) {
	ts := newTestServer(t)
	a := ts.createAppointment(t)
	w := ts.do(t, http.MethodPost, "/api/appointments/"+a.ID+"/status", map[string]string{"action": "reschedule"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, http.MethodPost, "/api/appointments", map[string]string{
		"appointment_date": "15/04/2026",
		"appointment_time": "09:30",
		"client_id":        "client-9",
		"meeting_type":     "zoom",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
