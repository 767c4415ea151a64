package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sadopc/preptrack/internal/model"
)

const taskColumns = `id, title, status, task_type, folder_id, total_time_seconds, spouse_sign,
	assignee_id, client_ids, file_ids, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

// CreateTask validates t, assigns it an id and stores it. A zero status
// becomes to_do.
func (s *Store) CreateTask(t model.Task) (*model.Task, error) {
	if t.Status == "" {
		t.Status = model.StatusToDo
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	now := formatTime(s.timestamp())
	_, err := s.db.Exec(
		`INSERT INTO tasks (id, title, status, task_type, folder_id, spouse_sign, assignee_id,
			client_ids, file_ids, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.Title, t.Status, t.TaskType, t.FolderID, boolInt(t.SpouseSign), t.AssigneeID,
		joinIDs(t.ClientIDs), joinIDs(t.FileIDs), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(id)
}

func (s *Store) GetTask(id string) (*model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) ListTasks(f model.TaskFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if f.AssigneeID != "" {
		query += ` AND assignee_id = ?`
		args = append(args, f.AssigneeID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus applies a status proposal. Any valid status is accepted
// except that a document or signature request reaches completed only from
// submitted.
func (s *Store) UpdateTaskStatus(id string, status model.TaskStatus) (*model.Task, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidTaskStatus
	}
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer tx.Rollback()

	var current model.TaskStatus
	var typ model.TaskType
	err = tx.QueryRow(`SELECT status, task_type FROM tasks WHERE id = ?`, id).Scan(&current, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task status: %w", err)
	}
	if status == model.StatusCompleted && typ.Approvable() && current != model.StatusSubmitted {
		return nil, fmt.Errorf("%w: %s task must be submitted before it is completed (currently %s)",
			ErrInvalidTransition, typ, current)
	}
	if _, err := tx.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, formatTime(s.timestamp()), id,
	); err != nil {
		return nil, fmt.Errorf("update task status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}
	return s.GetTask(id)
}

func scanTask(row scanner) (*model.Task, error) {
	t := &model.Task{}
	var folderID, assigneeID sql.NullString
	var spouse int
	var clientIDs, fileIDs, createdAt, updatedAt string
	err := row.Scan(&t.ID, &t.Title, &t.Status, &t.TaskType, &folderID, &t.TotalTimeSeconds, &spouse,
		&assigneeID, &clientIDs, &fileIDs, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		t.FolderID = &folderID.String
	}
	if assigneeID.Valid {
		t.AssigneeID = &assigneeID.String
	}
	t.SpouseSign = spouse == 1
	t.ClientIDs = splitIDs(clientIDs)
	t.FileIDs = splitIDs(fileIDs)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
