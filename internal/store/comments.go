package store

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sadopc/preptrack/internal/model"
)

func (s *Store) AddComment(taskID, content string) (*model.Comment, error) {
	if _, err := s.GetTask(taskID); err != nil {
		return nil, err
	}
	c := &model.Comment{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Content:   content,
		CreatedAt: s.timestamp(),
	}
	_, err := s.db.Exec(
		`INSERT INTO comments (id, task_id, content, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.TaskID, c.Content, formatTime(c.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

// ListComments returns the task's comments, oldest first.
func (s *Store) ListComments(taskID string) ([]model.Comment, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, content, created_at FROM comments WHERE task_id = ? ORDER BY created_at, rowid`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var createdAt string
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Content, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = parseTime(createdAt)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
