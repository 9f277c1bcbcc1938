// ABOUTME: Task persistence for extracted and user-created tasks
// ABOUTME: Due dates are stored as bare calendar dates, timestamps as RFC3339

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dueDateFormat is the column format for due dates. Tasks carry a calendar
// date with no meaningful time component.
const dueDateFormat = "2006-01-02"

// CreateTask inserts a new task. Always creates a new row: deduplication of
// repeated pipeline deliveries is the orchestrator's job, not this one's.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (id, user_id, title, description, due_date, completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		nullString(task.Description),
		dueDateValue(task.DueDate),
		boolToInt(task.Completed),
		task.CreatedAt.Format(time.RFC3339),
		task.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	s.logger.Debug("created task", "id", task.ID, "user_id", task.UserID, "title", task.Title)
	return nil
}

// GetTask retrieves a task by ID.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, user_id, title, description, due_date, completed, created_at, updated_at
		FROM tasks
		WHERE id = ?
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id), s)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}

	return task, nil
}

// ListTasks returns a user's tasks, newest first, optionally filtered by
// completion state.
func (s *SQLiteStore) ListTasks(ctx context.Context, userID string, filter TaskFilter) ([]*Task, error) {
	query := `
		SELECT id, user_id, title, description, due_date, completed, created_at, updated_at
		FROM tasks
		WHERE user_id = ?
	`
	args := []any{userID}

	if filter.Completed != nil {
		query += ` AND completed = ?`
		args = append(args, boolToInt(*filter.Completed))
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows, s)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task rows: %w", err)
	}

	return tasks, nil
}

// UpdateTask rewrites a task's mutable fields.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) UpdateTask(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, completed = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		nullString(task.Description),
		dueDateValue(task.DueDate),
		boolToInt(task.Completed),
		task.UpdatedAt.Format(time.RFC3339),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteTask removes a task by ID.
// Returns ErrNotFound if the task doesn't exist.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted task", "id", id)
	return nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner, s *SQLiteStore) (*Task, error) {
	var task Task
	var description, dueDate sql.NullString
	var completed int
	var createdAt, updatedAt string

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&dueDate,
		&completed,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Completed = completed != 0
	task.CreatedAt = parseTime(s.logger, "task created_at", task.ID, createdAt)
	task.UpdatedAt = parseTime(s.logger, "task updated_at", task.ID, updatedAt)

	if dueDate.Valid {
		parsed, err := time.Parse(dueDateFormat, dueDate.String)
		if err != nil {
			s.logger.Warn("failed to parse task due_date", "id", task.ID, "error", err)
		} else {
			task.DueDate = &parsed
		}
	}

	return &task, nil
}

func dueDateValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return d.Format(dueDateFormat)
}
