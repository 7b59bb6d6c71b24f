package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskboard/internal/models"
)

const taskColumns = "id, owner_id, title, description, created_at, updated_at, user_name, user_surname"

func scanTask(row rowScanner) (*models.Task, error) {
	var t models.Task
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.UserName, &t.UserSurname); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return &t, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning tasks: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tasks: %w", err)
	}
	return tasks, nil
}

// CreateTask inserts a task owned by ownerID. The owner's current name is
// copied into the row and is not updated afterwards.
func (s *Store) CreateTask(ctx context.Context, in models.NewTask, ownerID int) (*models.TaskSummary, error) {
	owner, err := s.queryUser(ctx, "id = $1", ownerID)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	var id int
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO tasks (owner_id, title, description, created_at, updated_at, user_name, user_surname)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		owner.ID, in.Title, in.Description, now, now, owner.UserName, owner.UserSurname,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}

	return &models.TaskSummary{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		UserName:    owner.UserName,
		UserSurname: owner.UserSurname,
	}, nil
}

func (s *Store) ListTasks(ctx context.Context, skip, limit int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY id LIMIT $1 OFFSET $2", limit, skip)
	if err != nil {
		return nil, fmt.Errorf("error fetching tasks: %w", err)
	}
	return collectTasks(rows)
}

// ListTasksByOwner returns an empty slice, not an error, when ownerID owns
// no tasks.
func (s *Store) ListTasksByOwner(ctx context.Context, ownerID, skip, limit int) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id = $1 ORDER BY id LIMIT $2 OFFSET $3",
		ownerID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("error fetching tasks: %w", err)
	}
	return collectTasks(rows)
}

func (s *Store) GetTask(ctx context.Context, id int) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

// GetTaskByOwner finds task taskID only if ownerID owns it.
func (s *Store) GetTaskByOwner(ctx context.Context, ownerID, taskID int) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE owner_id = $1 AND id = $2", ownerID, taskID)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error deleting task: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateTask replaces title and description and moves updated_at to now.
// A nil description clears the column.
func (s *Store) UpdateTask(ctx context.Context, id int, title string, description *string) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		"UPDATE tasks SET title = $1, description = $2, updated_at = $3 WHERE id = $4 RETURNING "+taskColumns,
		title, description, s.timestamp(), id)
	t, err := scanTask(row)
	if err != nil {
		if err = notFound(err); errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating task: %w", err)
	}
	return t, nil
}
