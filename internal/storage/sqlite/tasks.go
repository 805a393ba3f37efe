package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/housemerge/internal/models"
	"github.com/mmynk/housemerge/internal/storage"
)

// CreateTask persists a new task.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt == 0 {
		task.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO tasks (id, group_id, title, assigned_to_person_id, created_at) VALUES (?, ?, ?, ?, ?)",
		task.ID, task.GroupID, task.Title, nullString(task.AssignedToPersonID), task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	task := &models.Task{}
	var assignee sql.NullString

	err := s.db.QueryRowContext(ctx,
		"SELECT id, group_id, title, assigned_to_person_id, created_at FROM tasks WHERE id = ?",
		id,
	).Scan(&task.ID, &task.GroupID, &task.Title, &assignee, &task.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	task.AssignedToPersonID = assignee.String
	return task, nil
}

// CreateRecurringTask persists a new recurring task.
func (s *SQLiteStore) CreateRecurringTask(ctx context.Context, task *models.RecurringTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt == 0 {
		task.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recurring_tasks (id, group_id, title, cadence, assigned_to_person_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		task.ID, task.GroupID, task.Title, task.Cadence, nullString(task.AssignedToPersonID), task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring task: %w", err)
	}
	return nil
}

// GetRecurringTask retrieves a recurring task by ID.
func (s *SQLiteStore) GetRecurringTask(ctx context.Context, id string) (*models.RecurringTask, error) {
	task := &models.RecurringTask{}
	var assignee sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, title, cadence, assigned_to_person_id, created_at
		 FROM recurring_tasks WHERE id = ?`,
		id,
	).Scan(&task.ID, &task.GroupID, &task.Title, &task.Cadence, &assignee, &task.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recurring task %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring task: %w", err)
	}

	task.AssignedToPersonID = assignee.String
	return task, nil
}

// ownerColumns lists the single-owner person references that a merge rewrites.
var ownerColumns = map[string]string{
	"tasks":           "assigned_to_person_id",
	"recurring_tasks": "assigned_to_person_id",
	"expenses":        "paid_by_person_id",
}

// reassignOwner rewrites table's owner column from one person to another and
// returns the number of rows changed.
func reassignOwner(ctx context.Context, q querier, table, fromPersonID, toPersonID string) (int, error) {
	column, ok := ownerColumns[table]
	if !ok {
		return 0, fmt.Errorf("no owner column for table %q", table)
	}

	res, err := q.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s = ? WHERE %s = ?", table, column, column),
		toPersonID, fromPersonID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reassign %s: %w", table, err)
	}
	return rowsAffected(res)
}
