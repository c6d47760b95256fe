package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/commitflow/internal/directive"
)

const taskColumns = `id, project_id, feature_code, title, status, assignee_id,
	sprint, backlog_priority, story_points, estimate_minutes, task_type, tags,
	created_at, updated_at`

// TaskByFeature looks a task up by its (project, feature code) key inside the
// ingestion transaction.
func (t *Tx) TaskByFeature(ctx context.Context, projectID int64, featureCode string) (*Task, error) {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? AND feature_code = ?",
		projectID, featureCode)

	return scanTask(row)
}

// CreateTask persists a newly reconciled task.
func (t *Tx) CreateTask(ctx context.Context, task *Task) error {
	now := time.Now()

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO tasks
			(project_id, feature_code, title, status, assignee_id, sprint,
			 backlog_priority, story_points, estimate_minutes, task_type, tags,
			 created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ProjectID, task.FeatureCode, task.Title, string(task.Status),
		task.AssigneeID, task.Sprint, task.BacklogPriority, task.StoryPoints,
		task.EstimateMinutes, task.TaskType, tags, encodeTime(now), encodeTime(now))
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create task id: %w", err)
	}

	task.ID = id
	task.CreatedAt = now.UTC()
	task.UpdatedAt = now.UTC()

	return nil
}

// UpdateTask persists the reconciled field diff of an existing task.
func (t *Tx) UpdateTask(ctx context.Context, task *Task) error {
	now := time.Now()

	tags, err := encodeTags(task.Tags)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx,
		`UPDATE tasks SET
			title = ?, status = ?, assignee_id = ?, sprint = ?,
			backlog_priority = ?, story_points = ?, estimate_minutes = ?,
			task_type = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		task.Title, string(task.Status), task.AssigneeID, task.Sprint,
		task.BacklogPriority, task.StoryPoints, task.EstimateMinutes,
		task.TaskType, tags, encodeTime(now), task.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}

	task.UpdatedAt = now.UTC()

	return nil
}

// ListTasks returns a project's tasks ordered by feature code.
func (s *Store) ListTasks(ctx context.Context, projectID int64) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY feature_code",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Task

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks rows: %w", err)
	}

	return out, nil
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		task      Task
		status    string
		tags      string
		createdAt string
		updatedAt string
	)

	err := row.Scan(&task.ID, &task.ProjectID, &task.FeatureCode, &task.Title,
		&status, &task.AssigneeID, &task.Sprint, &task.BacklogPriority,
		&task.StoryPoints, &task.EstimateMinutes, &task.TaskType, &tags,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan task: %w", err)
	}

	task.Status = directive.Status(status)

	if task.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}

	if task.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}

	if task.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}

	return &task, nil
}
