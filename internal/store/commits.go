package store

import (
	"context"
	"fmt"
	"time"
)

// CommitExists reports whether a commit is already recorded for the project.
// This is the cheap pre-check; the authoritative race arbiter is the UNIQUE
// constraint consulted by InsertCommit.
func (s *Store) CommitExists(ctx context.Context, projectID int64, hash string) (bool, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM commits WHERE project_id = ? AND hash = ?",
		projectID, hash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check commit exists: %w", err)
	}

	return count > 0, nil
}

// InsertCommit records a commit. It reports inserted=false when another
// delivery already recorded (project, hash); the conflict is swallowed so a
// redelivery race resolves to exactly one winner with no error.
func (t *Tx) InsertCommit(ctx context.Context, record *CommitRecord) (inserted bool, err error) {
	now := time.Now()

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO commits
			(project_id, hash, message, author_name, author_email, authored_at,
			 source_url, lines_added, lines_modified, lines_deleted, files_changed,
			 degraded, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project_id, hash) DO NOTHING`,
		record.ProjectID, record.Hash, record.Message, record.AuthorName,
		record.AuthorEmail, encodeTime(record.AuthoredAt), record.SourceURL,
		record.LinesAdded, record.LinesModified, record.LinesDeleted,
		record.FilesChanged, record.Degraded, encodeTime(now))
	if err != nil {
		return false, fmt.Errorf("insert commit: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert commit affected: %w", err)
	}

	if affected == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("insert commit id: %w", err)
	}

	record.ID = id
	record.CreatedAt = now.UTC()

	return true, nil
}

// InsertFileChanges records the per-file slices of a commit.
func (t *Tx) InsertFileChanges(ctx context.Context, commitID int64, changes []FileChangeRecord) error {
	for _, change := range changes {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO file_changes
				(commit_id, path, change_kind, lines_added, lines_deleted, lines_modified, language)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			commitID, change.Path, change.ChangeKind, change.LinesAdded,
			change.LinesDeleted, change.LinesModified, change.Language)
		if err != nil {
			return fmt.Errorf("insert file change %s: %w", change.Path, err)
		}
	}

	return nil
}

// LinkCommitToTask attaches a recorded commit to the task it resolved against.
func (t *Tx) LinkCommitToTask(ctx context.Context, commitID, taskID int64) error {
	_, err := t.tx.ExecContext(ctx,
		"UPDATE commits SET task_id = ? WHERE id = ?", taskID, commitID)
	if err != nil {
		return fmt.Errorf("link commit to task: %w", err)
	}

	return nil
}

// ListCommits returns a project's commits, newest first.
func (s *Store) ListCommits(ctx context.Context, projectID int64, limit int) ([]CommitRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, hash, message, author_name, author_email, authored_at,
		        source_url, lines_added, lines_modified, lines_deleted, files_changed,
		        degraded, task_id, created_at
		 FROM commits WHERE project_id = ?
		 ORDER BY authored_at DESC LIMIT ?`,
		projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CommitRecord

	for rows.Next() {
		var (
			record     CommitRecord
			authoredAt string
			createdAt  string
		)

		err := rows.Scan(&record.ID, &record.ProjectID, &record.Hash, &record.Message,
			&record.AuthorName, &record.AuthorEmail, &authoredAt, &record.SourceURL,
			&record.LinesAdded, &record.LinesModified, &record.LinesDeleted,
			&record.FilesChanged, &record.Degraded, &record.TaskID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}

		if record.AuthoredAt, err = decodeTime(authoredAt); err != nil {
			return nil, err
		}

		if record.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, err
		}

		out = append(out, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list commits rows: %w", err)
	}

	return out, nil
}

// FileChangesByCommit returns the per-file records of one commit.
func (s *Store) FileChangesByCommit(ctx context.Context, commitID int64) ([]FileChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, commit_id, path, change_kind, lines_added, lines_deleted, lines_modified, language
		 FROM file_changes WHERE commit_id = ? ORDER BY id`,
		commitID)
	if err != nil {
		return nil, fmt.Errorf("list file changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []FileChangeRecord

	for rows.Next() {
		var change FileChangeRecord

		err := rows.Scan(&change.ID, &change.CommitID, &change.Path, &change.ChangeKind,
			&change.LinesAdded, &change.LinesDeleted, &change.LinesModified, &change.Language)
		if err != nil {
			return nil, fmt.Errorf("scan file change: %w", err)
		}

		out = append(out, change)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list file changes rows: %w", err)
	}

	return out, nil
}
