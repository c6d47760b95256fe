package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const projectColumns = "id, key, external_id, html_url, secret, created_at"

// CreateProject registers a tracked repository.
func (s *Store) CreateProject(ctx context.Context, project *Project) error {
	now := time.Now()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (key, external_id, html_url, secret, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		project.Key, project.ExternalID, project.HTMLURL, project.Secret, encodeTime(now))
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create project id: %w", err)
	}

	project.ID = id
	project.CreatedAt = now.UTC()

	return nil
}

// ProjectByKey looks a project up by its local key.
func (s *Store) ProjectByKey(ctx context.Context, key string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+projectColumns+" FROM projects WHERE key = ?", key)

	return scanProject(row)
}

// ProjectByRepository resolves a project from the payload's repository
// identity: the external numeric id first, then the html_url.
func (s *Store) ProjectByRepository(ctx context.Context, externalID int64, htmlURL string) (*Project, error) {
	if externalID != 0 {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+projectColumns+" FROM projects WHERE external_id = ?", externalID)

		project, err := scanProject(row)
		if err == nil {
			return project, nil
		}

		if !errors.Is(err, ErrProjectNotFound) {
			return nil, err
		}
	}

	if htmlURL != "" {
		row := s.db.QueryRowContext(ctx,
			"SELECT "+projectColumns+" FROM projects WHERE html_url = ?", htmlURL)

		return scanProject(row)
	}

	return nil, ErrProjectNotFound
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		project   Project
		createdAt string
	)

	err := row.Scan(&project.ID, &project.Key, &project.ExternalID,
		&project.HTMLURL, &project.Secret, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}

	if project.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}

	return &project, nil
}
