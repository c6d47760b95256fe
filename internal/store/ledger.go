package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// LedgerDelta is one commit's contribution to a contributor's running totals.
// All fields are additive; the timestamp folds in via min/max, so deltas for
// one contributor commute across processing order.
type LedgerDelta struct {
	ProjectID     int64
	Email         string
	Name          string
	LinesAdded    int
	LinesModified int
	LinesDeleted  int
	FilesChanged  int
	Languages     map[string]LineStats
	CommittedAt   time.Time
}

const ledgerColumns = `id, project_id, email, name, commits, lines_added,
	lines_modified, lines_deleted, files_changed, languages, first_commit_at,
	last_commit_at`

// ApplyLedgerDelta folds one commit into the (project, email) ledger entry,
// creating it on first sight. Runs inside the same transaction as the commit
// insert so at most one increment occurs per physical commit.
func (t *Tx) ApplyLedgerDelta(ctx context.Context, delta LedgerDelta) error {
	row := t.tx.QueryRowContext(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_entries WHERE project_id = ? AND email = ?",
		delta.ProjectID, delta.Email)

	existing, err := scanLedgerEntry(row)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return t.insertLedgerEntry(ctx, delta)
	case err != nil:
		return err
	default:
		return t.updateLedgerEntry(ctx, existing, delta)
	}
}

func (t *Tx) insertLedgerEntry(ctx context.Context, delta LedgerDelta) error {
	languages, err := encodeLanguages(delta.Languages)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO ledger_entries
			(project_id, email, name, commits, lines_added, lines_modified,
			 lines_deleted, files_changed, languages, first_commit_at, last_commit_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?, ?, ?)`,
		delta.ProjectID, delta.Email, delta.Name, delta.LinesAdded,
		delta.LinesModified, delta.LinesDeleted, delta.FilesChanged, languages,
		encodeTime(delta.CommittedAt), encodeTime(delta.CommittedAt))
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}

func (t *Tx) updateLedgerEntry(ctx context.Context, existing *LedgerEntry, delta LedgerDelta) error {
	merged := existing.Languages
	if merged == nil {
		merged = map[string]LineStats{}
	}

	for lang, stats := range delta.Languages {
		cur := merged[lang]
		cur.Added += stats.Added
		cur.Modified += stats.Modified
		cur.Deleted += stats.Deleted
		merged[lang] = cur
	}

	languages, err := encodeLanguages(merged)
	if err != nil {
		return err
	}

	first := existing.FirstCommitAt
	if delta.CommittedAt.Before(first) {
		first = delta.CommittedAt
	}

	last := existing.LastCommitAt
	if delta.CommittedAt.After(last) {
		last = delta.CommittedAt
	}

	name := existing.Name
	if name == "" {
		name = delta.Name
	}

	_, err = t.tx.ExecContext(ctx,
		`UPDATE ledger_entries SET
			name = ?, commits = commits + 1,
			lines_added = lines_added + ?, lines_modified = lines_modified + ?,
			lines_deleted = lines_deleted + ?, files_changed = files_changed + ?,
			languages = ?, first_commit_at = ?, last_commit_at = ?
		 WHERE id = ?`,
		name, delta.LinesAdded, delta.LinesModified, delta.LinesDeleted,
		delta.FilesChanged, languages, encodeTime(first), encodeTime(last),
		existing.ID)
	if err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}

	return nil
}

// ListLedger returns a project's contributor entries ordered by commit count.
func (s *Store) ListLedger(ctx context.Context, projectID int64) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+ledgerColumns+" FROM ledger_entries WHERE project_id = ? ORDER BY commits DESC, email",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []LedgerEntry

	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list ledger rows: %w", err)
	}

	return out, nil
}

func scanLedgerEntry(row rowScanner) (*LedgerEntry, error) {
	var (
		entry     LedgerEntry
		languages string
		first     string
		last      string
	)

	err := row.Scan(&entry.ID, &entry.ProjectID, &entry.Email, &entry.Name,
		&entry.Commits, &entry.LinesAdded, &entry.LinesModified,
		&entry.LinesDeleted, &entry.FilesChanged, &languages, &first, &last)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}

		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}

	if entry.Languages, err = decodeLanguages(languages); err != nil {
		return nil, err
	}

	if entry.FirstCommitAt, err = decodeTime(first); err != nil {
		return nil, err
	}

	if entry.LastCommitAt, err = decodeTime(last); err != nil {
		return nil, err
	}

	return &entry, nil
}
