package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/commitflow/internal/directive"
)

// timeLayout is the canonical column format for timestamps. UTC RFC3339
// strings compare correctly both in Go and lexicographically in SQL.
const timeLayout = time.RFC3339Nano

// Project is a tracked repository with its webhook shared secret.
type Project struct {
	ID         int64
	Key        string
	ExternalID int64
	HTMLURL    string
	Secret     string
	CreatedAt  time.Time
}

// User is a known contributor that assignee tokens resolve against.
type User struct {
	ID       int64
	Nickname string
	Email    string
	Name     string
}

// CommitRecord is the persisted, queryable form of an inbound commit plus its
// extracted statistics and an optional link to the task it resolved against.
type CommitRecord struct {
	ID            int64
	ProjectID     int64
	Hash          string
	Message       string
	AuthorName    string
	AuthorEmail   string
	AuthoredAt    time.Time
	SourceURL     string
	LinesAdded    int
	LinesModified int
	LinesDeleted  int
	FilesChanged  int
	Degraded      bool
	TaskID        *int64
	CreatedAt     time.Time
}

// FileChangeRecord is one touched file of a commit.
type FileChangeRecord struct {
	ID            int64
	CommitID      int64
	Path          string
	ChangeKind    string
	LinesAdded    int
	LinesDeleted  int
	LinesModified int
	Language      string
}

// Task is the reconciled task state, keyed by (project, feature code).
type Task struct {
	ID              int64
	ProjectID       int64
	FeatureCode     string
	Title           string
	Status          directive.Status
	AssigneeID      *int64
	Sprint          *string
	BacklogPriority *string
	StoryPoints     *int
	EstimateMinutes *int
	TaskType        *string
	Tags            []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LineStats is a per-language slice of ledger line counters.
type LineStats struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Deleted  int `json:"deleted"`
}

// LedgerEntry is the per-(project, contributor email) running totals row.
// All counters are updated by addition only; the timestamps track min/max.
type LedgerEntry struct {
	ID            int64
	ProjectID     int64
	Email         string
	Name          string
	Commits       int
	LinesAdded    int
	LinesModified int
	LinesDeleted  int
	FilesChanged  int
	Languages     map[string]LineStats
	FirstCommitAt time.Time
	LastCommitAt  time.Time
}

func encodeTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func decodeTime(raw string) (time.Time, error) {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", raw, err)
	}

	return t, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}

	return string(raw), nil
}

func decodeTags(raw string) ([]string, error) {
	var tags []string

	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	return tags, nil
}

func encodeLanguages(langs map[string]LineStats) (string, error) {
	if langs == nil {
		langs = map[string]LineStats{}
	}

	raw, err := json.Marshal(langs)
	if err != nil {
		return "", fmt.Errorf("encode languages: %w", err)
	}

	return string(raw), nil
}

func decodeLanguages(raw string) (map[string]LineStats, error) {
	langs := map[string]LineStats{}

	if err := json.Unmarshal([]byte(raw), &langs); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}

	return langs, nil
}
