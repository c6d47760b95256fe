// Package stats derives per-commit code-change statistics. The authoritative
// source is the provider's commit-detail API; when it is unreachable the
// extractor degrades to counting the payload's file name lists.
package stats

// ChangeKind classifies one touched file.
type ChangeKind string

// File change kinds.
const (
	KindAdded    ChangeKind = "added"
	KindModified ChangeKind = "modified"
	KindDeleted  ChangeKind = "deleted"
)

// FileChange is the per-file slice of a commit's statistics.
type FileChange struct {
	Path     string
	Kind     ChangeKind
	Added    int
	Deleted  int
	Modified int
	Language string
}

// CommitStats is the extracted statistics for one commit.
// Degraded marks fallback numbers: file counts only, zero line deltas.
type CommitStats struct {
	Added        int
	Modified     int
	Deleted      int
	FilesChanged int
	Files        []FileChange
	Degraded     bool
}

// CommitDetail is the remote commit-detail API response shape.
type CommitDetail struct {
	Stats struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
	} `json:"stats"`
	Files []DetailFile `json:"files"`
}

// DetailFile is one file entry of the remote commit detail.
type DetailFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
	Changes   int    `json:"changes"`
}

// allZero reports whether the remote response carries no usable numbers,
// which is treated the same as a failed fetch.
func (d *CommitDetail) allZero() bool {
	if d.Stats.Additions != 0 || d.Stats.Deletions != 0 {
		return false
	}

	for _, file := range d.Files {
		if file.Changes != 0 || file.Additions != 0 || file.Deletions != 0 {
			return false
		}
	}

	return true
}
