package stats

import (
	"context"
	"log/slog"
	"path"
	"time"

	"github.com/src-d/enry/v2"
)

// Remote file status values that map directly onto change kinds.
const (
	remoteStatusAdded   = "added"
	remoteStatusRemoved = "removed"
)

// Extractor computes commit statistics, preferring the remote detail API and
// degrading to file-count-only numbers. A failure on this path never aborts
// ingestion; it only lowers the quality of the recorded statistics.
type Extractor struct {
	fetcher DetailFetcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewExtractor creates an extractor. The timeout bounds each remote fetch so
// a slow provider cannot hold up the surrounding ingestion.
func NewExtractor(fetcher DetailFetcher, timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{fetcher: fetcher, timeout: timeout, logger: logger}
}

// Input is the per-commit raw material for extraction.
type Input struct {
	DetailURL string
	Added     []string
	Removed   []string
	Modified  []string
}

// Extract returns statistics for one commit. The result is always usable;
// Degraded marks the fallback path.
func (e *Extractor) Extract(ctx context.Context, in Input) CommitStats {
	if e.fetcher != nil && in.DetailURL != "" {
		detail, err := e.fetchBounded(ctx, in.DetailURL)

		switch {
		case err != nil:
			e.logger.WarnContext(ctx, "commit detail fetch failed, using degraded stats",
				"url", in.DetailURL, "error", err)
		case detail.allZero():
			e.logger.WarnContext(ctx, "commit detail all-zero, using degraded stats",
				"url", in.DetailURL)
		default:
			return fromDetail(detail)
		}
	}

	return fromFileLists(in)
}

func (e *Extractor) fetchBounded(ctx context.Context, url string) (*CommitDetail, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	return e.fetcher.FetchCommitDetail(ctx, url)
}

// fromDetail builds authoritative statistics. Per file,
// modified = max(0, changes - additions - deletions); the commit-level
// modified total is the sum across files.
func fromDetail(detail *CommitDetail) CommitStats {
	out := CommitStats{
		Added:        detail.Stats.Additions,
		Deleted:      detail.Stats.Deletions,
		FilesChanged: len(detail.Files),
		Files:        make([]FileChange, 0, len(detail.Files)),
	}

	for _, file := range detail.Files {
		modified := file.Changes - file.Additions - file.Deletions
		if modified < 0 {
			modified = 0
		}

		out.Modified += modified
		out.Files = append(out.Files, FileChange{
			Path:     file.Filename,
			Kind:     kindFromRemoteStatus(file.Status),
			Added:    file.Additions,
			Deleted:  file.Deletions,
			Modified: modified,
			Language: DetectLanguage(file.Filename),
		})
	}

	return out
}

// fromFileLists builds degraded statistics from the payload's name lists:
// files-changed counts only, zero line deltas.
func fromFileLists(in Input) CommitStats {
	out := CommitStats{
		FilesChanged: len(in.Added) + len(in.Removed) + len(in.Modified),
		Degraded:     true,
	}

	appendNames := func(names []string, kind ChangeKind) {
		for _, name := range names {
			out.Files = append(out.Files, FileChange{
				Path:     name,
				Kind:     kind,
				Language: DetectLanguage(name),
			})
		}
	}

	appendNames(in.Added, KindAdded)
	appendNames(in.Removed, KindDeleted)
	appendNames(in.Modified, KindModified)

	return out
}

func kindFromRemoteStatus(status string) ChangeKind {
	switch status {
	case remoteStatusAdded:
		return KindAdded
	case remoteStatusRemoved:
		return KindDeleted
	default:
		return KindModified
	}
}

// DetectLanguage classifies a file by name. Content is unavailable here, so
// detection rides on extension and filename heuristics.
func DetectLanguage(name string) string {
	return enry.GetLanguage(path.Base(name), nil)
}
