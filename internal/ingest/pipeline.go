// Package ingest orchestrates the per-payload pipeline: authenticate,
// archive, deduplicate, extract statistics, apply the commit-message
// directive, and fold the contributor ledger. All writes for one commit
// happen in one transaction keyed to the dedup winner, so redelivered
// payloads leave the store byte-identical.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/commitflow/internal/cache"
	"github.com/Sumatoshi-tech/commitflow/internal/directive"
	"github.com/Sumatoshi-tech/commitflow/internal/notify"
	"github.com/Sumatoshi-tech/commitflow/internal/signature"
	"github.com/Sumatoshi-tech/commitflow/internal/stats"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
	"github.com/Sumatoshi-tech/commitflow/internal/task"
	"github.com/Sumatoshi-tech/commitflow/internal/webhook"
	"github.com/Sumatoshi-tech/commitflow/pkg/observability"
)

// Delivery is one inbound webhook delivery before decoding.
type Delivery struct {
	Provider        string
	DeliveryID      string
	Body            []byte
	SignatureHeader string
}

// Summary reports what one payload produced.
type Summary struct {
	ProjectKey      string `json:"project"         yaml:"project"`
	CommitsIngested int    `json:"commitsIngested" yaml:"commitsIngested"`
	Duplicates      int    `json:"duplicates"      yaml:"duplicates"`
	TasksTouched    int    `json:"tasksTouched"    yaml:"tasksTouched"`
	DirectiveMisses int    `json:"directiveMisses" yaml:"directiveMisses"`
	DegradedStats   int    `json:"degradedStats"   yaml:"degradedStats"`
}

// Pipeline wires the ingestion stages together. Safe for concurrent use.
type Pipeline struct {
	store      *store.Store
	extractor  *stats.Extractor
	reconciler *task.Reconciler
	emitter    notify.Emitter
	metrics    *observability.IngestMetrics
	logger     *slog.Logger

	projects *cache.TTL[string, *store.Project]
	users    *cache.TTL[string, *store.User]
}

// NewPipeline creates a pipeline. metrics may be nil (the CLI path runs
// without a meter); cacheTTL bounds how long project and user lookups are
// reused.
func NewPipeline(
	st *store.Store,
	extractor *stats.Extractor,
	emitter notify.Emitter,
	metrics *observability.IngestMetrics,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	return &Pipeline{
		store:      st,
		extractor:  extractor,
		reconciler: task.NewReconciler(logger),
		emitter:    emitter,
		metrics:    metrics,
		logger:     logger,
		projects:   cache.NewTTL[string, *store.Project](cacheTTL),
		users:      cache.NewTTL[string, *store.User](cacheTTL),
	}
}

// ProcessDelivery handles one authenticated webhook delivery: the project is
// resolved from the payload's repository identity and the signature is checked
// against that project's secret before anything is persisted.
func (p *Pipeline) ProcessDelivery(ctx context.Context, delivery Delivery) (*Summary, error) {
	payload, err := webhook.Decode(delivery.Body)
	if err != nil {
		return nil, err
	}

	project, err := p.resolveProject(ctx, payload.Repository.ID, payload.Repository.HTMLURL)
	if err != nil {
		return nil, err
	}

	if err := signature.Verify(delivery.Body, delivery.SignatureHeader, project.Secret); err != nil {
		return nil, err
	}

	if project.Secret == "" {
		p.logger.Warn("accepting unsigned payload, project has no secret",
			"project", project.Key)
	}

	if err := p.archive(ctx, project.ID, delivery); err != nil {
		return nil, err
	}

	return p.process(ctx, project, payload)
}

// ProcessLocal handles an operator-submitted payload for a known project.
// The signature check is skipped; the input came from the local CLI, not the
// network.
func (p *Pipeline) ProcessLocal(ctx context.Context, projectKey string, body []byte) (*Summary, error) {
	payload, err := webhook.Decode(body)
	if err != nil {
		return nil, err
	}

	project, err := p.store.ProjectByKey(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	delivery := Delivery{Provider: "cli", Body: body}

	if err := p.archive(ctx, project.ID, delivery); err != nil {
		return nil, err
	}

	return p.process(ctx, project, payload)
}

func (p *Pipeline) archive(ctx context.Context, projectID int64, delivery Delivery) error {
	archived := &store.ArchivedPayload{
		ProjectID:  projectID,
		Provider:   delivery.Provider,
		DeliveryID: delivery.DeliveryID,
		Body:       delivery.Body,
		ReceivedAt: time.Now().UTC(),
	}

	if err := p.store.ArchivePayload(ctx, archived); err != nil {
		return fmt.Errorf("archive payload: %w", err)
	}

	return nil
}

func (p *Pipeline) process(ctx context.Context, project *store.Project, payload *webhook.Payload) (*Summary, error) {
	summary := &Summary{ProjectKey: project.Key}

	for i := range payload.Commits {
		if err := p.processCommit(ctx, project, &payload.Commits[i], summary); err != nil {
			return nil, fmt.Errorf("commit %s: %w", payload.Commits[i].ID, err)
		}
	}

	return summary, nil
}

// processCommit runs one commit end to end. Statistics extraction happens
// before the transaction opens; it does network I/O and must not hold the
// database write lock.
func (p *Pipeline) processCommit(ctx context.Context, project *store.Project, commit *webhook.Commit, summary *Summary) error {
	exists, err := p.store.CommitExists(ctx, project.ID, commit.ID)
	if err != nil {
		return err
	}

	if exists {
		p.markDuplicate(ctx, project.Key, commit.ID, summary)

		return nil
	}

	extracted := p.extractor.Extract(ctx, stats.Input{
		DetailURL: commit.URL,
		Added:     commit.Added,
		Removed:   commit.Removed,
		Modified:  commit.Modified,
	})

	dir := directive.Parse(commit.Message)

	var assignee *store.User
	if dir != nil && dir.Assignee != nil {
		assignee = p.resolveUser(ctx, *dir.Assignee)
	}

	var (
		events []notify.Event
		won    bool
	)

	err = p.store.WithTx(ctx, func(tx *store.Tx) error {
		record := commitRecord(project.ID, commit, extracted)

		inserted, err := tx.InsertCommit(ctx, record)
		if err != nil {
			return err
		}

		// Lost the dedup race to a concurrent delivery of the same commit.
		if !inserted {
			p.markDuplicate(ctx, project.Key, commit.ID, summary)

			return nil
		}

		won = true

		if err := tx.InsertFileChanges(ctx, record.ID, fileChangeRecords(record.ID, extracted)); err != nil {
			return err
		}

		if dir != nil {
			result, err := p.reconciler.Reconcile(ctx, tx, project.ID, record, dir, assignee)
			if err != nil {
				return err
			}

			events = result.Events
			summary.TasksTouched++
		}

		if err := tx.ApplyLedgerDelta(ctx, ledgerDelta(project.ID, commit, extracted)); err != nil {
			return err
		}

		summary.CommitsIngested++

		return nil
	})
	if err != nil {
		return err
	}

	if !won {
		return nil
	}

	p.recordCommitOutcome(ctx, commit, dir, extracted, summary)

	// Events go out only after the transaction committed; a rolled-back
	// reconciliation must not notify anyone.
	if p.emitter != nil {
		for _, event := range events {
			p.emitter.Emit(event)
		}
	}

	return nil
}

func (p *Pipeline) markDuplicate(ctx context.Context, projectKey, hash string, summary *Summary) {
	summary.Duplicates++

	p.logger.Debug("duplicate commit skipped", "project", projectKey, "hash", hash)

	if p.metrics != nil {
		p.metrics.RecordDuplicate(ctx)
	}
}

func (p *Pipeline) recordCommitOutcome(
	ctx context.Context,
	commit *webhook.Commit,
	dir *directive.Directive,
	extracted stats.CommitStats,
	summary *Summary,
) {
	if dir == nil {
		summary.DirectiveMisses++

		p.logger.Debug("no directive in commit message", "hash", commit.ID)
	}

	if extracted.Degraded {
		summary.DegradedStats++

		p.logger.Warn("statistics degraded to file counts", "hash", commit.ID)
	}

	if p.metrics == nil {
		return
	}

	p.metrics.RecordCommitIngested(ctx)

	if dir != nil {
		p.metrics.RecordDirective(ctx)
	} else {
		p.metrics.RecordDirectiveMiss(ctx)
	}

	if extracted.Degraded {
		p.metrics.RecordDegradedStats(ctx)
	}
}

// resolveProject looks the project up by repository identity, through the TTL
// cache. Only successful lookups are cached; an unknown repository keeps
// hitting the store so a freshly registered project is seen immediately.
func (p *Pipeline) resolveProject(ctx context.Context, externalID int64, htmlURL string) (*store.Project, error) {
	key := fmt.Sprintf("%d|%s", externalID, htmlURL)

	if project, ok := p.projects.Get(key); ok {
		return project, nil
	}

	project, err := p.store.ProjectByRepository(ctx, externalID, htmlURL)
	if err != nil {
		return nil, err
	}

	p.projects.Set(key, project)

	return project, nil
}

// resolveUser maps an assignee token to a known user, nil when unknown.
// An unresolved token is not an error; the directive's assignee is simply
// left unapplied.
func (p *Pipeline) resolveUser(ctx context.Context, token string) *store.User {
	if user, ok := p.users.Get(token); ok {
		return user
	}

	user, err := p.store.UserByToken(ctx, token)
	if err != nil {
		p.logger.Debug("assignee token did not resolve", "token", token)

		return nil
	}

	p.users.Set(token, user)

	return user
}

func commitRecord(projectID int64, commit *webhook.Commit, extracted stats.CommitStats) *store.CommitRecord {
	return &store.CommitRecord{
		ProjectID:     projectID,
		Hash:          commit.ID,
		Message:       commit.Message,
		AuthorName:    commit.Author.Name,
		AuthorEmail:   commit.Author.Email,
		AuthoredAt:    commit.Timestamp,
		SourceURL:     commit.URL,
		LinesAdded:    extracted.Added,
		LinesModified: extracted.Modified,
		LinesDeleted:  extracted.Deleted,
		FilesChanged:  extracted.FilesChanged,
		Degraded:      extracted.Degraded,
	}
}

func fileChangeRecords(commitID int64, extracted stats.CommitStats) []store.FileChangeRecord {
	records := make([]store.FileChangeRecord, 0, len(extracted.Files))

	for _, file := range extracted.Files {
		records = append(records, store.FileChangeRecord{
			CommitID:      commitID,
			Path:          file.Path,
			ChangeKind:    string(file.Kind),
			LinesAdded:    file.Added,
			LinesDeleted:  file.Deleted,
			LinesModified: file.Modified,
			Language:      file.Language,
		})
	}

	return records
}

func ledgerDelta(projectID int64, commit *webhook.Commit, extracted stats.CommitStats) store.LedgerDelta {
	languages := map[string]store.LineStats{}

	for _, file := range extracted.Files {
		if file.Language == "" {
			continue
		}

		slot := languages[file.Language]
		slot.Added += file.Added
		slot.Modified += file.Modified
		slot.Deleted += file.Deleted
		languages[file.Language] = slot
	}

	return store.LedgerDelta{
		ProjectID:     projectID,
		Email:         commit.Author.Email,
		Name:          commit.Author.Name,
		LinesAdded:    extracted.Added,
		LinesModified: extracted.Modified,
		LinesDeleted:  extracted.Deleted,
		FilesChanged:  extracted.FilesChanged,
		Languages:     languages,
		CommittedAt:   commit.Timestamp,
	}
}
