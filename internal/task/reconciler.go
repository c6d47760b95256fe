// Package task reconciles parsed directives into task state. The reconciler
// is a per-commit state machine step: it creates or mutates the task a
// feature code addresses and records which commit drove the change.
package task

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/Sumatoshi-tech/commitflow/internal/directive"
	"github.com/Sumatoshi-tech/commitflow/internal/notify"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

// Reconciler applies directives inside the ingestion transaction.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{logger: logger}
}

// Result is the outcome of one reconciliation: the task the commit resolved
// against and the change events to hand to the notification emitter after
// the transaction commits.
type Result struct {
	Task   *store.Task
	Events []notify.Event
}

// Reconcile creates or updates the task addressed by dir and links the
// commit record to it. assignee is the pre-resolved user for the directive's
// assignee token; nil means the token was absent or did not resolve, which
// leaves the assignee field alone and is never an error.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	tx *store.Tx,
	projectID int64,
	commit *store.CommitRecord,
	dir *directive.Directive,
	assignee *store.User,
) (*Result, error) {
	existing, err := tx.TaskByFeature(ctx, projectID, dir.FeatureCode)

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return r.create(ctx, tx, projectID, commit, dir, assignee)
	case err != nil:
		return nil, err
	default:
		return r.update(ctx, tx, existing, commit, dir, assignee)
	}
}

func (r *Reconciler) create(
	ctx context.Context,
	tx *store.Tx,
	projectID int64,
	commit *store.CommitRecord,
	dir *directive.Directive,
	assignee *store.User,
) (*Result, error) {
	created := &store.Task{
		ProjectID:   projectID,
		FeatureCode: dir.FeatureCode,
		Title:       dir.Title,
		Status:      dir.Status,
		Sprint:      dir.Sprint,
		Tags:        append([]string(nil), dir.Tags...),
	}

	if assignee != nil {
		created.AssigneeID = &assignee.ID
	}

	applyOptionalFields(created, dir)

	if err := tx.CreateTask(ctx, created); err != nil {
		return nil, err
	}

	if err := tx.LinkCommitToTask(ctx, commit.ID, created.ID); err != nil {
		return nil, err
	}

	r.logger.DebugContext(ctx, "task created",
		"feature_code", created.FeatureCode, "status", string(created.Status))

	event := notify.NewEvent(notify.EventTaskCreated,
		projectID, created.ID, created.FeatureCode, "", string(created.Status))

	return &Result{Task: created, Events: []notify.Event{event}}, nil
}

func (r *Reconciler) update(
	ctx context.Context,
	tx *store.Tx,
	existing *store.Task,
	commit *store.CommitRecord,
	dir *directive.Directive,
	assignee *store.User,
) (*Result, error) {
	var events []notify.Event

	existing.Title = dir.Title

	oldStatus := existing.Status

	if next, moved := Transition(existing.Status, dir.Status); moved {
		existing.Status = next
		events = append(events, notify.NewEvent(notify.EventStatusChanged,
			existing.ProjectID, existing.ID, existing.FeatureCode,
			string(oldStatus), string(next)))
	}

	if assignee != nil && !sameAssignee(existing.AssigneeID, assignee.ID) {
		events = append(events, notify.NewEvent(notify.EventAssigneeChanged,
			existing.ProjectID, existing.ID, existing.FeatureCode,
			formatAssignee(existing.AssigneeID), strconv.FormatInt(assignee.ID, 10)))

		existing.AssigneeID = &assignee.ID
	}

	existing.Tags = unionTags(existing.Tags, dir.Tags)

	if dir.Sprint != nil {
		existing.Sprint = dir.Sprint
	}

	applyOptionalFields(existing, dir)

	if err := tx.UpdateTask(ctx, existing); err != nil {
		return nil, err
	}

	if err := tx.LinkCommitToTask(ctx, commit.ID, existing.ID); err != nil {
		return nil, err
	}

	return &Result{Task: existing, Events: events}, nil
}

// applyOptionalFields copies the recorded-only directive fields that are
// present. Estimate and task type never drive status; they are bookkeeping.
func applyOptionalFields(target *store.Task, dir *directive.Directive) {
	if dir.BacklogPriority != nil {
		priority := string(*dir.BacklogPriority)
		target.BacklogPriority = &priority
	}

	if dir.StoryPoints != nil {
		target.StoryPoints = dir.StoryPoints
	}

	if dir.Estimate != nil {
		minutes := dir.Estimate.Minutes()
		target.EstimateMinutes = &minutes
	}

	if dir.TaskType != nil {
		taskType := string(*dir.TaskType)
		target.TaskType = &taskType
	}
}

// unionTags keeps existing tags and appends new ones not already present.
// A commit directive never removes tags.
func unionTags(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing))
	for _, tag := range existing {
		seen[tag] = struct{}{}
	}

	out := existing

	for _, tag := range incoming {
		if _, ok := seen[tag]; ok {
			continue
		}

		seen[tag] = struct{}{}
		out = append(out, tag)
	}

	return out
}

func sameAssignee(current *int64, next int64) bool {
	return current != nil && *current == next
}

func formatAssignee(id *int64) string {
	if id == nil {
		return ""
	}

	return strconv.FormatInt(*id, 10)
}
