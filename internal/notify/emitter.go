// Package notify is the asynchronous side channel for task state changes.
// Emission is fire-and-forget: reconciliation correctness never depends on a
// notification being delivered.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventKind classifies a notification.
type EventKind string

// Notification kinds.
const (
	EventTaskCreated     EventKind = "task_created"
	EventStatusChanged   EventKind = "status_changed"
	EventAssigneeChanged EventKind = "assignee_changed"
)

// Event is one task state change.
type Event struct {
	ID          string
	Kind        EventKind
	ProjectID   int64
	TaskID      int64
	FeatureCode string
	OldValue    string
	NewValue    string
	OccurredAt  time.Time
}

// NewEvent builds an event with a fresh identifier and timestamp.
func NewEvent(kind EventKind, projectID, taskID int64, featureCode, oldValue, newValue string) Event {
	return Event{
		ID:          uuid.NewString(),
		Kind:        kind,
		ProjectID:   projectID,
		TaskID:      taskID,
		FeatureCode: featureCode,
		OldValue:    oldValue,
		NewValue:    newValue,
		OccurredAt:  time.Now().UTC(),
	}
}

// Sink delivers events to the external notification channel.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// LogSink writes events to the structured log. The default sink when no
// external channel is wired.
type LogSink struct {
	Logger *slog.Logger
}

// Deliver logs the event.
func (ls *LogSink) Deliver(ctx context.Context, event Event) error {
	ls.Logger.InfoContext(ctx, "notification",
		"event_id", event.ID,
		"kind", string(event.Kind),
		"project_id", event.ProjectID,
		"task_id", event.TaskID,
		"feature_code", event.FeatureCode,
		"old", event.OldValue,
		"new", event.NewValue,
	)

	return nil
}

// Emitter accepts events for asynchronous delivery.
type Emitter interface {
	Emit(event Event)
}

// AsyncEmitter drains a bounded buffer with one background worker.
// When the buffer is full the event is dropped and counted; ingestion is
// never blocked by a slow notification channel.
type AsyncEmitter struct {
	sink      Sink
	events    chan Event
	logger    *slog.Logger
	onDropped func()
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewAsyncEmitter starts the delivery worker. onDropped may be nil.
func NewAsyncEmitter(sink Sink, bufferSize int, logger *slog.Logger, onDropped func()) *AsyncEmitter {
	if logger == nil {
		logger = slog.Default()
	}

	emitter := &AsyncEmitter{
		sink:      sink,
		events:    make(chan Event, bufferSize),
		logger:    logger,
		onDropped: onDropped,
	}

	emitter.wg.Add(1)

	go emitter.drain()

	return emitter
}

// Emit enqueues an event, dropping it when the buffer is full.
func (e *AsyncEmitter) Emit(event Event) {
	select {
	case e.events <- event:
	default:
		e.logger.Warn("notification buffer full, event dropped",
			"kind", string(event.Kind), "feature_code", event.FeatureCode)

		if e.onDropped != nil {
			e.onDropped()
		}
	}
}

// Close stops accepting events and waits for buffered ones to flush.
func (e *AsyncEmitter) Close() {
	e.closeOnce.Do(func() {
		close(e.events)
	})

	e.wg.Wait()
}

func (e *AsyncEmitter) drain() {
	defer e.wg.Done()

	for event := range e.events {
		if err := e.sink.Deliver(context.Background(), event); err != nil {
			// Delivery is best-effort; a failed notification is logged and dropped.
			e.logger.Warn("notification delivery failed",
				"event_id", event.ID, "error", err)
		}
	}
}
