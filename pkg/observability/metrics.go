package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricPayloadsTotal        = "commitflow.payloads.total"
	metricPayloadDuration      = "commitflow.payload.duration.seconds"
	metricCommitsIngested      = "commitflow.commits.ingested.total"
	metricCommitsDuplicate     = "commitflow.commits.duplicate.total"
	metricDirectivesParsed     = "commitflow.directives.parsed.total"
	metricDirectiveMisses      = "commitflow.directives.miss.total"
	metricStatsDegraded        = "commitflow.stats.degraded.total"
	metricNotificationsDropped = "commitflow.notifications.dropped.total"

	attrStatus = "status"
	attrSource = "source"
)

// durationBucketBoundaries covers 5ms to 30s; one payload may carry many
// commits, each with a bounded remote stats fetch.
var durationBucketBoundaries = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// IngestMetrics holds the OTel instruments for the ingestion pipeline.
type IngestMetrics struct {
	payloadsTotal        metric.Int64Counter
	payloadDuration      metric.Float64Histogram
	commitsIngested      metric.Int64Counter
	commitsDuplicate     metric.Int64Counter
	directivesParsed     metric.Int64Counter
	directiveMisses      metric.Int64Counter
	statsDegraded        metric.Int64Counter
	notificationsDropped metric.Int64Counter
}

// NewIngestMetrics creates ingestion metric instruments from the given meter.
func NewIngestMetrics(mt metric.Meter) (*IngestMetrics, error) {
	payloads, err := mt.Int64Counter(metricPayloadsTotal,
		metric.WithDescription("Total number of ingested payloads by outcome"),
		metric.WithUnit("{payload}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPayloadsTotal, err)
	}

	duration, err := mt.Float64Histogram(metricPayloadDuration,
		metric.WithDescription("Payload processing duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPayloadDuration, err)
	}

	ingested, err := mt.Int64Counter(metricCommitsIngested,
		metric.WithDescription("Total number of commits ingested"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsIngested, err)
	}

	duplicate, err := mt.Int64Counter(metricCommitsDuplicate,
		metric.WithDescription("Total number of duplicate commit deliveries skipped"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCommitsDuplicate, err)
	}

	parsed, err := mt.Int64Counter(metricDirectivesParsed,
		metric.WithDescription("Total number of commit messages carrying a directive"),
		metric.WithUnit("{directive}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDirectivesParsed, err)
	}

	misses, err := mt.Int64Counter(metricDirectiveMisses,
		metric.WithDescription("Total number of commit messages without a directive"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDirectiveMisses, err)
	}

	degraded, err := mt.Int64Counter(metricStatsDegraded,
		metric.WithDescription("Total number of commits recorded with fallback statistics"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStatsDegraded, err)
	}

	dropped, err := mt.Int64Counter(metricNotificationsDropped,
		metric.WithDescription("Total number of notifications dropped on emitter overflow"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricNotificationsDropped, err)
	}

	return &IngestMetrics{
		payloadsTotal:        payloads,
		payloadDuration:      duration,
		commitsIngested:      ingested,
		commitsDuplicate:     duplicate,
		directivesParsed:     parsed,
		directiveMisses:      misses,
		statsDegraded:        degraded,
		notificationsDropped: dropped,
	}, nil
}

// RecordPayload records a completed payload with its source, outcome, and duration.
func (im *IngestMetrics) RecordPayload(ctx context.Context, source, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	)

	im.payloadsTotal.Add(ctx, 1, attrs)
	im.payloadDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCommitIngested increments the ingested commit counter.
func (im *IngestMetrics) RecordCommitIngested(ctx context.Context) {
	im.commitsIngested.Add(ctx, 1)
}

// RecordDuplicate increments the duplicate delivery counter.
func (im *IngestMetrics) RecordDuplicate(ctx context.Context) {
	im.commitsDuplicate.Add(ctx, 1)
}

// RecordDirective increments the parsed-directive counter.
func (im *IngestMetrics) RecordDirective(ctx context.Context) {
	im.directivesParsed.Add(ctx, 1)
}

// RecordDirectiveMiss increments the no-directive counter.
func (im *IngestMetrics) RecordDirectiveMiss(ctx context.Context) {
	im.directiveMisses.Add(ctx, 1)
}

// RecordDegradedStats increments the fallback statistics counter.
func (im *IngestMetrics) RecordDegradedStats(ctx context.Context) {
	im.statsDegraded.Add(ctx, 1)
}

// RecordNotificationDropped increments the dropped notification counter.
func (im *IngestMetrics) RecordNotificationDropped(ctx context.Context) {
	im.notificationsDropped.Add(ctx, 1)
}
