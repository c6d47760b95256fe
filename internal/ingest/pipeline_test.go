package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/commitflow/internal/directive"
	"github.com/Sumatoshi-tech/commitflow/internal/notify"
	"github.com/Sumatoshi-tech/commitflow/internal/signature"
	"github.com/Sumatoshi-tech/commitflow/internal/stats"
	"github.com/Sumatoshi-tech/commitflow/internal/store"
)

const (
	testRepoID  = int64(42)
	testRepoURL = "https://git.example.com/acme/app"
	testSecret  = "hook-secret"
)

// collectEmitter records events synchronously for assertions.
type collectEmitter struct {
	events []notify.Event
}

func (c *collectEmitter) Emit(event notify.Event) { c.events = append(c.events, event) }

func (c *collectEmitter) Close() {}

func newTestPipeline(t *testing.T) (*Pipeline, *store.Store, *collectEmitter) {
	t.Helper()

	st, err := store.Open(":memory:")
	require.NoError(t, err)

	t.Cleanup(func() { _ = st.Close() })

	project := &store.Project{
		Key:        "acme-app",
		ExternalID: testRepoID,
		HTMLURL:    testRepoURL,
		Secret:     testSecret,
	}
	require.NoError(t, st.CreateProject(context.Background(), project))

	user := &store.User{Nickname: "alice", Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, st.CreateUser(context.Background(), user))

	emitter := &collectEmitter{}
	extractor := stats.NewExtractor(nil, 100*time.Millisecond, nil)

	return NewPipeline(st, extractor, emitter, nil, time.Minute, nil), st, emitter
}

func payloadJSON(hash, message string) []byte {
	return fmt.Appendf(nil, `{
		"repository": {"id": %d, "html_url": %q},
		"commits": [{
			"id": %q,
			"message": %q,
			"author": {"name": "Alice", "email": "alice@example.com"},
			"timestamp": "2025-06-01T10:00:00Z",
			"added": ["auth/login.go"],
			"modified": ["auth/session.go"]
		}]
	}`, testRepoID, testRepoURL, hash, message)
}

func signedDelivery(body []byte) Delivery {
	return Delivery{
		Provider:        "github",
		DeliveryID:      "d-1",
		Body:            body,
		SignatureHeader: signature.Compute(body, testSecret),
	}
}

func TestProcessDelivery_IngestsCommitAndTask(t *testing.T) {
	t.Parallel()

	pipeline, st, emitter := newTestPipeline(t)
	ctx := context.Background()

	body := payloadJSON("abc123", "Feature7: Add login #auth -> alice -> sp:3")

	summary, err := pipeline.ProcessDelivery(ctx, signedDelivery(body))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CommitsIngested)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Equal(t, 1, summary.TasksTouched)
	// No detail URL in the payload, so the extractor fell back to file counts.
	assert.Equal(t, 1, summary.DegradedStats)

	tasks, err := st.ListTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Feature7", tasks[0].FeatureCode)
	assert.Equal(t, directive.StatusInProgress, tasks[0].Status)
	require.NotNil(t, tasks[0].AssigneeID)

	entries, err := st.ListLedger(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "alice@example.com", entries[0].Email)
	assert.Equal(t, 1, entries[0].Commits)
	assert.Equal(t, 2, entries[0].FilesChanged)

	require.Len(t, emitter.events, 1)
	assert.Equal(t, notify.EventTaskCreated, emitter.events[0].Kind)
}

func TestProcessDelivery_RedeliveryIsIdempotent(t *testing.T) {
	t.Parallel()

	pipeline, st, emitter := newTestPipeline(t)
	ctx := context.Background()

	body := payloadJSON("abc123", "Feature7: Add login -> review")

	_, err := pipeline.ProcessDelivery(ctx, signedDelivery(body))
	require.NoError(t, err)

	summary, err := pipeline.ProcessDelivery(ctx, signedDelivery(body))
	require.NoError(t, err)

	assert.Equal(t, 0, summary.CommitsIngested)
	assert.Equal(t, 1, summary.Duplicates)
	assert.Equal(t, 0, summary.TasksTouched)

	commits, err := st.ListCommits(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, commits, 1)

	entries, err := st.ListLedger(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Commits)

	// Only the first delivery emitted anything.
	assert.Len(t, emitter.events, 1)
}

func TestProcessDelivery_BadSignatureRejected(t *testing.T) {
	t.Parallel()

	pipeline, st, _ := newTestPipeline(t)
	ctx := context.Background()

	body := payloadJSON("abc123", "Feature7: Add login")
	delivery := signedDelivery(body)
	delivery.SignatureHeader = signature.Compute(body, "wrong-secret")

	_, err := pipeline.ProcessDelivery(ctx, delivery)
	require.ErrorIs(t, err, signature.ErrBadSignature)

	// Nothing was persisted, not even the payload archive.
	commits, err := st.ListCommits(ctx, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestProcessDelivery_UnknownRepository(t *testing.T) {
	t.Parallel()

	pipeline, _, _ := newTestPipeline(t)

	body := fmt.Appendf(nil, `{
		"repository": {"id": 999, "html_url": "https://git.example.com/other/repo"},
		"commits": []
	}`)

	_, err := pipeline.ProcessDelivery(context.Background(), signedDelivery(body))
	require.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestProcessDelivery_NoDirectiveStillLedgers(t *testing.T) {
	t.Parallel()

	pipeline, st, emitter := newTestPipeline(t)
	ctx := context.Background()

	body := payloadJSON("abc123", "chore: bump dependencies")

	summary, err := pipeline.ProcessDelivery(ctx, signedDelivery(body))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CommitsIngested)
	assert.Equal(t, 0, summary.TasksTouched)
	assert.Equal(t, 1, summary.DirectiveMisses)

	tasks, err := st.ListTasks(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	entries, err := st.ListLedger(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.Empty(t, emitter.events)
}

func TestProcessLocal_SkipsSignature(t *testing.T) {
	t.Parallel()

	pipeline, _, _ := newTestPipeline(t)

	body := payloadJSON("def456", "Feature9: Direct ingest -> done")

	summary, err := pipeline.ProcessLocal(context.Background(), "acme-app", body)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.CommitsIngested)
	assert.Equal(t, 1, summary.TasksTouched)
}

func TestProcessLocal_UnknownProjectKey(t *testing.T) {
	t.Parallel()

	pipeline, _, _ := newTestPipeline(t)

	_, err := pipeline.ProcessLocal(context.Background(), "nope", payloadJSON("x", "m"))
	require.ErrorIs(t, err, store.ErrProjectNotFound)
}
